package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/ValentinKolb/kvRelay/relay/transport"
)

// NewRelayClient creates a new relay client and connects its transport
// The function takes a client config, a transport and a serializer as parameters
//
// Usage:
//
//	c, err := client.NewRelayClient(
//		common.ClientConfig{Endpoint: "ws://localhost:8080/", TimeoutSecond: 5},
//		ws.NewWSClientTransport(),
//		serializer.NewJSONSerializer(),
//	)
func NewRelayClient(
	config common.ClientConfig,
	transport transport.IRelayClientTransport,
	serializer serializer.IRelaySerializer,
) (*RelayClient, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RelayClient{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// RelayClient speaks the relay protocol. It is safe for concurrent use,
// commands are serialized on the underlying connection.
type RelayClient struct {
	config     common.ClientConfig
	transport  transport.IRelayClientTransport
	serializer serializer.IRelaySerializer
}

// Set stores value under key and returns the value as stored by the relay
func (c *RelayClient) Set(ctx context.Context, key, value string) (string, error) {
	reply, err := invokeRelayCommand(ctx, common.NewSetCommand(key, value), common.ReplyTValue, c.transport, c.serializer)
	if err != nil {
		return "", err
	}
	return valueString(reply)
}

// Get returns the value of key, loaded is false if the key does not exist
func (c *RelayClient) Get(ctx context.Context, key string) (value string, loaded bool, err error) {
	reply, err := invokeRelayCommand(ctx, common.NewGetCommand(key), common.ReplyTValue, c.transport, c.serializer)
	if IsReplyError(err, common.ErrMsgKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	value, err = valueString(reply)
	return value, err == nil, err
}

// Delete removes key, deleting a missing key is not an error
func (c *RelayClient) Delete(ctx context.Context, key string) error {
	_, err := invokeRelayCommand(ctx, common.NewDeleteCommand(key), common.ReplyTValue, c.transport, c.serializer)
	return err
}

// Increment adds delta to the integer value of key and returns the new value
func (c *RelayClient) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	reply, err := invokeRelayCommand(ctx, common.NewIncrementCommand(key, delta), common.ReplyTValue, c.transport, c.serializer)
	if err != nil {
		return 0, err
	}
	n, ok := reply.Value.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected increment result %v (%T)", reply.Value, reply.Value)
	}
	return n, nil
}

// Search returns all pairs whose key matches pattern ("" = every key) and,
// if query is not nil, whose value equals *query
func (c *RelayClient) Search(ctx context.Context, query *string, pattern string) ([]store.KeyValue, error) {
	reply, err := invokeRelayCommand(ctx, common.NewSearchCommand(query, pattern), common.ReplyTSearch, c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	return reply.Results, nil
}

// Do sends an arbitrary command and returns the raw reply, error replies included
func (c *RelayClient) Do(ctx context.Context, cmd common.Command) (*common.Reply, error) {
	reqBytes, err := c.serializer.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	respBytes, err := c.transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, err
	}
	reply := &common.Reply{}
	if err := c.serializer.DecodeReply(respBytes, reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return reply, nil
}

// Close closes the transport
func (c *RelayClient) Close() error {
	return c.transport.Close()
}

// valueString returns the string value of a {key, value} reply
func valueString(reply *common.Reply) (string, error) {
	s, ok := reply.Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected value %v (%T)", reply.Value, reply.Value)
	}
	return s, nil
}
