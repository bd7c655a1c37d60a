package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
)

// cannedTransport answers every request with the next canned reply and records the requests
type cannedTransport struct {
	replies  []string
	requests []common.Command
	sendErr  error
}

func (c *cannedTransport) Connect(common.ClientConfig) error { return nil }
func (c *cannedTransport) Close() error                      { return nil }

func (c *cannedTransport) Send(_ context.Context, req []byte) ([]byte, error) {
	var cmd common.Command
	if err := json.Unmarshal(req, &cmd); err != nil {
		return nil, err
	}
	c.requests = append(c.requests, cmd)
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return []byte(reply), nil
}

func newTestClient(t *testing.T, replies ...string) (*RelayClient, *cannedTransport) {
	t.Helper()
	tr := &cannedTransport{replies: replies}
	c, err := NewRelayClient(common.ClientConfig{Endpoint: "test"}, tr, serializer.NewJSONSerializer())
	if err != nil {
		t.Fatalf("NewRelayClient failed: %v", err)
	}
	return c, tr
}

func TestClientGet(t *testing.T) {
	ctx := context.Background()
	c, tr := newTestClient(t, `{"key":"a","value":"1"}`, `{"error":"Key not found"}`, `{"error":"Store unavailable"}`)

	value, loaded, err := c.Get(ctx, "a")
	if err != nil || !loaded || value != "1" {
		t.Errorf("Expected (1, true, nil), got (%q, %v, %v)", value, loaded, err)
	}

	_, loaded, err = c.Get(ctx, "b")
	if err != nil || loaded {
		t.Errorf("Expected not found without error, got loaded=%v err=%v", loaded, err)
	}

	_, _, err = c.Get(ctx, "c")
	if !IsReplyError(err, common.ErrMsgStoreUnavailable) {
		t.Errorf("Expected %q reply error, got %v", common.ErrMsgStoreUnavailable, err)
	}

	if len(tr.requests) != 3 || tr.requests[0].Action != common.ActionGet || tr.requests[0].Key != "a" {
		t.Errorf("Unexpected requests: %+v", tr.requests)
	}
}

func TestClientIncrement(t *testing.T) {
	c, tr := newTestClient(t, `{"key":"n","value":15}`, `{"key":"n","value":"15"}`)

	n, err := c.Increment(context.Background(), "n", 5)
	if err != nil || n != 15 {
		t.Errorf("Expected 15, got %d (%v)", n, err)
	}
	if text, _ := tr.requests[0].ValueText(); text != "5" {
		t.Errorf("Expected delta 5 on the wire, got %q", text)
	}

	// a string value is not an increment result
	if _, err := c.Increment(context.Background(), "n", 5); err == nil {
		t.Error("Expected an error for a non integer result")
	}
}

func TestClientUnexpectedReplyType(t *testing.T) {
	c, _ := newTestClient(t, `{"results":[]}`)
	if _, err := c.Set(context.Background(), "a", "b"); err == nil {
		t.Error("Expected an error for a search reply to set")
	}
}

func TestClientTransportError(t *testing.T) {
	c, tr := newTestClient(t)
	tr.sendErr = errors.New("connection reset")

	err := c.Delete(context.Background(), "a")
	if err == nil || IsReplyError(err, common.ErrMsgOperationFailed) {
		t.Errorf("Expected the transport error, got %v", err)
	}
}
