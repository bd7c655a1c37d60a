package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// ReplyError is returned when the relay answered with an error reply
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("relay error: %s", e.Msg)
}

// IsReplyError reports whether err is a ReplyError carrying msg (one of the common.ErrMsg* constants)
func IsReplyError(err error, msg string) bool {
	var re *ReplyError
	return errors.As(err, &re) && re.Msg == msg
}

// invokeRelayCommand is a helper function used by all client methods to send commands
// It takes a command, a transport layer and a serializer as parameters
// It returns the reply and an error if any occurs. Error replies are returned as *ReplyError.
// This method also checks if the type of the reply is the expected type
func invokeRelayCommand(ctx context.Context, cmd common.Command, expected common.ReplyType, transport transport.IRelayClientTransport, serializer serializer.IRelaySerializer) (*common.Reply, error) {
	// Encode the command
	reqBytes, err := serializer.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	// Send the command
	respBytes, err := transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	// Decode the reply
	reply := &common.Reply{}
	if err := serializer.DecodeReply(respBytes, reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}

	// Check if the reply is an error reply
	if reply.IsError() {
		return nil, &ReplyError{Msg: reply.Err}
	}

	// Check if the type of the reply is the expected type
	if reply.Type != expected {
		return nil, fmt.Errorf("unexpected reply for %s: %s", cmd.Action, respBytes)
	}

	// Return the reply
	return reply, nil
}
