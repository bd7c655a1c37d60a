package base

import (
	"context"
	"fmt"
	"net"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Serve accepts connections on listener until ctx is done and calls serveConn
	// for each of them. serveConn blocks until the connection is closed.
	Serve(ctx context.Context, listener net.Listener, config common.ServerConfig, serveConn func(conn IMessageConn)) error

	// GetName returns the name of the transport type (e.g., "ws", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
}

// -----------------------------------------------------------
// Transport Factory Method (used for ws, tcp)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport for the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IRelayServerTransport {
	return &serverTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRelayServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig, ready func(addr net.Addr)) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered for %s transport", t.connector.GetName())
	}

	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	defer listener.Close()

	maxInflight := config.Transport.MaxInflightPerConn
	if maxInflight > 0 {
		Logger.Infof("Starting %s server on %s with at most %d in-flight messages per connection",
			t.connector.GetName(), listener.Addr(), maxInflight)
	} else {
		Logger.Infof("Starting %s server on %s", t.connector.GetName(), listener.Addr())
	}

	if ready != nil {
		ready(listener.Addr())
	}

	err = t.connector.Serve(ctx, listener, config, func(conn IMessageConn) {
		ServeConn(ctx, conn, t.handler, maxInflight)
	})
	if ctx.Err() != nil {
		Logger.Infof("Stopped %s server on %s", t.connector.GetName(), listener.Addr())
		return nil
	}
	return err
}
