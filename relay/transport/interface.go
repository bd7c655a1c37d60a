package transport

import (
	"context"
	"net"
	"net/http"

	"github.com/ValentinKolb/kvRelay/relay/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming messages
// This function is called by a server transport layer for every message a client sends.
// ctx is the context of the server, not of the connection: closing the connection does not cancel it.
// A nil response means that no reply is sent.
type ServerHandleFunc func(ctx context.Context, req []byte) (resp []byte)

// IRelayServerTransport is the interface for the client facing transport layer
type IRelayServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every message received on any connection
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds config.Endpoint and serves connections until ctx is done.
	// ready (may be nil) is called with the bound address before the first connection is accepted.
	// Listen returns nil after a shutdown through ctx.
	Listen(ctx context.Context, config common.ServerConfig, ready func(addr net.Addr)) error
}

// IHTTPMounter is implemented by server transports that serve HTTP and can
// host additional handlers (e.g. the status endpoints) next to the relay
type IHTTPMounter interface {
	// Mount registers handler for pattern, it must be called before Listen
	Mount(pattern string, handler http.Handler)
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRelayClientTransport is the interface for the relay client transport
type IRelayClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a message to the relay and returns the reply.
	// The relay protocol has no request ids, so requests on one transport are serialized.
	Send(ctx context.Context, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
