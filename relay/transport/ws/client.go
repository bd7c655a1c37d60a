package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/base"
	"github.com/gorilla/websocket"
)

// clientConnector implements the IClientConnector interface for websockets
type clientConnector struct {
	dialer *websocket.Dialer
	header http.Header
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "ws"
}

func (c *clientConnector) Connect(ctx context.Context, endpoint string) (base.IMessageConn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %s: %w", resp.Status, err)
		}
		return nil, err
	}
	return newWSConn(conn, 0, 0), nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWSClientTransport creates a new websocket client transport.
// The endpoint of the client config is a ws:// or wss:// URL.
func NewWSClientTransport() transport.IRelayClientTransport {
	return NewWSClientTransportWithHeader(nil)
}

// NewWSClientTransportWithHeader creates a websocket client transport that
// sends header (e.g. an Origin) with every handshake
func NewWSClientTransportWithHeader(header http.Header) transport.IRelayClientTransport {
	return base.NewBaseClientTransport(&clientConnector{
		dialer: websocket.DefaultDialer,
		header: header,
	})
}
