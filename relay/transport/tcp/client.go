package tcp

import (
	"context"
	"net"

	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/base"
)

// clientConnector implements the IClientConnector interface for tcp sockets
type clientConnector struct {
	dialer net.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(ctx context.Context, endpoint string) (base.IMessageConn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, err
	}
	if err := UpgradeConnection(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	// replies are not limited on the client side
	return newFrameConn(conn, 0, 0), nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new tcp client transport.
// The endpoint of the client config is host:port.
func NewTCPClientTransport() transport.IRelayClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
