package tcp

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/base"
)

var Logger = base.Logger

const keepAlivePeriod = 30 * time.Second

// serverConnector implements the IServerConnector interface for tcp sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Serve(ctx context.Context, listener net.Listener, config common.ServerConfig, serveConn func(conn base.IMessageConn)) error {
	writeTimeout := time.Duration(config.TimeoutSecond) * time.Second

	// closing the listener ends the accept loop
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := UpgradeConnection(conn); err != nil {
			Logger.Warningf("Failed to configure connection from %s: %v", conn.RemoteAddr(), err)
		}

		// Handle the connection in a goroutine
		go serveConn(newFrameConn(conn, config.Transport.MaxMessageBytes, writeTimeout))
	}
}

// UpgradeConnection applies socket options to a tcp connection.
// Replies are small and latency bound, so Nagle's algorithm is disabled.
func UpgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a tcp connection, nothing to upgrade
	}

	if err := tcpConn.SetNoDelay(true); err != nil {
		return err
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return err
	}
	return tcpConn.SetKeepAlivePeriod(keepAlivePeriod)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new tcp server transport
func NewTCPServerTransport() transport.IRelayServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
