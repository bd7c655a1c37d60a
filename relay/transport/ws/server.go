package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/base"
	"github.com/gorilla/websocket"
)

var Logger = base.Logger

// serverConnector implements the IServerConnector interface for websockets
type serverConnector struct {
	mu     sync.Mutex
	mounts map[string]http.Handler
}

// wsServerTransport is the base server transport plus the http mounting point
type wsServerTransport struct {
	transport.IRelayServerTransport
	connector *serverConnector
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "ws"
}

func (c *serverConnector) Serve(ctx context.Context, listener net.Listener, config common.ServerConfig, serveConn func(conn base.IMessageConn)) error {
	writeTimeout := time.Duration(config.TimeoutSecond) * time.Second
	pingInterval := time.Duration(config.Transport.PingIntervalSecond) * time.Second

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(config.Transport.AllowedOrigins),
	}

	mux := http.NewServeMux()
	c.mu.Lock()
	for pattern, handler := range c.mounts {
		mux.Handle(pattern, handler)
	}
	c.mu.Unlock()

	// every other path upgrades to a relay connection
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader already answered with an http error
			Logger.Debugf("Websocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		wc := newWSConn(conn, writeTimeout, config.Transport.MaxMessageBytes)
		wc.keepAlive(pingInterval)
		serveConn(wc)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// hijacked websocket connections are closed by the connection handler
	stop := context.AfterFunc(ctx, func() { _ = srv.Close() })
	defer stop()

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IHTTPMounter)
// --------------------------------------------------------------------------

func (t *wsServerTransport) Mount(pattern string, handler http.Handler) {
	t.connector.mu.Lock()
	defer t.connector.mu.Unlock()
	t.connector.mounts[pattern] = handler
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// checkOrigin returns the origin policy for the upgrader. An empty allow-list
// accepts any origin, requests without an Origin header (non browser clients)
// are always accepted.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		Logger.Warningf("Rejected websocket upgrade from %s: origin %q not allowed", r.RemoteAddr, origin)
		return false
	}
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewWSServerTransport creates a new websocket server transport.
// The returned transport also implements transport.IHTTPMounter.
func NewWSServerTransport() transport.IRelayServerTransport {
	connector := &serverConnector{
		mounts: make(map[string]http.Handler),
	}
	return &wsServerTransport{
		IRelayServerTransport: base.NewBaseServerTransport(connector),
		connector:             connector,
	}
}
