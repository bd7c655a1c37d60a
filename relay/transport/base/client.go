package base

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/transport"
)

// ErrClientClosed is returned by Send after Close
var ErrClientClosed = errors.New("client transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string) (IMessageConn, error)

	// GetName returns the name of the transport type (e.g., "ws", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// sendError marks errors that happened before the request reached the connection.
// Only those are retried: a request that was written may have been executed.
type sendError struct {
	err error
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (ws, tcp)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	mu      sync.Mutex // serializes request/reply pairs and protects conn
	conn    IMessageConn
	closed  bool
	timeout time.Duration
}

// -----------------------------------------------------------
// Transport Factory Method (used for ws, tcp)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRelayClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRelayClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	t.timeout = time.Duration(config.TimeoutSecond) * time.Second
	t.closed = false
	t.closeConn()

	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	conn, err := t.connector.Connect(ctx, config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}
	t.conn = conn

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(ctx context.Context, req []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClientClosed
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	// We always try at least once, and up to RetryCount times
	maxRetries := t.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			select {
			case <-time.After(time.Duration(jitter) * time.Millisecond):
			case <-ctx.Done():
				return nil, fmt.Errorf("request aborted after %d attempts: %w", i, lastErr)
			}
			backoffMs *= 2
		}

		resp, err := t.roundTrip(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// the connection is out of sync after any failure
		t.closeConn()

		var se *sendError
		if !errors.As(err, &se) {
			return nil, err
		}
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.closeConn()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// roundTrip writes req and waits for the next message. The caller holds t.mu.
func (t *clientTransport) roundTrip(ctx context.Context, req []byte) ([]byte, error) {
	if t.conn == nil {
		conn, err := t.connector.Connect(ctx, t.config.Endpoint)
		if err != nil {
			return nil, &sendError{fmt.Errorf("failed to connect to %s: %w", t.config.Endpoint, err)}
		}
		t.conn = conn
	}
	conn := t.conn

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &sendError{err}
	}

	// unblock reads and writes when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := conn.WriteMessage(req); err != nil {
		return nil, &sendError{fmt.Errorf("failed to write request: %w", err)}
	}

	resp, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for reply: %w", ctx.Err())
		}
		return nil, fmt.Errorf("error reading reply: %w", err)
	}
	return resp, nil
}

// closeConn closes the current connection, the next request reconnects
func (t *clientTransport) closeConn() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
