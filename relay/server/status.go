package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/metrics"
	"github.com/ValentinKolb/kvRelay/relay/transport"
)

// --------------------------------------------------------------------------
// Status endpoints
// --------------------------------------------------------------------------

// statusHandlers returns the status endpoints by path
func (s *RelayServer) statusHandlers() map[string]http.Handler {
	return map[string]http.Handler{
		"/healthz": http.HandlerFunc(s.handleHealth),
		"/readyz":  http.HandlerFunc(s.handleReady),
		"/metrics": metrics.Handler(),
	}
}

// handleHealth answers 200 once the relay is listening
func (s *RelayServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.isReady() {
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}
	_, _ = fmt.Fprintln(w, "ok")
}

// handleReady answers 200 only while the store is connected, the body names the store state
func (s *RelayServer) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.store.State()
	if !s.isReady() || state != store.StateConnected {
		http.Error(w, state.String(), http.StatusServiceUnavailable)
		return
	}
	_, _ = fmt.Fprintln(w, state.String())
}

// serveStatus exposes the status endpoints. They are served on the dedicated
// status endpoint if one is configured, otherwise they are mounted on the relay
// transport if it serves http.
func (s *RelayServer) serveStatus(ctx context.Context) error {
	handlers := s.statusHandlers()

	if s.config.StatusEndpoint == "" {
		mounter, ok := s.transport.(transport.IHTTPMounter)
		if !ok {
			Logger.Infof("Status endpoints disabled (transport %s does not serve http and no status endpoint is set)", s.config.Transport.Type)
			return nil
		}
		for pattern, handler := range handlers {
			mounter.Mount(pattern, handler)
		}
		return nil
	}

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.Handle(pattern, handler)
	}

	listener, err := net.Listen("tcp", s.config.StatusEndpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on status endpoint: %w", err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	context.AfterFunc(ctx, func() { _ = srv.Close() })

	go func() {
		Logger.Infof("Serving status endpoints on %s", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Status server failed: %v", err)
		}
	}()
	return nil
}
