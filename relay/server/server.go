package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/metrics"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("relay")

// NewRelayServer creates a new relay server
// It takes a config, the single store shared by all connections, a transport and a serializer as parameters.
// The server owns the store: Serve connects it and closes it on return.
//
// Usage:
//
//	s := server.NewRelayServer(
//		config,
//		rstore.NewRedisStore(config.ToRedisOptions(metrics.StoreStateChanged)),
//		ws.NewWSServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRelayServer(
	config common.ServerConfig,
	store store.IStore,
	transport transport.IRelayServerTransport,
	serializer serializer.IRelaySerializer,
) *RelayServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RelayServer{
		config:     config,
		store:      store,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(),
		ready:      make(chan struct{}),
	}
}

type RelayServer struct {
	config     common.ServerConfig
	store      store.IStore
	transport  transport.IRelayServerTransport
	serializer serializer.IRelaySerializer
	adapter    IRelayServerAdapter

	ready     chan struct{}
	readyOnce sync.Once
	addrMu    sync.RWMutex
	addr      net.Addr
}

// Ready returns a channel that is closed once the listening socket is bound
func (s *RelayServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address of the relay, nil before Ready is closed
func (s *RelayServer) Addr() net.Addr {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Serve starts the relay server and blocks until ctx is done or the transport fails.
// It initializes the loggers, connects the store, registers the message handler
// and runs the transport. A cancelled ctx is a regular shutdown and returns nil.
func (s *RelayServer) Serve(ctx context.Context) error {
	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStartupConfig, err)
	}

	Logger.Infof("Starting relay server")
	Logger.Infof("%s", s.config.String())

	// the first connection attempt is made before anything listens
	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}
	defer func() {
		if err := s.store.Close(); err != nil {
			Logger.Warningf("Failed to close store: %v", err)
		}
	}()
	metrics.SetStoreState(s.store.State())
	Logger.Infof("Store state after the first connection attempt: %s", s.store.State())

	// Configure the transport layer
	s.registerTransportHandler()

	if err := s.serveStatus(ctx); err != nil {
		return err
	}

	return s.transport.Listen(ctx, s.config, s.markReady)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// markReady records the bound address and closes the ready channel
func (s *RelayServer) markReady(addr net.Addr) {
	s.addrMu.Lock()
	s.addr = addr
	s.addrMu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	Logger.Infof("Relay listening on %s", addr)
}

// isReady reports whether the listening socket is bound
func (s *RelayServer) isReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *RelayServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(ctx context.Context, req []byte) []byte {
		start := time.Now()

		// Decode the command, malformed messages are dropped without a reply
		var cmd common.Command
		if err := s.serializer.DecodeCommand(req, &cmd); err != nil {
			Logger.Warningf("Dropping malformed message (%d bytes): %v", len(req), err)
			metrics.CommandError(metrics.ErrorKindProtocol)
			return nil
		}

		// Let the adapter handle the command
		reply := s.adapter.Handle(ctx, &cmd, s.store)
		metrics.CommandDone(actionLabel(cmd.Action), start)

		// Return result
		resp, err := s.serializer.EncodeReply(*reply)
		if err != nil {
			Logger.Errorf("Failed to encode reply for %s: %v", cmd.Action, err)
			resp, _ = s.serializer.EncodeReply(*common.NewErrorReply(common.ErrMsgOperationFailed))
		}
		return resp
	})
}

// actionLabel bounds the metric label values to the known actions
func actionLabel(action common.Action) string {
	switch action {
	case common.ActionSet, common.ActionGet, common.ActionDelete, common.ActionIncrement, common.ActionSearch:
		return string(action)
	default:
		return "unknown"
	}
}
