package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	vm "github.com/VictoriaMetrics/metrics"
)

// ErrorKind classifies failed commands for kvrelay_command_errors_total
type ErrorKind string

const (
	// ErrorKindProtocol counts messages that could not be decoded (dropped without reply)
	ErrorKindProtocol ErrorKind = "protocol"
	// ErrorKindValidation counts commands rejected before the store was called
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindStore counts commands that failed in the store
	ErrorKindStore ErrorKind = "store"
)

var (
	connectionsTotal  = vm.GetOrCreateCounter("kvrelay_connections_total")
	connectionsActive = vm.GetOrCreateCounter("kvrelay_connections_active")
	storeReconnects   = vm.GetOrCreateCounter("kvrelay_store_reconnects_total")

	// storeState holds the last reported store.ConnState, exported as a gauge
	storeState     atomic.Int32
	storeGaugeOnce sync.Once
)

// --------------------------------------------------------------------------
// Connections
// --------------------------------------------------------------------------

// ConnectionOpened records a newly accepted client connection
func ConnectionOpened() {
	connectionsTotal.Inc()
	connectionsActive.Inc()
}

// ConnectionClosed records a closed client connection
func ConnectionClosed() {
	connectionsActive.Dec()
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// CommandDone records a processed command and its duration since start
func CommandDone(action string, start time.Time) {
	vm.GetOrCreateCounter(fmt.Sprintf(`kvrelay_commands_total{action=%q}`, action)).Inc()
	vm.GetOrCreateHistogram(fmt.Sprintf(`kvrelay_command_duration_seconds{action=%q}`, action)).
		Update(time.Since(start).Seconds())
}

// CommandError records a failed or dropped command
func CommandError(kind ErrorKind) {
	vm.GetOrCreateCounter(fmt.Sprintf(`kvrelay_command_errors_total{kind=%q}`, kind)).Inc()
}

// --------------------------------------------------------------------------
// Store state
// --------------------------------------------------------------------------

// StoreStateChanged is meant to be used as the OnStateChange hook of a store.
// Every transition away from connected counts as a reconnect.
func StoreStateChanged(from, to store.ConnState) {
	SetStoreState(to)
	if from == store.StateConnected && to != store.StateConnected {
		storeReconnects.Inc()
	}
}

// SetStoreState sets the value of the kvrelay_store_state gauge
// (0 = reconnecting, 1 = connected, 2 = failed)
func SetStoreState(state store.ConnState) {
	storeGaugeOnce.Do(func() {
		vm.GetOrCreateGauge("kvrelay_store_state", func() float64 {
			return float64(storeState.Load())
		})
	})
	storeState.Store(int32(state))
}

// --------------------------------------------------------------------------
// Exposition
// --------------------------------------------------------------------------

// Handler serves all metrics in the Prometheus text format
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		vm.WritePrometheus(w, true)
	})
}
