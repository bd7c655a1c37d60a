package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
)

func TestHandlerExposesMetrics(t *testing.T) {
	ConnectionOpened()
	CommandDone("get", time.Now())
	CommandError(ErrorKindValidation)
	StoreStateChanged(store.StateReconnecting, store.StateConnected)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"kvrelay_connections_total",
		"kvrelay_connections_active",
		`kvrelay_commands_total{action="get"}`,
		`kvrelay_command_errors_total{kind="validation"}`,
		"kvrelay_command_duration_seconds",
		"kvrelay_store_state 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output misses %q", want)
		}
	}
	ConnectionClosed()
}

func TestStoreReconnects(t *testing.T) {
	before := storeReconnects.Get()

	StoreStateChanged(store.StateConnected, store.StateReconnecting)
	StoreStateChanged(store.StateReconnecting, store.StateFailed)
	StoreStateChanged(store.StateFailed, store.StateConnected)

	if got := storeReconnects.Get() - before; got != 1 {
		t.Errorf("Expected 1 reconnect, got %d", got)
	}
	if got := storeState.Load(); got != int32(store.StateConnected) {
		t.Errorf("Expected state %d, got %d", store.StateConnected, got)
	}
}
