package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/lib/store/lstore"
	"github.com/ValentinKolb/kvRelay/relay/client"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/base"
	"github.com/ValentinKolb/kvRelay/relay/transport/tcp"
	"github.com/ValentinKolb/kvRelay/relay/transport/ws"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

// transportCase describes how to run and reach the relay over one transport
type transportCase struct {
	name      string
	typ       common.TransportType
	server    func() transport.IRelayServerTransport
	client    func() transport.IRelayClientTransport
	endpoint  func(addr net.Addr) string
	rawDialer func(t *testing.T, addr net.Addr) rawConn
}

// rawConn sends and receives unencoded messages, used to send malformed input
type rawConn interface {
	send(msg string)
	receive(timeout time.Duration) (string, error)
	close()
}

var transportCases = []transportCase{
	{
		name:     "WebSocket",
		typ:      common.TransportWebSocket,
		server:   ws.NewWSServerTransport,
		client:   ws.NewWSClientTransport,
		endpoint: func(addr net.Addr) string { return fmt.Sprintf("ws://%s/", addr) },
		rawDialer: func(t *testing.T, addr net.Addr) rawConn {
			conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/", addr), nil)
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			return &rawWS{t: t, conn: conn}
		},
	},
	{
		name:     "TCP",
		typ:      common.TransportTCP,
		server:   tcp.NewTCPServerTransport,
		client:   tcp.NewTCPClientTransport,
		endpoint: func(addr net.Addr) string { return addr.String() },
		rawDialer: func(t *testing.T, addr net.Addr) rawConn {
			conn, err := net.Dial("tcp", addr.String())
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			return &rawTCP{t: t, conn: conn}
		},
	},
}

type rawWS struct {
	t    *testing.T
	conn *websocket.Conn
}

func (r *rawWS) send(msg string) {
	if err := r.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		r.t.Fatalf("Write failed: %v", err)
	}
}

func (r *rawWS) receive(timeout time.Duration) (string, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := r.conn.ReadMessage()
	return string(data), err
}

func (r *rawWS) close() { _ = r.conn.Close() }

type rawTCP struct {
	t    *testing.T
	conn net.Conn
}

func (r *rawTCP) send(msg string) {
	if err := base.WriteFrame(r.conn, []byte(msg)); err != nil {
		r.t.Fatalf("Write failed: %v", err)
	}
}

func (r *rawTCP) receive(timeout time.Duration) (string, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(timeout))
	data, err := base.ReadFrame(r.conn, 0)
	return string(data), err
}

func (r *rawTCP) close() { _ = r.conn.Close() }

// startServer runs a relay with a local store on a random port and returns it once it is ready
func startServer(t *testing.T, tc transportCase, s store.IStore) *RelayServer {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Transport.Type = tc.typ
	config.Store.Type = common.StoreMemory
	config.LogLevel = "error"

	srv := NewRelayServer(config, s, tc.server(), serializer.NewJSONSerializer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned an error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("Serve did not return after shutdown")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Serve failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not become ready")
	}
	return srv
}

func newClient(t *testing.T, tc transportCase, addr net.Addr) *client.RelayClient {
	t.Helper()
	c, err := client.NewRelayClient(
		common.ClientConfig{Endpoint: tc.endpoint(addr), TimeoutSecond: 5, RetryCount: 1},
		tc.client(),
		serializer.NewJSONSerializer(),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRelay(t *testing.T) {
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := startServer(t, tc, lstore.NewLocalStore())
			ctx := context.Background()

			t.Run("ExampleScenario", func(t *testing.T) {
				c := newClient(t, tc, srv.Addr())

				stored, err := c.Set(ctx, "score", "10")
				if err != nil || stored != "10" {
					t.Fatalf("Set: expected 10, got %q (%v)", stored, err)
				}
				n, err := c.Increment(ctx, "score", 5)
				if err != nil || n != 15 {
					t.Fatalf("Increment: expected 15, got %d (%v)", n, err)
				}
				if err := c.Delete(ctx, "score"); err != nil {
					t.Fatalf("Delete failed: %v", err)
				}
				_, loaded, err := c.Get(ctx, "score")
				if err != nil || loaded {
					t.Fatalf("Get after delete: expected not found, got loaded=%v (%v)", loaded, err)
				}

				reply, err := c.Do(ctx, common.NewGetCommand("score"))
				if err != nil {
					t.Fatalf("Do failed: %v", err)
				}
				if !reply.IsError() || reply.Err != common.ErrMsgKeyNotFound {
					t.Errorf("Expected %q, got %+v", common.ErrMsgKeyNotFound, reply)
				}
			})

			t.Run("UnknownAction", func(t *testing.T) {
				c := newClient(t, tc, srv.Addr())
				reply, err := c.Do(ctx, common.Command{Action: "explode", Key: "x"})
				if err != nil {
					t.Fatalf("Do failed: %v", err)
				}
				if reply.Err != common.ErrMsgUnknownAction {
					t.Errorf("Expected %q, got %+v", common.ErrMsgUnknownAction, reply)
				}
			})

			t.Run("Search", func(t *testing.T) {
				c := newClient(t, tc, srv.Addr())
				for _, k := range []string{"s:a", "s:b", "s:c"} {
					if _, err := c.Set(ctx, k, "v-"+k); err != nil {
						t.Fatalf("Set failed: %v", err)
					}
				}
				query := "v-s:b"
				results, err := c.Search(ctx, &query, "s:*")
				if err != nil {
					t.Fatalf("Search failed: %v", err)
				}
				want := []store.KeyValue{{Key: "s:b", Value: "v-s:b"}}
				if diff := cmp.Diff(want, results); diff != "" {
					t.Errorf("Search mismatch (-want +got):\n%s", diff)
				}

				results, err = c.Search(ctx, nil, "nothing:*")
				if err != nil {
					t.Fatalf("Search failed: %v", err)
				}
				if results == nil || len(results) != 0 {
					t.Errorf("Expected empty result list, got %#v", results)
				}
			})

			t.Run("MalformedThenValid", func(t *testing.T) {
				conn := tc.rawDialer(t, srv.Addr())
				defer conn.close()

				// truncated, not an object, not json at all
				conn.send(`{"action":"set","key":"m"`)
				conn.send(`[1,2,3]`)
				conn.send(`hello`)
				conn.send(`{"action":"set","key":"m","value":"ok"}`)

				got, err := conn.receive(5 * time.Second)
				if err != nil {
					t.Fatalf("Expected a reply, got %v", err)
				}
				if want := `{"key":"m","value":"ok"}`; got != want {
					t.Errorf("Expected %s, got %s", want, got)
				}

				// no reply for the malformed messages follows
				if extra, err := conn.receive(200 * time.Millisecond); err == nil {
					t.Errorf("Expected no further reply, got %s", extra)
				}
			})

			t.Run("WronglyTypedFields", func(t *testing.T) {
				conn := tc.rawDialer(t, srv.Addr())
				defer conn.close()

				tests := []struct {
					msg  string
					want string
				}{
					{`{"action":5}`, `{"error":"Unknown action"}`},
					{`{"action":"get","key":5}`, `{"error":"Invalid key"}`},
					{`{"action":"set","key":5,"value":"x"}`, `{"error":"Invalid key or value"}`},
					{`{"action":"increment","key":false,"value":1}`, `{"error":"Invalid key or value for addition"}`},
					{`{"action":"search","query":10,"pattern":"typed:*"}`, `{"results":[]}`},
				}
				// one message at a time, replies follow completion order
				for _, tt := range tests {
					conn.send(tt.msg)
					got, err := conn.receive(5 * time.Second)
					if err != nil {
						t.Fatalf("%s: expected a reply, got %v", tt.msg, err)
					}
					if got != tt.want {
						t.Errorf("%s: expected %s, got %s", tt.msg, tt.want, got)
					}
				}
			})

			t.Run("OversizedThenValid", func(t *testing.T) {
				conn := tc.rawDialer(t, srv.Addr())
				defer conn.close()

				// larger than the default max message size
				big := strings.Repeat("x", 70*1024)
				conn.send(`{"action":"set","key":"big","value":"` + big + `"}`)
				conn.send(`{"action":"get","key":"missing"}`)

				got, err := conn.receive(5 * time.Second)
				if err != nil {
					t.Fatalf("Expected a reply on the same connection, got %v", err)
				}
				if want := `{"error":"Key not found"}`; got != want {
					t.Errorf("Expected %s, got %s", want, got)
				}
			})

			t.Run("ConcurrentIncrements", func(t *testing.T) {
				const clients, perClient = 4, 25
				var wg sync.WaitGroup
				for i := 0; i < clients; i++ {
					c := newClient(t, tc, srv.Addr())
					wg.Add(1)
					go func() {
						defer wg.Done()
						for j := 0; j < perClient; j++ {
							if _, err := c.Increment(ctx, "counter", 1); err != nil {
								t.Errorf("Increment failed: %v", err)
								return
							}
						}
					}()
				}
				wg.Wait()

				c := newClient(t, tc, srv.Addr())
				value, loaded, err := c.Get(ctx, "counter")
				if err != nil || !loaded {
					t.Fatalf("Get failed: loaded=%v err=%v", loaded, err)
				}
				if want := fmt.Sprint(clients * perClient); value != want {
					t.Errorf("Expected %s, got %s", want, value)
				}
			})
		})
	}
}

func TestStatusEndpoints(t *testing.T) {
	srv := startServer(t, transportCases[0], lstore.NewLocalStore())
	baseURL := fmt.Sprintf("http://%s", srv.Addr())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, "connected"},
		{"/metrics", http.StatusOK, "kvrelay_store_state"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(baseURL + tt.path)
			if err != nil {
				t.Fatalf("GET %s failed: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("Expected body to contain %q, got %q", tt.body, body)
			}
		})
	}
}

func TestReadyzReportsUnavailableStore(t *testing.T) {
	s := lstore.NewLocalStore()
	srv := startServer(t, transportCases[0], s)

	// a closed store reads as failed
	_ = s.Close()

	resp, err := http.Get(fmt.Sprintf("http://%s/readyz", srv.Addr()))
	if err != nil {
		t.Fatalf("GET /readyz failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), store.StateFailed.String()) {
		t.Errorf("Expected body to name the store state, got %q", body)
	}
}
