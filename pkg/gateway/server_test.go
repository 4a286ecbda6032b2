package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/dispatch"
	"github.com/sameehj/officemcp/pkg/mcp"
)

func newGateway(auth Authorizer) *Server {
	table := dispatch.Table{
		"get_coordinates": dispatch.HandlerFunc(func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"name": args["location_name"]}, nil
		}),
	}
	return NewServer("127.0.0.1:0", mcp.NewServer(dispatch.New(catalog.Default(), table)), auth)
}

func startTCP(t *testing.T, s *Server) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("gateway did not stop")
		}
	})
	return ln.Addr()
}

func roundTrip(t *testing.T, conn net.Conn, r *bufio.Reader, line string) map[string]any {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(reply), &out); err != nil {
		t.Fatalf("decode %q: %v", reply, err)
	}
	return out
}

func TestTCPSession(t *testing.T) {
	t.Parallel()

	s := newGateway(nil)
	addr := startTCP(t, s)

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	out := roundTrip(t, conn, r, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_coordinates","arguments":{"location_name":"Oslo"}}}`)
	result, _ := out["result"].(map[string]any)
	if result == nil || result["isError"] != false {
		t.Fatalf("unexpected reply %v", out)
	}

	sessions := s.ListSessions()
	if len(sessions) != 1 || sessions[0].Transport != TransportTCP || sessions[0].ID == "" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for s.sessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session was not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTCPSessionLimit(t *testing.T) {
	t.Parallel()

	s := newGateway(nil)
	s.SetMaxSessions(1)
	addr := startTCP(t, s)

	first, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer first.Close()
	roundTrip(t, first, bufio.NewReader(first), `{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	second, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()
	_ = second.SetDeadline(time.Now().Add(5 * time.Second))
	_, _ = io.WriteString(second, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")
	if _, err := bufio.NewReader(second).ReadString('\n'); err == nil {
		t.Fatalf("expected the second session to be refused")
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestWebSocketSession(t *testing.T) {
	t.Parallel()

	s := newGateway(nil)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply struct {
		ID     int `json:"id"`
		Result struct {
			Tools []map[string]any `json:"tools"`
		} `json:"result"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.ID != 2 || len(reply.Result.Tools) != catalog.Default().Len() {
		t.Fatalf("unexpected reply %+v", reply)
	}

	resp, err := http.Get(server.URL + "/sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	defer resp.Body.Close()
	var listing struct {
		Count    int       `json:"count"`
		Sessions []Session `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if listing.Count != 1 || listing.Sessions[0].Transport != TransportWebSocket {
		t.Fatalf("unexpected sessions %+v", listing)
	}
}

func TestWebSocketDenied(t *testing.T) {
	t.Parallel()

	s := newGateway(NewAuthorizer([]string{"203.0.113.9"}))
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newGateway(nil)
	s.started = time.Now().Add(-2 * time.Second)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "ok" || payload["uptime_seconds"].(float64) < 2 {
		t.Fatalf("unexpected health payload %v", payload)
	}
}

func TestAllowlistAuthorizer(t *testing.T) {
	t.Parallel()

	auth := AllowlistAuthorizer{Allowed: []string{"127.0.0.1", "10.0.0.2:9000"}}
	ctx := context.Background()
	if err := auth.Allow(ctx, "127.0.0.1:5555"); err != nil {
		t.Fatalf("host match should pass: %v", err)
	}
	if err := auth.Allow(ctx, "10.0.0.2:9000"); err != nil {
		t.Fatalf("exact match should pass: %v", err)
	}
	if err := auth.Allow(ctx, "10.0.0.2:9001"); err == nil {
		t.Fatalf("expected denial")
	}
	if _, ok := NewAuthorizer(nil).(NoopAuthorizer); !ok {
		t.Fatalf("empty allowlist should admit everyone")
	}
}
