package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sameehj/officemcp/pkg/mcp"
)

const (
	wsWriteWait      = 10 * time.Second
	wsShutdownWait   = 5 * time.Second
	wsMaxMessageSize = mcp.MaxMessageSize
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler returns the WebSocket endpoint (/ws) plus /health and /sessions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sessions", s.handleSessions)
	return mux
}

// StartWebSocket serves Handler on addr until ctx is done.
func (s *Server) StartWebSocket(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), wsShutdownWait)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logInfo("gateway_listening", "addr", addr, "transport", TransportWebSocket)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleWebSocket serves one session. Each text frame carries one JSON-RPC
// message and each reply goes back as one text frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, err := s.open(r.Context(), TransportWebSocket, r.RemoteAddr)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrSessionLimit) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer s.close(session)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logWarn("websocket_upgrade_failed", "id", session.ID, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ctx := r.Context()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logWarn("session_error", "id", session.ID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		reply := s.mcpServer.HandleMessage(ctx, payload)
		if reply == nil {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			s.logWarn("session_write_failed", "id", session.ID, "error", err)
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"sessions":       s.sessionCount(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.ListSessions()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
