// Package gateway accepts MCP sessions over raw TCP and WebSocket and serves
// each one with the shared MCP server.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sameehj/officemcp/pkg/mcp"
)

// ErrSessionLimit is returned when MaxSessions sessions are already open.
var ErrSessionLimit = errors.New("session limit reached")

type Server struct {
	addr        string
	mcpServer   *mcp.Server
	authorizer  Authorizer
	maxSessions int
	logger      *slog.Logger
	started     time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewServer(addr string, mcpServer *mcp.Server, authorizer Authorizer) *Server {
	if authorizer == nil {
		authorizer = NoopAuthorizer{}
	}
	return &Server{
		addr:       addr,
		mcpServer:  mcpServer,
		authorizer: authorizer,
		started:    time.Now(),
		sessions:   make(map[string]*Session),
	}
}

func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetMaxSessions caps concurrent sessions across both transports. Zero means
// unlimited.
func (s *Server) SetMaxSessions(limit int) {
	s.mu.Lock()
	s.maxSessions = limit
	s.mu.Unlock()
}

// Start listens on the configured TCP address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts TCP sessions from listener until ctx is done. It closes the
// listener on return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()
	s.logInfo("gateway_listening", "addr", listener.Addr().String(), "transport", TransportTCP)

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logError("accept_failed", "error", err)
			return err
		}

		remote := conn.RemoteAddr().String()
		session, err := s.open(ctx, TransportTCP, remote)
		if err != nil {
			_ = conn.Close()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.close(session)
			closeOnDone := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer closeOnDone()

			if err := s.mcpServer.ServeContext(ctx, conn, conn); err != nil && ctx.Err() == nil {
				s.logWarn("session_error", "id", session.ID, "error", err)
			}
			_ = conn.Close()
		}()
	}
}

// open authorizes remote and registers a new session.
func (s *Server) open(ctx context.Context, transport, remote string) (*Session, error) {
	if err := s.authorizer.Allow(ctx, remote); err != nil {
		s.logWarn("session_denied", "remote", remote, "transport", transport, "error", err)
		return nil, err
	}

	session := &Session{
		ID:         uuid.NewString(),
		Transport:  transport,
		RemoteAddr: remote,
		StartedAt:  time.Now(),
	}

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		limit := s.maxSessions
		s.mu.Unlock()
		s.logWarn("session_limit_reached", "remote", remote, "transport", transport, "limit", limit)
		return nil, ErrSessionLimit
	}
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logInfo("session_start", "id", session.ID, "remote", remote, "transport", transport)
	return session, nil
}

func (s *Server) close(session *Session) {
	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()
	s.logInfo("session_end", "id", session.ID, "remote", session.RemoteAddr,
		"duration_ms", time.Since(session.StartedAt).Milliseconds())
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListSessions returns a snapshot of the open sessions.
func (s *Server) ListSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, *session)
	}
	return out
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
