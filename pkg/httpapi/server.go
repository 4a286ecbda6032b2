// Package httpapi exposes the tool catalog as a JSON HTTP API:
// GET /tools lists tools and POST /tools/:tool_name runs one.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/envelope"
	"github.com/sameehj/officemcp/pkg/version"
)

const (
	HeaderProjectID = "X-Project-ID"
	HeaderRequestID = "X-Request-ID"

	// MaxBodySize caps tool call request bodies.
	MaxBodySize     = 8 << 20
	shutdownTimeout = 5 * time.Second
)

// Caller is the dispatcher surface the API needs.
type Caller interface {
	Catalog() *catalog.Catalog
	Formatter() envelope.Formatter
	Dispatch(ctx context.Context, name string, args map[string]any) envelope.Envelope
}

// Resolver looks up short links for GET /s/:code.
type Resolver interface {
	Resolve(ctx context.Context, code string) (shortener.Record, error)
}

type Server struct {
	caller    Caller
	resolver  Resolver
	filesRoot string
	projectID string
	logger    *slog.Logger
}

type Option func(*Server)

// WithResolver enables the short-link redirect route.
func WithResolver(r Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithFiles serves the shared files folder under /files.
func WithFiles(root string) Option {
	return func(s *Server) { s.filesRoot = root }
}

// WithProjectID sets the project reported when a request has no X-Project-ID.
func WithProjectID(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.projectID = id
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(caller Caller, opts ...Option) *Server {
	s := &Server{caller: caller, projectID: "default"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.CustomRecoveryWithWriter(io.Discard, s.recoverPanic), s.requestContext(), cors())

	engine.GET("/health", s.health)
	engine.GET("/tools", s.listTools)
	engine.POST("/tools/:tool_name", s.callTool)
	engine.GET("/s/:code", s.redirect)
	if s.filesRoot != "" {
		engine.Static("/files", s.filesRoot)
	}
	engine.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	engine.NoRoute(func(c *gin.Context) {
		s.writeError(c, envelope.KindNotFound, "Route not found")
	})
	return engine
}

// Start serves the API on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logInfo("http_listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Get(),
		"tools":   s.caller.Catalog().Len(),
	})
}

func (s *Server) listTools(c *gin.Context) {
	tools := s.caller.Catalog().List()
	c.JSON(http.StatusOK, gin.H{
		"status":      envelope.StatusSuccess,
		"tools":       tools,
		"total_tools": len(tools),
		"project_id":  projectID(c),
	})
}

func (s *Server) callTool(c *gin.Context) {
	name := c.Param("tool_name")
	if name == "" {
		s.writeError(c, envelope.KindBadRequest, "Tool name is required")
		return
	}

	args, err := decodeBody(c.Request.Body)
	if err != nil {
		s.logWarn("http_bad_body", "tool", name, "request_id", requestID(c), "error", err)
		s.writeError(c, envelope.KindBadRequest, "Invalid JSON in request body")
		return
	}

	env := s.caller.Dispatch(c.Request.Context(), name, args)
	s.logInfo("http_tool_call", "tool", name, "project_id", projectID(c),
		"request_id", requestID(c), "status", env.HTTPStatus())
	c.JSON(env.HTTPStatus(), env)
}

func (s *Server) redirect(c *gin.Context) {
	if s.resolver == nil {
		s.writeError(c, envelope.KindUnavailable, "URL shortener is not configured")
		return
	}
	rec, err := s.resolver.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			s.writeError(c, envelope.KindNotFound, "Short URL not found")
			return
		}
		s.logError("short_link_resolve_failed", "code", c.Param("code"), "error", err)
		s.writeError(c, envelope.KindInternal, "Failed to resolve short URL")
		return
	}
	c.Redirect(http.StatusFound, rec.URL)
}

// recoverPanic answers a panicking request with an InternalError envelope.
func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logError("http_panic", "path", c.Request.URL.Path, "request_id", requestID(c),
		"panic", fmt.Sprint(recovered), "stack", string(debug.Stack()))
	env := s.caller.Formatter().Error(envelope.KindInternal, "Internal server error", nil)
	c.AbortWithStatusJSON(env.HTTPStatus(), env)
}

func (s *Server) writeError(c *gin.Context, kind envelope.Kind, message string) {
	env := s.caller.Formatter().Error(kind, message, nil)
	c.JSON(env.HTTPStatus(), env)
}

// decodeBody reads a JSON object. An empty body means no arguments.
func decodeBody(body io.Reader) (map[string]any, error) {
	if body == nil {
		return map[string]any{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxBodySize {
		return nil, errors.New("request body too large")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	if args == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return args, nil
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

// requestContext assigns a request id and resolves the project id for every
// request.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)

		project := c.GetHeader(HeaderProjectID)
		if project == "" {
			project = s.projectID
		}
		c.Set(ctxProjectID, project)

		start := time.Now()
		c.Next()
		s.logInfo("http_request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "request_id", id, "project_id", project,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Api-Key,X-Project-ID,X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Next()
	}
}

const (
	ctxRequestID = "request_id"
	ctxProjectID = "project_id"
)

func requestID(c *gin.Context) string { return c.GetString(ctxRequestID) }
func projectID(c *gin.Context) string { return c.GetString(ctxProjectID) }
