// Package mcp serves the tool catalog over the Model Context Protocol
// (JSON-RPC 2.0) on a byte stream or over HTTP.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/envelope"
	"github.com/sameehj/officemcp/pkg/version"
)

// MaxMessageSize caps a single Content-Length framed request.
const MaxMessageSize = 32 << 20

// Caller is the dispatcher surface the server needs.
type Caller interface {
	Catalog() *catalog.Catalog
	Formatter() envelope.Formatter
	Dispatch(ctx context.Context, name string, args map[string]any) envelope.Envelope
}

type Server struct {
	caller Caller
	name   string
	logger *slog.Logger
}

func NewServer(caller Caller) *Server {
	return &Server{caller: caller, name: "officemcp"}
}

func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// framing records how a request was delimited so the reply matches it.
type framing int

const (
	frameLine framing = iota
	frameHeader
)

// Serve answers requests read from reader until EOF.
func (s *Server) Serve(reader io.Reader, writer io.Writer) error {
	return s.ServeContext(context.Background(), reader, writer)
}

// ServeContext is Serve with a context passed to every tool call. It returns
// when reader is exhausted or ctx is done. On cancellation reader is closed when
// it implements io.Closer so the pending read is released.
func (s *Server) ServeContext(ctx context.Context, reader io.Reader, writer io.Writer) error {
	bufWriter := bufio.NewWriter(writer)
	messages := make(chan inbound)
	stop := make(chan struct{})
	defer close(stop)
	go readLoop(bufio.NewReader(reader), messages, stop)

	for {
		select {
		case <-ctx.Done():
			if closer, ok := reader.(io.Closer); ok {
				_ = closer.Close()
			}
			return ctx.Err()
		case msg := <-messages:
			if msg.err != nil {
				if errors.Is(msg.err, io.EOF) {
					return nil
				}
				s.logError("mcp_read_failed", "error", msg.err)
				return msg.err
			}

			reply := s.HandleMessage(ctx, msg.payload)
			if reply == nil {
				continue
			}
			if err := writeMessage(bufWriter, reply, msg.frame); err != nil {
				s.logError("mcp_write_failed", "error", err)
				return err
			}
		}
	}
}

type inbound struct {
	payload []byte
	frame   framing
	err     error
}

// readLoop reads one message ahead of the handler and stops after the first
// read error or when stop is closed.
func readLoop(r *bufio.Reader, out chan<- inbound, stop <-chan struct{}) {
	for {
		payload, frame, err := readMessage(r)
		select {
		case out <- inbound{payload: payload, frame: frame, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// ServeStdio serves stdin and stdout until EOF or ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeContext(ctx, os.Stdin, os.Stdout)
}

// HandleMessage answers one JSON-RPC message. It returns nil for
// notifications and for requests without an id.
func (s *Server) HandleMessage(ctx context.Context, payload []byte) []byte {
	var req rpcRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logWarn("mcp_parse_error", "error", err)
		return s.encode(rpcResponse{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &rpcError{Code: codeParseError, Message: "parse error", Data: err.Error()},
		})
	}

	notification := len(req.ID) == 0 || strings.HasPrefix(req.Method, "notifications/")
	if notification {
		s.logInfo("mcp_notification", "method", req.Method)
		return nil
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if req.Method == "" {
		resp.Error = &rpcError{Code: codeInvalidRequest, Message: "invalid request", Data: "missing method"}
		return s.encode(resp)
	}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": version.Version,
			},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = map[string]any{"tools": s.listTools()}
	case "tools/call":
		result, rpcErr := s.callTool(ctx, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: "method not found", Data: req.Method}
	}
	return s.encode(resp)
}

func (s *Server) listTools() []Tool {
	descriptors := s.caller.Catalog().List()
	out := make([]Tool, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, Tool{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	return out
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (*ToolResult, *rpcError) {
	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, s.invalidParams(fmt.Sprintf("Invalid tool call parameters: %v", err))
	}
	if call.Name == "" {
		return nil, s.invalidParams("Tool name is required")
	}
	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, s.invalidParams(err.Error())
	}

	env := s.caller.Dispatch(ctx, call.Name, args)
	text, err := json.Marshal(env)
	if err != nil {
		s.logError("mcp_encode_failed", "tool", call.Name, "error", err)
		env = s.caller.Formatter().Error(envelope.KindInternal, "Failed to encode tool result", nil)
		text, _ = json.Marshal(env)
	}
	return &ToolResult{
		Content: []ToolContent{{Type: "text", Text: string(text)}},
		IsError: env.IsError(),
	}, nil
}

func (s *Server) invalidParams(message string) *rpcError {
	s.logWarn("mcp_invalid_params", "error", message)
	return &rpcError{
		Code:    codeInvalidParams,
		Message: "invalid params",
		Data:    s.caller.Formatter().Error(envelope.KindBadRequest, message, nil),
	}
}

// decodeArguments keeps numbers as json.Number so integer checks see the
// literal the client sent.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] != '{' {
		return nil, fmt.Errorf("Tool arguments must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("Invalid tool arguments: %v", err)
	}
	return args, nil
}

func (s *Server) encode(resp rpcResponse) []byte {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logError("mcp_encode_failed", "error", err)
		payload, _ = json.Marshal(rpcResponse{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &rpcError{Code: -32603, Message: "internal error"},
		})
	}
	return payload
}

func writeMessage(w *bufio.Writer, payload []byte, frame framing) error {
	if frame == frameHeader {
		if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
		return w.Flush()
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// readMessage accepts either a bare JSON line or a Content-Length header
// block followed by the body.
func readMessage(r *bufio.Reader) ([]byte, framing, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil && len(line) == 0 {
			return nil, frameLine, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "" {
			if err != nil {
				return nil, frameLine, err
			}
			continue
		}
		if !isHeader(trimmed) {
			return []byte(trimmed), frameLine, nil
		}

		contentLength, parseErr := headerLength(trimmed)
		if parseErr != nil {
			return nil, frameHeader, parseErr
		}
		for {
			headerLine, readErr := r.ReadString('\n')
			if readErr != nil && len(headerLine) == 0 {
				return nil, frameHeader, readErr
			}
			header := strings.TrimRight(headerLine, "\r\n")
			if header == "" {
				break
			}
			if n, perr := headerLength(header); perr != nil {
				return nil, frameHeader, perr
			} else if n > 0 {
				contentLength = n
			}
		}

		if contentLength <= 0 {
			return nil, frameHeader, fmt.Errorf("missing Content-Length")
		}
		if contentLength > MaxMessageSize {
			return nil, frameHeader, fmt.Errorf("message of %d bytes exceeds limit", contentLength)
		}
		payload := make([]byte, contentLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, frameHeader, err
		}
		return payload, frameHeader, nil
	}
}

func isHeader(line string) bool {
	name, _, ok := strings.Cut(line, ":")
	return ok && !strings.ContainsAny(name, "{[\" ") && !strings.HasPrefix(line, "{")
}

// headerLength returns the Content-Length value, or 0 for other headers.
func headerLength(header string) (int, error) {
	name, value, _ := strings.Cut(header, ":")
	if !strings.EqualFold(strings.TrimSpace(name), "content-length") {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Length %q", value)
	}
	return n, nil
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
