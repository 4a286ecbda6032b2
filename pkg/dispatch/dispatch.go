// Package dispatch routes a tool call through catalog lookup, argument
// validation and the bound handler, and always answers with one envelope.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/envelope"
	"github.com/sameehj/officemcp/pkg/schema"
)

// Handler performs the work of one tool once its arguments are valid.
type Handler interface {
	Handle(ctx context.Context, args map[string]any) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// Table binds tool names to handlers.
type Table map[string]Handler

// Operation is a handler result labelled with the operation it performed.
// The label is carried into the success envelope.
type Operation struct {
	Name   string
	Result any
}

func Op(name string, result any) Operation {
	return Operation{Name: name, Result: result}
}

// Dispatcher holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	catalog *catalog.Catalog
	table   Table
	format  envelope.Formatter
	logger  *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithClock sets the clock used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.format.Now = now }
}

func New(cat *catalog.Catalog, table Table, opts ...Option) *Dispatcher {
	if table == nil {
		table = Table{}
	}
	d := &Dispatcher{catalog: cat, table: table}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Catalog returns the catalog the dispatcher validates against.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// Formatter returns the envelope formatter, so front-ends stamp transport
// errors with the same clock.
func (d *Dispatcher) Formatter() envelope.Formatter {
	return d.format
}

// Dispatch runs one tool call. It never panics and never returns a bare error.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) envelope.Envelope {
	start := time.Now()
	env := d.dispatch(ctx, name, args)
	outcome := "success"
	if env.IsError() {
		outcome = string(env.Kind())
	}
	d.logInfo("tool_dispatch", "tool", name, "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
	return env
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args map[string]any) envelope.Envelope {
	desc, ok := d.catalog.Get(name)
	if !ok {
		return d.format.Error(envelope.KindNotFound, fmt.Sprintf("Tool %s not found", name), nil)
	}

	if args == nil {
		args = map[string]any{}
	}
	res := schema.Validate(args, desc.InputSchema)
	if !res.Valid {
		return d.format.Error(envelope.KindValidation, "Invalid arguments", res.Errors)
	}

	handler, ok := d.table[name]
	if !ok || handler == nil {
		d.logError("tool_unhandled", "tool", name)
		return d.format.Error(envelope.KindInternal, fmt.Sprintf("Unhandled tool: %s", name), nil)
	}

	result, err := d.invoke(ctx, name, handler, args)
	if err != nil {
		var toolErr *ToolError
		isToolErr := errors.As(err, &toolErr)
		if !isToolErr || toolErr.Kind() == envelope.KindInternal {
			d.logError("tool_failed", "tool", name, "error", err)
		}
		return d.format.FromError(err, isToolErr)
	}
	if op, ok := result.(Operation); ok {
		return d.format.SuccessOp(op.Result, op.Name)
	}
	return d.format.Success(result)
}

func (d *Dispatcher) invoke(ctx context.Context, name string, handler Handler, args map[string]any) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logError("tool_panic", "tool", name, "panic", fmt.Sprint(recovered), "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("tool %s failed: %v", name, recovered)
		}
	}()
	return handler.Handle(ctx, args)
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}
