package dispatch

import (
	"errors"
	"fmt"

	"github.com/sameehj/officemcp/pkg/envelope"
)

// ToolError is a handler failure that names its own envelope kind.
type ToolError struct {
	Type    envelope.Kind
	Message string
	Detail  any
	Err     error
}

func (e *ToolError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Type)
}

func (e *ToolError) Unwrap() error { return e.Err }

func (e *ToolError) Kind() envelope.Kind {
	if e.Type == "" {
		return envelope.KindInternal
	}
	return e.Type
}

func (e *ToolError) Details() any { return e.Detail }

// BadRequest reports arguments the handler rejects beyond schema validation.
func BadRequest(format string, args ...any) error {
	return &ToolError{Type: envelope.KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing record or resource.
func NotFound(format string, args ...any) error {
	return &ToolError{Type: envelope.KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unavailable reports a backend that is not configured or not reachable.
func Unavailable(format string, args ...any) error {
	return &ToolError{Type: envelope.KindUnavailable, Message: fmt.Sprintf(format, args...)}
}

// WithKind wraps err with kind, keeping err's message.
func WithKind(kind envelope.Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Type: kind, Message: err.Error(), Err: err}
}

// KindOf returns the envelope kind err maps to.
func KindOf(err error) envelope.Kind {
	var kinded envelope.Kinded
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return envelope.KindInternal
}
