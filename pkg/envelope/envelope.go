// Package envelope defines the two response shapes returned for every tool
// call, shared by the session and HTTP front-ends.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"
)

// Kind classifies an error envelope.
type Kind string

const (
	KindNotFound    Kind = "NotFound"
	KindValidation  Kind = "ValidationError"
	KindBadRequest  Kind = "BadRequest"
	KindInternal    Kind = "InternalError"
	KindUnavailable Kind = "Unavailable"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TimestampLayout is UTC with millisecond precision, sortable as text.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorBody is the error member of an error envelope.
type ErrorBody struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is a success or error response. Envelopes produced by handlers as
// plain maps are carried verbatim.
type Envelope struct {
	Status    string
	Data      any
	Count     *int
	Operation string
	Error     *ErrorBody
	Timestamp string

	raw map[string]any
}

// IsError reports whether the envelope carries status "error".
func (e Envelope) IsError() bool {
	return e.Status == StatusError
}

// Kind returns the error kind, or "" for success envelopes.
func (e Envelope) Kind() Kind {
	if e.Error != nil {
		return e.Error.Type
	}
	if e.raw != nil && e.IsError() {
		if body, ok := e.raw["error"].(map[string]any); ok {
			if t, ok := body["type"].(string); ok {
				return Kind(t)
			}
		}
		return KindInternal
	}
	return ""
}

// HTTPStatus maps the envelope to the status code the HTTP front-end returns.
func (e Envelope) HTTPStatus() int {
	if !e.IsError() {
		return http.StatusOK
	}
	switch e.Kind() {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type successWire struct {
	Status    string `json:"status"`
	Data      any    `json:"data"`
	Count     *int   `json:"count,omitempty"`
	Operation string `json:"operation,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorWire struct {
	Status    string     `json:"status"`
	Error     *ErrorBody `json:"error"`
	Timestamp string     `json:"timestamp"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return json.Marshal(e.raw)
	}
	if e.IsError() {
		body := e.Error
		if body == nil {
			body = &ErrorBody{Type: KindInternal}
		}
		return json.Marshal(errorWire{Status: StatusError, Error: body, Timestamp: e.Timestamp})
	}
	return json.Marshal(successWire{
		Status:    StatusSuccess,
		Data:      e.Data,
		Count:     e.Count,
		Operation: e.Operation,
		Timestamp: e.Timestamp,
	})
}

// Kinded is implemented by errors that name their own envelope kind.
type Kinded interface {
	error
	Kind() Kind
}

// Detailed is implemented by errors that carry structured details.
type Detailed interface {
	Details() any
}

// Formatter builds envelopes stamped with its clock.
type Formatter struct {
	Now func() time.Time
}

var defaultFormatter = Formatter{}

func (f Formatter) timestamp() string {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return now().UTC().Format(TimestampLayout)
}

// Success wraps result. Results that are already envelopes pass through
// unchanged; slices gain a count.
func (f Formatter) Success(result any) Envelope {
	switch r := result.(type) {
	case Envelope:
		return r
	case *Envelope:
		if r != nil {
			return *r
		}
	case map[string]any:
		if status, ok := r["status"]; ok {
			return Envelope{Status: fmt.Sprint(status), raw: r}
		}
	}

	env := Envelope{Status: StatusSuccess, Data: result, Timestamp: f.timestamp()}
	if n, ok := length(result); ok {
		env.Count = &n
	}
	return env
}

// SuccessOp is Success with an operation label, used for database, Odoo and
// file operations.
func (f Formatter) SuccessOp(result any, operation string) Envelope {
	env := f.Success(result)
	if env.raw == nil && !env.IsError() {
		env.Operation = operation
	}
	return env
}

// Error builds an error envelope.
func (f Formatter) Error(kind Kind, message string, details any) Envelope {
	return Envelope{
		Status:    StatusError,
		Error:     &ErrorBody{Type: kind, Message: message, Details: details},
		Timestamp: f.timestamp(),
	}
}

// FromError converts err into an error envelope. Errors implementing Kinded
// keep their kind; anything else is an InternalError. Details are included
// only when verbose is set.
func (f Formatter) FromError(err error, verbose bool) Envelope {
	if err == nil {
		return f.Error(KindInternal, "unknown error", nil)
	}
	kind := KindInternal
	var kinded Kinded
	if errors.As(err, &kinded) {
		kind = kinded.Kind()
	}
	var details any
	if verbose {
		var detailed Detailed
		if errors.As(err, &detailed) {
			details = detailed.Details()
		}
	}
	return f.Error(kind, err.Error(), details)
}

func Success(result any) Envelope { return defaultFormatter.Success(result) }

func SuccessOp(result any, operation string) Envelope {
	return defaultFormatter.SuccessOp(result, operation)
}

func Error(kind Kind, message string, details any) Envelope {
	return defaultFormatter.Error(kind, message, details)
}

func FromError(err error, verbose bool) Envelope { return defaultFormatter.FromError(err, verbose) }

func length(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return 0, false
		}
		return rv.Len(), true
	case reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}
