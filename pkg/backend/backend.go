// Package backend holds what the tool backends share: error classes and a
// small JSON-over-HTTP helper.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured means a required credential or endpoint is missing.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrInvalid means the caller supplied arguments the backend rejects.
	ErrInvalid = errors.New("invalid request")
	// ErrNotFound means the requested record or resource does not exist.
	ErrNotFound = errors.New("not found")
)

// Error is a classified backend failure. Its message is shown to callers
// verbatim; errors.Is matches its class.
type Error struct {
	Class error
	Msg   string
	Err   error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Class, e.Err}
	}
	return []error{e.Class}
}

// Errorf builds a classified error.
func Errorf(class error, format string, args ...any) error {
	return &Error{Class: class, Msg: fmt.Sprintf(format, args...)}
}

func NotConfigured(what string) error {
	return Errorf(ErrNotConfigured, "%s not configured", what)
}

// DefaultTimeout bounds every outbound call made through NewHTTPClient.
const DefaultTimeout = 30 * time.Second

func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Body)
}

const maxErrorBody = 512

// DoJSON sends req and decodes a 2xx JSON body into out. out may be nil.
func DoJSON(ctx context.Context, client *http.Client, service string, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req = req.WithContext(ctx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
