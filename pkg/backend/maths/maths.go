// Package maths runs short Python calculations in a separate interpreter
// process.
package maths

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/exec"
)

const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxOutput   = 1 << 20
)

// DefaultBlocklist lists the source fragments refused before any code runs.
var DefaultBlocklist = []string{
	"import os", "import sys", "import subprocess", "import shutil",
	"open(", "file(", "input(", "raw_input(", "eval(", "exec(",
	"__import__", "getattr(", "setattr(", "delattr(",
	"globals(", "locals(", "vars(", "dir(",
	"exit(", "quit(", "reload(",
}

// runner executes the request read from stdin and writes one JSON object to
// stdout. Locals that cannot be encoded as JSON are dropped.
const runner = `
import contextlib, io, json, sys
req = json.load(sys.stdin)
env = dict(req.get("params") or {})
buf = io.StringIO()
try:
    with contextlib.redirect_stdout(buf):
        exec(req["code"], {}, env)
except Exception as exc:
    json.dump({"status": "error", "message": str(exc) or type(exc).__name__, "output": buf.getvalue()}, sys.stdout)
    sys.exit(0)
out = {}
for k, v in env.items():
    if k.startswith("__"):
        continue
    try:
        json.dumps(v, allow_nan=False)
    except (TypeError, ValueError, OverflowError):
        continue
    out[k] = v
json.dump({"status": "success", "variables": out, "output": buf.getvalue()}, sys.stdout, allow_nan=False)
`

// Solution is the outcome of a successful run. Result holds the local named
// "result" when the code assigned one.
type Solution struct {
	ExecutionStatus string         `json:"execution_status"`
	Result          any            `json:"result"`
	Variables       map[string]any `json:"variables"`
	Output          string         `json:"output,omitempty"`
}

type Solver struct {
	interpreter string
	executor    *exec.SafeExecutor
	logger      *slog.Logger
}

type Option func(*Solver)

// WithBlocklist replaces DefaultBlocklist. An empty list keeps the default.
func WithBlocklist(keywords []string) Option {
	return func(s *Solver) {
		if len(keywords) > 0 {
			s.executor.Blocklist = keywords
		}
	}
}

func New(interpreter string, timeout time.Duration, opts ...Option) *Solver {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Solver{
		interpreter: interpreter,
		executor: &exec.SafeExecutor{
			Timeout:   timeout,
			MaxOutput: DefaultMaxOutput,
			Blocklist: DefaultBlocklist,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Solve executes code with params bound as local variables.
func (s *Solver) Solve(ctx context.Context, code string, params map[string]any) (Solution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Solution{}, backend.Errorf(backend.ErrInvalid, "Code cannot be empty")
	}
	if params == nil {
		params = map[string]any{}
	}
	stdin, err := json.Marshal(map[string]any{"code": code, "params": params})
	if err != nil {
		return Solution{}, backend.Errorf(backend.ErrInvalid, "parameters are not JSON encodable: %v", err)
	}

	res, err := s.executor.RunContext(ctx, exec.Command{
		Name:   s.interpreter,
		Args:   []string{"-I", "-c", runner},
		Stdin:  bytes.NewReader(stdin),
		Source: code,
	})
	var blocked exec.BlockedError
	switch {
	case errors.As(err, &blocked):
		s.logWarn("maths_code_blocked", "keyword", blocked.Keyword)
		return Solution{}, backend.Errorf(backend.ErrInvalid, "Potentially dangerous operation detected: %s", blocked.Keyword)
	case errors.Is(err, exec.ErrTimeout):
		return Solution{}, backend.Errorf(backend.ErrInvalid, "Execution timed out after %s", s.executor.Timeout)
	case errors.As(err, new(exec.OutputTruncatedError)):
		return Solution{}, backend.Errorf(backend.ErrInvalid, "Execution produced more than %d bytes of output", s.executor.MaxOutput)
	case err != nil:
		return Solution{}, &backend.Error{
			Class: backend.ErrNotConfigured,
			Msg:   fmt.Sprintf("Python interpreter %q unavailable: %v", s.interpreter, err),
			Err:   err,
		}
	}
	if res.Code != 0 {
		s.logWarn("maths_interpreter_failed", "code", res.Code, "stderr", res.Stderr)
		return Solution{}, fmt.Errorf("python exited with status %d: %s", res.Code, strings.TrimSpace(res.Stderr))
	}

	var out struct {
		Status    string         `json:"status"`
		Message   string         `json:"message"`
		Variables map[string]any `json:"variables"`
		Output    string         `json:"output"`
	}
	dec := json.NewDecoder(strings.NewReader(res.Stdout))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return Solution{}, fmt.Errorf("decode python runner output: %w", err)
	}
	if out.Status != "success" {
		s.logInfo("maths_execution_error", "message", out.Message)
		return Solution{}, backend.Errorf(backend.ErrInvalid, "%s", out.Message)
	}
	if out.Variables == nil {
		out.Variables = map[string]any{}
	}
	s.logInfo("maths_execution", "variables", len(out.Variables))
	return Solution{
		ExecutionStatus: "success",
		Result:          out.Variables["result"],
		Variables:       out.Variables,
		Output:          out.Output,
	}, nil
}

func (s *Solver) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Solver) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
