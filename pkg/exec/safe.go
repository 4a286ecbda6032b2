package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Command is one process invocation. Source is the program text the process
// will run; it is screened against the executor's Blocklist before start.
type Command struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Source string
}

// OutputTruncatedError is returned alongside a partial Result when stdout or
// stderr exceeded MaxOutput.
type OutputTruncatedError struct {
	Limit int
}

func (e OutputTruncatedError) Error() string {
	return fmt.Sprintf("output truncated at %d bytes", e.Limit)
}

// BlockedError names the blocklist entry found in a command's source.
type BlockedError struct {
	Keyword string
}

func (e BlockedError) Error() string {
	return "blocked keyword: " + e.Keyword
}

// ErrTimeout is returned when the command outlives Timeout.
var ErrTimeout = errors.New("command timed out")

type SafeExecutor struct {
	Timeout   time.Duration
	MaxOutput int
	// Blocklist entries are matched case-insensitively as substrings of
	// Command.Source.
	Blocklist []string
}

func (e *SafeExecutor) RunContext(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, errors.New("command is required")
	}
	if keyword, ok := e.blocked(c.Source); ok {
		return nil, BlockedError{Keyword: keyword}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	command := exec.CommandContext(ctx, c.Name, c.Args...)
	command.Stdin = c.Stdin

	stdoutBuf := &limitedBuffer{limit: e.MaxOutput}
	stderrBuf := &limitedBuffer{limit: e.MaxOutput}
	command.Stdout = stdoutBuf
	command.Stderr = stderrBuf

	err := command.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String(), Code: -1},
			fmt.Errorf("%w after %s", ErrTimeout, e.Timeout)
	}
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, err
		}
	}

	res := &Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String(), Code: exitCode}
	if stdoutBuf.truncated || stderrBuf.truncated {
		return res, OutputTruncatedError{Limit: e.MaxOutput}
	}
	return res, nil
}

func (e *SafeExecutor) blocked(source string) (string, bool) {
	if len(e.Blocklist) == 0 || source == "" {
		return "", false
	}
	lower := strings.ToLower(source)
	for _, keyword := range e.Blocklist {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return keyword, true
		}
	}
	return "", false
}

type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if l.limit <= 0 {
		return l.buf.Write(p)
	}
	remaining := l.limit - l.buf.Len()
	if remaining <= 0 {
		l.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		l.truncated = true
		_, _ = l.buf.Write(p[:remaining])
		return len(p), nil
	}
	return l.buf.Write(p)
}

func (l *limitedBuffer) String() string {
	return l.buf.String()
}

var _ io.Writer = (*limitedBuffer)(nil)
