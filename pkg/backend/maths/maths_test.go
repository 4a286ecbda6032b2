package maths

import (
	"context"
	"encoding/json"
	"errors"
	osexec "os/exec"
	"testing"
	"time"

	"github.com/sameehj/officemcp/pkg/backend"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath(DefaultInterpreter); err != nil {
		t.Skip("python3 not installed")
	}
}

func TestSolve(t *testing.T) {
	t.Parallel()
	requirePython(t)

	s := New("", 5*time.Second)
	sol, err := s.Solve(context.Background(), "import math\nresult = x * 2 + math.floor(1.5)\nf = lambda: 1\nprint('hi')", map[string]any{"x": 20})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.ExecutionStatus != "success" || sol.Result != json.Number("41") {
		t.Fatalf("unexpected solution %+v", sol)
	}
	if _, ok := sol.Variables["f"]; ok {
		t.Fatalf("non-serializable local kept: %v", sol.Variables)
	}
	if _, ok := sol.Variables["math"]; ok {
		t.Fatalf("module local kept: %v", sol.Variables)
	}
	if sol.Variables["x"] != json.Number("20") || sol.Output != "hi\n" {
		t.Fatalf("unexpected variables %v output %q", sol.Variables, sol.Output)
	}
}

func TestSolveErrors(t *testing.T) {
	t.Parallel()
	requirePython(t)

	s := New("", 5*time.Second)
	_, err := s.Solve(context.Background(), "1/0", nil)
	if !errors.Is(err, backend.ErrInvalid) || err.Error() != "division by zero" {
		t.Fatalf("expected python error message, got %v", err)
	}

	slow := New("", 100*time.Millisecond)
	if _, err := slow.Solve(context.Background(), "while True: pass", nil); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected timeout as invalid request, got %v", err)
	}
}

func TestSolveValidation(t *testing.T) {
	t.Parallel()

	if _, err := New("", 0).Solve(context.Background(), "  ", nil); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected empty code rejection, got %v", err)
	}
	_, err := New("definitely-not-python-xyz", 0).Solve(context.Background(), "x = 1", nil)
	if !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected missing interpreter, got %v", err)
	}
}

func TestSolveRejectsBlockedCode(t *testing.T) {
	t.Parallel()

	// The screen runs before the interpreter starts, so python is not needed.
	s := New("definitely-not-python-xyz", 0)
	cases := map[string]string{
		"import os\nresult = os.listdir('/')[:3]": "import os",
		"result = open('/etc/passwd').read()":     "open(",
		"result = __import__('subprocess')":       "__import__",
		"IMPORT SYS":                              "import sys",
	}
	for code, keyword := range cases {
		_, err := s.Solve(context.Background(), code, nil)
		if !errors.Is(err, backend.ErrInvalid) {
			t.Fatalf("%q: expected invalid request, got %v", code, err)
		}
		if want := "Potentially dangerous operation detected: " + keyword; err.Error() != want {
			t.Fatalf("%q: expected %q, got %q", code, want, err.Error())
		}
	}

	custom := New("definitely-not-python-xyz", 0, WithBlocklist([]string{"while true"}))
	if _, err := custom.Solve(context.Background(), "while True: pass", nil); err == nil || err.Error() != "Potentially dangerous operation detected: while true" {
		t.Fatalf("custom blocklist not applied: %v", err)
	}
	if _, err := custom.Solve(context.Background(), "import os", nil); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("custom blocklist should replace the default, got %v", err)
	}
}
