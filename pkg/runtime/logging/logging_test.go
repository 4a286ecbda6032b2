package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWriterFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWriter(&buf, "info", "json").Info("session_start", "id", "s1")
	if !strings.Contains(buf.String(), `"msg":"session_start"`) {
		t.Fatalf("expected json record, got %s", buf.String())
	}

	buf.Reset()
	NewWriter(&buf, "info", "TEXT").Info("session_start", "id", "s1")
	if !strings.Contains(buf.String(), "msg=session_start") {
		t.Fatalf("expected text record, got %s", buf.String())
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWriter(&buf, "warning", "json")
	logger.Info("dropped")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("level filter not applied: %s", buf.String())
	}

	cases := map[string]slog.Level{"debug": slog.LevelDebug, "ERROR": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
