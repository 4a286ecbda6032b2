package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/sameehj/officemcp/pkg/backend/documents"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
	"github.com/sameehj/officemcp/pkg/config"
	"github.com/sameehj/officemcp/pkg/envelope"
	"github.com/sameehj/officemcp/pkg/runtime/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.BaseURL = "https://office.example"
	cfg.Database.DSN = filepath.Join(dir, "office.db")
	cfg.Files.Root = filepath.Join(dir, "files")
	return cfg
}

func TestBuildWiresConfiguredBackends(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Weather.APIKey = "weather-key"

	a, err := Build(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	for _, name := range []string{"redis", "storage", "weather"} {
		if !slices.Contains(a.Configured, name) {
			t.Fatalf("expected %s in %v", name, a.Configured)
		}
	}
	if slices.Contains(a.Configured, "slack") {
		t.Fatalf("slack should not be configured: %v", a.Configured)
	}

	ctx := context.Background()
	env := a.Dispatcher.Dispatch(ctx, "shorten_url", map[string]any{"url": "https://go.dev", "custom_code": "go"})
	if env.IsError() {
		t.Fatalf("shorten: %+v", env.Error)
	}
	if res := env.Data.(shortener.Result); res.ShortURL != "https://office.example/s/go" {
		t.Fatalf("unexpected short url %s", res.ShortURL)
	}
	if !mr.Exists("url:go") {
		t.Fatalf("short link not stored in redis: %v", mr.Keys())
	}

	env = a.Dispatcher.Dispatch(ctx, "get_channels", map[string]any{})
	if env.IsError() {
		t.Fatalf("get_channels: %+v", env.Error)
	}

	env = a.Dispatcher.Dispatch(ctx, "update_slack_users", map[string]any{})
	if env.Kind() != envelope.KindUnavailable {
		t.Fatalf("expected slack tools to be unavailable, got %+v", env.Error)
	}
	env = a.Dispatcher.Dispatch(ctx, "google_search", map[string]any{"search_term": "golang"})
	if env.Kind() != envelope.KindUnavailable {
		t.Fatalf("expected search to be unavailable without keys, got %+v", env.Error)
	}
}

func TestBuildListFilesAndServeThem(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	uploads := filepath.Join(cfg.Files.Root, "uploads")
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(uploads, "memo.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	a, err := Build(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	env := a.Dispatcher.Dispatch(context.Background(), "list_files", map[string]any{})
	if env.IsError() {
		t.Fatalf("list_files: %+v", env.Error)
	}
	listing := env.Data.(documents.Listing)
	if listing.FileCount != 1 || listing.Files["memo.pdf"] != "https://office.example/files/uploads/memo.pdf" {
		t.Fatalf("unexpected listing %+v", listing)
	}

	server := httptest.NewServer(a.HTTPServer().Handler())
	defer server.Close()
	resp, err := http.Get(server.URL + "/files/uploads/memo.pdf")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected file to be served, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/tools/list_files", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list_files over http returned %d", resp.StatusCode)
	}
}

func TestBuildScreensMathsCode(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Maths.Interpreter = "definitely-not-python-xyz"
	a, err := Build(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	env := a.Dispatcher.Dispatch(context.Background(), "solve_maths", map[string]any{"code": "import os\nresult = os.listdir('/')"})
	if env.Kind() != envelope.KindBadRequest || env.Error.Message != "Potentially dangerous operation detected: import os" {
		t.Fatalf("expected dangerous code to be refused, got %+v", env.Error)
	}

	cfg = testConfig(t)
	cfg.Maths.Interpreter = "definitely-not-python-xyz"
	cfg.Maths.Blocklist = []string{"listdir"}
	b, err := Build(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer b.Close()
	env = b.Dispatcher.Dispatch(context.Background(), "solve_maths", map[string]any{"code": "result = listdir"})
	if env.Kind() != envelope.KindBadRequest || env.Error.Message != "Potentially dangerous operation detected: listdir" {
		t.Fatalf("configured blocklist not applied, got %+v", env.Error)
	}
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	if _, err := Build(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected redis connection error")
	}
}
