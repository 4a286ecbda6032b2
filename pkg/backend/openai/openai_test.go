package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sameehj/officemcp/pkg/backend"
)

func TestEmbedAndReason(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	bodies := map[string]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies[r.URL.Path] = body
		mu.Unlock()
		switch r.URL.Path {
		case "/embeddings":
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,-0.2,0.3]}]}`))
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c := New("sk-test", srv.URL, srv.Client(), WithReasoningModel("o3"))
	vec, err := c.Embed(context.Background(), "hello", "")
	if err != nil || len(vec) != 3 || vec[1] != -0.2 {
		t.Fatalf("unexpected embedding %v (%v)", vec, err)
	}
	mu.Lock()
	embedModel := bodies["/embeddings"]["model"]
	mu.Unlock()
	if embedModel != DefaultEmbeddingModel {
		t.Fatalf("default model not sent: %v", embedModel)
	}

	reply, err := c.Reason(context.Background(), "meaning of life?")
	if err != nil || reply != "42" {
		t.Fatalf("unexpected reply %q (%v)", reply, err)
	}
	mu.Lock()
	chatModel := bodies["/chat/completions"]["model"]
	mu.Unlock()
	if chatModel != "o3" {
		t.Fatalf("reasoning model not applied: %v", chatModel)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	if _, err := New("", "", nil).Embed(context.Background(), "x", ""); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if _, err := New("k", "", nil).Reason(context.Background(), " "); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected invalid prompt, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	t.Cleanup(srv.Close)
	_, err := New("k", srv.URL, nil).Embed(context.Background(), "x", "")
	var status *backend.StatusError
	if !errors.As(err, &status) || status.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status error, got %v", err)
	}
}
