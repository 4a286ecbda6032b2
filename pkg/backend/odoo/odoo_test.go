package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
)

type recorded struct {
	Method string
	Path   string
	Cookie string
	Body   map[string]any
}

type fakeOdoo struct {
	mu       sync.Mutex
	requests []recorded
	srv      *httptest.Server
}

func newFakeOdoo(t *testing.T) *fakeOdoo {
	t.Helper()
	f := &fakeOdoo{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOdoo) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	cookie := ""
	if c, err := r.Cookie("session_id"); err == nil {
		cookie = c.Value
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.EscapedPath(), Cookie: cookie, Body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/web/session/authenticate":
		params, _ := body["params"].(map[string]any)
		if params["password"] != "secret" {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"message":"Odoo Server Error","data":{"message":"Access Denied"}}}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "sess-1"})
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":{"uid":2,"username":"admin"}}`))
	case "/api/generate_pdf":
		_, _ = w.Write([]byte(`{"result":{"download_url":"https://erp.example/report/42.pdf"}}`))
	case "/api/missing.model":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown model"}`))
	default:
		_, _ = w.Write([]byte(`{"result":{"ok":true}}`))
	}
}

func (f *fakeOdoo) at(i int) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeOdoo) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newClient(f *fakeOdoo, password string, short Shortener) *Client {
	return New(Config{URL: f.srv.URL, DB: "erp", Login: "admin", Password: password}, f.srv.Client(), short)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	f := newFakeOdoo(t)
	sess, err := newClient(f, "secret", nil).Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sess.ID != "sess-1" || sess.UID != 2 || sess.Username != "admin" {
		t.Fatalf("unexpected session %+v", sess)
	}

	_, err = newClient(f, "wrong", nil).Authenticate(context.Background())
	if err == nil || err.Error() != "odoo authenticate: Access Denied" {
		t.Fatalf("expected access denied, got %v", err)
	}

	_, err = New(Config{URL: f.srv.URL}, nil, nil).Authenticate(context.Background())
	if !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestRecordEndpoints(t *testing.T) {
	t.Parallel()

	f := newFakeOdoo(t)
	c := newClient(f, "secret", nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		call   func() (any, error)
		method string
		path   string
	}{
		{"mapped", func() (any, error) { return c.MappedModels(ctx, true, "invoice") }, http.MethodPost, "/api/mapped_models"},
		{"fetch", func() (any, error) { return c.FetchRecords(ctx, "res.partner", []any{[]any{"id", "=", 1}}) }, http.MethodPost, "/api/res.partner"},
		{"create", func() (any, error) { return c.CreateRecord(ctx, "res.partner", map[string]any{"name": "ACME"}) }, http.MethodPost, "/api/res.partner/create"},
		{"update", func() (any, error) { return c.UpdateRecord(ctx, "res.partner", 7, map[string]any{"name": "ACME 2"}) }, http.MethodPut, "/api/res.partner/update/7"},
		{"delete", func() (any, error) { return c.DeleteRecord(ctx, "res.partner", 7) }, http.MethodDelete, "/api/res.partner/delete/7"},
		{"post", func() (any, error) { return c.PostRecord(ctx, "account move", 9) }, http.MethodPut, "/api/account%20move/post/9"},
	}
	for _, tc := range cases {
		res, err := tc.call()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if m, _ := res.(map[string]any); m["result"] == nil {
			t.Fatalf("%s: unexpected response %v", tc.name, res)
		}
		got := f.last()
		if got.Method != tc.method || got.Path != tc.path || got.Cookie != "sess-1" {
			t.Fatalf("%s: unexpected request %+v", tc.name, got)
		}
	}

	create := f.at(5).Body
	if params, _ := create["params"].(map[string]any); params["name"] != "ACME" {
		t.Fatalf("create payload not wrapped in params: %v", create)
	}
	if mapped := f.at(1).Body["params"].(map[string]any); mapped["model_name"] != "invoice" || mapped["include_fields"] != true {
		t.Fatalf("unexpected mapped models payload %v", mapped)
	}
}

func TestRecordErrors(t *testing.T) {
	t.Parallel()

	f := newFakeOdoo(t)
	c := newClient(f, "secret", nil)
	if _, err := c.FetchRecords(context.Background(), "missing.model", nil); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.CreateRecord(context.Background(), "res.partner", nil); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected invalid record data, got %v", err)
	}
	if _, err := c.DeleteRecord(context.Background(), " ", 1); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected invalid model, got %v", err)
	}
}

func TestPrintRecordShortensLink(t *testing.T) {
	t.Parallel()

	f := newFakeOdoo(t)
	short := shortener.New(nil, "https://s.example", shortener.WithCodeGenerator(func() string { return "abc123" }))
	rep, err := newClient(f, "secret", short).PrintRecord(context.Background(), "account.move", 42)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if rep.ShortURL != "https://s.example/abc123" || rep.ShortCode != "abc123" || rep.DownloadURL != "" {
		t.Fatalf("unexpected report %+v", rep)
	}
	params := f.last().Body["params"].(map[string]any)
	if params["external_model"] != "account.move" || params["record_id"] != float64(42) {
		t.Fatalf("unexpected print payload %v", params)
	}

	plain, err := newClient(f, "secret", nil).PrintRecord(context.Background(), "account.move", 42)
	if err != nil || plain.DownloadURL != "https://erp.example/report/42.pdf" {
		t.Fatalf("unexpected plain report %+v (%v)", plain, err)
	}
}
