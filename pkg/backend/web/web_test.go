package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/sameehj/officemcp/pkg/backend"
)

const article = `<html><head><title> Go 1.24 released </title>
<meta name="author" content="Gopher">
<meta property="article:published_time" content="2025-02-11">
<script>var x = "ignored";</script></head>
<body><h1>Release notes</h1><div><p>Generic type aliases are now supported.</p>
<ul><li>Faster maps</li></ul></div></body></html>`

func TestQueryString(t *testing.T) {
	t.Parallel()

	q := Query{
		Term:         "golang",
		AndCondition: "generics",
		Before:       "2024-01-01",
		After:        "2023-01-01",
		InText:       "iterators",
		AllInText:    "range func",
		MustHave:     "type parameters",
	}
	want := `golang golang AND generics before:2024-01-01 after:2023-01-01 intext:iterators allintext:range func "type parameters"`
	if got := q.String(); got != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", got, want)
	}
	if got := (Query{Term: "x"}).String(); got != "x" {
		t.Fatalf("unexpected bare query %q", got)
	}
}

func TestBrowseExtractsAndOrders(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, article)
	})
	mux.HandleFunc("/long", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<p>%s</p>", strings.Repeat("a", 3000))
	})
	mux.HandleFunc("/binary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0, 1, 2})
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := NewBrowser(srv.Client())
	urls := []string{srv.URL + "/article", srv.URL + "/long", srv.URL + "/binary", srv.URL + "/missing"}
	pages, err := b.Browse(context.Background(), urls, false)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.URL != urls[i] {
			t.Fatalf("page %d out of order: %s", i, p.URL)
		}
	}

	a := pages[0]
	if a.Title != "Go 1.24 released" || a.Author != "Gopher" || a.DatePublished != "2025-02-11" {
		t.Fatalf("unexpected metadata: %+v", a)
	}
	if a.Text != "Release notes Generic type aliases are now supported. Faster maps" {
		t.Fatalf("unexpected text %q", a.Text)
	}
	if len(pages[1].Text) != SummaryLength {
		t.Fatalf("expected truncation to %d, got %d", SummaryLength, len(pages[1].Text))
	}
	if !strings.Contains(pages[2].Error, "unsupported content type") {
		t.Fatalf("expected content type error, got %+v", pages[2])
	}
	if !strings.Contains(pages[3].Error, "404") {
		t.Fatalf("expected status error, got %+v", pages[3])
	}

	full, err := b.Browse(context.Background(), urls[1:2], true)
	if err != nil || len(full[0].Text) != 3000 {
		t.Fatalf("expected full text, got %d (%v)", len(full[0].Text), err)
	}
}

func TestBrowseBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inflight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<p>ok</p>")
	}))
	defer srv.Close()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/%d", srv.URL, i)
	}
	if _, err := NewBrowser(srv.Client()).Browse(context.Background(), urls, false); err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if atomic.LoadInt32(&peak) > MaxConcurrentFetches {
		t.Fatalf("peak concurrency %d exceeds %d", peak, MaxConcurrentFetches)
	}
}

type stubSearcher struct {
	query string
	links []string
}

func (s *stubSearcher) Links(ctx context.Context, query string, limit int) ([]string, error) {
	s.query = query
	return s.links, nil
}

func TestServiceSearchBrowsesTopResults(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<p>result</p>")
	}))
	defer srv.Close()

	links := make([]string, 8)
	for i := range links {
		links[i] = fmt.Sprintf("%s/%d", srv.URL, i)
	}
	searcher := &stubSearcher{links: links}
	svc := NewService(searcher, NewBrowser(srv.Client()))

	pages, err := svc.Search(context.Background(), Query{Term: "go", MustHave: "gopher"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(pages) != SearchResultLimit || atomic.LoadInt32(&hits) != SearchResultLimit {
		t.Fatalf("expected %d pages, got %d (hits %d)", SearchResultLimit, len(pages), hits)
	}
	if searcher.query != `go "gopher"` {
		t.Fatalf("unexpected rendered query %q", searcher.query)
	}

	if _, err := NewService(nil, nil).Search(context.Background(), Query{Term: "x"}); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGoogleSearcherLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/customsearch/v1") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("cx") != "engine" || r.URL.Query().Get("q") != "golang" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"link":"https://go.dev"},{"link":"https://pkg.go.dev"}]}`)
	}))
	defer srv.Close()

	g, err := NewGoogleSearcher(context.Background(), "key", "engine",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogleSearcher: %v", err)
	}
	links, err := g.Links(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 2 || links[0] != "https://go.dev" {
		t.Fatalf("unexpected links %v", links)
	}

	if _, err := NewGoogleSearcher(context.Background(), "", "engine"); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
