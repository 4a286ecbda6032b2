package amazon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sameehj/officemcp/pkg/backend"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	var got url.Values
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, key = r.URL.Query(), r.Header.Get("X-RapidAPI-Key")
		_, _ = w.Write([]byte(`{"status":"OK","data":{"total_products":120,"country":"US","products":[
			{"asin":"B1","product_title":"Kettle","product_price":"$20","product_star_rating":"4.5","product_num_ratings":300,"product_url":"https://a.example/B1","is_best_seller":true},
			{"asin":"B2","product_title":"Toaster","product_url":"https://a.example/B2","delivery":"Tomorrow"}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	c := New("k", srv.URL, srv.Client())
	res, err := c.Search(context.Background(), SearchParams{Query: " kettle ", Country: "US", IsPrime: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Products) != 2 || res.TotalProducts != 120 || res.Products[0].NumRatings != 300 {
		t.Fatalf("unexpected result %+v", res)
	}
	if key != "k" || got.Get("query") != "kettle" || got.Get("page") != "1" ||
		got.Get("sort_by") != "RELEVANCE" || got.Get("is_prime") != "true" || got.Get("country") != "US" {
		t.Fatalf("unexpected query %v (key %q)", got, key)
	}

	text, err := c.SearchFormatted(context.Background(), SearchParams{Query: "kettle"}, 1)
	if err != nil {
		t.Fatalf("formatted: %v", err)
	}
	for _, want := range []string{"Found 120 products. Showing top 1:", "1. Kettle", "Rating: 4.5/5 (300 reviews)", "Best Seller"} {
		if !strings.Contains(text, want) {
			t.Fatalf("formatted output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Toaster") {
		t.Fatalf("max products not applied:\n%s", text)
	}
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	if _, err := New("", "", nil).Search(context.Background(), SearchParams{Query: "x"}); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"quota exceeded"}`))
	}))
	t.Cleanup(srv.Close)
	_, err := New("k", srv.URL, nil).Search(context.Background(), SearchParams{Query: "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected upstream message, got %v", err)
	}
	if _, err := New("k", srv.URL, nil).Search(context.Background(), SearchParams{Query: "  "}); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

func TestFormatEmpty(t *testing.T) {
	t.Parallel()

	if got := Format(SearchResult{}, 5); got != "No products found." {
		t.Fatalf("unexpected output %q", got)
	}
}
