// Package web runs Google Custom Search queries and extracts readable text
// from web pages.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/sameehj/officemcp/pkg/backend"
)

const (
	// MaxConcurrentFetches bounds parallel page downloads per call.
	MaxConcurrentFetches = 5
	// SummaryLength is the rune budget for non-full-text extraction.
	SummaryLength = 1000

	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageSize = 5 << 20
)

var textSelectors = "p, li, summary, h1, h2, h3, h4, h5, h6, blockquote, pre, td, th"

// Page is the extraction result for one URL. Failed fetches carry only URL and Error.
type Page struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"summary_or_full_text,omitempty"`
	Author        string `json:"author,omitempty"`
	DatePublished string `json:"date_published,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Browser struct {
	http *http.Client
}

func NewBrowser(httpClient *http.Client) *Browser {
	if httpClient == nil {
		httpClient = backend.NewHTTPClient(0)
	}
	return &Browser{http: httpClient}
}

// Browse fetches urls concurrently and returns one Page per URL, in input
// order. Per-URL failures are reported inline and never fail the call.
func (b *Browser) Browse(ctx context.Context, urls []string, fullText bool) ([]Page, error) {
	pages := make([]Page, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentFetches)
	for i, u := range urls {
		g.Go(func() error {
			page, err := b.fetch(gctx, u, fullText)
			if err != nil {
				page = Page{URL: u, Error: err.Error()}
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (b *Browser) fetch(ctx context.Context, url string, fullText bool) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text") {
		return Page{}, fmt.Errorf("unsupported content type: %s", contentType)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}
	return extract(doc, url, fullText), nil
}

func extract(doc *goquery.Document, url string, fullText bool) Page {
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find(textSelectors).Each(func(_ int, s *goquery.Selection) {
		if s.Find(textSelectors).Length() > 0 {
			return
		}
		if text := collapseSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, " ")
	if !fullText {
		text = truncate(text, SummaryLength)
	}

	return Page{
		URL:           url,
		Title:         collapseSpace(doc.Find("title").First().Text()),
		Text:          text,
		Author:        metaContent(doc, `meta[name="author"]`),
		DatePublished: metaContent(doc, `meta[property="article:published_time"]`),
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	if v, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return "Unknown"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
