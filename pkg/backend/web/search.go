package web

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/sameehj/officemcp/pkg/backend"
)

// SearchResultLimit is how many result pages are browsed per search.
const SearchResultLimit = 5

// Query holds a search term and its optional Google operators.
type Query struct {
	Term         string
	Before       string
	After        string
	InText       string
	AllInText    string
	AndCondition string
	MustHave     string
}

// String renders the query with its operators in a fixed order.
func (q Query) String() string {
	parts := []string{q.Term}
	if q.AndCondition != "" {
		parts = append(parts, q.Term+" AND "+q.AndCondition)
	}
	if q.Before != "" {
		parts = append(parts, "before:"+q.Before)
	}
	if q.After != "" {
		parts = append(parts, "after:"+q.After)
	}
	if q.InText != "" {
		parts = append(parts, "intext:"+q.InText)
	}
	if q.AllInText != "" {
		parts = append(parts, "allintext:"+q.AllInText)
	}
	if q.MustHave != "" {
		parts = append(parts, `"`+q.MustHave+`"`)
	}
	return strings.Join(parts, " ")
}

// LinkSearcher returns result links for a rendered query.
type LinkSearcher interface {
	Links(ctx context.Context, query string, limit int) ([]string, error)
}

// GoogleSearcher queries the Custom Search JSON API.
type GoogleSearcher struct {
	engineID string
	svc      *customsearch.Service
}

// NewGoogleSearcher builds a searcher. Extra options are passed to the API
// client, e.g. option.WithEndpoint for a proxy.
func NewGoogleSearcher(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || engineID == "" {
		return nil, backend.NotConfigured("Google Custom Search API credentials")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search client: %w", err)
	}
	return &GoogleSearcher{engineID: engineID, svc: svc}, nil
}

func (g *GoogleSearcher) Links(ctx context.Context, query string, limit int) ([]string, error) {
	call := g.svc.Cse.List().Cx(g.engineID).Q(query).Context(ctx)
	if limit > 0 && limit <= 10 {
		call = call.Num(int64(limit))
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}
	links := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item != nil && item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links, nil
}

// Service combines search and browsing for the google_search tool.
type Service struct {
	searcher LinkSearcher
	browser  *Browser
}

func NewService(searcher LinkSearcher, browser *Browser) *Service {
	if browser == nil {
		browser = NewBrowser(nil)
	}
	return &Service{searcher: searcher, browser: browser}
}

// Search runs q and browses the top results in summary mode.
func (s *Service) Search(ctx context.Context, q Query) ([]Page, error) {
	if s.searcher == nil {
		return nil, backend.NotConfigured("Google Custom Search API credentials")
	}
	if strings.TrimSpace(q.Term) == "" {
		return nil, backend.Errorf(backend.ErrInvalid, "search_term must not be empty")
	}
	links, err := s.searcher.Links(ctx, q.String(), SearchResultLimit)
	if err != nil {
		return nil, err
	}
	if len(links) > SearchResultLimit {
		links = links[:SearchResultLimit]
	}
	return s.browser.Browse(ctx, links, false)
}

// Browse is the browse_internet operation.
func (s *Service) Browse(ctx context.Context, urls []string, fullText bool) ([]Page, error) {
	return s.browser.Browse(ctx, urls, fullText)
}
