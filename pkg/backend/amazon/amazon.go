// Package amazon searches products through the RapidAPI real-time Amazon
// data service.
package amazon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sameehj/officemcp/pkg/backend"
)

const (
	DefaultBaseURL = "https://real-time-amazon-data.p.rapidapi.com"
	DefaultHost    = "real-time-amazon-data.p.rapidapi.com"
)

// SearchParams mirrors the /search query string. Zero values take the
// service defaults.
type SearchParams struct {
	Query             string
	Country           string
	Page              int
	SortBy            string
	ProductCondition  string
	IsPrime           bool
	DealsAndDiscounts string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("query", p.Query)
	v.Set("country", orDefault(p.Country, "CA"))
	page := p.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("sort_by", orDefault(p.SortBy, "RELEVANCE"))
	v.Set("product_condition", orDefault(p.ProductCondition, "NEW"))
	v.Set("is_prime", strconv.FormatBool(p.IsPrime))
	v.Set("deals_and_discounts", orDefault(p.DealsAndDiscounts, "NONE"))
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type Product struct {
	ASIN           string `json:"asin"`
	Title          string `json:"product_title"`
	Price          string `json:"product_price,omitempty"`
	OriginalPrice  string `json:"product_original_price,omitempty"`
	Currency       string `json:"currency,omitempty"`
	StarRating     string `json:"product_star_rating,omitempty"`
	NumRatings     int    `json:"product_num_ratings,omitempty"`
	URL            string `json:"product_url"`
	Photo          string `json:"product_photo,omitempty"`
	IsBestSeller   bool   `json:"is_best_seller,omitempty"`
	IsAmazonChoice bool   `json:"is_amazon_choice,omitempty"`
	IsPrime        bool   `json:"is_prime,omitempty"`
	Delivery       string `json:"delivery,omitempty"`
}

// SearchResult is the data member of a /search response.
type SearchResult struct {
	TotalProducts int       `json:"total_products"`
	Country       string    `json:"country"`
	Domain        string    `json:"domain"`
	Products      []Product `json:"products"`
}

type Client struct {
	apiKey  string
	host    string
	baseURL string
	http    *http.Client
}

func New(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = backend.NewHTTPClient(0)
	}
	return &Client{apiKey: apiKey, host: DefaultHost, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Search runs one product search.
func (c *Client) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	if c.apiKey == "" {
		return SearchResult{}, backend.NotConfigured("RapidAPI key")
	}
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return SearchResult{}, backend.Errorf(backend.ErrInvalid, "Search query cannot be empty")
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/search?"+p.values().Encode(), nil)
	if err != nil {
		return SearchResult{}, err
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	var out struct {
		Status  string       `json:"status"`
		Message string       `json:"message"`
		Data    SearchResult `json:"data"`
	}
	if err := backend.DoJSON(ctx, c.http, "amazon search", req, &out); err != nil {
		return SearchResult{}, err
	}
	if out.Status != "OK" {
		msg := out.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return SearchResult{}, fmt.Errorf("amazon search: %s", msg)
	}
	if out.Data.Products == nil {
		out.Data.Products = []Product{}
	}
	return out.Data, nil
}

// SearchFormatted runs Search and renders up to maxProducts as readable text.
func (c *Client) SearchFormatted(ctx context.Context, p SearchParams, maxProducts int) (string, error) {
	res, err := c.Search(ctx, p)
	if err != nil {
		return "", err
	}
	return Format(res, maxProducts), nil
}

// Format renders a search result the way chat clients display it.
func Format(res SearchResult, maxProducts int) string {
	if len(res.Products) == 0 {
		return "No products found."
	}
	if maxProducts < 1 {
		maxProducts = 5
	}
	shown := res.Products
	if len(shown) > maxProducts {
		shown = shown[:maxProducts]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d products. Showing top %d:\n\n", res.TotalProducts, len(shown))
	for i, p := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, orDefault(p.Title, "No title"))
		fmt.Fprintf(&b, "   Price: %s\n", orDefault(p.Price, "Price not available"))
		fmt.Fprintf(&b, "   URL: %s\n", orDefault(p.URL, "URL not available"))
		if p.StarRating != "" && p.NumRatings > 0 {
			fmt.Fprintf(&b, "   Rating: %s/5 (%d reviews)\n", p.StarRating, p.NumRatings)
		}
		if p.IsBestSeller {
			b.WriteString("   Best Seller\n")
		}
		if p.IsAmazonChoice {
			b.WriteString("   Amazon's Choice\n")
		}
		if p.Delivery != "" {
			fmt.Fprintf(&b, "   Delivery: %s\n", p.Delivery)
		}
		b.WriteString("\n")
	}
	return b.String()
}
