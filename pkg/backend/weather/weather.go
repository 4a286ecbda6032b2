// Package weather looks up coordinates and current conditions through the
// OpenWeather geocoding and One Call APIs.
package weather

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sameehj/officemcp/pkg/backend"
)

const (
	DefaultBaseURL  = "https://api.openweathermap.org"
	DefaultLocation = "Whitehorse"
)

type Client struct {
	apiKey  string
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
	return &Client{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Location is a resolved place name.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates resolves a place name to its first geocoding match.
func (c *Client) Coordinates(ctx context.Context, name string) (Location, error) {
	if c.apiKey == "" {
		return Location{}, backend.NotConfigured("OpenWeather API key")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Location{}, backend.Errorf(backend.ErrInvalid,
			"Location name is empty or contains only spaces. Please provide a valid location name.")
	}

	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/geo/1.0/direct?"+q.Encode(), nil)
	if err != nil {
		return Location{}, err
	}

	var matches []struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	}
	if err := backend.DoJSON(ctx, c.http, "openweather geocoding", req, &matches); err != nil {
		return Location{}, err
	}
	if len(matches) == 0 {
		return Location{}, backend.Errorf(backend.ErrNotFound,
			"Geolocation Failed! I could not find %q on a map.", name)
	}
	return Location{Name: name, Latitude: matches[0].Lat, Longitude: matches[0].Lon}, nil
}

// Current returns the One Call payload for name with hourly, minutely and daily
// blocks excluded, plus a location member.
func (c *Client) Current(ctx context.Context, name string) (map[string]any, error) {
	if name == "" {
		name = DefaultLocation
	}
	loc, err := c.Coordinates(ctx, name)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("appid", c.apiKey)
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("exclude", "hourly,minutely,daily")
	q.Set("units", "metric")
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/data/3.0/onecall?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := backend.DoJSON(ctx, c.http, "openweather onecall", req, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["location"] = loc
	return data, nil
}
