// Package odoo talks to an Odoo instance through session authentication and
// the REST-style endpoints exposed by its mapping module.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
)

// Config locates the Odoo server. APIURL hosts the mapping endpoints and
// defaults to URL.
type Config struct {
	URL      string
	APIURL   string
	DB       string
	Login    string
	Password string
}

func (c Config) complete() bool {
	return c.URL != "" && c.DB != "" && c.Login != "" && c.Password != ""
}

// Shortener shortens report download links.
type Shortener interface {
	Shorten(ctx context.Context, rawURL, customCode string) (shortener.Result, error)
}

type Client struct {
	cfg    Config
	http   *http.Client
	short  Shortener
	logger *slog.Logger
}

func New(cfg Config, httpClient *http.Client, short Shortener) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		cfg.APIURL = cfg.URL
	}
	if httpClient == nil {
		httpClient = backend.NewHTTPClient(0)
	}
	return &Client{cfg: cfg, http: httpClient, short: short}
}

func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Session is an authenticated Odoo login.
type Session struct {
	ID       string `json:"session_id"`
	UID      int64  `json:"uid"`
	Username string `json:"username"`
}

// Authenticate logs in and returns the session cookie.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	if !c.cfg.complete() {
		return Session{}, backend.NotConfigured("Odoo connection")
	}
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  "call",
		"params": map[string]any{
			"db":       c.cfg.DB,
			"login":    c.cfg.Login,
			"password": c.cfg.Password,
		},
		"id": 1,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/web/session/authenticate", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("odoo authenticate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, &backend.StatusError{Service: "odoo authenticate", Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out struct {
		Result *struct {
			UID      int64  `json:"uid"`
			Username string `json:"username"`
		} `json:"result"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("decode odoo authenticate response: %w", err)
	}
	if len(out.Error) > 0 && string(out.Error) != "null" {
		return Session{}, fmt.Errorf("odoo authenticate: %s", rpcErrorMessage(out.Error))
	}

	sess := Session{}
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			sess.ID = ck.Value
		}
	}
	if sess.ID == "" {
		return Session{}, errors.New("odoo authenticate: no session ID received")
	}
	if out.Result != nil {
		sess.UID, sess.Username = out.Result.UID, out.Result.Username
	}
	return sess, nil
}

func rpcErrorMessage(raw json.RawMessage) string {
	var e struct {
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Data.Message != "" {
			return e.Data.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return string(raw)
}

// call authenticates and sends one JSON request. body may be nil.
func (c *Client) call(ctx context.Context, method, endpoint string, body any) (any, error) {
	sess, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, backend.Errorf(backend.ErrInvalid, "encode odoo request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: sess.ID})

	var out any
	if err := backend.DoJSON(ctx, c.http, "odoo", req, &out); err != nil {
		var status *backend.StatusError
		if errors.As(err, &status) && status.Code == http.StatusNotFound {
			return nil, &backend.Error{Class: backend.ErrNotFound, Msg: err.Error(), Err: err}
		}
		return nil, err
	}
	c.logDebug("odoo_call", "method", method, "endpoint", endpoint)
	return out, nil
}

func (c *Client) modelURL(model string, parts ...string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", backend.Errorf(backend.ErrInvalid, "Missing required parameter: 'external_model'.")
	}
	u := c.cfg.APIURL + "/api/" + url.PathEscape(model)
	for _, p := range parts {
		u += "/" + p
	}
	return u, nil
}

// MappedModels lists the models exposed by the mapping module.
func (c *Client) MappedModels(ctx context.Context, includeFields bool, modelName string) (any, error) {
	params := map[string]any{}
	if includeFields {
		params["include_fields"] = true
	}
	if modelName = strings.TrimSpace(modelName); modelName != "" {
		params["model_name"] = modelName
	}
	return c.call(ctx, http.MethodPost, c.cfg.APIURL+"/api/mapped_models", map[string]any{"params": params})
}

// FetchRecords reads records of model matching the Odoo domain filters.
func (c *Client) FetchRecords(ctx context.Context, model string, filters []any) (any, error) {
	endpoint, err := c.modelURL(model)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{}
	if len(filters) > 0 {
		payload["filters"] = filters
	}
	return c.call(ctx, http.MethodPost, endpoint, payload)
}

func (c *Client) CreateRecord(ctx context.Context, model string, data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, backend.Errorf(backend.ErrInvalid, "Missing required parameter: 'record_data'.")
	}
	endpoint, err := c.modelURL(model, "create")
	if err != nil {
		return nil, err
	}
	return c.call(ctx, http.MethodPost, endpoint, map[string]any{"params": data})
}

func (c *Client) UpdateRecord(ctx context.Context, model string, id int64, data map[string]any) (any, error) {
	endpoint, err := c.modelURL(model, "update", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return c.call(ctx, http.MethodPut, endpoint, data)
}

func (c *Client) DeleteRecord(ctx context.Context, model string, id int64) (any, error) {
	endpoint, err := c.modelURL(model, "delete", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return c.call(ctx, http.MethodDelete, endpoint, nil)
}

// PostRecord moves a record to the posted state.
func (c *Client) PostRecord(ctx context.Context, model string, id int64) (any, error) {
	endpoint, err := c.modelURL(model, "post", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return c.call(ctx, http.MethodPut, endpoint, map[string]any{})
}

// Report is a generated PDF link.
type Report struct {
	ShortURL    string `json:"shortUrl,omitempty"`
	ShortCode   string `json:"shortCode,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Message     string `json:"message"`
}

// PrintRecord renders the record's report and returns a short link to it.
func (c *Client) PrintRecord(ctx context.Context, model string, id int64) (Report, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Report{}, backend.Errorf(backend.ErrInvalid, "Missing required parameter: 'model_name'.")
	}
	raw, err := c.call(ctx, http.MethodPost, c.cfg.URL+"/api/generate_pdf", map[string]any{
		"params": map[string]any{"external_model": model, "record_id": id},
	})
	if err != nil {
		return Report{}, err
	}
	full := downloadURL(raw)
	if full == "" {
		return Report{}, fmt.Errorf("odoo generate_pdf: response has no download_url")
	}
	if c.short == nil {
		return Report{DownloadURL: full, Message: "PDF generated successfully"}, nil
	}
	res, err := c.short.Shorten(ctx, full, "")
	if err != nil {
		return Report{}, fmt.Errorf("shorten report link: %w", err)
	}
	c.logInfo("odoo_report_shortened", "model", model, "record_id", id, "short_code", res.ShortCode)
	return Report{
		ShortURL:  res.ShortURL,
		ShortCode: res.ShortCode,
		CreatedAt: res.CreatedAt,
		Message:   "PDF generated successfully",
	}, nil
}

func downloadURL(raw any) string {
	m, _ := raw.(map[string]any)
	if result, ok := m["result"].(map[string]any); ok {
		m = result
	}
	s, _ := m["download_url"].(string)
	return s
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
