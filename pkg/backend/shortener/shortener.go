// Package shortener creates and resolves short links.
package shortener

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sameehj/officemcp/pkg/backend"
)

const (
	MaxURLLength    = 2048
	MaxCustomLength = 20
	CodeLength      = 6
	MaxAttempts     = 10

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Result describes a newly created short link.
type Result struct {
	ShortURL    string `json:"shortUrl"`
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	CreatedAt   int64  `json:"createdAt"`
}

type Shortener struct {
	store   Store
	baseURL string
	now     func() time.Time
	newCode func() string
}

type Option func(*Shortener)

func WithClock(now func() time.Time) Option {
	return func(s *Shortener) { s.now = now }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Shortener) { s.newCode = gen }
}

func New(store Store, baseURL string, opts ...Option) *Shortener {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Shortener{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		newCode: randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shorten stores rawURL under customCode, or under a fresh random code when
// customCode is empty.
func (s *Shortener) Shorten(ctx context.Context, rawURL, customCode string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Result{}, backend.Errorf(backend.ErrInvalid, "URL is required")
	}
	if !validURL(rawURL) {
		return Result{}, backend.Errorf(backend.ErrInvalid, "Invalid URL format: please provide a valid HTTP or HTTPS URL")
	}
	if len(rawURL) > MaxURLLength {
		return Result{}, backend.Errorf(backend.ErrInvalid, "URL too long: must be less than %d characters", MaxURLLength)
	}

	if customCode != "" {
		if !customCodePattern.MatchString(customCode) || len(customCode) > MaxCustomLength {
			return Result{}, backend.Errorf(backend.ErrInvalid,
				"Invalid custom code: must be alphanumeric and at most %d characters", MaxCustomLength)
		}
		res, err := s.create(ctx, customCode, rawURL)
		if errors.Is(err, ErrCodeTaken) {
			return Result{}, &backend.Error{
				Class: backend.ErrInvalid,
				Msg:   "Custom code already exists: please choose a different custom code",
				Err:   ErrCodeTaken,
			}
		}
		return res, err
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		res, err := s.create(ctx, s.newCode(), rawURL)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		return res, err
	}
	return Result{}, &backend.Error{
		Class: backend.ErrInvalid,
		Msg:   "Unable to generate unique short code after 10 attempts",
		Err:   ErrCodeTaken,
	}
}

func (s *Shortener) create(ctx context.Context, code, rawURL string) (Result, error) {
	created := s.now().Unix()
	err := s.store.Create(ctx, Record{Code: code, URL: rawURL, CreatedAt: created})
	if err != nil {
		return Result{}, err
	}
	return Result{
		ShortURL:    s.ShortURL(code),
		ShortCode:   code,
		OriginalURL: rawURL,
		CreatedAt:   created,
	}, nil
}

// Resolve returns the record for code and counts the visit.
func (s *Shortener) Resolve(ctx context.Context, code string) (Record, error) {
	if code == "" {
		return Record{}, backend.Errorf(backend.ErrInvalid, "short code is required")
	}
	rec, err := s.store.Get(ctx, code)
	if errors.Is(err, ErrUnknownCode) {
		return Record{}, &backend.Error{Class: backend.ErrNotFound, Msg: "Short URL not found", Err: err}
	}
	if err != nil {
		return Record{}, err
	}
	clicks, err := s.store.IncrementClicks(ctx, code)
	if err != nil {
		return Record{}, err
	}
	rec.Clicks = clicks
	return rec, nil
}

// ShortURL renders the public link for code.
func (s *Shortener) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func randomCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
