package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCodeTaken is returned by Store.Create when the code already exists.
	ErrCodeTaken = errors.New("short code already exists")
	// ErrUnknownCode is returned when a code has no record.
	ErrUnknownCode = errors.New("short code not found")
)

// Record is one stored short link.
type Record struct {
	Code      string `json:"shortCode"`
	URL       string `json:"originalUrl"`
	CreatedAt int64  `json:"createdAt"`
	Clicks    int64  `json:"clickCount"`
}

// Store persists short links. Create must be a conditional insert.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, code string) (Record, error)
	IncrementClicks(ctx context.Context, code string) (int64, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Code]; exists {
		return ErrCodeTaken
	}
	m.records[rec.Code] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, code string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[code]
	if !ok {
		return Record{}, ErrUnknownCode
	}
	return rec, nil
}

func (m *MemoryStore) IncrementClicks(_ context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[code]
	if !ok {
		return 0, ErrUnknownCode
	}
	rec.Clicks++
	m.records[code] = rec
	return rec.Clicks, nil
}

// RedisStore keeps each record as a JSON value under prefix+code and its click
// counter under prefix+code+":clicks".
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "short:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(code string) string       { return r.prefix + code }
func (r *RedisStore) clicksKey(code string) string { return r.prefix + code + ":clicks" }

func (r *RedisStore) Create(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, r.key(rec.Code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store short code: %w", err)
	}
	if !ok {
		return ErrCodeTaken
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, code string) (Record, error) {
	data, err := r.rdb.Get(ctx, r.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrUnknownCode
	}
	if err != nil {
		return Record{}, fmt.Errorf("load short code: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode short code %s: %w", code, err)
	}
	clicks, err := r.rdb.Get(ctx, r.clicksKey(code)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("load click count: %w", err)
	}
	rec.Clicks = clicks
	return rec, nil
}

func (r *RedisStore) IncrementClicks(ctx context.Context, code string) (int64, error) {
	exists, err := r.rdb.Exists(ctx, r.key(code)).Result()
	if err != nil {
		return 0, fmt.Errorf("check short code: %w", err)
	}
	if exists == 0 {
		return 0, ErrUnknownCode
	}
	n, err := r.rdb.Incr(ctx, r.clicksKey(code)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment clicks: %w", err)
	}
	return n, nil
}
