package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss is returned by Get when nothing is stored under the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned by Get when the stored value does not decode.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint for SCAN during invalidation.
const scanBatch = 200

// Manager stores xMatters GET responses in Redis for a fixed TTL.
type Manager struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager returns a Manager whose entries expire after ttl.
// It panics when rdb is nil or ttl is not positive.
func NewManager(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Manager {
	if rdb == nil {
		panic("cache: redis client is nil")
	}
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	return &Manager{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "response-cache").Logger(),
		now:    time.Now,
	}
}

// Get returns the entry stored under key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*Entry, error) {
	raw, err := m.rdb.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		lookups.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	case err != nil:
		failures.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		failures.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	lookups.WithLabelValues("hit").Inc()
	return &e, nil
}

// Put stores resp under key when it is a 200. The body stays readable for
// the caller either way.
func (m *Manager) Put(ctx context.Context, key CacheKey, resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	e, err := newEntry(resp, m.now())
	if err != nil {
		failures.WithLabelValues("put").Inc()
		return err
	}

	raw, err := json.Marshal(e)
	if err != nil {
		failures.WithLabelValues("put").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := m.rdb.Set(ctx, key.String(), raw, m.ttl).Err(); err != nil {
		failures.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	storedBytes.Add(float64(len(raw)))
	m.logger.Debug().Str("key", key.String()).Int("bytes", len(raw)).Msg("Stored response")
	return nil
}

// Invalidate drops every entry whose path starts with path, for any query
// and principal. xMatters updates people and devices by POSTing to the
// collection path, so a write to /people drops cached /people/{id} lookups.
func (m *Manager) Invalidate(ctx context.Context, path string) (int, error) {
	pattern := KeyPrefix + ":" + strings.Trim(path, "/") + "*"

	var keys []string
	iter := m.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		failures.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := m.rdb.Del(ctx, keys...).Result()
	if err != nil {
		failures.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}

	invalidated.Add(float64(n))
	m.logger.Debug().Str("path", path).Int64("entries", n).Msg("Invalidated cached responses")
	return int(n), nil
}
