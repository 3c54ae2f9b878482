package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitBlockedSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xmsync_rate_limit_blocked_seconds",
		Help: "Seconds of back-off requested by the most recent 429 response",
	})

	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xmsync_rate_limit_hits_total",
		Help: "Total number of 429 responses received",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xmsync_rate_limit_waits_total",
		Help: "Total number of requests held back by an active block",
	})
)

// Tracker records rate limit blocks and gates requests.
// With a nil Redis client the state is kept in-process only.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local RateLimitState
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the current state, merging the shared Redis state with the local one.
// When Redis cannot be read the local state is returned; the only error is a done ctx.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	t.mu.Lock()
	state := t.local
	t.mu.Unlock()

	if t.redis == nil {
		return &state, nil
	}

	millis, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &state, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.Warn().Err(err).Msg("Shared rate limit state unavailable, using local state")
		return &state, nil
	}

	if shared := time.UnixMilli(millis); shared.After(state.BlockedUntil) {
		state.BlockedUntil = shared
	}
	return &state, nil
}

// UpdateFromResponse records a block when resp is a 429 and returns its length.
// Other responses leave the state untouched and return 0.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) (time.Duration, error) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return 0, nil
	}

	now := time.Now()
	wait, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	if !ok {
		wait = DefaultRetryAfter
	}
	if wait > MaxRetryAfter {
		wait = MaxRetryAfter
	}
	until := now.Add(wait)

	t.mu.Lock()
	if until.After(t.local.BlockedUntil) {
		t.local.BlockedUntil = until
	}
	t.mu.Unlock()

	rateLimitHitsTotal.Inc()
	rateLimitBlockedSeconds.Set(wait.Seconds())

	t.logger.Warn().
		Dur("retry_after", wait).
		Time("blocked_until", until).
		Msg("xMatters rate limit hit - holding requests")

	if t.redis == nil || wait <= 0 {
		return wait, nil
	}

	current, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return wait, fmt.Errorf("get blocked until: %w", err)
	}
	if current >= until.UnixMilli() {
		return wait, nil
	}
	if err := t.redis.Set(ctx, RedisKeyBlockedUntil, until.UnixMilli(), wait).Err(); err != nil {
		return wait, fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return wait, nil
}

// Wait blocks until no rate limit block is active or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		state, err := t.GetState(ctx)
		if err != nil {
			return fmt.Errorf("get rate limit state: %w", err)
		}

		wait := state.TimeUntilReset()
		if wait <= 0 {
			return nil
		}

		rateLimitWaitsTotal.Inc()
		t.logger.Debug().
			Dur("wait_duration", wait).
			Msg("Rate limit active - waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ParseRetryAfter parses a Retry-After value given either as delay seconds or as an
// HTTP date. It reports false when the value is empty or malformed.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
