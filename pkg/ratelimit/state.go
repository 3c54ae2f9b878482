// Package ratelimit implements shared back-off for xMatters rate limiting.
// xMatters answers throttled requests with 429 Too Many Requests and a Retry-After
// header; the tracker records the resulting block so that every worker, and every
// job run sharing the same Redis, waits it out before sending more requests.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyBlockedUntil = "xmsync:rate_limit:blocked_until"
)

// Retry-After bounds.
const (
	// DefaultRetryAfter is used when a 429 carries no usable Retry-After header.
	DefaultRetryAfter = 30 * time.Second

	// MaxRetryAfter caps the block taken from a single response.
	MaxRetryAfter = 5 * time.Minute
)

// RateLimitState is the block currently in force, local or shared.
type RateLimitState struct {
	// BlockedUntil is when requests may be sent again. Zero when not blocked.
	BlockedUntil time.Time
}

// IsBlocked returns true while requests must be held back.
func (s *RateLimitState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// TimeUntilReset returns the duration until the block lifts.
// Returns 0 if the block has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.BlockedUntil)
	if duration < 0 {
		return 0
	}
	return duration
}
