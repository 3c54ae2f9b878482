package client

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_retries_total",
		Help: "Retried xMatters requests by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xmsync_retry_backoff_seconds",
		Help:    "Wait before a retry by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_retry_exhausted_total",
		Help: "Requests abandoned after the last attempt by error class",
	}, []string{"error_class"})
)

// RetryConfig bounds the attempts for one error class. Waits grow from
// InitialBackoff by BackoffMultiplier up to MaxBackoff.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// RetryPolicy picks the RetryConfig for an error class.
type RetryPolicy func(ErrorClass) RetryConfig

// classDefaults are tuned for xMatters: 5xx usually clears within seconds,
// while a 429 means the shared tracker is already holding every worker back.
var classDefaults = map[ErrorClass]RetryConfig{
	ErrorClassServer:    {MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2},
	ErrorClassRateLimit: {MaxAttempts: 5, InitialBackoff: 2 * time.Second, MaxBackoff: time.Minute, BackoffMultiplier: 2},
	ErrorClassNetwork:   {MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2},
}

// DefaultRetryConfig applies to classes without their own entry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2}
}

// RetryConfigForErrorClass is the built-in RetryPolicy.
func RetryConfigForErrorClass(class ErrorClass) RetryConfig {
	if rc, ok := classDefaults[class]; ok {
		return rc
	}
	return DefaultRetryConfig()
}

// backoff yields successive jittered waits for one request.
type backoff struct {
	next time.Duration
}

// wait returns the delay before the next attempt (±20% jitter) and advances
// the schedule under rc.
func (b *backoff) wait(rc RetryConfig) time.Duration {
	if b.next == 0 {
		b.next = rc.InitialBackoff
	}
	d := time.Duration(float64(b.next) * (0.8 + rand.Float64()*0.4))

	b.next = time.Duration(float64(b.next) * rc.BackoffMultiplier)
	if b.next > rc.MaxBackoff {
		b.next = rc.MaxBackoff
	}
	return d
}

// retryWithBackoff calls fn until it succeeds, classify marks its error as not
// retryable, or the policy for that class runs out of attempts.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy RetryPolicy, fn func() error, classify func(error) ErrorClass) error {
	if policy == nil {
		policy = RetryConfigForErrorClass
	}

	var b backoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return nil
		}

		class := classify(err)
		if !shouldRetry(class) {
			return err
		}

		rc := policy(class)
		if attempt >= rc.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
			logger.Warn().
				Str("error_class", string(class)).
				Int("attempts", attempt).
				Msg("Giving up on request")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
		}

		d := b.wait(rc)
		retriesTotal.WithLabelValues(string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
		logger.Debug().
			Err(err).
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", d).
			Msg("Retrying request")

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-t.C:
		}
	}
}
