// Package client provides the xMatters REST client with shared rate limiting,
// optional response caching, retries, and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/xmatters-sync/pkg/cache"
	"github.com/Sternrassler/xmatters-sync/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_requests_total",
		Help: "Total xMatters requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xmsync_request_duration_seconds",
		Help:    "xMatters request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_errors_total",
		Help: "Total xMatters errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIPrefix is the path prefix of the xMatters REST API.
const APIPrefix = "/api/xm/1"

// Client is the xMatters REST client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retryPolicy RetryPolicy
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the xMatters instance, e.g. "https://acme.xmatters.com"
	BaseURL string

	// Basic auth credentials of the integration user
	Username string
	Password string

	// User-Agent header
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Redis client for caching and shared rate limit state (optional)
	Redis *redis.Client

	// CacheTTL for cacheable GET responses; 0 disables caching
	CacheTTL time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, username, password string) Config {
	return Config{
		BaseURL:        baseURL,
		Username:       username,
		Password:       password,
		UserAgent:      "xmatters-sync/0.1.0",
		Timeout:        30 * time.Second,
		CacheTTL:       10 * time.Minute,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new xMatters client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "xmatters-sync/0.1.0"
	}

	logger := log.With().Str("component", "xmatters-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     baseURL,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		config:      cfg,
		logger:      logger,
	}
	c.retryPolicy = c.defaultRetryPolicy

	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL, logger)
	}

	return c, nil
}

// defaultRetryPolicy applies the configured attempt count and initial backoff
// on top of the per-class defaults.
func (c *Client) defaultRetryPolicy(class ErrorClass) RetryConfig {
	rc := RetryConfigForErrorClass(class)
	if c.config.MaxRetries > 0 {
		rc.MaxAttempts = c.config.MaxRetries
	}
	if c.config.InitialBackoff > 0 {
		rc.InitialBackoff = c.config.InitialBackoff
		if rc.MaxBackoff < rc.InitialBackoff {
			rc.MaxBackoff = rc.InitialBackoff
		}
	}
	return rc
}

type cacheableKey struct{}

// WithCache marks GET requests made with ctx as cacheable.
func WithCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheableKey{}, true)
}

func isCacheable(ctx context.Context) bool {
	v, _ := ctx.Value(cacheableKey{}).(bool)
	return v
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// Responses with 4xx status (other than 429) are returned to the caller as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Check cache for opted-in GETs
	var cacheKey cache.CacheKey
	useCache := c.cache != nil && req.Method == http.MethodGet && isCacheable(ctx)
	if useCache {
		cacheKey = cache.CacheKey{
			Path:      req.URL.Path,
			Query:     req.URL.Query(),
			Principal: c.config.Username,
		}
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("endpoint", req.URL.Path).Msg("Cache hit")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return entry.Response(req, time.Now()), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", req.URL.Path).Msg("Cache get error")
		}
	}

	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", req.URL.Path).
		Str("method", req.Method).
		Msg("Executing xMatters request")

	var resp *http.Response
	var errClass ErrorClass
	attempt := 0

	retryErr := retryWithBackoff(ctx, c.logger, c.retryPolicy, func() error {
		attempt++
		if err := c.rateLimiter.Wait(ctx); err != nil {
			errClass = ErrorClassClient
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrContextCancelled, err)
			}
			return fmt.Errorf("rate limit gate: %w", err)
		}

		// Rewind the body for retried requests
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				errClass = ErrorClassClient
				return fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", req.URL.Path).Msg("HTTP request failed")
			errClass = c.classifyError(nil, reqErr)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		if _, err := c.rateLimiter.UpdateFromResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass = c.classifyError(resp, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", req.URL.Path).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("xMatters request error")

			if shouldRetry(errClass) {
				apiErr := newAPIError(resp, errClass)
				resp.Body.Close()
				return apiErr
			}
		}

		errClass = ""
		return nil
	}, func(error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		return nil, retryErr
	}

	switch {
	case useCache:
		if err := c.cache.Put(ctx, cacheKey, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	case c.cache != nil && req.Method == http.MethodPost && resp.StatusCode < 300:
		// Writes go to the collection path, so drop every cached lookup below it
		if _, err := c.cache.Invalidate(ctx, req.URL.Path); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", req.URL.Path).Msg("Failed to invalidate cache")
		}
	}

	return resp, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// URL resolves an API path (relative to APIPrefix) and query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + APIPrefix + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doJSON(req, out)
}

// PostJSON encodes in as the request body, performs a POST request, and decodes
// the JSON response into out (if non-nil). xMatters uses POST for both create and
// modify; a body carrying an id modifies the existing object.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path, nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, c.classifyError(resp, nil))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Close closes the client and releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetRetryPolicy overrides the retry policy (for testing).
func (c *Client) SetRetryPolicy(policy RetryPolicy) {
	c.retryPolicy = policy
}

var idSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// endpointLabel replaces object IDs in a path so metric labels stay bounded.
func endpointLabel(path string) string {
	return idSegment.ReplaceAllString(path, "/{id}")
}
