//go:build integration

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_SharedRateLimitBlock(t *testing.T) {
	rdb := startRedis(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	first := newTestClient(t, server, rdb)
	first.SetRetryPolicy(func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	})
	second := newTestClient(t, server, rdb)
	ctx := context.Background()

	if err := first.GetJSON(ctx, "people", nil, nil); err == nil {
		t.Fatal("expected 429 error on first client")
	}

	// The block is visible to a second client through Redis
	state, err := second.rateLimiter.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsBlocked() {
		t.Error("second client should see the shared block")
	}
}

func TestIntegration_CacheRoundTrip(t *testing.T) {
	rdb := startRedis(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"targetName": "jdoe"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, rdb)
	ctx, cancel := context.WithTimeout(WithCache(context.Background()), 10*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := c.GetJSON(ctx, "people/jdoe", nil, nil); err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
