// Package metrics holds the Prometheus registry shared by xmsync and pushes it
// to a Pushgateway at the end of a batch run.
// All metrics are defined in their respective packages (client, cache, ratelimit,
// pagination, jobs) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the default Prometheus registry used by xmsync.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push sends the gathered metrics to the Pushgateway at url, replacing the
// group for job (and the optional grouping labels). An empty url is a no-op.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		return fmt.Errorf("push metrics: job name is required")
	}

	pusher := push.New(url, job).Gatherer(Gatherer)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - xmsync_rate_limit_blocked_seconds (Gauge): Length of the current 429 block
//   - xmsync_rate_limit_hits_total (Counter): 429 responses received
//   - xmsync_rate_limit_waits_total (Counter): Requests delayed by an active block
//
// Cache Metrics (pkg/cache):
//   - xmsync_cache_lookups_total{result} (Counter): Lookups by result (hit, miss)
//   - xmsync_cache_stored_bytes_total (Counter): Bytes written to Redis
//   - xmsync_cache_invalidated_total (Counter): Entries dropped after a POST to the same path
//   - xmsync_cache_errors_total{operation} (Counter): Failed get, put, and invalidate calls
//
// Request Metrics (pkg/client):
//   - xmsync_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - xmsync_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - xmsync_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - xmsync_retries_total{error_class} (Counter): Retry attempts by error class
//   - xmsync_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - xmsync_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - xmsync_pages_fetched_total{status} (Counter): Pages fetched (ok, error)
//   - xmsync_page_fetch_duration_seconds (Histogram): Duration of one page fetch
//   - xmsync_dispatch_inflight (Gauge): Tasks currently running in a dispatch
//
// Job Metrics (internal/jobs):
//   - xmsync_job_items_total{sync_job, outcome} (Counter): Items processed by outcome
//   - xmsync_job_duration_seconds{sync_job} (Histogram): Wall time of a job run
//   - xmsync_job_last_success_timestamp_seconds{sync_job} (Gauge): End of the last successful run
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(xmsync_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(xmsync_cache_lookups_total[5m]))
//
//   # Failed pages per run
//   xmsync_pages_fetched_total{status="error"}
//
//   # Stale job (no success in a day)
//   time() - xmsync_job_last_success_timestamp_seconds > 86400
