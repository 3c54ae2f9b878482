package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmsync_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	storedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xmsync_cache_stored_bytes_total",
			Help: "Bytes written to the response cache",
		},
	)

	invalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xmsync_cache_invalidated_total",
			Help: "Cache entries dropped after writes to the same resource",
		},
	)

	failures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xmsync_cache_errors_total",
			Help: "Response cache operations that failed",
		},
		[]string{"operation"}, // get, put, invalidate
	)
)
