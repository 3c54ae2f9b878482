package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_pages_fetched_total",
		Help: "Total pages fetched by outcome",
	}, []string{"status"}) // "ok", "error"

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xmsync_page_fetch_duration_seconds",
		Help:    "Duration of single page fetches in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	dispatchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xmsync_dispatch_inflight",
		Help: "Number of dispatched tasks currently running",
	})
)
