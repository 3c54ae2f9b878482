package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmsync_job_items_total",
		Help: "Items processed by job and outcome",
	}, []string{"sync_job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xmsync_job_duration_seconds",
		Help:    "Wall time of a job run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"sync_job"})

	lastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xmsync_job_last_success_timestamp_seconds",
		Help: "Unix time the last successful run of a job finished",
	}, []string{"sync_job"})
)

func observe(rep *Report, runErr error) {
	jobDuration.WithLabelValues(rep.Job).Observe(rep.Duration.Seconds())
	for _, it := range rep.Items() {
		outcome := "ok"
		if it.Err != nil {
			outcome = "error"
		}
		itemsTotal.WithLabelValues(rep.Job, outcome).Inc()
	}
	if runErr == nil {
		lastSuccess.WithLabelValues(rep.Job).Set(float64(rep.Started.Add(rep.Duration).Unix()))
	}
}
