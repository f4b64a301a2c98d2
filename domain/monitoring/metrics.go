// Package monitoring exposes prometheus metrics for the queues and the
// index refresher.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registered collectors
type Metrics struct {
	// QueueDepth is the number of queue items per (queue, status), sampled
	// by the scheduler.
	QueueDepth *prometheus.GaugeVec

	// JobsProcessed counts ingest jobs per (source, result).
	JobsProcessed *prometheus.CounterVec

	// RefreshDuration observes index segment rebuild time.
	RefreshDuration *prometheus.HistogramVec

	// RefreshRows is the row count the last rebuild of each segment produced.
	RefreshRows *prometheus.GaugeVec

	// UploadsProcessed counts content uploads per result.
	UploadsProcessed *prometheus.CounterVec
}

// NewMetrics registers the collectors on the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sitedex",
			Name:      "queue_depth",
			Help:      "Queue items by queue and status.",
		}, []string{"queue", "status"}),

		JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitedex",
			Name:      "jobs_processed_total",
			Help:      "Ingest jobs processed by source and result.",
		}, []string{"source", "result"}),

		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitedex",
			Name:      "index_refresh_duration_seconds",
			Help:      "Unified index segment rebuild duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"segment"}),

		RefreshRows: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sitedex",
			Name:      "index_refresh_rows",
			Help:      "Rows produced by the last rebuild of each segment.",
		}, []string{"segment"}),

		UploadsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitedex",
			Name:      "content_uploads_total",
			Help:      "Content uploads by result.",
		}, []string{"result"}),
	}
}
