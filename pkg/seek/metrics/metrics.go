// Package metrics defines the Prometheus metrics exported by seek serve.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Indexing metrics
var (
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seek_sessions_total",
			Help: "Total number of indexing sessions by strategy and final state",
		},
		[]string{"strategy", "state"},
	)

	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seek_session_duration_seconds",
			Help:    "Indexing session duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"strategy"},
	)

	SessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seek_session_active",
			Help: "Whether an indexing session is running (1) or not (0)",
		},
	)

	RecordsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seek_records_flushed_total",
			Help: "Total number of file records written to staging catalogs",
		},
	)

	BatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seek_batch_flush_duration_seconds",
			Help:    "Time to write one record batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	VolumesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seek_volumes_skipped_total",
			Help: "Total number of volumes skipped during indexing",
		},
	)

	LastSnapshotTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seek_last_snapshot_timestamp_seconds",
			Help: "Unix time of the last published snapshot",
		},
	)
)

// Search metrics
var (
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seek_search_queries_total",
			Help: "Total number of search queries",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seek_search_duration_seconds",
			Help:    "Search query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CatalogRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seek_catalog_records",
			Help: "Number of records in the open catalog",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seek_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seek_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveFlush records one batch write.
func ObserveFlush(records int, elapsed time.Duration) {
	RecordsFlushed.Add(float64(records))
	BatchFlushDuration.Observe(elapsed.Seconds())
}

// ObserveSession records a finished session.
func ObserveSession(strategy, state string, elapsed time.Duration, published bool) {
	SessionsTotal.WithLabelValues(strategy, state).Inc()
	SessionDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if published {
		LastSnapshotTimestamp.SetToCurrentTime()
	}
}

// ObserveSearch records one search query.
func ObserveSearch(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(elapsed.Seconds())
}
