// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Pipeline metrics track the collect -> analyze -> digest flow
var (
	// JobsTotal tracks the total number of stored job postings
	JobsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_total",
			Help: "Total number of job postings in the database",
		},
	)

	// SourcesTotal tracks total number of sources in database
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of sources in the database",
		},
	)

	// JobsCollectedTotal counts postings collected per source
	JobsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_collected_total",
			Help: "Total number of job postings collected from sources",
		},
		[]string{"source", "source_id"},
	)

	// JobsRejectedTotal counts postings dropped by the relevance gate
	JobsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_rejected_total",
			Help: "Total number of postings rejected by the relevance check",
		},
	)

	// JobsAnalyzedTotal counts analyzer runs by outcome
	JobsAnalyzedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_analyzed_total",
			Help: "Total number of job postings analyzed",
		},
		[]string{"status"},
	)

	// AnalysisDuration measures time for one full analyzer call
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Time taken to analyze a job posting",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// RelevanceCheckDuration measures the quick scoring call
	RelevanceCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relevance_check_duration_seconds",
			Help:    "Time taken for the quick relevance scoring call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// FeedFetchDuration measures time to fetch entries for a source
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch entries for a feed source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// FeedFetchErrors counts errors during feed fetching
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors",
		},
		[]string{"source_id", "error_type"},
	)

	// ContentFetchAttemptsTotal counts content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch posting content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch posting content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// DigestsSentTotal counts digest sends by outcome
	DigestsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digests_sent_total",
			Help: "Total number of digest send attempts",
		},
		[]string{"status"}, // sent, failed, skipped
	)

	// DigestJobCount measures how many postings each digest carried
	DigestJobCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_job_count",
			Help:    "Number of postings included in a digest",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// EmbeddingsGeneratedTotal counts embedding generations by outcome
	EmbeddingsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embeddings_generated_total",
			Help: "Total number of embedding generation attempts",
		},
		[]string{"status"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
