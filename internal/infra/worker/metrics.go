package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jobradar/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the scheduler daemon.
// It embeds ConfigMetrics for configuration fallback monitoring and adds
// per-job execution metrics. The job label distinguishes the collection
// run ("fetch") from the digest send ("digest").
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts scheduled job runs.
	// Labels: job (fetch/digest), status (started/success/failure)
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures the duration of scheduled job runs.
	// Labels: job
	JobDurationSeconds *prometheus.HistogramVec

	// JobLastSuccessTimestamp records the Unix timestamp of the last
	// successful run per job. Alert on staleness to catch a silently
	// wedged schedule.
	JobLastSuccessTimestamp *prometheus.GaugeVec

	// SourcesProcessedTotal counts the feed sources covered by fetch runs.
	SourcesProcessedTotal prometheus.Counter
}

// NewWorkerMetrics creates and registers the scheduler metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),

		JobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}, []string{"job"}),

		JobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per job",
		}, []string{"job"}),

		SourcesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_sources_processed_total",
			Help: "Total number of feed sources processed across fetch runs",
		}),
	}
}

// MustRegister is a no-op kept for the conventional init sequence;
// promauto already registered everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordJobRun increments the run counter for a job.
// Status is "started", "success", or "failure".
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of a job run in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.JobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess stamps the current time as the job's last success.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.JobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// RecordSourcesProcessed adds to the processed source counter.
func (m *WorkerMetrics) RecordSourcesProcessed(count int) {
	m.SourcesProcessedTotal.Add(float64(count))
}
