package analyzer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AnalysisMetricsRecorder records analyzer-related metrics.
// Abstracted behind an interface so unit tests can inject a mock recorder
// and other metrics backends can be swapped in without touching providers.
type AnalysisMetricsRecorder interface {
	// RecordScore records a relevance score returned by the filter model.
	RecordScore(score int)

	// RecordRelevanceDuration records the time taken by a relevance call.
	RecordRelevanceDuration(duration time.Duration)

	// RecordAnalysisDuration records the time taken by a full analysis call.
	RecordAnalysisDuration(duration time.Duration)

	// RecordFailure increments the failure counter for a provider/operation pair.
	RecordFailure(provider, operation string)
}

// PrometheusAnalysisMetrics implements AnalysisMetricsRecorder using
// Prometheus metrics.
type PrometheusAnalysisMetrics struct {
	scoreHistogram     prometheus.Histogram
	relevanceHistogram prometheus.Histogram
	analysisHistogram  prometheus.Histogram
	failureCounter     *prometheus.CounterVec
}

var (
	analysisMetricsInstance *PrometheusAnalysisMetrics
	analysisMetricsOnce     sync.Once
)

// getOrCreateHistogram registers a histogram, reusing an existing collector
// when the metric was already registered (happens across test packages).
func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusAnalysisMetrics creates the Prometheus-backed recorder.
// Singleton to avoid duplicate metric registration in tests.
func NewPrometheusAnalysisMetrics() *PrometheusAnalysisMetrics {
	analysisMetricsOnce.Do(func() {
		analysisMetricsInstance = &PrometheusAnalysisMetrics{
			scoreHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "job_relevance_score",
				Help:    "Distribution of relevance scores returned by the filter model (0-10)",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			}),
			relevanceHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "job_relevance_duration_seconds",
				Help:    "Time taken by relevance scoring calls",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			}),
			analysisHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "job_analysis_duration_seconds",
				Help:    "Time taken by full posting analysis calls",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
			failureCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "analyzer_failures_total",
				Help: "Total analyzer call failures by provider and operation",
			}, []string{"provider", "operation"}),
		}
	})
	return analysisMetricsInstance
}

// RecordScore implements AnalysisMetricsRecorder.RecordScore
func (p *PrometheusAnalysisMetrics) RecordScore(score int) {
	p.scoreHistogram.Observe(float64(score))
}

// RecordRelevanceDuration implements AnalysisMetricsRecorder.RecordRelevanceDuration
func (p *PrometheusAnalysisMetrics) RecordRelevanceDuration(duration time.Duration) {
	p.relevanceHistogram.Observe(duration.Seconds())
}

// RecordAnalysisDuration implements AnalysisMetricsRecorder.RecordAnalysisDuration
func (p *PrometheusAnalysisMetrics) RecordAnalysisDuration(duration time.Duration) {
	p.analysisHistogram.Observe(duration.Seconds())
}

// RecordFailure implements AnalysisMetricsRecorder.RecordFailure
func (p *PrometheusAnalysisMetrics) RecordFailure(provider, operation string) {
	p.failureCounter.WithLabelValues(provider, operation).Inc()
}
