package metrics

import (
	"fmt"
	"time"
)

// RecordJobsCollected records the number of postings collected from a source.
func RecordJobsCollected(sourceName string, sourceID int64, count int) {
	JobsCollectedTotal.WithLabelValues(
		sourceName,
		fmt.Sprintf("%d", sourceID),
	).Add(float64(count))
}

// RecordJobRejected records one posting dropped by the relevance gate.
func RecordJobRejected() {
	JobsRejectedTotal.Inc()
}

// RecordJobAnalyzed records the outcome of one analyzer run.
func RecordJobAnalyzed(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	JobsAnalyzedTotal.WithLabelValues(status).Inc()
}

// RecordAnalysisDuration records the time taken to analyze a posting.
func RecordAnalysisDuration(duration time.Duration) {
	AnalysisDuration.Observe(duration.Seconds())
}

// RecordRelevanceCheckDuration records the time taken by the quick scoring call.
func RecordRelevanceCheckDuration(duration time.Duration) {
	RelevanceCheckDuration.Observe(duration.Seconds())
}

// RecordFeedFetch records metrics for one feed fetch operation.
func RecordFeedFetch(sourceID int64, duration time.Duration) {
	FeedFetchDuration.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
	).Observe(duration.Seconds())
}

// RecordFeedFetchError records an error during feed fetching.
func RecordFeedFetchError(sourceID int64, errorType string) {
	FeedFetchErrors.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
		errorType,
	).Inc()
}

// UpdateJobsTotal updates the stored posting count gauge.
// This gauge should be updated periodically to reflect the current state.
func UpdateJobsTotal(count int) {
	JobsTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the source count gauge.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch.
func RecordContentFetchSuccess(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchFailed records a failed content fetch.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a content fetch skipped because the feed
// excerpt was already long enough.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDigest records a digest send attempt and its posting count.
func RecordDigest(status string, jobCount int) {
	DigestsSentTotal.WithLabelValues(status).Inc()
	if jobCount > 0 {
		DigestJobCount.Observe(float64(jobCount))
	}
}

// RecordEmbeddingGenerated records the outcome of one embedding generation.
func RecordEmbeddingGenerated(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	EmbeddingsGeneratedTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_jobs", "insert_job").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
