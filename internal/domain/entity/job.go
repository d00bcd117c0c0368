// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Job and Source, along with
// their validation rules and domain-specific errors.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// JobStatus represents the processing state of a job posting.
type JobStatus string

const (
	// JobStatusNew is the initial state after collection, before analysis.
	JobStatusNew JobStatus = "new"
	// JobStatusAnalyzed means the posting has an LLM-generated summary.
	JobStatusAnalyzed JobStatus = "analyzed"
	// JobStatusNotified means the posting has been included in a sent digest.
	JobStatusNotified JobStatus = "notified"
	// JobStatusRejected means the posting scored below the relevance threshold.
	// Rejected rows are kept so the relevance check is not repeated.
	JobStatusRejected JobStatus = "rejected"
)

// Valid reports whether s is one of the known job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusNew, JobStatusAnalyzed, JobStatusNotified, JobStatusRejected:
		return true
	}
	return false
}

// Job represents a single job posting collected from a feed.
// Description holds the raw feed excerpt, Content the fetched page text,
// and Summary the structured markdown produced by the analyzer.
type Job struct {
	ID          int64
	SourceID    int64
	Title       string
	URL         string
	Company     string
	Location    string
	Description string
	Content     string
	Summary     string
	Score       int
	Status      JobStatus
	PostedAt    time.Time
	AnalyzedAt  *time.Time
	NotifiedAt  *time.Time
	CreatedAt   time.Time
}

// Fingerprint returns the dedup key for a posting: the hex SHA-256 of
// "title|url". Feeds re-deliver entries freely, so identity cannot rely
// on feed item GUIDs.
func (j *Job) Fingerprint() string {
	return JobFingerprint(j.Title, j.URL)
}

// JobFingerprint computes the dedup key without requiring a Job value.
func JobFingerprint(title, url string) string {
	sum := sha256.Sum256([]byte(title + "|" + url))
	return hex.EncodeToString(sum[:])
}

// MinScore and MaxScore bound the relevance score produced by the analyzer.
const (
	MinScore = 0
	MaxScore = 10
)

// ClampScore forces a raw analyzer score into the [MinScore, MaxScore] range.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
