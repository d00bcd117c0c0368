// Package repository defines persistence interfaces for the domain entities.
// Concrete implementations live under internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"jobradar/internal/domain/entity"
)

// JobWithSource pairs a job posting with the name of its source feed.
type JobWithSource struct {
	Job        *entity.Job
	SourceName string
}

// JobFilters contains optional filters for job listing and search.
type JobFilters struct {
	SourceID *int64            // Filter by source ID
	Status   *entity.JobStatus // Filter by processing status
	MinScore *int              // Filter by minimum relevance score
	From     *time.Time        // Postings published >= this date
	To       *time.Time        // Postings published <= this date
}

// StatusCount is one row of the per-status aggregate used by the stats endpoint.
type StatusCount struct {
	Status entity.JobStatus
	Count  int64
}

// SourceCount is one row of the per-source aggregate used by the stats endpoint.
type SourceCount struct {
	SourceID   int64
	SourceName string
	Count      int64
}

type JobRepository interface {
	// ListWithSourcePaginated retrieves postings with their source names,
	// ordered by posted_at DESC, honoring the provided filters.
	ListWithSourcePaginated(ctx context.Context, filters JobFilters, offset, limit int) ([]JobWithSource, error)
	// Count returns the number of postings matching the filters.
	// Used for pagination metadata.
	Count(ctx context.Context, filters JobFilters) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Job, error)
	// GetWithSource retrieves a posting by ID along with its source name.
	// Returns (nil, "", nil) if the posting is not found.
	GetWithSource(ctx context.Context, id int64) (*entity.Job, string, error)
	// Search performs keyword search with AND logic over title, company,
	// and summary, honoring the provided filters.
	Search(ctx context.Context, keywords []string, filters JobFilters) ([]*entity.Job, error)
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	Delete(ctx context.Context, id int64) error
	// ExistsByFingerprint reports whether a posting with the given dedup
	// fingerprint is already stored, regardless of status.
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	// ExistsByFingerprintBatch はバッチで存在チェックを行い、N+1問題を解消する
	ExistsByFingerprintBatch(ctx context.Context, fingerprints []string) (map[string]bool, error)
	// ListUnnotified returns analyzed postings not yet included in a digest,
	// ordered by score DESC then posted_at DESC.
	ListUnnotified(ctx context.Context, limit int) ([]*entity.Job, error)
	// MarkNotified transitions the given postings to the notified status.
	MarkNotified(ctx context.Context, ids []int64, at time.Time) error
	// CountByStatus aggregates posting counts per status.
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	// CountBySource aggregates posting counts per source.
	CountBySource(ctx context.Context) ([]SourceCount, error)
	// ScoreHistogram returns counts of analyzed postings per score value (0-10).
	ScoreHistogram(ctx context.Context) (map[int]int64, error)
}
