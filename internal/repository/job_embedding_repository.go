package repository

import (
	"context"
	"time"

	"jobradar/internal/domain/entity"
)

// SimilarJob represents the result of a similarity search.
// Similarity is cosine similarity mapped to the 0.0-1.0 range.
type SimilarJob struct {
	JobID      int64
	Similarity float64
}

// JobEmbeddingRepository manages vector embeddings for semantic search.
type JobEmbeddingRepository interface {
	// Upsert creates a new embedding or updates an existing one.
	// (job_id, provider, model) is the unique key; on conflict the vector,
	// dimension, and updated_at are replaced.
	Upsert(ctx context.Context, embedding *entity.JobEmbedding) error

	// FindByJobID retrieves all embeddings for a posting.
	// Returns an empty slice (not nil) if none are stored.
	FindByJobID(ctx context.Context, jobID int64) ([]*entity.JobEmbedding, error)

	// SearchSimilar finds postings whose embeddings are closest to the given
	// vector by cosine similarity, ordered by similarity descending.
	// A non-zero postedAfter drops postings published before it.
	SearchSimilar(ctx context.Context, vector []float32, limit int, postedAfter time.Time) ([]SimilarJob, error)

	// DeleteByJobID removes all embeddings for a posting and returns the
	// number of deleted rows. Zero deletions is not an error.
	DeleteByJobID(ctx context.Context, jobID int64) (int64, error)
}
