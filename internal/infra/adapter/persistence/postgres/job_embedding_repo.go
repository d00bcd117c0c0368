package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"jobradar/internal/domain/entity"
	"jobradar/internal/pkg/search"
	"jobradar/internal/repository"
)

// JobEmbeddingRepo implements the JobEmbeddingRepository interface for PostgreSQL.
type JobEmbeddingRepo struct {
	db *sql.DB
}

// NewJobEmbeddingRepo creates a new PostgreSQL-based JobEmbeddingRepository.
func NewJobEmbeddingRepo(db *sql.DB) repository.JobEmbeddingRepository {
	return &JobEmbeddingRepo{db: db}
}

// Upsert creates a new embedding or updates an existing one.
// Uses INSERT ... ON CONFLICT DO UPDATE to handle unique constraint violations.
func (repo *JobEmbeddingRepo) Upsert(ctx context.Context, embedding *entity.JobEmbedding) error {
	if embedding == nil {
		return fmt.Errorf("Upsert: embedding is nil")
	}
	if err := embedding.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	vector := pgvector.NewVector(embedding.Vector)

	const query = `
INSERT INTO job_embeddings (job_id, provider, model, dimension, embedding, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (job_id, provider, model)
DO UPDATE SET
	dimension = EXCLUDED.dimension,
	embedding = EXCLUDED.embedding,
	updated_at = NOW()
RETURNING id, created_at, updated_at`

	err := repo.db.QueryRowContext(ctx, query,
		embedding.JobID,
		embedding.Provider,
		embedding.Model,
		embedding.Dimension,
		vector,
	).Scan(&embedding.ID, &embedding.CreatedAt, &embedding.UpdatedAt)

	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// FindByJobID retrieves all embeddings for a given posting.
// Returns an empty slice if no embeddings are found.
func (repo *JobEmbeddingRepo) FindByJobID(ctx context.Context, jobID int64) ([]*entity.JobEmbedding, error) {
	const query = `
SELECT id, job_id, provider, model, dimension, embedding, created_at, updated_at
FROM job_embeddings
WHERE job_id = $1
ORDER BY provider, model`

	rows, err := repo.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("FindByJobID: %w", err)
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]*entity.JobEmbedding, 0)
	for rows.Next() {
		emb := &entity.JobEmbedding{}
		var vector pgvector.Vector

		err := rows.Scan(
			&emb.ID,
			&emb.JobID,
			&emb.Provider,
			&emb.Model,
			&emb.Dimension,
			&vector,
			&emb.CreatedAt,
			&emb.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("FindByJobID: Scan: %w", err)
		}

		emb.Vector = vector.Slice()
		embeddings = append(embeddings, emb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindByJobID: %w", err)
	}

	return embeddings, nil
}

// SearchSimilar finds postings with embeddings close to the provided vector.
// Uses the cosine distance operator (<=>); similarity is 1 - distance.
// A non-zero postedAfter restricts hits by the posting's publication time.
func (repo *JobEmbeddingRepo) SearchSimilar(ctx context.Context, vector []float32, limit int, postedAfter time.Time) ([]repository.SimilarJob, error) {
	searchCtx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	pgVector := pgvector.NewVector(vector)

	const query = `
SELECT job_id, 1 - (embedding <=> $1) AS similarity
FROM job_embeddings
ORDER BY embedding <=> $1
LIMIT $2`

	const windowedQuery = `
SELECT e.job_id, 1 - (e.embedding <=> $1) AS similarity
FROM job_embeddings e
JOIN jobs j ON j.id = e.job_id
WHERE j.posted_at >= $3
ORDER BY e.embedding <=> $1
LIMIT $2`

	var rows *sql.Rows
	var err error
	if postedAfter.IsZero() {
		rows, err = repo.db.QueryContext(searchCtx, query, pgVector, limit)
	} else {
		rows, err = repo.db.QueryContext(searchCtx, windowedQuery, pgVector, limit, postedAfter)
	}
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarJob, 0, limit)
	for rows.Next() {
		var result repository.SimilarJob
		if err := rows.Scan(&result.JobID, &result.Similarity); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}

	return results, nil
}

// DeleteByJobID removes all embeddings associated with a posting.
// Returns the number of deleted rows.
func (repo *JobEmbeddingRepo) DeleteByJobID(ctx context.Context, jobID int64) (int64, error) {
	const query = `DELETE FROM job_embeddings WHERE job_id = $1`

	result, err := repo.db.ExecContext(ctx, query, jobID)
	if err != nil {
		return 0, fmt.Errorf("DeleteByJobID: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByJobID: RowsAffected: %w", err)
	}

	return count, nil
}
