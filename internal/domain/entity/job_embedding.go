package entity

import (
	"fmt"
	"time"
)

// JobEmbedding is a vector representation of a job posting used for
// semantic search. One posting can carry embeddings from several
// provider/model pairs; (job_id, provider, model) is the unique key.
type JobEmbedding struct {
	ID        int64
	JobID     int64
	Provider  string
	Model     string
	Vector    []float32
	Dimension int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks internal consistency of the embedding.
func (e *JobEmbedding) Validate() error {
	if e.JobID <= 0 {
		return &ValidationError{Field: "jobID", Message: "must be positive"}
	}
	if e.Provider == "" {
		return &ValidationError{Field: "provider", Message: "is required"}
	}
	if e.Model == "" {
		return &ValidationError{Field: "model", Message: "is required"}
	}
	if len(e.Vector) == 0 {
		return &ValidationError{Field: "vector", Message: "is required"}
	}
	if e.Dimension != len(e.Vector) {
		return fmt.Errorf("%w: dimension %d does not match vector length %d",
			ErrValidationFailed, e.Dimension, len(e.Vector))
	}
	return nil
}
