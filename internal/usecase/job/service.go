package job

import (
	"context"
	"fmt"

	"jobradar/internal/common/pagination"
	"jobradar/internal/domain/entity"
	"jobradar/internal/repository"
)

// UpdateInput represents the input parameters for updating a posting.
// Fields with nil values will not be updated.
type UpdateInput struct {
	ID     int64
	Status *entity.JobStatus
	Score  *int
}

// Service provides posting management use cases.
// It handles business logic for posting operations and delegates
// persistence to the repository.
type Service struct {
	Repo repository.JobRepository
}

// PaginatedResult represents the result of a paginated query.
// It contains both the data and pagination metadata.
type PaginatedResult struct {
	Data       []repository.JobWithSource
	Pagination pagination.Metadata
}

// Stats aggregates posting counts for the dashboard and the stats endpoint.
type Stats struct {
	Total          int64
	ByStatus       []repository.StatusCount
	BySource       []repository.SourceCount
	ScoreHistogram map[int]int64
}

// ListPaginated retrieves postings with their source names, honoring the
// provided filters. It calculates the appropriate offset, retrieves the
// data and total count, and returns a PaginatedResult with both data and
// metadata.
func (s *Service) ListPaginated(ctx context.Context, filters repository.JobFilters, params pagination.Params) (*PaginatedResult, error) {
	offset := pagination.CalculateOffset(params.Page, params.Limit)

	total, err := s.Repo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	jobs, err := s.Repo.ListWithSourcePaginated(ctx, filters, offset, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs with source paginated: %w", err)
	}

	totalPages := pagination.CalculateTotalPages(total, params.Limit)

	return &PaginatedResult{
		Data: jobs,
		Pagination: pagination.Metadata{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

// Get retrieves a single posting by its ID.
// Returns ErrInvalidJobID if the ID is not positive.
// Returns ErrJobNotFound if the posting does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Job, error) {
	if id <= 0 {
		return nil, ErrInvalidJobID
	}

	job, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// GetWithSource retrieves a single posting by its ID along with the source name.
// Returns ErrInvalidJobID if the ID is not positive.
// Returns ErrJobNotFound if the posting does not exist.
func (s *Service) GetWithSource(ctx context.Context, id int64) (*entity.Job, string, error) {
	if id <= 0 {
		return nil, "", ErrInvalidJobID
	}

	job, sourceName, err := s.Repo.GetWithSource(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get job with source: %w", err)
	}
	if job == nil {
		return nil, "", ErrJobNotFound
	}
	return job, sourceName, nil
}

// Update modifies an existing posting with the provided input.
// Only non-nil fields in the input will be updated. Intended for manual
// corrections: re-flagging a rejected posting or adjusting a score.
// Returns ErrInvalidJobID if the ID is not positive.
// Returns ErrJobNotFound if the posting does not exist.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID <= 0 {
		return ErrInvalidJobID
	}

	job, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return ErrJobNotFound
	}

	if in.Status != nil {
		if !in.Status.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidStatus, *in.Status)
		}
		job.Status = *in.Status
	}
	if in.Score != nil {
		if *in.Score < entity.MinScore || *in.Score > entity.MaxScore {
			return &entity.ValidationError{Field: "score", Message: "must be between 0 and 10"}
		}
		job.Score = *in.Score
	}

	if err := s.Repo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Delete removes a posting by its ID.
// Returns ErrInvalidJobID if the ID is not positive.
// Returns an error if the repository operation fails.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidJobID
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// GetStats aggregates posting counts by status, by source, and by score.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.Repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}

	bySource, err := s.Repo.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("count jobs by source: %w", err)
	}

	histogram, err := s.Repo.ScoreHistogram(ctx)
	if err != nil {
		return nil, fmt.Errorf("score histogram: %w", err)
	}

	var total int64
	for _, sc := range byStatus {
		total += sc.Count
	}

	return &Stats{
		Total:          total,
		ByStatus:       byStatus,
		BySource:       bySource,
		ScoreHistogram: histogram,
	}, nil
}
