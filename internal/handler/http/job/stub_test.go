package job_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"jobradar/internal/domain/entity"
	"jobradar/internal/repository"
)

var errDB = errors.New("db down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/* ───────── モック実装 ───────── */

// stubRepo is an in-memory JobRepository for handler tests. Only the
// methods a given test exercises need to be primed; the rest return
// zero values.
type stubRepo struct {
	jobs       map[int64]*entity.Job
	sourceName string

	listResult []repository.JobWithSource
	listErr    error
	total      int64

	lastFilters  repository.JobFilters
	lastKeywords []string

	searchResult []*entity.Job
	searchErr    error

	updated   []*entity.Job
	updateErr error

	deletedIDs []int64
	deleteErr  error

	byStatus  []repository.StatusCount
	bySource  []repository.SourceCount
	histogram map[int]int64
	statsErr  error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		jobs:       map[int64]*entity.Job{},
		sourceName: "HN Who is Hiring",
		histogram:  map[int]int64{},
	}
}

func (s *stubRepo) ListWithSourcePaginated(_ context.Context, filters repository.JobFilters, _, _ int) ([]repository.JobWithSource, error) {
	s.lastFilters = filters
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listResult, nil
}

func (s *stubRepo) Count(_ context.Context, filters repository.JobFilters) (int64, error) {
	if s.listErr != nil {
		return 0, s.listErr
	}
	return s.total, nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (*entity.Job, error) {
	return s.jobs[id], nil
}

func (s *stubRepo) GetWithSource(_ context.Context, id int64) (*entity.Job, string, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, "", nil
	}
	return j, s.sourceName, nil
}

func (s *stubRepo) Search(_ context.Context, keywords []string, filters repository.JobFilters) ([]*entity.Job, error) {
	s.lastKeywords = keywords
	s.lastFilters = filters
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResult, nil
}

func (s *stubRepo) Create(_ context.Context, _ *entity.Job) error { return nil }

func (s *stubRepo) Update(_ context.Context, j *entity.Job) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, j)
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubRepo) ExistsByFingerprint(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *stubRepo) ExistsByFingerprintBatch(_ context.Context, _ []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *stubRepo) ListUnnotified(_ context.Context, _ int) ([]*entity.Job, error) {
	return nil, nil
}

func (s *stubRepo) MarkNotified(_ context.Context, _ []int64, _ time.Time) error {
	return nil
}

func (s *stubRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.byStatus, nil
}

func (s *stubRepo) CountBySource(_ context.Context) ([]repository.SourceCount, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.bySource, nil
}

func (s *stubRepo) ScoreHistogram(_ context.Context) (map[int]int64, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.histogram, nil
}

func seedJob(id int64, title string, score int, status entity.JobStatus) *entity.Job {
	return &entity.Job{
		ID:       id,
		SourceID: 1,
		Title:    title,
		URL:      "https://example.com/jobs/" + title,
		Company:  "Example Corp",
		Location: "Remote",
		Score:    score,
		Status:   status,
		Summary:  "## 求人概要\n" + title,
		PostedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}
