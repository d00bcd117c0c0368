// Package search implements keyword and semantic search over stored job
// postings. Keyword search goes straight to SQL; semantic search embeds
// the query and ranks postings by cosine similarity of their stored
// vectors.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobradar/internal/domain/entity"
	"jobradar/internal/observability/metrics"
	searchutil "jobradar/internal/pkg/search"
	"jobradar/internal/repository"
	"jobradar/internal/usecase/analyze"
)

// rebuildPageSize bounds how many postings are loaded per batch when
// rebuilding the embedding index.
const rebuildPageSize = 100

// ErrNoEmbedding is returned by Similar when the posting has no stored
// embedding to compare against.
var ErrNoEmbedding = errors.New("no embedding stored for posting")

// ErrInvalidTimeWindow is returned for a window value outside the known set.
var ErrInvalidTimeWindow = errors.New("invalid time window (want 3m, 6m, or 1y)")

// TimeWindow restricts semantic search to recently posted entries.
type TimeWindow string

// Supported windows. WindowAll applies no cutoff.
const (
	WindowAll         TimeWindow = ""
	WindowThreeMonths TimeWindow = "3m"
	WindowSixMonths   TimeWindow = "6m"
	WindowOneYear     TimeWindow = "1y"
)

// Cutoff returns the posted-at lower bound for the window, zero for
// WindowAll.
func (w TimeWindow) Cutoff(now time.Time) (time.Time, error) {
	switch w {
	case WindowAll:
		return time.Time{}, nil
	case WindowThreeMonths:
		return now.AddDate(0, -3, 0), nil
	case WindowSixMonths:
		return now.AddDate(0, -6, 0), nil
	case WindowOneYear:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, ErrInvalidTimeWindow
}

// QueryExpander rewrites a search query into a richer set of search terms
// before it is embedded. Backed by the analyzer LLM; an expansion failure
// falls back to the raw query so search keeps working when the model is
// down.
type QueryExpander interface {
	ExpandQuery(ctx context.Context, query string) (string, error)
}

// Result is one semantic search hit.
type Result struct {
	Job        *entity.Job
	SourceName string
	Similarity float64
}

// Service provides search operations over stored postings.
type Service struct {
	JobRepo       repository.JobRepository
	EmbeddingRepo repository.JobEmbeddingRepository
	Embedder      analyze.Embedder
	Provider      string // embedding provider name recorded on rows

	// Expander rewrites queries before embedding. Nil disables expansion.
	Expander QueryExpander

	// ExpectedDim is the vector width of the job_embeddings column. When
	// set, vectors of any other width are rejected before they reach the
	// database, turning a cryptic pgvector insert error into a clear one.
	// Zero disables the check.
	ExpectedDim int
}

// NewService creates a search service. Embedder may be nil, in which case
// semantic search and index rebuilds return an error.
func NewService(jobRepo repository.JobRepository, embeddingRepo repository.JobEmbeddingRepository, embedder analyze.Embedder, provider string) Service {
	return Service{
		JobRepo:       jobRepo,
		EmbeddingRepo: embeddingRepo,
		Embedder:      embedder,
		Provider:      provider,
	}
}

// Keyword performs keyword search over title, company, and summary.
func (s *Service) Keyword(ctx context.Context, query string, filters repository.JobFilters) ([]*entity.Job, error) {
	keywords := searchutil.NormalizeKeywords(strings.Fields(query))
	return s.JobRepo.Search(ctx, keywords, filters)
}

// Semantic embeds the query and returns the closest postings by cosine
// similarity, dropping hits below minSimilarity. The query is first
// expanded into related terms when an expander is configured, and window
// restricts hits to recently posted entries.
func (s *Service) Semantic(ctx context.Context, query string, limit int, minSimilarity float64, window TimeWindow) ([]Result, error) {
	if s.Embedder == nil {
		return nil, analyze.ErrEmbeddingUnsupported
	}
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	cutoff, err := window.Cutoff(time.Now())
	if err != nil {
		return nil, err
	}

	text := query
	if s.Expander != nil {
		expanded, expandErr := s.Expander.ExpandQuery(ctx, query)
		if expandErr != nil {
			slog.Warn("query expansion failed, searching with the raw query",
				slog.String("query", query),
				slog.Any("error", expandErr))
		} else if strings.TrimSpace(expanded) != "" {
			text = expanded
		}
	}

	vector, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if s.ExpectedDim > 0 && len(vector) != s.ExpectedDim {
		return nil, fmt.Errorf("embedding dimension mismatch: model %s returned %d values, schema expects %d",
			s.Embedder.EmbeddingModel(), len(vector), s.ExpectedDim)
	}

	similar, err := s.EmbeddingRepo.SearchSimilar(ctx, vector, limit, cutoff)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(similar))
	for _, hit := range similar {
		if hit.Similarity < minSimilarity {
			continue
		}
		job, sourceName, err := s.JobRepo.GetWithSource(ctx, hit.JobID)
		if err != nil {
			return nil, fmt.Errorf("load posting %d: %w", hit.JobID, err)
		}
		if job == nil {
			// 埋め込みだけ残っている。求人は削除済み。
			continue
		}
		results = append(results, Result{
			Job:        job,
			SourceName: sourceName,
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

// Similar returns the postings closest to the given posting by cosine
// similarity of their stored embeddings. The posting itself is excluded
// from the results. Returns ErrNoEmbedding if the posting was never
// embedded.
func (s *Service) Similar(ctx context.Context, jobID int64, limit int) ([]Result, error) {
	if s.Embedder == nil {
		return nil, analyze.ErrEmbeddingUnsupported
	}

	rows, err := s.EmbeddingRepo.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load embedding: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoEmbedding
	}

	// 自分自身がヒットに含まれる分を見込んで1件多く取る
	similar, err := s.EmbeddingRepo.SearchSimilar(ctx, rows[0].Vector, limit+1, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(similar))
	for _, hit := range similar {
		if hit.JobID == jobID {
			continue
		}
		if len(results) >= limit {
			break
		}
		job, sourceName, err := s.JobRepo.GetWithSource(ctx, hit.JobID)
		if err != nil {
			return nil, fmt.Errorf("load posting %d: %w", hit.JobID, err)
		}
		if job == nil {
			continue
		}
		results = append(results, Result{
			Job:        job,
			SourceName: sourceName,
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

// RebuildIndex regenerates embeddings for every analyzed and notified
// posting. Returns the number of postings embedded. Individual embedding
// failures are logged and skipped so one bad posting cannot abort the
// whole rebuild.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	if s.Embedder == nil {
		return 0, analyze.ErrEmbeddingUnsupported
	}

	embedded := 0
	for _, status := range []entity.JobStatus{entity.JobStatusAnalyzed, entity.JobStatusNotified} {
		st := status
		filters := repository.JobFilters{Status: &st}

		for offset := 0; ; offset += rebuildPageSize {
			page, err := s.JobRepo.ListWithSourcePaginated(ctx, filters, offset, rebuildPageSize)
			if err != nil {
				return embedded, fmt.Errorf("list postings for rebuild: %w", err)
			}
			if len(page) == 0 {
				break
			}

			for _, row := range page {
				if err := s.EmbedJob(ctx, row.Job); err != nil {
					slog.Warn("embedding rebuild failed for posting",
						slog.Int64("job_id", row.Job.ID),
						slog.Any("error", err))
					continue
				}
				embedded++
			}

			if len(page) < rebuildPageSize {
				break
			}
		}
	}

	slog.Info("embedding index rebuild completed", slog.Int("embedded", embedded))
	return embedded, nil
}

// EmbedJob generates and stores the embedding for one posting.
func (s *Service) EmbedJob(ctx context.Context, job *entity.Job) error {
	if s.Embedder == nil {
		return analyze.ErrEmbeddingUnsupported
	}
	if job == nil {
		return fmt.Errorf("job is nil")
	}

	vector, err := s.Embedder.Embed(ctx, embeddingText(job))
	if err != nil {
		metrics.RecordEmbeddingGenerated(false)
		return fmt.Errorf("generate embedding: %w", err)
	}
	if s.ExpectedDim > 0 && len(vector) != s.ExpectedDim {
		metrics.RecordEmbeddingGenerated(false)
		return fmt.Errorf("embedding dimension mismatch: model %s returned %d values, schema expects %d (set EMBEDDING_DIM to match the model and recreate job_embeddings)",
			s.Embedder.EmbeddingModel(), len(vector), s.ExpectedDim)
	}

	embedding := &entity.JobEmbedding{
		JobID:     job.ID,
		Provider:  s.Provider,
		Model:     s.Embedder.EmbeddingModel(),
		Vector:    vector,
		Dimension: len(vector),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.EmbeddingRepo.Upsert(ctx, embedding); err != nil {
		metrics.RecordEmbeddingGenerated(false)
		return fmt.Errorf("store embedding: %w", err)
	}
	metrics.RecordEmbeddingGenerated(true)
	return nil
}

// embeddingText builds the text that gets embedded for a posting.
// The analyzer summary is preferred: it is already cleaned and carries
// the fields that matter for matching.
func embeddingText(job *entity.Job) string {
	parts := make([]string, 0, 3)
	if job.Title != "" {
		parts = append(parts, job.Title)
	}
	if job.Company != "" {
		parts = append(parts, job.Company)
	}
	if job.Summary != "" {
		parts = append(parts, job.Summary)
	} else if job.Description != "" {
		parts = append(parts, job.Description)
	}
	return strings.Join(parts, "\n")
}
