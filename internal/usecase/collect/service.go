package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"jobradar/internal/domain/entity"
	"jobradar/internal/infra/feedreader"
	"jobradar/internal/observability/metrics"
	"jobradar/internal/repository"
	"jobradar/internal/usecase/analyze"
)

const analyzeParallelism = 5 // LLM呼び出しの並列数（レート制限対策）

// Config controls pipeline behavior.
type Config struct {
	// ScoreThreshold is the minimum relevance score a posting needs to be
	// analyzed. Postings below it are stored as rejected.
	ScoreThreshold int

	// ContentParallelism caps concurrent posting-page fetches.
	ContentParallelism int

	// ContentThreshold is the minimum feed-excerpt length before the full
	// page is fetched.
	ContentThreshold int
}

// DefaultConfig returns production defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold:     6,
		ContentParallelism: 10,
		ContentThreshold:   1500,
	}
}

// EmbeddingHook generates embeddings for stored postings asynchronously.
// Decouples the pipeline from the embedding provider; implementations must
// not block.
type EmbeddingHook interface {
	EmbedJobAsync(ctx context.Context, job *entity.Job)
}

// FetchCursor persists the reader fetch high-water mark between runs so a
// restart does not re-pull the reader's whole history. Only used for
// reader providers; the direct provider always fetches full feeds and
// relies on fingerprint dedup.
type FetchCursor interface {
	// LastReaderFetch returns the recorded mark, zero when none exists.
	LastReaderFetch() time.Time

	// SetLastReaderFetch records the newest entry timestamp seen.
	SetLastReaderFetch(t time.Time) error
}

// Service orchestrates the collection pipeline. One Run pulls entries from
// the feed provider, drops duplicates, scores relevance, enhances content,
// analyzes the survivors, and persists everything.
type Service struct {
	SourceRepo     repository.SourceRepository
	JobRepo        repository.JobRepository
	FeedClient     feedreader.Client
	ContentFetcher ContentFetcher // nil disables content enhancement
	Analyzer       analyze.Analyzer
	EmbeddingHook  EmbeddingHook // nil disables embedding generation
	Cursor         FetchCursor   // nil disables the reader fetch cursor
	config         Config
}

// NewService creates a collection service with the provided dependencies.
// ContentFetcher and EmbeddingHook may be nil to disable those stages.
func NewService(
	sourceRepo repository.SourceRepository,
	jobRepo repository.JobRepository,
	feedClient feedreader.Client,
	contentFetcher ContentFetcher,
	an analyze.Analyzer,
	embeddingHook EmbeddingHook,
	cfg Config,
) Service {
	return Service{
		SourceRepo:     sourceRepo,
		JobRepo:        jobRepo,
		FeedClient:     feedClient,
		ContentFetcher: contentFetcher,
		Analyzer:       an,
		EmbeddingHook:  embeddingHook,
		config:         cfg,
	}
}

// Stats contains counters for one pipeline run.
type Stats struct {
	Sources         int
	Entries         int64
	Inserted        int64
	Duplicated      int64
	Rejected        int64
	Analyzed        int64
	RelevanceErrors int64
	AnalysisErrors  int64
	Duration        time.Duration
}

// SyncSources pushes the active sources to the feed provider so it
// subscribes to them. A no-op for the direct provider.
func (s *Service) SyncSources(ctx context.Context) error {
	sources, err := s.SourceRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sources: %w", err)
	}
	return s.FeedClient.SyncSources(ctx, sources)
}

// Run executes one full collection cycle over all active sources.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := time.Now()
	stats := &Stats{}

	sources, err := s.SourceRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	stats.Sources = len(sources)
	if len(sources) == 0 {
		logger.Info("no active sources, nothing to collect")
		return stats, nil
	}

	// リーダー経由では設定ファイルに永続化した高水位線を優先する。
	// last_fetched_atの最小値はソース追加直後にリーダーの全履歴を
	// 引き直してしまうため、あくまでフォールバック。
	after := fetchAfter(sources)
	reader := s.FeedClient.Provider() != entity.ProviderDirect
	if reader && s.Cursor != nil {
		if mark := s.Cursor.LastReaderFetch(); !mark.IsZero() {
			after = mark
		}
	}

	fetchStart := time.Now()
	entries, err := s.FeedClient.FetchEntries(ctx, sources, after)
	if err != nil {
		metrics.RecordFeedFetchError(0, "fetch_failed")
		return stats, fmt.Errorf("%w: %v", ErrFeedFetchFailed, err)
	}
	metrics.RecordFeedFetch(0, time.Since(fetchStart))

	entries = s.resolveSources(entries, sources)
	stats.Entries = int64(len(entries))
	if len(entries) == 0 {
		logger.Info("no new entries",
			slog.Int("sources", stats.Sources),
			slog.String("provider", string(s.FeedClient.Provider())))
		return stats, nil
	}

	fresh, err := s.dropDuplicates(ctx, entries, stats)
	if err != nil {
		return stats, err
	}

	if err := s.processEntries(ctx, fresh, stats); err != nil {
		return stats, err
	}

	now := time.Now()
	safeCtx := context.WithoutCancel(ctx)
	for _, src := range sources {
		if err := s.SourceRepo.TouchFetchedAt(safeCtx, src.ID, now); err != nil {
			return stats, fmt.Errorf("update source fetched timestamp: %w", err)
		}
		metrics.RecordJobsCollected(src.Name, src.ID, countBySource(fresh, src.ID))
	}

	if reader && s.Cursor != nil {
		if newest := newestPublishedAt(entries); !newest.IsZero() {
			if err := s.Cursor.SetLastReaderFetch(newest); err != nil {
				logger.Warn("failed to persist reader fetch cursor", slog.Any("error", err))
			}
		}
	}

	stats.Duration = time.Since(start)
	logger.Info("collection run completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("entries", stats.Entries),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("rejected", stats.Rejected),
		slog.Int64("relevance_errors", stats.RelevanceErrors),
		slog.Int64("analysis_errors", stats.AnalysisErrors),
		slog.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// fetchAfter returns the high-water mark for entry fetching: the oldest
// last-fetched timestamp across sources, so no source misses entries.
// Zero when any source has never been fetched.
func fetchAfter(sources []*entity.Source) time.Time {
	var after time.Time
	for i, src := range sources {
		if src.LastFetchedAt == nil {
			return time.Time{}
		}
		if i == 0 || src.LastFetchedAt.Before(after) {
			after = *src.LastFetchedAt
		}
	}
	return after
}

// newestPublishedAt returns the latest publication time in the batch.
func newestPublishedAt(entries []feedreader.Entry) time.Time {
	var newest time.Time
	for _, e := range entries {
		if e.PublishedAt.After(newest) {
			newest = e.PublishedAt
		}
	}
	return newest
}

// resolveSources fills in the SourceID of entries that arrived through a
// reader's aggregate endpoint, matching by feed title. Entries that match
// no known source are dropped.
func (s *Service) resolveSources(entries []feedreader.Entry, sources []*entity.Source) []feedreader.Entry {
	byName := make(map[string]int64, len(sources))
	for _, src := range sources {
		byName[src.Name] = src.ID
	}

	resolved := make([]feedreader.Entry, 0, len(entries))
	for _, e := range entries {
		if e.SourceID == 0 {
			id, ok := byName[e.FeedTitle]
			if !ok {
				// リーダー側にしかないフィード。管理対象外なのでスキップ。
				slog.Debug("entry from unknown feed, skipping",
					slog.String("feed_title", e.FeedTitle),
					slog.String("url", e.URL))
				continue
			}
			e.SourceID = id
		}
		resolved = append(resolved, e)
	}
	return resolved
}

// dropDuplicates removes entries whose fingerprint is already stored.
// N+1問題解消: 事前に全フィンガープリントをバッチで存在チェック
func (s *Service) dropDuplicates(ctx context.Context, entries []feedreader.Entry, stats *Stats) ([]feedreader.Entry, error) {
	fingerprints := make([]string, 0, len(entries))
	for _, e := range entries {
		fingerprints = append(fingerprints, entity.JobFingerprint(e.Title, e.URL))
	}

	existsMap, err := s.JobRepo.ExistsByFingerprintBatch(ctx, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("batch fingerprint check: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	fresh := make([]feedreader.Entry, 0, len(entries))
	for _, e := range entries {
		fp := entity.JobFingerprint(e.Title, e.URL)
		if existsMap[fp] || seen[fp] {
			atomic.AddInt64(&stats.Duplicated, 1)
			continue
		}
		seen[fp] = true
		fresh = append(fresh, e)
	}
	return fresh, nil
}

// processEntries runs the relevance gate, content enhancement, analysis,
// and persistence for each new entry. Two-tier parallelism: I/O-bound
// content fetches run wide, LLM calls are capped at analyzeParallelism.
//
// Error handling:
//   - Context cancellation propagates immediately (aborts the run)
//   - Database errors propagate (aborts the run)
//   - Relevance/analysis errors are logged and counted; the posting is
//     stored with status new so a later cycle can retry it
func (s *Service) processEntries(ctx context.Context, entries []feedreader.Entry, stats *Stats) error {
	contentSem := make(chan struct{}, s.config.ContentParallelism)
	analyzeSem := make(chan struct{}, analyzeParallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, e := range entries {
		entry := e

		eg.Go(func() error {
			posting := analyze.Posting{
				Title:       entry.Title,
				Source:      entry.FeedTitle,
				URL:         entry.URL,
				PublishedAt: entry.PublishedAt,
				Description: entry.Content,
			}

			// Step 1: relevance gate (cheap LLM call)
			analyzeSem <- struct{}{}
			relevanceStart := time.Now()
			score, err := s.Analyzer.ScoreRelevance(egCtx, posting)
			metrics.RecordRelevanceCheckDuration(time.Since(relevanceStart))
			<-analyzeSem

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&stats.RelevanceErrors, 1)
				slog.Warn("relevance check failed, keeping posting for retry",
					slog.String("url", entry.URL),
					slog.String("title", entry.Title),
					slog.Any("error", err))
				return s.store(egCtx, entry, 0, entity.JobStatusNew, "", "", stats)
			}

			score = entity.ClampScore(score)
			if score < s.config.ScoreThreshold {
				// 却下も保存する。次回以降のスコアリングを省くため。
				metrics.RecordJobRejected()
				atomic.AddInt64(&stats.Rejected, 1)
				return s.store(egCtx, entry, score, entity.JobStatusRejected, "", "", stats)
			}

			// Step 2: content enhancement (I/O-bound, higher parallelism)
			contentSem <- struct{}{}
			content := s.enhanceContent(egCtx, entry)
			<-contentSem
			posting.Content = content

			// Step 3: full analysis (LLM-bound, lower parallelism)
			analyzeSem <- struct{}{}
			defer func() { <-analyzeSem }()

			analysisStart := time.Now()
			summary, err := s.Analyzer.Analyze(egCtx, posting)
			metrics.RecordAnalysisDuration(time.Since(analysisStart))

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&stats.AnalysisErrors, 1)
				metrics.RecordJobAnalyzed(false)
				slog.Warn("analysis failed, keeping posting for retry",
					slog.String("url", entry.URL),
					slog.String("title", entry.Title),
					slog.Any("error", err))
				return s.store(egCtx, entry, score, entity.JobStatusNew, content, "", stats)
			}

			metrics.RecordJobAnalyzed(true)
			return s.store(egCtx, entry, score, entity.JobStatusAnalyzed, content, summary, stats)
		})
	}

	return eg.Wait()
}

// store persists one posting and fires the embedding hook for analyzed ones.
func (s *Service) store(ctx context.Context, entry feedreader.Entry, score int, status entity.JobStatus, content, summary string, stats *Stats) error {
	job := &entity.Job{
		SourceID:    entry.SourceID,
		Title:       entry.Title,
		URL:         entry.URL,
		Description: entry.Content,
		Content:     content,
		Summary:     summary,
		Score:       score,
		Status:      status,
		PostedAt:    entry.PublishedAt,
		CreatedAt:   time.Now(),
	}
	if status == entity.JobStatusAnalyzed {
		now := time.Now()
		job.AnalyzedAt = &now
		// 分析結果のマークダウンから会社名と勤務地を取り出す
		job.Company = analyze.SummaryField(summary, "Company")
		job.Location = analyze.SummaryField(summary, "Location")
	}

	if err := s.JobRepo.Create(ctx, job); err != nil {
		if errors.Is(err, entity.ErrDuplicateJob) {
			// 並行して同じ求人が入った。数えるだけでよい。
			atomic.AddInt64(&stats.Duplicated, 1)
			return nil
		}
		return fmt.Errorf("create job in repository: %w", err)
	}
	atomic.AddInt64(&stats.Inserted, 1)

	if status == entity.JobStatusAnalyzed {
		atomic.AddInt64(&stats.Analyzed, 1)
		if s.EmbeddingHook != nil {
			s.EmbeddingHook.EmbedJobAsync(ctx, job)
		}
	}
	return nil
}

// reanalyzePageSize bounds how many postings are loaded per batch when
// retrying pending postings.
const reanalyzePageSize = 100

// Reanalyze retries the relevance gate and analysis for postings stored
// with status new. Those are the ones the analyzer failed on during a
// collection run. Postings that fail again keep status new and stay
// eligible for the next retry.
func (s *Service) Reanalyze(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := time.Now()
	stats := &Stats{}

	// 先に対象を全件確定させる。処理中にステータスが変わると
	// オフセットページングがずれるため。
	st := entity.JobStatusNew
	filters := repository.JobFilters{Status: &st}

	var pending []*entity.Job
	for offset := 0; ; offset += reanalyzePageSize {
		page, err := s.JobRepo.ListWithSourcePaginated(ctx, filters, offset, reanalyzePageSize)
		if err != nil {
			return nil, fmt.Errorf("list pending postings: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			pending = append(pending, row.Job)
		}
		if len(page) < reanalyzePageSize {
			break
		}
	}

	stats.Entries = int64(len(pending))
	if len(pending) == 0 {
		logger.Info("no pending postings to reanalyze")
		return stats, nil
	}

	analyzeSem := make(chan struct{}, analyzeParallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, j := range pending {
		job := j

		eg.Go(func() error {
			posting := analyze.Posting{
				Title:       job.Title,
				URL:         job.URL,
				PublishedAt: job.PostedAt,
				Description: job.Description,
				Content:     job.Content,
			}

			// スコア0は関連度チェック自体が失敗していたケース
			score := job.Score
			if score == 0 {
				analyzeSem <- struct{}{}
				relevanceStart := time.Now()
				var err error
				score, err = s.Analyzer.ScoreRelevance(egCtx, posting)
				metrics.RecordRelevanceCheckDuration(time.Since(relevanceStart))
				<-analyzeSem

				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					atomic.AddInt64(&stats.RelevanceErrors, 1)
					slog.Warn("relevance retry failed",
						slog.Int64("job_id", job.ID),
						slog.Any("error", err))
					return nil
				}
				score = entity.ClampScore(score)
			}

			if score < s.config.ScoreThreshold {
				metrics.RecordJobRejected()
				atomic.AddInt64(&stats.Rejected, 1)
				job.Score = score
				job.Status = entity.JobStatusRejected
				return s.JobRepo.Update(egCtx, job)
			}

			if job.Content == "" && s.ContentFetcher != nil {
				if content, err := s.ContentFetcher.FetchContent(egCtx, job.URL); err == nil && len(content) > len(job.Description) {
					job.Content = content
					posting.Content = content
				}
			}

			analyzeSem <- struct{}{}
			defer func() { <-analyzeSem }()

			analysisStart := time.Now()
			summary, err := s.Analyzer.Analyze(egCtx, posting)
			metrics.RecordAnalysisDuration(time.Since(analysisStart))

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&stats.AnalysisErrors, 1)
				metrics.RecordJobAnalyzed(false)
				slog.Warn("analysis retry failed",
					slog.Int64("job_id", job.ID),
					slog.Any("error", err))
				return nil
			}

			now := time.Now()
			job.Score = score
			job.Summary = summary
			job.Status = entity.JobStatusAnalyzed
			job.AnalyzedAt = &now
			if company := analyze.SummaryField(summary, "Company"); company != "" {
				job.Company = company
			}
			if location := analyze.SummaryField(summary, "Location"); location != "" {
				job.Location = location
			}
			if err := s.JobRepo.Update(egCtx, job); err != nil {
				return fmt.Errorf("update reanalyzed posting: %w", err)
			}

			metrics.RecordJobAnalyzed(true)
			atomic.AddInt64(&stats.Analyzed, 1)
			if s.EmbeddingHook != nil {
				s.EmbeddingHook.EmbedJobAsync(egCtx, job)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	logger.Info("reanalyze run completed",
		slog.Int64("pending", stats.Entries),
		slog.Int64("analyzed", stats.Analyzed),
		slog.Int64("rejected", stats.Rejected),
		slog.Int64("relevance_errors", stats.RelevanceErrors),
		slog.Int64("analysis_errors", stats.AnalysisErrors),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// enhanceContent fetches the full posting page when the feed excerpt is
// too short to analyze. Never returns an error: every failure falls back
// to the feed excerpt so a broken page cannot stall the pipeline.
func (s *Service) enhanceContent(ctx context.Context, entry feedreader.Entry) string {
	logger := slog.Default()

	if s.ContentFetcher == nil {
		return entry.Content
	}

	excerptLength := len(entry.Content)
	if excerptLength >= s.config.ContentThreshold {
		logger.Debug("feed excerpt sufficient, skipping fetch",
			slog.String("url", entry.URL),
			slog.Int("excerpt_length", excerptLength),
			slog.Int("threshold", s.config.ContentThreshold))
		metrics.RecordContentFetchSkipped()
		return entry.Content
	}

	fetchStart := time.Now()
	fullContent, err := s.ContentFetcher.FetchContent(ctx, entry.URL)
	fetchDuration := time.Since(fetchStart)

	if err != nil {
		logger.Warn("content fetch failed, using feed excerpt",
			slog.String("url", entry.URL),
			slog.Any("error", err),
			slog.Duration("fetch_duration", fetchDuration))
		metrics.RecordContentFetchFailed(fetchDuration)
		return entry.Content
	}
	metrics.RecordContentFetchSuccess(fetchDuration)

	// 抽出結果が抜粋より短いなら抜粋を使う
	if len(fullContent) > excerptLength {
		return fullContent
	}
	return entry.Content
}

func countBySource(entries []feedreader.Entry, sourceID int64) int {
	n := 0
	for _, e := range entries {
		if e.SourceID == sourceID {
			n++
		}
	}
	return n
}
