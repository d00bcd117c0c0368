package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jobradar/internal/domain/entity"
	"jobradar/internal/infra/mailer"
	"jobradar/internal/observability/metrics"
	"jobradar/internal/repository"
)

// Circuit breaker constants. A provider that fails this many sends in a
// row is skipped until the timeout passes.
const (
	breakerThreshold = 5
	breakerTimeout   = 5 * time.Minute
)

// defaultJobLimit caps how many postings go into one digest.
const defaultJobLimit = 50

// ProviderHealth reports the circuit breaker state of one mail provider
// for the health endpoint.
type ProviderHealth struct {
	Name          string
	BreakerOpen   bool
	DisabledUntil *time.Time
}

// providerState tracks consecutive failures for the manual breaker.
type providerState struct {
	mu                  sync.Mutex
	consecutiveFailures int
	disabledUntil       time.Time
}

// Service builds and sends the digest. Providers are tried in order;
// the first one that accepts the message wins.
type Service struct {
	JobRepo    repository.JobRepository
	DigestRepo repository.DigestRepository
	Mailers    []mailer.Mailer
	Recipients []string
	JobLimit   int

	states map[string]*providerState
}

// NewService creates a digest service. Mailers are tried in the given
// order on each send.
func NewService(jobRepo repository.JobRepository, digestRepo repository.DigestRepository, mailers []mailer.Mailer, recipients []string) *Service {
	states := make(map[string]*providerState, len(mailers))
	for _, m := range mailers {
		states[m.Name()] = &providerState{}
	}
	return &Service{
		JobRepo:    jobRepo,
		DigestRepo: digestRepo,
		Mailers:    mailers,
		Recipients: recipients,
		JobLimit:   defaultJobLimit,
		states:     states,
	}
}

// Send builds and delivers the digest for all analyzed, unnotified
// postings. Postings are marked notified only after a provider accepts
// the message; if every provider fails they stay eligible for the next
// attempt. The outcome is always recorded in the digest history.
func (s *Service) Send(ctx context.Context) (*entity.DigestRecord, error) {
	if len(s.Mailers) == 0 {
		return nil, ErrNoMailers
	}

	limit := s.JobLimit
	if limit <= 0 {
		limit = defaultJobLimit
	}

	jobs, err := s.JobRepo.ListUnnotified(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unnotified jobs: %w", err)
	}

	now := time.Now()
	recipient := strings.Join(s.Recipients, ", ")

	if len(jobs) == 0 {
		slog.Info("digest skipped, no eligible postings")
		record := &entity.DigestRecord{
			SentAt:    now,
			JobCount:  0,
			Recipient: recipient,
			Status:    entity.DigestStatusSkipped,
		}
		s.recordHistory(ctx, record)
		metrics.RecordDigest(string(entity.DigestStatusSkipped), 0)
		return record, nil
	}

	msg := &mailer.Message{
		To:      s.Recipients,
		Subject: buildSubject(jobs, now),
		Body:    buildBody(jobs, now),
	}

	sentVia := s.dispatch(ctx, msg)

	record := &entity.DigestRecord{
		SentAt:    now,
		JobCount:  len(jobs),
		Recipient: recipient,
	}

	if sentVia == "" {
		record.Status = entity.DigestStatusFailed
		s.recordHistory(ctx, record)
		metrics.RecordDigest(string(entity.DigestStatusFailed), len(jobs))
		return record, ErrSendFailed
	}

	record.Status = entity.DigestStatusSent
	metrics.RecordDigest(string(entity.DigestStatusSent), len(jobs))

	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	// メール送信済みなのでキャンセルに巻き込まれないコンテキストで更新する
	markCtx := context.WithoutCancel(ctx)
	if err := s.JobRepo.MarkNotified(markCtx, ids, now); err != nil {
		// 次回のダイジェストに同じ求人が再掲される
		slog.Error("digest sent but postings could not be marked notified",
			slog.Int("count", len(ids)),
			slog.Any("error", err))
		s.recordHistory(markCtx, record)
		return record, fmt.Errorf("mark notified: %w", err)
	}

	s.recordHistory(markCtx, record)
	slog.Info("digest sent",
		slog.String("provider", sentVia),
		slog.Int("postings", len(jobs)),
		slog.String("recipients", recipient))
	return record, nil
}

// dispatch tries each provider in order and returns the name of the one
// that accepted the message, or "" if all failed.
func (s *Service) dispatch(ctx context.Context, msg *mailer.Message) string {
	for _, m := range s.Mailers {
		state := s.states[m.Name()]

		state.mu.Lock()
		if time.Now().Before(state.disabledUntil) {
			slog.Warn("mail provider temporarily disabled",
				slog.String("provider", m.Name()),
				slog.Time("disabled_until", state.disabledUntil))
			state.mu.Unlock()
			continue
		}
		state.mu.Unlock()

		start := time.Now()
		err := m.Send(ctx, msg)
		duration := time.Since(start)

		state.mu.Lock()
		if err != nil {
			state.consecutiveFailures++
			if state.consecutiveFailures >= breakerThreshold {
				state.disabledUntil = time.Now().Add(breakerTimeout)
				slog.Error("mail provider circuit breaker opened",
					slog.String("provider", m.Name()),
					slog.Int("consecutive_failures", state.consecutiveFailures))
			}
			state.mu.Unlock()

			slog.Warn("digest send failed on provider",
				slog.String("provider", m.Name()),
				slog.Duration("duration", duration),
				slog.Any("error", err))
			continue
		}
		state.consecutiveFailures = 0
		state.mu.Unlock()
		return m.Name()
	}
	return ""
}

// recordHistory persists the digest record. History failures are logged
// only: losing a history row must not undo a successful send.
func (s *Service) recordHistory(ctx context.Context, record *entity.DigestRecord) {
	if s.DigestRepo == nil {
		return
	}
	if err := s.DigestRepo.Create(ctx, record); err != nil {
		slog.Warn("failed to record digest history", slog.Any("error", err))
	}
}

// History returns the most recent digest records.
func (s *Service) History(ctx context.Context, limit int) ([]*entity.DigestRecord, error) {
	if s.DigestRepo == nil {
		return nil, nil
	}
	records, err := s.DigestRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list digest history: %w", err)
	}
	return records, nil
}

// ProviderHealthStatus reports breaker state for every provider.
func (s *Service) ProviderHealthStatus() []ProviderHealth {
	statuses := make([]ProviderHealth, 0, len(s.Mailers))
	for _, m := range s.Mailers {
		state := s.states[m.Name()]
		state.mu.Lock()
		var disabledUntil *time.Time
		open := false
		if time.Now().Before(state.disabledUntil) {
			open = true
			until := state.disabledUntil
			disabledUntil = &until
		}
		state.mu.Unlock()

		statuses = append(statuses, ProviderHealth{
			Name:          m.Name(),
			BreakerOpen:   open,
			DisabledUntil: disabledUntil,
		})
	}
	return statuses
}
