package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobradar/internal/pkg/config"
	"jobradar/internal/usecase/collect"
	"jobradar/internal/usecase/digest"
)

// Job label values for metrics and logs.
const (
	jobFetch  = "fetch"
	jobDigest = "digest"
)

// Scheduler drives the two periodic jobs of the daemon: the collection
// run (every N hours per the config file) and the digest send (once a
// day at the configured wall-clock time). Schedules are read from the
// config store when Start is called; a config change takes effect on
// the next restart.
type Scheduler struct {
	store     *config.Store
	collector *collect.Service
	digester  *digest.Service
	cfg       *WorkerConfig
	metrics   *WorkerMetrics
	health    *HealthServer
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewScheduler assembles a scheduler. The health server may be nil when
// readiness reporting is not needed (tests, one-shot CLI runs).
func NewScheduler(
	store *config.Store,
	collector *collect.Service,
	digester *digest.Service,
	cfg *WorkerConfig,
	metrics *WorkerMetrics,
	health *HealthServer,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		store:     store,
		collector: collector,
		digester:  digester,
		cfg:       cfg,
		metrics:   metrics,
		health:    health,
		logger:    logger,
	}
}

// FetchSpec converts a fetch interval in hours to a five-field cron spec.
// Non-positive values fall back to every 6 hours; 24 hours and above
// collapse to a daily midnight run.
func FetchSpec(hours int) string {
	if hours <= 0 {
		hours = 6
	}
	if hours >= 24 {
		return "0 0 * * *"
	}
	return fmt.Sprintf("0 */%d * * *", hours)
}

// DigestSpec converts an "HH:MM" send time to a daily cron spec.
func DigestSpec(clock string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid digest time %q: expected HH:MM", clock)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Start installs the cron entries and begins scheduling. The call
// returns immediately; jobs run on the cron's own goroutine.
func (s *Scheduler) Start() error {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Error("invalid timezone, using UTC",
			slog.String("timezone", s.cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	app := s.store.Get()

	fetchSpec := FetchSpec(app.FetchIntervalHours)
	digestSpec, err := DigestSpec(app.DigestTime)
	if err != nil {
		// 設定のバリデーションをすり抜けた場合のみ。デフォルトの8時で動かす。
		s.logger.Warn("invalid digest time in config, using 08:00",
			slog.String("digest_time", app.DigestTime))
		digestSpec = "0 8 * * *"
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(fetchSpec, s.runFetch); err != nil {
		return fmt.Errorf("add fetch schedule: %w", err)
	}
	if _, err := c.AddFunc(digestSpec, s.runDigest); err != nil {
		return fmt.Errorf("add digest schedule: %w", err)
	}
	c.Start()
	s.cron = c

	if s.health != nil {
		s.health.SetReady(true)
	}

	s.logger.Info("scheduler started",
		slog.String("fetch_schedule", fetchSpec),
		slog.String("digest_schedule", digestSpec),
		slog.String("timezone", s.cfg.Timezone))
	return nil
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	if s.health != nil {
		s.health.SetReady(false)
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runFetch() {
	defer s.recoverPanic(jobFetch)

	start := time.Now()
	s.metrics.RecordJobRun(jobFetch, "started")
	s.logger.Info("scheduled fetch started")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	stats, err := s.collector.Run(ctx)
	s.metrics.RecordJobDuration(jobFetch, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("scheduled fetch failed", slog.Any("error", err))
		s.metrics.RecordJobRun(jobFetch, "failure")
		return
	}

	s.metrics.RecordJobRun(jobFetch, "success")
	s.metrics.RecordLastSuccess(jobFetch)
	s.metrics.RecordSourcesProcessed(stats.Sources)

	s.logger.Info("scheduled fetch completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("entries", stats.Entries),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("rejected", stats.Rejected),
		slog.Int64("analyzed", stats.Analyzed),
		slog.Duration("duration", stats.Duration),
	)
}

func (s *Scheduler) runDigest() {
	defer s.recoverPanic(jobDigest)

	start := time.Now()
	s.metrics.RecordJobRun(jobDigest, "started")
	s.logger.Info("scheduled digest started")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	record, err := s.digester.Send(ctx)
	s.metrics.RecordJobDuration(jobDigest, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("scheduled digest failed", slog.Any("error", err))
		s.metrics.RecordJobRun(jobDigest, "failure")
		return
	}

	s.metrics.RecordJobRun(jobDigest, "success")
	s.metrics.RecordLastSuccess(jobDigest)

	if record != nil {
		s.logger.Info("scheduled digest completed",
			slog.String("status", string(record.Status)),
			slog.Int("postings", record.JobCount),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// recoverPanic keeps a panicking job from killing the whole daemon.
func (s *Scheduler) recoverPanic(job string) {
	if r := recover(); r != nil {
		s.logger.Error("scheduled job panicked",
			slog.String("job", job), slog.Any("panic", r))
		s.metrics.RecordJobRun(job, "failure")
	}
}
