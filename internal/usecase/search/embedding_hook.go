package search

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"jobradar/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// embeddingTimeout bounds a single background embedding generation so a
// stuck provider cannot leak goroutines.
const embeddingTimeout = 30 * time.Second

var (
	embeddingPendingTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "job_embedding_pending_total",
			Help: "Number of pending embedding operations",
		},
	)

	embeddingProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_embedding_processed_total",
			Help: "Total embeddings processed",
		},
		[]string{"status"},
	)
)

// EmbeddingHook generates posting embeddings asynchronously. The collect
// pipeline calls it after storing an analyzed posting; the hook spawns a
// goroutine and returns immediately so embedding latency never slows the
// pipeline down.
type EmbeddingHook struct {
	service *Service
	enabled bool
	wg      sync.WaitGroup
}

// NewEmbeddingHook creates an embedding hook backed by the given search
// service. When enabled is false every call is a no-op.
func NewEmbeddingHook(service *Service, enabled bool) *EmbeddingHook {
	return &EmbeddingHook{
		service: service,
		enabled: enabled,
	}
}

// EmbedJobAsync generates an embedding for the posting in the background.
// Non-blocking. Failures are logged and never propagated: the posting is
// already stored and the embedding can be regenerated by an index rebuild.
func (h *EmbeddingHook) EmbedJobAsync(ctx context.Context, job *entity.Job) {
	if !h.enabled {
		return
	}
	if job == nil {
		slog.Warn("cannot embed nil posting")
		return
	}

	h.wg.Add(1)
	go h.embedJob(job)
}

// Wait blocks until all in-flight embedding goroutines have finished.
// Called during graceful shutdown so embeddings are not lost.
func (h *EmbeddingHook) Wait() {
	h.wg.Wait()
}

func (h *EmbeddingHook) embedJob(job *entity.Job) {
	defer h.wg.Done()

	// ゲージはpanicを含む全ての経路で必ず減らす
	embeddingPendingTotal.Inc()
	completed := false
	defer func() {
		if !completed {
			embeddingPendingTotal.Dec()
			embeddingProcessedTotal.WithLabelValues("panic").Inc()
		}
		if r := recover(); r != nil {
			slog.Error("panic in embedding hook",
				slog.Int64("job_id", job.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	// 親リクエストのキャンセルに巻き込まれないよう独立したコンテキストを使う
	ctx, cancel := context.WithTimeout(context.Background(), embeddingTimeout)
	defer cancel()

	start := time.Now()
	err := h.service.EmbedJob(ctx, job)
	duration := time.Since(start)

	completed = true
	if err != nil {
		recordEmbeddingComplete(false)
		slog.Warn("posting embedding failed (non-blocking)",
			slog.Int64("job_id", job.ID),
			slog.String("url", job.URL),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return
	}

	recordEmbeddingComplete(true)
	slog.Info("posting embedding generated",
		slog.Int64("job_id", job.ID),
		slog.Duration("duration", duration))
}

func recordEmbeddingComplete(success bool) {
	embeddingPendingTotal.Dec()
	status := "success"
	if !success {
		status = "failure"
	}
	embeddingProcessedTotal.WithLabelValues(status).Inc()
}
