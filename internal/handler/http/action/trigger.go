// Package action exposes manual triggers for the pipeline stages. Each
// trigger runs asynchronously; the handler only reports that the run
// started. Progress lands in the logs and metrics like scheduled runs.
package action

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"jobradar/internal/handler/http/respond"
)

// defaultTimeout bounds one triggered run. Collection runs call the LLM
// once or twice per entry, so this is generous on purpose.
const defaultTimeout = 30 * time.Minute

// Trigger runs one pipeline stage to completion.
type Trigger func(ctx context.Context) error

// Handler dispatches POST /api/actions/{name} to the registered trigger.
// At most one run per action may be in flight; a second trigger while one
// is running returns 409.
type Handler struct {
	Triggers map[string]Trigger
	Timeout  time.Duration
	Logger   *slog.Logger

	running sync.Map
}

// NewHandler creates an action handler with the default run timeout.
func NewHandler(triggers map[string]Trigger, logger *slog.Logger) *Handler {
	return &Handler{
		Triggers: triggers,
		Timeout:  defaultTimeout,
		Logger:   logger,
	}
}

// TriggerResponse acknowledges an accepted trigger.
type TriggerResponse struct {
	Action string `json:"action" example:"fetch"`
	Status string `json:"status" example:"started"`
}

// ServeHTTP アクション実行
// @Summary      アクション実行
// @Description  パイプラインの各ステージ（fetch/analyze/digest/rebuild-index）を手動で起動します。実行は非同期です
// @Tags         actions
// @Security     BearerAuth
// @Produce      json
// @Param        name path string true "アクション名" Enums(fetch, analyze, digest, rebuild-index)
// @Success      202 {object} action.TriggerResponse
// @Failure      404 {string} string "Not found - unknown action"
// @Failure      409 {string} string "Conflict - action already running"
// @Router       /api/actions/{name} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/actions/")
	run, ok := h.Triggers[name]
	if !ok {
		respond.SafeError(w, http.StatusNotFound, errors.New("unknown action"))
		return
	}

	if _, loaded := h.running.LoadOrStore(name, struct{}{}); loaded {
		respond.SafeError(w, http.StatusConflict, errors.New("action already running"))
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	go func() {
		defer h.running.Delete(name)

		// HTTPリクエストの寿命とは切り離して実行する
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			h.Logger.Error("triggered action failed",
				"action", name,
				"duration", time.Since(start).String(),
				"error", err.Error())
			return
		}
		h.Logger.Info("triggered action completed",
			"action", name,
			"duration", time.Since(start).String())
	}()

	respond.JSON(w, http.StatusAccepted, TriggerResponse{Action: name, Status: "started"})
}
