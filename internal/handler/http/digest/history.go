// Package digest provides HTTP handlers for the digest send history.
package digest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"jobradar/internal/handler/http/respond"
	digestUC "jobradar/internal/usecase/digest"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

type HistoryHandler struct{ Svc *digestUC.Service }

// DTO is the JSON representation of one digest history record.
type DTO struct {
	ID        int64     `json:"id" example:"1"`
	SentAt    time.Time `json:"sent_at"`
	JobCount  int       `json:"job_count" example:"12"`
	Recipient string    `json:"recipient" example:"me@example.com"`
	Status    string    `json:"status" example:"sent"`
}

// ServeHTTP ダイジェスト履歴取得
// @Summary      ダイジェスト履歴取得
// @Description  ダイジェスト送信の履歴を新しい順に返します
// @Tags         digests
// @Produce      json
// @Param        limit query int false "最大件数" default(30) maximum(100)
// @Success      200 {array} digest.DTO
// @Failure      400 {string} string "Bad request - invalid limit"
// @Failure      500 {string} string "Internal server error"
// @Router       /api/digests [get]
func (h HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("limit must be a positive integer"))
			return
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	records, err := h.Svc.History(r.Context(), limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DTO, 0, len(records))
	for _, rec := range records {
		out = append(out, DTO{
			ID:        rec.ID,
			SentAt:    rec.SentAt,
			JobCount:  rec.JobCount,
			Recipient: rec.Recipient,
			Status:    string(rec.Status),
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

// Register registers the digest history endpoint.
func Register(mux *http.ServeMux, svc *digestUC.Service) {
	mux.Handle("GET    /api/digests", HistoryHandler{svc})
}
