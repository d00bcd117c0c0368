package job

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobradar/internal/domain/entity"
	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	jobUC "jobradar/internal/usecase/job"
)

type UpdateHandler struct{ Svc jobUC.Service }

// ServeHTTP 求人更新
// @Summary      求人更新
// @Description  求人のステータスまたはスコアを手動で修正します
// @Tags         jobs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "求人ID"
// @Param        job body object true "更新するフィールド（status / score）"
// @Success      204 "No Content"
// @Failure      400 {string} string "Bad request - invalid input"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Failure      404 {string} string "Not found - posting not found"
// @Router       /api/jobs/{id} [patch]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/api/jobs/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status *string `json:"status"`
		Score  *int    `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var statusPtr *entity.JobStatus
	if req.Status != nil {
		status := entity.JobStatus(*req.Status)
		statusPtr = &status
	}

	err = h.Svc.Update(r.Context(), jobUC.UpdateInput{
		ID:     id,
		Status: statusPtr,
		Score:  req.Score,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, jobUC.ErrJobNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
