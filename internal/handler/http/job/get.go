package job

import (
	"errors"
	"net/http"

	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	jobUC "jobradar/internal/usecase/job"
)

type GetHandler struct{ Svc jobUC.Service }

// ServeHTTP 求人詳細取得
// @Summary      求人詳細取得
// @Description  指定されたIDの求人を取得します（ソース名と分析サマリを含む）
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "求人ID"
// @Success      200 {object} DTO "求人詳細" headers(X-RateLimit-Limit=integer,X-RateLimit-Remaining=integer,X-RateLimit-Reset=integer)
// @Failure      400 {string} string "Bad request - invalid posting ID"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      403 {string} string "Forbidden - insufficient permissions"
// @Failure      404 {string} string "Not found - posting not found"
// @Failure      429 {string} string "Too many requests - rate limit exceeded" headers(X-RateLimit-Limit=integer,X-RateLimit-Remaining=integer,X-RateLimit-Reset=integer,Retry-After=integer)
// @Failure      500 {string} string "サーバーエラー"
// @Router       /api/jobs/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/api/jobs/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	posting, sourceName, err := h.Svc.GetWithSource(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, jobUC.ErrInvalidJobID) {
			code = http.StatusBadRequest
		} else if errors.Is(err, jobUC.ErrJobNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDTO(posting, sourceName))
}
