package job

import (
	"net/http"

	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	jobUC "jobradar/internal/usecase/job"
)

type DeleteHandler struct{ Svc jobUC.Service }

// ServeHTTP 求人削除
// @Summary      求人削除
// @Description  求人を削除します
// @Tags         jobs
// @Security     BearerAuth
// @Param        id path int true "求人ID"
// @Success      204 "No Content"
// @Failure      400 {string} string "Bad request - invalid ID"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /api/jobs/{id} [delete]
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/api/jobs/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
