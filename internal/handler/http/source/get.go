package source

import (
	"errors"
	"net/http"

	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	srcUC "jobradar/internal/usecase/source"
)

type GetHandler struct{ Svc srcUC.Service }

// ServeHTTP ソース詳細取得
// @Summary      ソース詳細取得
// @Description  IDを指定してソースを1件取得します
// @Tags         sources
// @Produce      json
// @Param        id path int true "ソースID"
// @Success      200 {object} source.DTO
// @Failure      400 {string} string "Bad request - invalid ID"
// @Failure      404 {string} string "Not found - source not found"
// @Router       /api/sources/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/api/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	src, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, srcUC.ErrSourceNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(src))
}
