package source

import (
	"net/http"

	"jobradar/internal/handler/http/respond"
	srcUC "jobradar/internal/usecase/source"
)

type ListHandler struct{ Svc srcUC.Service }

// ServeHTTP ソース一覧取得
// @Summary      ソース一覧取得
// @Description  登録済みのフィードソースを全件返します
// @Tags         sources
// @Produce      json
// @Success      200 {array} source.DTO
// @Failure      500 {string} string "Internal server error"
// @Router       /api/sources [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, e := range list {
		out = append(out, toDTO(e))
	}
	respond.JSON(w, http.StatusOK, out)
}
