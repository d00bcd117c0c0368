package job

import (
	"errors"
	"net/http"

	"jobradar/internal/handler/http/respond"
	searchUC "jobradar/internal/usecase/search"
)

type SearchHandler struct{ Svc *searchUC.Service }

// ServeHTTP 求人キーワード検索
// @Summary      求人キーワード検索
// @Description  マルチキーワードで求人を検索します（AND論理）。フィルタと併用できます。
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        q         query string true  "検索キーワード（スペース区切り）"
// @Param        status    query string false "ステータスでフィルタ"
// @Param        min_score query int    false "最低スコアでフィルタ"
// @Param        source_id query int    false "ソースIDでフィルタ"
// @Param        from      query string false "掲載日時の開始（ISO 8601）"
// @Param        to        query string false "掲載日時の終了（ISO 8601）"
// @Success      200 {array} DTO "検索結果"
// @Failure      400 {string} string "Bad request"
// @Failure      401 {string} string "Authentication required"
// @Failure      500 {string} string "Server error"
// @Router       /api/jobs/search [get]
func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("q parameter is required"))
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	postings, err := h.Svc.Keyword(r.Context(), query, filters)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DTO, 0, len(postings))
	for _, p := range postings {
		out = append(out, toDTO(p, ""))
	}

	respond.JSON(w, http.StatusOK, out)
}
