package job

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	"jobradar/internal/usecase/analyze"
	searchUC "jobradar/internal/usecase/search"
)

const (
	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
)

type SimilarHandler struct{ Svc *searchUC.Service }

// SimilarResult is one related-posting hit.
type SimilarResult struct {
	DTO
	Similarity float64 `json:"similarity" example:"0.87"`
}

// ServeHTTP 類似求人取得
// @Summary      類似求人取得
// @Description  指定した求人と埋め込みベクトルが近い求人を返します
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        id    path  int true  "求人ID"
// @Param        limit query int false "最大件数" default(10) maximum(50)
// @Success      200 {array} job.SimilarResult
// @Failure      400 {string} string "Bad request - invalid ID or limit"
// @Failure      404 {string} string "Not found - posting has no stored embedding"
// @Failure      501 {string} string "Not implemented - embedding provider not configured"
// @Router       /api/jobs/{id}/similar [get]
func (h SimilarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(strings.TrimSuffix(r.URL.Path, "/similar"), "/api/jobs/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	limit := defaultSimilarLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("limit must be a positive integer"))
			return
		}
		if limit > maxSimilarLimit {
			limit = maxSimilarLimit
		}
	}

	results, err := h.Svc.Similar(r.Context(), id, limit)
	if err != nil {
		switch {
		case errors.Is(err, analyze.ErrEmbeddingUnsupported):
			respond.SafeError(w, http.StatusNotImplemented, err)
		case errors.Is(err, searchUC.ErrNoEmbedding):
			respond.SafeError(w, http.StatusNotFound, err)
		default:
			respond.SafeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	out := make([]SimilarResult, 0, len(results))
	for _, res := range results {
		out = append(out, SimilarResult{
			DTO:        toDTO(res.Job, res.SourceName),
			Similarity: res.Similarity,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}
