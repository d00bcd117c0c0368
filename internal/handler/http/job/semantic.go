package job

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobradar/internal/handler/http/respond"
	"jobradar/internal/usecase/analyze"
	searchUC "jobradar/internal/usecase/search"
)

// Semantic search bounds. Requests outside these are clamped or rejected
// rather than passed through to the vector store.
const (
	defaultSemanticLimit = 20
	maxSemanticLimit     = 100
)

type SemanticSearchHandler struct{ Svc *searchUC.Service }

// SemanticSearchRequest is the request body for semantic search.
// TimeWindow restricts hits by posting date: "3m", "6m", "1y", or empty
// for no restriction.
type SemanticSearchRequest struct {
	Query         string  `json:"query" example:"backend role with heavy Postgres work"`
	Limit         int     `json:"limit,omitempty" example:"20"`
	MinSimilarity float64 `json:"min_similarity,omitempty" example:"0.5"`
	TimeWindow    string  `json:"time_window,omitempty" example:"3m"`
}

// SemanticSearchResult is one hit with its similarity score.
type SemanticSearchResult struct {
	DTO
	Similarity float64 `json:"similarity" example:"0.87"`
}

// ServeHTTP 求人セマンティック検索
// @Summary      求人セマンティック検索
// @Description  クエリをLLMで関連語に展開してから埋め込みベクトルに変換し、コサイン類似度で求人を検索します。time_window(3m/6m/1y)で掲載日を絞り込めます
// @Tags         jobs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body SemanticSearchRequest true "検索クエリ"
// @Success      200 {array} SemanticSearchResult "類似度つき検索結果"
// @Failure      400 {string} string "Bad request"
// @Failure      401 {string} string "Authentication required"
// @Failure      501 {string} string "Embeddings not supported by the configured provider"
// @Failure      500 {string} string "Server error"
// @Router       /api/search [post]
func (h SemanticSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSemanticLimit
	}
	if req.Limit > maxSemanticLimit {
		req.Limit = maxSemanticLimit
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 1 {
		respond.SafeError(w, http.StatusBadRequest, errors.New("min_similarity must be between 0 and 1"))
		return
	}

	hits, err := h.Svc.Semantic(r.Context(), req.Query, req.Limit, req.MinSimilarity, searchUC.TimeWindow(req.TimeWindow))
	if err != nil {
		if errors.Is(err, searchUC.ErrInvalidTimeWindow) {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		if errors.Is(err, analyze.ErrEmbeddingUnsupported) {
			respond.SafeError(w, http.StatusNotImplemented, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]SemanticSearchResult, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SemanticSearchResult{
			DTO:        toDTO(hit.Job, hit.SourceName),
			Similarity: hit.Similarity,
		})
	}

	respond.JSON(w, http.StatusOK, out)
}
