package job

import (
	"log/slog"
	"net/http"
	"strings"

	"jobradar/internal/common/pagination"
	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	"jobradar/internal/observability/logging"
	"jobradar/internal/repository"
	jobUC "jobradar/internal/usecase/job"
)

// SourceJobsHandler lists the postings collected from one source.
// It reuses the posting list machinery with a fixed source filter.
type SourceJobsHandler struct {
	Svc           jobUC.Service
	PaginationCfg pagination.Config
	Logger        *slog.Logger
}

// ServeHTTP ソース別求人一覧取得
// @Summary      ソース別求人一覧取得
// @Description  指定したソースから収集された求人をページ単位で返します
// @Tags         sources
// @Produce      json
// @Param        id    path  int true  "ソースID"
// @Param        page  query int false "ページ番号 (1-based)" default(1)
// @Param        limit query int false "1ページあたりの件数" default(20) maximum(100)
// @Success      200 {object} pagination.Response[DTO]
// @Failure      400 {string} string "Bad request - invalid ID or pagination params"
// @Failure      500 {string} string "Internal server error"
// @Router       /api/sources/{id}/jobs [get]
func (h SourceJobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	sourceID, err := pathutil.ExtractID(strings.TrimSuffix(r.URL.Path, "/jobs"), "/api/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	filters := repository.JobFilters{SourceID: &sourceID}
	result, err := h.Svc.ListPaginated(ctx, filters, params)
	if err != nil {
		logger.Error("Failed to list postings for source",
			"error", err.Error(),
			"source_id", sourceID)
		pagination.RecordError("database")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(result.Data))
	for _, item := range result.Data {
		dtos = append(dtos, toDTO(item.Job, item.SourceName))
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(dtos, result.Pagination))
}
