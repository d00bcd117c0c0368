package job

import (
	"log/slog"
	"net/http"
	"time"

	"jobradar/internal/common/pagination"
	"jobradar/internal/handler/http/requestid"
	"jobradar/internal/handler/http/respond"
	"jobradar/internal/observability/logging"
	jobUC "jobradar/internal/usecase/job"
)

type ListHandler struct {
	Svc           jobUC.Service
	PaginationCfg pagination.Config
	Logger        *slog.Logger
}

// ServeHTTP 求人一覧取得
// @Summary      求人一覧取得（ページネーション対応）
// @Description  収集済みの求人を取得します。ステータス・スコア・ソース・掲載日でフィルタでき、ページ単位で取得できます。
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        page      query    int     false  "ページ番号 (1-based)" default(1) minimum(1)
// @Param        limit     query    int     false  "1ページあたりの件数" default(20) minimum(1) maximum(100)
// @Param        status    query    string  false  "ステータスでフィルタ (new/analyzed/notified/rejected)"
// @Param        min_score query    int     false  "最低スコアでフィルタ (0-10)"
// @Param        source_id query    int     false  "ソースIDでフィルタ"
// @Param        from      query    string  false  "掲載日時の開始（ISO 8601）"
// @Param        to        query    string  false  "掲載日時の終了（ISO 8601）"
// @Success      200 {object} pagination.Response[DTO] "ページネーション付き求人一覧"
// @Failure      400 {string} string "Invalid query parameters"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      403 {string} string "Forbidden - insufficient permissions"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /api/jobs [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	// Get request ID for logging
	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	// Parse pagination parameters
	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		logger.Warn("Invalid pagination parameters",
			"error", err.Error(),
			"request_id", reqID)
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	// Parse filter parameters
	filters, err := parseFilters(r)
	if err != nil {
		logger.Warn("Invalid filter parameters",
			"error", err.Error(),
			"request_id", reqID)
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	// Log request
	logger.Info("Paginated posting list request",
		"page", params.Page,
		"limit", params.Limit,
		"request_id", reqID)

	// Get paginated data from service
	result, err := h.Svc.ListPaginated(ctx, filters, params)
	if err != nil {
		logger.Error("Failed to list postings",
			"error", err.Error(),
			"page", params.Page,
			"limit", params.Limit,
			"request_id", reqID)
		pagination.RecordError("database")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	// Convert to DTOs
	dtos := make([]DTO, 0, len(result.Data))
	for _, item := range result.Data {
		dtos = append(dtos, toDTO(item.Job, item.SourceName))
	}

	// Build paginated response
	response := pagination.NewResponse(dtos, result.Pagination)

	// Record metrics
	duration := time.Since(startTime)
	pagination.RecordRequest(http.StatusOK, params.Page)
	pagination.RecordDuration("handler", duration.Seconds())
	pagination.UpdateTotalCount(result.Pagination.Total)

	// Log response
	logger.Info("Paginated response",
		"page", params.Page,
		"limit", params.Limit,
		"returned_count", len(dtos),
		"duration_ms", duration.Milliseconds(),
		"status", http.StatusOK,
		"request_id", reqID)

	respond.JSON(w, http.StatusOK, response)
}
