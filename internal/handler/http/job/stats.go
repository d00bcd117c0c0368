package job

import (
	"net/http"

	"jobradar/internal/handler/http/respond"
	jobUC "jobradar/internal/usecase/job"
)

type StatsHandler struct{ Svc jobUC.Service }

// StatsResponse aggregates posting counts for the dashboard.
type StatsResponse struct {
	Total          int64            `json:"total" example:"412"`
	ByStatus       map[string]int64 `json:"by_status"`
	BySource       []SourceStat     `json:"by_source"`
	ScoreHistogram map[int]int64    `json:"score_histogram"`
}

// SourceStat is the posting count for one source.
type SourceStat struct {
	SourceID   int64  `json:"source_id" example:"1"`
	SourceName string `json:"source_name" example:"HN Who is Hiring"`
	Count      int64  `json:"count" example:"87"`
}

// ServeHTTP 求人統計取得
// @Summary      求人統計取得
// @Description  ステータス別・ソース別・スコア別の求人件数を返します
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} StatsResponse "集計結果"
// @Failure      401 {string} string "Authentication required"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /api/stats [get]
func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.GetStats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for _, sc := range stats.ByStatus {
		byStatus[string(sc.Status)] = sc.Count
	}

	bySource := make([]SourceStat, 0, len(stats.BySource))
	for _, sc := range stats.BySource {
		bySource = append(bySource, SourceStat{
			SourceID:   sc.SourceID,
			SourceName: sc.SourceName,
			Count:      sc.Count,
		})
	}

	respond.JSON(w, http.StatusOK, StatsResponse{
		Total:          stats.Total,
		ByStatus:       byStatus,
		BySource:       bySource,
		ScoreHistogram: stats.ScoreHistogram,
	})
}
