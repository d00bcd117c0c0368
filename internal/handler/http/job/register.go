package job

import (
	"log/slog"
	"net/http"

	"jobradar/internal/common/pagination"
	"jobradar/internal/handler/http/auth"
	jobUC "jobradar/internal/usecase/job"
	searchUC "jobradar/internal/usecase/search"
)

// Register registers all posting-related HTTP handlers with the given mux.
// It sets up routes for listing, searching, retrieving, updating, and
// deleting postings, plus the stats and semantic search endpoints.
// Mutating routes require authentication via the auth middleware.
func Register(mux *http.ServeMux, svc jobUC.Service, searchSvc *searchUC.Service, paginationCfg pagination.Config, logger *slog.Logger) {
	mux.Handle("GET    /api/jobs", ListHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
		Logger:        logger,
	})
	mux.Handle("GET    /api/jobs/search", SearchHandler{searchSvc})
	mux.Handle("GET    /api/jobs/", auth.Authz(GetHandler{svc}))
	mux.Handle("GET    /api/jobs/{id}/similar", auth.Authz(SimilarHandler{searchSvc}))
	mux.Handle("GET    /api/stats", StatsHandler{svc})

	// 求人側のマシナリを使うのでソースのルートだがここで登録する
	mux.Handle("GET    /api/sources/{id}/jobs", SourceJobsHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
		Logger:        logger,
	})

	mux.Handle("POST   /api/search", auth.Authz(SemanticSearchHandler{searchSvc}))
	mux.Handle("PATCH  /api/jobs/", auth.Authz(UpdateHandler{svc}))
	mux.Handle("DELETE /api/jobs/", auth.Authz(DeleteHandler{svc}))
}
