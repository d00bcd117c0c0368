package source

import (
	"net/http"

	"jobradar/internal/handler/http/auth"
	"jobradar/internal/handler/http/middleware"
	srcUC "jobradar/internal/usecase/source"
)

// Register registers all source-related HTTP handlers with the given mux.
// It sets up routes for listing, searching, creating, updating, and deleting sources.
// Protected routes (create, update, delete) require authentication via the auth middleware.
// Search endpoints are protected by rate limiting to prevent DoS attacks.
func Register(mux *http.ServeMux, svc srcUC.Service, searchRateLimiter *middleware.RateLimiter) {
	mux.Handle("GET    /api/sources", ListHandler{svc})
	// Search endpoint with rate limiting (100 req/min per IP)
	mux.Handle("GET    /api/sources/search", searchRateLimiter.Middleware(SearchHandler{svc}))
	mux.Handle("GET    /api/sources/", GetHandler{svc})

	mux.Handle("POST   /api/sources", auth.Authz(CreateHandler{svc}))
	mux.Handle("PUT    /api/sources/", auth.Authz(UpdateHandler{svc}))
	mux.Handle("DELETE /api/sources/", auth.Authz(DeleteHandler{svc}))
}
