package job_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobradar/internal/domain/entity"
	"jobradar/internal/handler/http/job"
	searchUC "jobradar/internal/usecase/search"
)

func keywordHandler(repo *stubRepo) job.SearchHandler {
	svc := searchUC.NewService(repo, nil, nil, "")
	return job.SearchHandler{Svc: &svc}
}

func TestSearchHandler_Success(t *testing.T) {
	repo := newStubRepo()
	repo.searchResult = []*entity.Job{
		seedJob(1, "go-backend", 8, entity.JobStatusAnalyzed),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/search?q=golang+backend", nil)
	rec := httptest.NewRecorder()
	keywordHandler(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out []job.DTO
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(out))
	}

	// スペース区切りで分割されてリポジトリに渡ること
	if len(repo.lastKeywords) != 2 || repo.lastKeywords[0] != "golang" || repo.lastKeywords[1] != "backend" {
		t.Errorf("unexpected keywords: %v", repo.lastKeywords)
	}
}

func TestSearchHandler_FiltersApplied(t *testing.T) {
	repo := newStubRepo()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/search?q=go&min_score=7", nil)
	rec := httptest.NewRecorder()
	keywordHandler(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.lastFilters.MinScore == nil || *repo.lastFilters.MinScore != 7 {
		t.Errorf("min_score filter not passed through: %+v", repo.lastFilters)
	}
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/search", nil)
	rec := httptest.NewRecorder()
	keywordHandler(newStubRepo()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSearchHandler_RepositoryError(t *testing.T) {
	repo := newStubRepo()
	repo.searchErr = errDB

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/search?q=go", nil)
	rec := httptest.NewRecorder()
	keywordHandler(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
