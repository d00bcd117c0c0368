package appconfig_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"jobradar/internal/handler/http/appconfig"
	"jobradar/internal/pkg/config"
)

func testStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestGetHandler_ReturnsCurrentConfig(t *testing.T) {
	store := testStore(t)
	handler := appconfig.GetHandler{Store: store}

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var cfg config.AppConfig
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cfg.RelevanceThreshold != 6 {
		t.Errorf("expected default threshold 6, got %d", cfg.RelevanceThreshold)
	}
	if cfg.DigestTime != "08:00" {
		t.Errorf("expected default digest time 08:00, got %q", cfg.DigestTime)
	}
}

func TestUpdateHandler_PersistsChanges(t *testing.T) {
	store := testStore(t)
	handler := appconfig.UpdateHandler{Store: store}

	cfg := store.Get()
	cfg.RelevanceThreshold = 8
	cfg.Keywords = []string{"golang", "kubernetes"}
	body, _ := json.Marshal(cfg)

	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated := store.Get()
	if updated.RelevanceThreshold != 8 {
		t.Errorf("expected threshold 8, got %d", updated.RelevanceThreshold)
	}
	if len(updated.Keywords) != 2 || updated.Keywords[0] != "golang" {
		t.Errorf("keywords not persisted: %v", updated.Keywords)
	}

	// 別のストアで同じファイルを読み直しても反映されていること
	reloaded, err := config.NewStore(store.Path())
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if reloaded.Get().RelevanceThreshold != 8 {
		t.Error("update was not written to disk")
	}
}

func TestUpdateHandler_RejectsInvalidConfig(t *testing.T) {
	store := testStore(t)
	handler := appconfig.UpdateHandler{Store: store}

	cfg := store.Get()
	cfg.RelevanceThreshold = 15
	body, _ := json.Marshal(cfg)

	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.Get().RelevanceThreshold != 6 {
		t.Error("invalid update must not change the stored config")
	}
}

func TestUpdateHandler_MalformedBody(t *testing.T) {
	handler := appconfig.UpdateHandler{Store: testStore(t)}

	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{"keywords":`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
