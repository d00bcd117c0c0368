// Package appconfig provides HTTP handlers for reading and updating the
// YAML-backed runtime configuration.
package appconfig

import (
	"encoding/json"
	"net/http"

	"jobradar/internal/handler/http/auth"
	"jobradar/internal/handler/http/respond"
	"jobradar/internal/pkg/config"
)

type GetHandler struct{ Store *config.Store }

// ServeHTTP 設定取得
// @Summary      設定取得
// @Description  現在のランタイム設定を返します
// @Tags         config
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} config.AppConfig
// @Router       /api/config [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.Store.Get()
	respond.JSON(w, http.StatusOK, cfg)
}

type UpdateHandler struct{ Store *config.Store }

// ServeHTTP 設定更新
// @Summary      設定更新
// @Description  ランタイム設定を置き換えます。検証に通った設定はYAMLファイルへアトミックに書き戻されます。パイプラインは起動時に設定を読み込むため、閾値・モデル・宛先の変更はプロセス再起動後に反映されます
// @Tags         config
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        config body config.AppConfig true "新しい設定"
// @Success      200 {object} config.AppConfig
// @Failure      400 {string} string "Bad request - invalid configuration"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Router       /api/config [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var cfg config.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Store.Update(cfg); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.Store.Get())
}

// Register registers the config endpoints. The config carries recipient
// addresses and filter rules, so reads require auth as well.
func Register(mux *http.ServeMux, store *config.Store) {
	mux.Handle("GET    /api/config", auth.Authz(GetHandler{store}))
	mux.Handle("PUT    /api/config", auth.Authz(UpdateHandler{store}))
}
