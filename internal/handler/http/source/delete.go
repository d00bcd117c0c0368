package source

import (
	"net/http"

	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/handler/http/respond"
	srcUC "jobradar/internal/usecase/source"
)

type DeleteHandler struct{ Svc srcUC.Service }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/api/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
