package action

import (
	"context"
	"log/slog"
	"net/http"

	"jobradar/internal/handler/http/auth"
	"jobradar/internal/usecase/collect"
	"jobradar/internal/usecase/digest"
	searchUC "jobradar/internal/usecase/search"
)

// Triggers wires the standard action set to the pipeline services.
func Triggers(collectSvc *collect.Service, digestSvc *digest.Service, searchSvc *searchUC.Service) map[string]Trigger {
	return map[string]Trigger{
		"fetch": func(ctx context.Context) error {
			_, err := collectSvc.Run(ctx)
			return err
		},
		"analyze": func(ctx context.Context) error {
			_, err := collectSvc.Reanalyze(ctx)
			return err
		},
		"digest": func(ctx context.Context) error {
			_, err := digestSvc.Send(ctx)
			return err
		},
		"rebuild-index": func(ctx context.Context) error {
			_, err := searchSvc.RebuildIndex(ctx)
			return err
		},
	}
}

// Register registers the action trigger endpoint. All actions mutate
// state, so the whole subtree requires the admin role.
func Register(mux *http.ServeMux, triggers map[string]Trigger, logger *slog.Logger) {
	mux.Handle("POST   /api/actions/", auth.Authz(NewHandler(triggers, logger)))
}
