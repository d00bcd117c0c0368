package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"jobradar/internal/usecase/digest"
)

// MailProviderHealth reports the circuit breaker state of the configured
// mail providers. A provider with an open breaker failed several sends in
// a row and is skipped until its cooldown passes.
type MailProviderHealth interface {
	ProviderHealthStatus() []digest.ProviderHealth
}

// MailHealthHandler provides a health check endpoint for digest delivery.
type MailHealthHandler struct {
	providers MailProviderHealth
}

// NewMailHealthHandler creates a new mail provider health handler.
func NewMailHealthHandler(providers MailProviderHealth) *MailHealthHandler {
	return &MailHealthHandler{providers: providers}
}

// MailHealthResponse represents the response structure for the mail health endpoint.
type MailHealthResponse struct {
	Status    string               `json:"status"`
	Providers []mailProviderStatus `json:"providers"`
}

type mailProviderStatus struct {
	Name          string     `json:"name"`
	BreakerOpen   bool       `json:"breaker_open"`
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
}

// Health returns the breaker state of every mail provider.
// GET /health/mail
// Returns 200 while at least one provider is usable, 503 when all
// breakers are open and the next digest cannot be delivered.
func (h *MailHealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	statuses := h.providers.ProviderHealthStatus()

	providers := make([]mailProviderStatus, 0, len(statuses))
	anyUsable := false
	for _, s := range statuses {
		if !s.BreakerOpen {
			anyUsable = true
		}
		providers = append(providers, mailProviderStatus{
			Name:          s.Name,
			BreakerOpen:   s.BreakerOpen,
			DisabledUntil: s.DisabledUntil,
		})
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !anyUsable {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := MailHealthResponse{
		Status:    status,
		Providers: providers,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode mail health response", slog.Any("error", err))
	}
}
