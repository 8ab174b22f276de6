package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint. Beyond a bare "ok" it reports
// the operating mode and how many venues are wired.
type HealthHandler struct {
	mode   string
	venues int
}

// NewHealthHandler creates a HealthHandler for an engine running in the given
// mode with the given number of enabled venues.
func NewHealthHandler(mode string, venues int) *HealthHandler {
	return &HealthHandler{mode: mode, venues: venues}
}

// HealthCheck reports liveness.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mode":      h.mode,
		"venues":    h.venues,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
