package api

import (
	"net/http"

	"github.com/my3-ai/concierge/internal/api/respond"
	"github.com/my3-ai/concierge/internal/health"
)

// HealthHandler reports cached service health.
type HealthHandler struct {
	checker *health.ServiceHealthChecker
}

func NewHealthHandler(checker *health.ServiceHealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// CheckHealth GET /api/health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil && !h.checker.IsHealthy() {
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
