package api

import (
	"net/http"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/health"
)

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	svc *health.Service
}

func NewHealthHandler(svc *health.Service) *HealthHandler { return &HealthHandler{svc: svc} }

// CheckHealth GET /api/health
// Liveness: the process is serving requests.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckReadiness GET /api/health/ready
// Readiness: every dependency checker reports healthy.
func (h *HealthHandler) CheckReadiness(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !h.svc.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	respond.WriteJSON(w, status, map[string]interface{}{
		"healthy":      h.svc.IsHealthy(),
		"dependencies": h.svc.Status(),
	})
}
