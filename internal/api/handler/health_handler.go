package handler

import (
	"net/http"

	"github.com/notifyhub/request-queue/internal/service"
)

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	svc *service.RequestService
}

func NewHealthHandler(svc *service.RequestService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health. It answers 503 while the snapshot store is
// unreachable; queued requests then live only in memory.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}
