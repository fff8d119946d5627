package handler

import (
	"net/http"

	"github.com/notifyhub/request-queue/internal/service"
)

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	svc *service.RequestService
}

func NewMetricsHandler(svc *service.RequestService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"queue":       st,
		"utilisation": float64(st.Size) / float64(max(st.Capacity, 1)),
	})
}
