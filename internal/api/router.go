package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/api/handler"
	apimw "github.com/notifyhub/request-queue/internal/api/middleware"
	"github.com/notifyhub/request-queue/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.RequestService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)         // recover panics, return 500
	r.Use(chimw.RealIP)            // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)     // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(svc, logger)
	mh := handler.NewMetricsHandler(svc)
	hh := handler.NewHealthHandler(svc)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue", qh.List)
		r.Post("/queue/register", qh.Register)
		r.Post("/queue/items", qh.Enqueue)
		r.Post("/queue/items/{index}", qh.InsertAt)
		r.Get("/queue/items/{index}", qh.Get)
		r.Delete("/queue/items/{index}", qh.Remove)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
