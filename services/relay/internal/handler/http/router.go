package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zayana/storefront/pkg/health"
	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/middleware"
)

const serviceName = "relay"

// NewRouter creates a chi router with all relay routes registered. ctx bounds
// the rate limiter's background eviction.
func NewRouter(ctx context.Context, webhook *WebhookHandler, healthHandler *health.Handler, limit middleware.RateLimitConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/webhook", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, limit, logger))
		r.Post("/orders", webhook.OrderInserted)
		r.Get("/whatsapp", webhook.Verify)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"},
		})
	})

	return r
}
