package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-receiver/webhook"
)

// Handlers sets up the webhook ingestion routes
func Handlers(ctx context.Context, webhookService webhook.UseCase, bodySizeLimit int64, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-receiver", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Receive event for a service
	r.Post("/webhooks/{service_id}", postWebhook(webhookService, bodySizeLimit).ServeHTTP)

	return r
}
