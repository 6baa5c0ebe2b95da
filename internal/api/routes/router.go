package routes

import (
	"net/http"

	"github.com/zatekoja/providersync/internal/api/handlers"
	"github.com/zatekoja/providersync/internal/api/middleware"
	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	availabilityHandler *handlers.AvailabilityHandler
	syncHandler         *handlers.SyncHandler
	webhookHandler      *handlers.AcuityWebhookHandler

	allowedOrigins []string
	metrics        *observability.SyncMetrics
}

// NewRouter creates a new router. webhookHandler may be nil when the vendor
// is not configured.
func NewRouter(
	availabilityHandler *handlers.AvailabilityHandler,
	syncHandler *handlers.SyncHandler,
	webhookHandler *handlers.AcuityWebhookHandler,
	allowedOrigins []string,
	metrics *observability.SyncMetrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		availabilityHandler: availabilityHandler,
		syncHandler:         syncHandler,
		webhookHandler:      webhookHandler,
		allowedOrigins:      allowedOrigins,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Availability
	r.mux.HandleFunc("GET /api/availability/times", r.availabilityHandler.GetTimes)
	r.mux.HandleFunc("GET /api/availability/classes", r.availabilityHandler.GetClasses)
	r.mux.HandleFunc("POST /api/availability/invalidate", r.availabilityHandler.Invalidate)
	r.mux.HandleFunc("DELETE /api/availability/cache", r.availabilityHandler.ClearCache)
	r.mux.HandleFunc("GET /api/availability/cache/keys", r.availabilityHandler.GetCacheKeys)

	// Sync control
	r.mux.HandleFunc("GET /api/sync/status", r.syncHandler.GetStatus)
	r.mux.HandleFunc("POST /api/sync/start", r.syncHandler.Start)
	r.mux.HandleFunc("POST /api/sync/stop", r.syncHandler.Stop)
	r.mux.HandleFunc("GET /api/sync/histogram", r.syncHandler.GetHistogram)

	if r.webhookHandler != nil {
		r.mux.HandleFunc("POST /webhooks/acuity", r.webhookHandler.HandleWebhook)
	}

	// Last applied is outermost
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
