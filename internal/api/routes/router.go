package routes

import (
	"net/http"

	"github.com/carpoolapp/backend/internal/api/handlers"
	"github.com/carpoolapp/backend/internal/api/middleware"
	"github.com/carpoolapp/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	locationHandler *handlers.LocationHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	locationHandler *handlers.LocationHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		locationHandler: locationHandler,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Location endpoints
	r.mux.HandleFunc("GET /api/locations/suggest", r.locationHandler.Suggest)
	r.mux.HandleFunc("POST /api/locations/resolve", r.locationHandler.Resolve)

	// last applied is outermost; CORS wraps everything so errors carry its headers too
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
