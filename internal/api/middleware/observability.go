package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carpoolapp/backend/internal/infrastructure/observability"
)

// routeLabel names the request for spans and metrics. Pattern is only set once the mux has
// routed the request, so outside it the raw path is used.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

// ObservabilityMiddleware opens one span per request and records request count and latency.
// metrics may be nil.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(r)
			ctx, span := observability.StartSpan(r.Context(), "HTTP "+r.Method+" "+route)
			defer span.End()

			recorder := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			began := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))
			elapsed := time.Since(began)

			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", recorder.statusCode),
			)
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, recorder.statusCode, elapsed)
		})
	}
}
