package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

// metricsMiddleware feeds request counts and latency into the server's
// HTTP collectors. Labels use the matched chi route pattern rather than
// the raw path so scrape cardinality stays bounded.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, routePattern(r), status, time.Since(start).Seconds())
	})
}

// routePattern extracts the matched chi route pattern, falling back to
// "unmatched" for requests no route claimed.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// metricsHandler serves the default Prometheus gatherer, which carries the
// stress collectors alongside the HTTP ones.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
