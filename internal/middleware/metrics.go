package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
)

// unmatchedRoute labels requests a chi router could not route, so probes for
// random paths do not add label values.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route pattern.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			m.ObserveHTTPRequest(r.Method, routePattern(r), strconv.Itoa(ww.statusCode), time.Since(start).Seconds())
		})
	}
}

// routePattern is the matched chi pattern, or the raw path outside a chi router.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
