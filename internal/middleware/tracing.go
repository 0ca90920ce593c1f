package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, named "METHOD pattern" once chi
// has matched the route. otelhttp renames the span through the formatter
// when the request carries a pattern, so the formatter reads the chi pattern
// too.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			trace.SpanFromContext(r.Context()).SetName(spanName(r))
		})
		return otelhttp.NewHandler(named, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return spanName(r)
			}),
		)
	}
}

func spanName(r *http.Request) string {
	return r.Method + " " + routePattern(r)
}
