package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestTracing_NamesSpanByRoutePattern(t *testing.T) {
	sr := withRecorder(t)

	r := chi.NewRouter()
	r.Use(Tracing())
	r.Get("/api/v1/transactions/{reference}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/S0001", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/transactions/{reference}", spans[0].Name())
}

func TestTracing_WithoutRouterUsesPath(t *testing.T) {
	sr := withRecorder(t)

	h := Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment/summit/webhook", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /payment/summit/webhook", spans[0].Name())
}

func TestTracing_PreservesResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"ok", http.StatusOK, "Webhook processed"},
		{"bad request", http.StatusBadRequest, "No data received"},
		{"unauthorized", http.StatusUnauthorized, "Invalid signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment/summit/webhook", nil))

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		})
	}
}

func TestTracing_MountedRoutesShareOneSpanName(t *testing.T) {
	sr := withRecorder(t)

	api := chi.NewRouter()
	api.Get("/transactions/{reference}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r := chi.NewRouter()
	r.Use(Tracing())
	r.Mount("/api/v1", api)

	for _, ref := range []string{"S0001", "S0002"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+ref, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "GET /api/v1/transactions/{reference}", s.Name())
	}
}

func TestTracing_UnmatchedRoute(t *testing.T) {
	sr := withRecorder(t)

	r := chi.NewRouter()
	r.Use(Tracing())
	r.Get("/payment/summit/widget", func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payment/summit/S0003", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET unmatched", spans[0].Name())
}
