package controller

import (
	"net/http"
	"time"

	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/summitpay/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Notifications    Notifications
	Jobs             Jobs
	Quoter           Quoter
	Checkout         Checkout
	IdempotencyStore customMW.IdempotencyStore
	HealthChecks     []HealthCheck
	Metrics          *observability.Metrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	Config   *config.Config
	Logger   zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	cfg := deps.Config
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMW.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.HealthChecks...)
	summitH := NewSummitController(deps.Notifications, deps.Jobs, deps.Quoter, cfg.Summit, deps.Logger)
	txH := NewTransactionController(deps.Checkout)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Provider-facing routes are public; Summit cannot send tokens.
	r.Route("/payment/summit", func(r chi.Router) {
		r.Use(customMW.NoStore())

		r.MethodFunc(http.MethodGet, "/return", summitH.Return)
		r.MethodFunc(http.MethodPost, "/return", summitH.Return)
		r.MethodFunc(http.MethodGet, "/cancel", summitH.Return)
		r.MethodFunc(http.MethodPost, "/cancel", summitH.Return)

		r.Group(func(r chi.Router) {
			r.Use(customMW.TextRateLimit(cfg.Server.WebhookRateLimit))
			r.Post("/webhook", summitH.Webhook)
			r.Get("/update_order_statuses", summitH.UpdateOrderStatuses)
			r.Get("/update_installments", summitH.UpdateInstallments)
			r.Get("/update_order_information", summitH.UpdateOrderInformation)
			r.Get("/cron", summitH.Cron)
		})

		r.Get("/widget", summitH.Widget)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(cfg.Auth.JWTSecret))

		r.With(customMW.Idempotency(deps.IdempotencyStore, cfg.Worker.IdempotencyTTL, deps.Logger)).
			Post("/transactions", txH.Create)
		r.Get("/transactions/{reference}", txH.Get)
	})

	return r
}
