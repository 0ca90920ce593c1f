package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Provider API metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Reconciliation metrics
	WebhooksTotal        *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	AmountMismatches     prometheus.Counter
	UnrecognizedStatuses prometheus.Counter

	// Sync job metrics
	SyncJobRuns          *prometheus.CounterVec
	SyncJobDuration      *prometheus.HistogramVec
	SyncItemsProcessed   *prometheus.CounterVec
	InstallmentRefreshes *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// Outbox relay metrics
	OutboxPublished *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Requests sent to Summit by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Summit request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"endpoint"},
		),
		WebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_total",
				Help:      "Inbound webhooks by outcome",
			},
			[]string{"outcome"},
		),
		StatusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_transitions_total",
				Help:      "Transaction state changes by source and target state",
			},
			[]string{"source", "state"},
		),
		AmountMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "amount_mismatches_total",
				Help:      "Provider feedback whose amount disagreed with the stored transaction",
			},
		),
		UnrecognizedStatuses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unrecognized_statuses_total",
				Help:      "Provider statuses outside the known set",
			},
		),
		SyncJobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_job_runs_total",
				Help:      "Periodic sync job runs by job and result",
			},
			[]string{"job", "result"},
		),
		SyncJobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_job_duration_seconds",
				Help:      "Periodic sync job duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job"},
		),
		SyncItemsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_items_processed_total",
				Help:      "Items handled by sync jobs by job and result",
			},
			[]string{"job", "result"},
		),
		InstallmentRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "installment_refreshes_total",
				Help:      "Catalog installment refresh results per item",
			},
			[]string{"result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_published_total",
				Help:      "Outbox entries relayed to the event stream by result",
			},
			[]string{"event_type", "result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.WebhooksTotal,
		m.StatusTransitions,
		m.AmountMismatches,
		m.UnrecognizedStatuses,
		m.SyncJobRuns,
		m.SyncJobDuration,
		m.SyncItemsProcessed,
		m.InstallmentRefreshes,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.OutboxPublished,
	)

	return m
}

// The helpers below are safe on a nil *Metrics so components can run without metrics in tests.

func (m *Metrics) ObserveHTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveProviderRequest(endpoint, result string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(endpoint, result).Inc()
	m.ProviderRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (m *Metrics) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTransition(source, state string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(source, state).Inc()
}

func (m *Metrics) RecordAmountMismatch() {
	if m == nil {
		return
	}
	m.AmountMismatches.Inc()
}

func (m *Metrics) RecordUnrecognizedStatus() {
	if m == nil {
		return
	}
	m.UnrecognizedStatuses.Inc()
}

func (m *Metrics) ObserveSyncJob(job, result string, seconds float64) {
	if m == nil {
		return
	}
	m.SyncJobRuns.WithLabelValues(job, result).Inc()
	m.SyncJobDuration.WithLabelValues(job).Observe(seconds)
}

func (m *Metrics) RecordSyncItem(job, result string) {
	if m == nil {
		return
	}
	m.SyncItemsProcessed.WithLabelValues(job, result).Inc()
}

func (m *Metrics) RecordInstallmentRefresh(result string) {
	if m == nil {
		return
	}
	m.InstallmentRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}

func (m *Metrics) RecordBreakerRequest(name, result string) {
	if m == nil {
		return
	}
	m.CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

func (m *Metrics) RecordOutboxPublish(eventType, result string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(eventType, result).Inc()
}
