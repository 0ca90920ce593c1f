package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordWebhook("processed")
	m.RecordTransition("webhook", "done")
	m.ObserveProviderRequest("getInstallmentInfo", "success", 0.2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_webhooks_total"])
	assert.True(t, names["test_status_transitions_total"])
	assert.True(t, names["test_provider_requests_total"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhooksTotal.WithLabelValues("processed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordWebhook("processed")
		m.RecordTransition("sync", "cancel")
		m.RecordAmountMismatch()
		m.RecordUnrecognizedStatus()
		m.ObserveSyncJob("refresh_installments", "success", 1)
		m.RecordSyncItem("push_additional_info", "failed")
		m.RecordInstallmentRefresh("updated")
		m.SetBreakerState("summit", 2)
		m.RecordBreakerRequest("summit", "failure")
		m.RecordOutboxPublish("transaction.state_changed", "success")
		m.ObserveProviderRequest("getWebCreditLink", "error", 0.1)
	})
}
