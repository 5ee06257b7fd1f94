package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveMessage(OutcomeAcked)
	m.ObserveMessage(OutcomeAcked)
	m.ObserveMessage(OutcomeFailed)
	m.ObserveStage("render", time.Now())
	m.ObservePages(3)
	m.IncrementBatches()
	m.IncrementReceiveErrors()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesProcessed.WithLabelValues(OutcomeAcked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesProcessed.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiveErrors))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["application_summary_stage_duration_seconds"])
	assert.True(t, names["application_summary_pages_rendered"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage(OutcomeAcked)
		m.ObserveStage("render", time.Now())
		m.ObservePages(1)
		m.IncrementBatches()
		m.IncrementReceiveErrors()
	})
}
