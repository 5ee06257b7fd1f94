// Package metrics exposes Prometheus metrics for the summary pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes.
const (
	OutcomeAcked   = "acked"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// Metrics holds the pipeline metrics. A nil *Metrics records nothing.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	PagesRendered     prometheus.Histogram
	BatchesReceived   prometheus.Counter
	ReceiveErrors     prometheus.Counter
}

// New registers the pipeline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "application_summary_messages_processed_total",
			Help: "Messages processed, by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "application_summary_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		PagesRendered: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "application_summary_pages_rendered",
			Help:    "Page count of rendered summaries",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		BatchesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "application_summary_batches_received_total",
			Help: "Non-empty batches received from the source queue",
		}),
		ReceiveErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "application_summary_receive_errors_total",
			Help: "Failed receive calls against the source queue",
		}),
	}
}

// ObserveMessage counts a finished message.
func (m *Metrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.MessagesProcessed.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration of a stage started at start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObservePages records the page count of a rendered summary.
func (m *Metrics) ObservePages(pages int) {
	if m == nil {
		return
	}
	m.PagesRendered.Observe(float64(pages))
}

// IncrementBatches counts a non-empty batch.
func (m *Metrics) IncrementBatches() {
	if m == nil {
		return
	}
	m.BatchesReceived.Inc()
}

// IncrementReceiveErrors counts a failed receive.
func (m *Metrics) IncrementReceiveErrors() {
	if m == nil {
		return
	}
	m.ReceiveErrors.Inc()
}
