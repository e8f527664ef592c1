package autosave

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submit outcomes recorded by Metrics
const (
	OutcomeSaved   = "saved"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics counts submits and server-side field changes
type Metrics struct {
	submits       *prometheus.CounterVec
	changedFields *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosave",
			Name:      "submits_total",
			Help:      "Form submits by outcome.",
		}, []string{"form", "outcome"}),
		changedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosave",
			Name:      "changed_fields_total",
			Help:      "Fields changed by submit hooks and pushed back to the client.",
		}, []string{"form", "field"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autosave",
			Name:      "submit_duration_seconds",
			Help:      "Time spent handling a submit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"form"}),
	}
	reg.MustRegister(m.submits, m.changedFields, m.duration)
	return m
}

// ObserveSubmit records one handled submit
func (m *Metrics) ObserveSubmit(formName, outcome string, changedFields []string, took time.Duration) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(formName, outcome).Inc()
	for _, field := range changedFields {
		m.changedFields.WithLabelValues(formName, field).Inc()
	}
	m.duration.WithLabelValues(formName).Observe(took.Seconds())
}
