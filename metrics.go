package surveilans

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Query outcomes counted by Metrics.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics counts what a harvest run did. A nil *Metrics is valid and counts
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	queries          *prometheus.CounterVec
	retries          prometheus.Counter
	records          prometheus.Counter
	months           *prometheus.CounterVec
	skippedRegencies prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveilans",
			Name:      "queries_total",
			Help:      "Portal queries by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surveilans",
			Name:      "query_retries_total",
			Help:      "Query attempts repeated after a network error.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surveilans",
			Name:      "records_total",
			Help:      "Tidy records produced.",
		}),
		months: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveilans",
			Name:      "months_total",
			Help:      "Months processed, by whether an extract was written.",
		}, []string{"result"}),
		skippedRegencies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surveilans",
			Name:      "skipped_regencies_total",
			Help:      "Regency-months skipped because districts could not be listed.",
		}),
	}

	m.registry.MustRegister(m.queries, m.retries, m.records, m.months, m.skippedRegencies)
	return m
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps every counter in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) query(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) recorded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.Add(float64(n))
}

func (m *Metrics) month(written bool) {
	if m == nil {
		return
	}
	result := "empty"
	if written {
		result = "written"
	}
	m.months.WithLabelValues(result).Inc()
}

func (m *Metrics) skippedRegency() {
	if m == nil {
		return
	}
	m.skippedRegencies.Inc()
}
