// Package metrics exposes Prometheus collectors for probes and scheduling passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Probe results used as the "result" label.
const (
	ResultUp   = "up"
	ResultDown = "down"
)

// Check failure reasons used as the "reason" label.
const (
	ReasonNotFound    = "not_found"
	ReasonUnsupported = "unsupported_type"
	ReasonLookup      = "lookup"
	ReasonPersist     = "persist"
	ReasonInFlight    = "in_flight"
)

// Metrics holds the collectors of one upmon process.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProbeTotal     *prometheus.CounterVec
	ProbeDuration  *prometheus.HistogramVec
	CheckFailures  *prometheus.CounterVec
	PassDuration   prometheus.Histogram
	PassDueMonitor prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upmon_probe_total",
				Help: "Number of executed probes by monitor type and result",
			},
			[]string{"type", "result"},
		),

		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upmon_probe_duration_seconds",
				Help:    "Duration of probes by monitor type",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),

		CheckFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upmon_check_failures_total",
				Help: "Checks that produced no status row, by reason",
			},
			[]string{"reason"},
		),

		PassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upmon_pass_duration_seconds",
				Help:    "Duration of scheduling passes",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		PassDueMonitor: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "upmon_pass_due_monitors",
				Help: "Number of monitors due in the most recent pass",
			},
		),
	}

	reg.MustRegister(m.ProbeTotal, m.ProbeDuration, m.CheckFailures, m.PassDuration, m.PassDueMonitor)
	return m
}

// ObserveProbe records one completed probe.
func (m *Metrics) ObserveProbe(monitorType string, up bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultDown
	if up {
		result = ResultUp
	}
	m.ProbeTotal.WithLabelValues(monitorType, result).Inc()
	m.ProbeDuration.WithLabelValues(monitorType).Observe(elapsed.Seconds())
}

// CheckFailed records a check that ended without a status row.
func (m *Metrics) CheckFailed(reason string) {
	if m == nil {
		return
	}
	m.CheckFailures.WithLabelValues(reason).Inc()
}

// ObservePass records one scheduling pass.
func (m *Metrics) ObservePass(due int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PassDueMonitor.Set(float64(due))
	m.PassDuration.Observe(elapsed.Seconds())
}
