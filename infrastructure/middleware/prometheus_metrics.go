// Package middleware provides the observability adapters of the appliance:
// a Prometheus metrics collector, a state scanner that exports snapshots as
// metrics and an OpenTelemetry cycle observer.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-washer/internal/ports"
)

// Counter names with dedicated series.
const (
	MetricEnergy  = "energy_joules_total"
	MetricDrained = "drained_liters_total"
)

// noCycle labels series recorded while no cycle is active.
const noCycle = "none"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks phase durations, appliance events, consumed energy,
// drained liquid and the instantaneous device state.
type PrometheusMetrics struct {
	phaseDuration *prometheus.HistogramVec
	events        *prometheus.CounterVec
	energy        prometheus.Counter
	drained       prometheus.Counter
	state         *prometheus.GaugeVec
	observations  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collector and registers its metrics
// with reg. A nil reg registers with the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "washer_phase_duration_seconds",
				Help:    "Simulated duration of wash cycle phases.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"operation", "cycle"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "washer_events_total",
				Help: "Appliance events such as phase transitions and completed cycles.",
			},
			[]string{"event", "cycle"},
		),
		energy: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "washer_energy_joules_total",
				Help: "Electrical energy consumed by the appliance.",
			},
		),
		drained: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "washer_drained_liters_total",
				Help: "Liquid pumped out of the drum.",
			},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "washer_state",
				Help: "Current appliance state values.",
			},
			[]string{"metric"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "washer_observations",
				Help:    "Distributions of per-tick appliance values.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"metric"},
		),
	}
}

func cycleLabel(labels map[string]string) string {
	if c := labels["cycle"]; c != "" {
		return c
	}
	return noCycle
}

// RecordLatency implements the MetricsCollector interface by observing a
// simulated duration.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.phaseDuration.WithLabelValues(operation, cycleLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface. Energy and
// drained liquid have their own series; anything else counts as an event.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	if value < 0 {
		return
	}
	switch metric {
	case MetricEnergy:
		pm.energy.Add(value)
	case MetricDrained:
		pm.drained.Add(value)
	default:
		pm.events.WithLabelValues(metric, cycleLabel(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.state.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, _ map[string]string,
) {
	pm.observations.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
