package ports

import (
	"time"

	"github.com/ahrav/go-washer/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation, such as the
	// simulated length of a cycle phase.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like phase transitions, rejected
	// intents, drained liters, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like motor speed, liquid level,
	// liquid temperature, etc.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like per-tick energy
	// draw.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// StateScanner receives a fresh snapshot of the appliance once per tick.
// It is the hook through which presentation layers and metric exporters
// observe the simulation without touching engine state.
type StateScanner interface {
	// Scan is invoked from the driver goroutine after every device has
	// ticked. The snapshot holds copies only and may be retained.
	// Scan must not call back into the appliance's intent methods.
	Scan(snapshot domain.WasherSnapshot)
}

// CycleObserver is notified as the cycle controller moves through a wash
// cycle. All calls happen on the driver goroutine, in order.
type CycleObserver interface {
	// CycleStarted is called once the door is locked and before the first
	// stage begins.
	CycleStarted(cycle string)

	// PhaseStarted is called when a phase of a stage begins.
	PhaseStarted(stage string, phase domain.PhaseKind)

	// PhaseEnded is called when a phase completes, with the simulated time
	// the phase took. It is not called for a phase cut short by a stop.
	PhaseEnded(stage string, phase domain.PhaseKind, elapsed time.Duration)

	// CycleEnded is called when the cycle finishes or is stopped.
	// completed is false when the cycle was stopped early.
	CycleEnded(cycle string, elapsed time.Duration, completed bool)
}
