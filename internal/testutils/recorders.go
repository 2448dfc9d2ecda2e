// Package testutils holds test doubles shared by the package tests: recording
// implementations of the observer, scanner and metrics ports, and a builder
// for baskets of soiled laundry.
package testutils

import (
	"sync"
	"time"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/ports"
)

var (
	_ ports.CycleObserver    = (*RecordingObserver)(nil)
	_ ports.StateScanner     = (*RecordingScanner)(nil)
	_ ports.MetricsCollector = (*RecordingCollector)(nil)
)

// CycleEvent is one notification received by a RecordingObserver.
type CycleEvent struct {
	Kind      string // "cycle-started", "phase-started", "phase-ended" or "cycle-ended"
	Cycle     string
	Stage     string
	Phase     domain.PhaseKind
	Elapsed   time.Duration
	Completed bool
}

// RecordingObserver records every cycle notification in order.
type RecordingObserver struct {
	Events []CycleEvent
}

// CycleStarted implements ports.CycleObserver.
func (r *RecordingObserver) CycleStarted(cycle string) {
	r.Events = append(r.Events, CycleEvent{Kind: "cycle-started", Cycle: cycle})
}

// PhaseStarted implements ports.CycleObserver.
func (r *RecordingObserver) PhaseStarted(stage string, phase domain.PhaseKind) {
	r.Events = append(r.Events, CycleEvent{Kind: "phase-started", Stage: stage, Phase: phase})
}

// PhaseEnded implements ports.CycleObserver.
func (r *RecordingObserver) PhaseEnded(stage string, phase domain.PhaseKind, elapsed time.Duration) {
	r.Events = append(r.Events, CycleEvent{Kind: "phase-ended", Stage: stage, Phase: phase, Elapsed: elapsed})
}

// CycleEnded implements ports.CycleObserver.
func (r *RecordingObserver) CycleEnded(cycle string, elapsed time.Duration, completed bool) {
	r.Events = append(r.Events, CycleEvent{Kind: "cycle-ended", Cycle: cycle, Elapsed: elapsed, Completed: completed})
}

// Phases returns "stage/phase" for every started phase.
func (r *RecordingObserver) Phases() []string {
	var out []string
	for _, e := range r.Events {
		if e.Kind == "phase-started" {
			out = append(out, e.Stage+"/"+string(e.Phase))
		}
	}
	return out
}

// Last returns the most recent event of kind.
func (r *RecordingObserver) Last(kind string) (CycleEvent, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Kind == kind {
			return r.Events[i], true
		}
	}
	return CycleEvent{}, false
}

// RecordingScanner keeps every snapshot it is given.
type RecordingScanner struct {
	Snapshots []domain.WasherSnapshot
}

// Scan implements ports.StateScanner.
func (r *RecordingScanner) Scan(s domain.WasherSnapshot) { r.Snapshots = append(r.Snapshots, s) }

// Metric is one value recorded by a RecordingCollector.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
}

// RecordingCollector is an in-memory MetricsCollector. It is safe for
// concurrent use.
type RecordingCollector struct {
	mu         sync.Mutex
	counters   []Metric
	gauges     map[string]float64
	histograms []Metric
	latencies  map[string]time.Duration
}

// NewRecordingCollector creates an empty collector.
func NewRecordingCollector() *RecordingCollector {
	return &RecordingCollector{
		gauges:    make(map[string]float64),
		latencies: make(map[string]time.Duration),
	}
}

// RecordLatency implements ports.MetricsCollector. Durations of the same
// operation accumulate.
func (r *RecordingCollector) RecordLatency(op string, d time.Duration, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies[op] += d
}

// RecordCounter implements ports.MetricsCollector.
func (r *RecordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, Metric{name, v, labels})
}

// RecordGauge implements ports.MetricsCollector. Only the latest value is
// kept.
func (r *RecordingCollector) RecordGauge(name string, v float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = v
}

// RecordHistogram implements ports.MetricsCollector.
func (r *RecordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms = append(r.histograms, Metric{name, v, labels})
}

// Counter sums every increment of name.
func (r *RecordingCollector) Counter(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, c := range r.counters {
		if c.Name == name {
			total += c.Value
		}
	}
	return total
}

// Counters returns a copy of every recorded increment.
func (r *RecordingCollector) Counters() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Metric(nil), r.counters...)
}

// Gauge returns the latest value of name.
func (r *RecordingCollector) Gauge(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gauges[name]
	return v, ok
}

// Histograms returns a copy of every recorded observation.
func (r *RecordingCollector) Histograms() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Metric(nil), r.histograms...)
}

// Latency returns the accumulated duration of op.
func (r *RecordingCollector) Latency(op string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.latencies[op]
	return d, ok
}
