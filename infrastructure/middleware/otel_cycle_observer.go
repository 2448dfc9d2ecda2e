package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/ports"
)

var _ ports.CycleObserver = (*OTelCycleObserver)(nil)

// TracerName is the instrumentation name used when no tracer is supplied.
const TracerName = "github.com/ahrav/go-washer"

// OTelCycleObserver traces wash cycles with OpenTelemetry. Each cycle is a
// span and each phase a child span of it. Simulated phase and cycle
// durations are attached as attributes and, when a collector is given,
// recorded as latencies.
type OTelCycleObserver struct {
	ctx     context.Context
	tracer  trace.Tracer
	metrics ports.MetricsCollector

	cycle     string
	cycleCtx  context.Context
	cycleSpan trace.Span
	phaseSpan trace.Span
}

// NewOTelCycleObserver creates an observer whose spans are children of
// the span in ctx, if any. A nil tracer uses the global provider; metrics
// may be nil.
func NewOTelCycleObserver(ctx context.Context, tracer trace.Tracer, metrics ports.MetricsCollector) *OTelCycleObserver {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OTelCycleObserver{ctx: ctx, tracer: tracer, metrics: metrics}
}

// CycleStarted implements ports.CycleObserver.
func (o *OTelCycleObserver) CycleStarted(cycle string) {
	o.cycle = cycle
	o.cycleCtx, o.cycleSpan = o.tracer.Start(o.ctx, "Washer.Cycle", trace.WithAttributes(
		attribute.String("washer.cycle", cycle),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter("cycle_started", 1, o.labels())
	}
}

// PhaseStarted implements ports.CycleObserver.
func (o *OTelCycleObserver) PhaseStarted(stage string, phase domain.PhaseKind) {
	if o.cycleSpan == nil {
		return
	}
	o.endPhase()
	_, o.phaseSpan = o.tracer.Start(o.cycleCtx, "Washer.Phase", trace.WithAttributes(
		attribute.String("washer.stage", stage),
		attribute.String("washer.phase", string(phase)),
	))
}

// PhaseEnded implements ports.CycleObserver.
func (o *OTelCycleObserver) PhaseEnded(_ string, phase domain.PhaseKind, elapsed time.Duration) {
	if o.phaseSpan == nil {
		return
	}
	o.phaseSpan.SetAttributes(attribute.Float64("washer.simulated_seconds", elapsed.Seconds()))
	o.phaseSpan.SetStatus(codes.Ok, "")
	o.endPhase()

	if o.metrics != nil {
		o.metrics.RecordLatency("phase_"+string(phase), elapsed, o.labels())
	}
}

// CycleEnded implements ports.CycleObserver. A stopped cycle ends its span
// with an event rather than an error status.
func (o *OTelCycleObserver) CycleEnded(_ string, elapsed time.Duration, completed bool) {
	if o.cycleSpan == nil {
		return
	}
	o.endPhase()

	o.cycleSpan.SetAttributes(
		attribute.Float64("washer.simulated_seconds", elapsed.Seconds()),
		attribute.Bool("washer.completed", completed),
	)
	event := "cycle_completed"
	if completed {
		o.cycleSpan.SetStatus(codes.Ok, "")
	} else {
		event = "cycle_stopped"
		o.cycleSpan.AddEvent("washer.stopped")
	}
	o.cycleSpan.End()

	if o.metrics != nil {
		o.metrics.RecordCounter(event, 1, o.labels())
		if completed {
			o.metrics.RecordLatency("cycle", elapsed, o.labels())
		}
	}
	o.cycle, o.cycleCtx, o.cycleSpan = "", nil, nil
}

func (o *OTelCycleObserver) endPhase() {
	if o.phaseSpan != nil {
		o.phaseSpan.End()
		o.phaseSpan = nil
	}
}

func (o *OTelCycleObserver) labels() map[string]string {
	return map[string]string{"cycle": o.cycle}
}
