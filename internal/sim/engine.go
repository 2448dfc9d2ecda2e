package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/ports"
)

// ErrDuplicateComponent is returned when two components share an ID.
var ErrDuplicateComponent = errors.New("duplicate component id")

// Engine is the single simulation driver. Each step advances the clock and
// then invokes every registered component's Tick in registration order.
// Intents coming from outside the driver are funnelled through Do, which
// serializes them with steps, so engine state has exactly one writer at a
// time.
type Engine struct {
	clock *Clock
	log   logr.Logger

	mu         sync.Mutex
	components []ports.Tickable
	ids        map[string]struct{}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a driver over clock.
func NewEngine(clock *Clock, opts ...EngineOption) *Engine {
	e := &Engine{clock: clock, ids: make(map[string]struct{})}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDiscard(e.log).WithName("engine")
	return e
}

// Clock returns the simulation context driven by the engine.
func (e *Engine) Clock() *Clock { return e.clock }

// Register appends components to the tick order. Registration order is the
// tick order.
func (e *Engine) Register(components ...ports.Tickable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range components {
		if _, dup := e.ids[c.ID()]; dup {
			return fmt.Errorf("register %q: %w", c.ID(), ErrDuplicateComponent)
		}
		e.ids[c.ID()] = struct{}{}
		e.components = append(e.components, c)
		e.log.V(logging.DEBUG).Info("Registered component", "id", c.ID(), "position", len(e.components)-1)
	}
	return nil
}

// Components returns the registered components in tick order.
func (e *Engine) Components() []ports.Tickable {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ports.Tickable, len(e.components))
	copy(out, e.components)
	return out
}

// Step runs a single tick.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step()
}

// StepN runs n ticks back to back.
func (e *Engine) StepN(n int) {
	for range n {
		e.Step()
	}
}

func (e *Engine) step() {
	dt := e.clock.advance()
	for _, c := range e.components {
		c.Tick(dt)
	}
}

// Do runs fn between ticks. It must not be called from within a Tick.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Run steps the engine once per clock period until ctx is done. Pacing uses
// a token bucket so a slow tick is followed by an immediate one rather than
// drifting. Run returns nil once ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(e.clock.Period()), 1)
	e.log.Info("Simulation started", "period", e.clock.Period(), "timeFactor", e.clock.TimeFactor())
	for {
		// Wait fails early when the next tick would land past ctx's
		// deadline; that still ends the run.
		if err := limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			e.log.Info("Simulation stopped", "tick", e.clock.Tick(), "elapsed", e.clock.Elapsed())
			return nil
		}
		e.Step()
	}
}
