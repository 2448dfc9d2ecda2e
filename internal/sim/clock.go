// Package sim provides the simulation context and the single driver that
// advances every registered component on a shared logical clock.
package sim

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-washer/internal/domain"
)

// Clock is the process-wide simulation context. It holds the wall-clock tick
// period, the time factor that scales how much simulated time one tick
// covers, the index of the current tick and the flow id sequence.
//
// A Clock is created once at startup and passed explicitly to every
// component that needs it. The time factor is the only value that changes
// after construction.
type Clock struct {
	period time.Duration

	mu      sync.RWMutex
	factor  float64
	tick    uint64
	elapsed time.Duration

	flowIDs atomic.Int64
}

// NewClock creates a clock. period must be positive and factor must be
// greater than zero.
func NewClock(period time.Duration, factor float64) (*Clock, error) {
	if period <= 0 {
		return nil, fmt.Errorf("tick period %v: %w", period, domain.ErrInvalidConfiguration)
	}
	if err := validateFactor(factor); err != nil {
		return nil, err
	}
	return &Clock{period: period, factor: factor}, nil
}

func validateFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("time factor %g: %w", f, domain.ErrInvalidTimeFactor)
	}
	return nil
}

// Period returns the wall-clock duration between ticks.
func (c *Clock) Period() time.Duration { return c.period }

// TimeFactor returns the current speed multiplier.
func (c *Clock) TimeFactor() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factor
}

// SetTimeFactor changes the speed multiplier. The change applies from the
// next tick on; waits already in progress keep their tick count.
func (c *Clock) SetTimeFactor(f float64) error {
	if err := validateFactor(f); err != nil {
		return err
	}
	c.mu.Lock()
	c.factor = f
	c.mu.Unlock()
	return nil
}

// TickDuration returns the simulated time one tick covers.
func (c *Clock) TickDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickDuration()
}

func (c *Clock) tickDuration() time.Duration {
	return time.Duration(float64(c.period) * c.factor)
}

// TicksFor returns how many ticks a wait of simulated duration d lasts at
// the current time factor. Partial ticks round up; d <= 0 needs no tick.
func (c *Clock) TicksFor(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	td := c.TickDuration()
	if td <= 0 {
		return 0
	}
	return uint64((d + td - 1) / td)
}

// Tick returns the index of the current tick. It is zero before the first
// step.
func (c *Clock) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// Elapsed returns the total simulated time covered by all ticks so far.
func (c *Clock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// NextFlowID returns a fresh identifier for a pull or push. Ids only serve
// diagnostics.
func (c *Clock) NextFlowID() int64 { return c.flowIDs.Add(1) }

// advance moves to the next tick and returns the simulated time it covers.
func (c *Clock) advance() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	dt := c.tickDuration()
	c.tick++
	c.elapsed += dt
	return dt
}
