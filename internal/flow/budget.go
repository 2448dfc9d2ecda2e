package flow

import "sync"

// TickCounter reports the index of the current logical tick.
type TickCounter interface {
	Tick() uint64
}

// Budget tracks how much of a per-tick capacity has been handed out, so that
// several pulls within the same tick cannot each claim the full rate.
// The budget resets automatically when the tick index advances.
type Budget[U ~float64] struct {
	clock TickCounter

	mu   sync.Mutex
	tick uint64
	used U
}

// NewBudget creates a budget that resets on every tick of clock.
func NewBudget[U ~float64](clock TickCounter) *Budget[U] {
	return &Budget[U]{clock: clock}
}

// Take grants up to want out of limit for the current tick and returns the
// granted amount.
func (b *Budget[U]) Take(limit, want U) U {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	remaining := limit - b.used
	if remaining <= 0 || want <= 0 {
		return 0
	}
	granted := min(want, remaining)
	b.used += granted
	return granted
}

// Refund returns amount that was taken but not used in the current tick.
func (b *Budget[U]) Refund(amount U) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	b.used = max(0, b.used-amount)
}

// Used returns how much was taken during the current tick.
func (b *Budget[U]) Used() U {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	return b.used
}

func (b *Budget[U]) rollover() {
	if t := b.clock.Tick(); t != b.tick {
		b.tick = t
		b.used = 0
	}
}
