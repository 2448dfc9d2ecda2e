// Package ports defines the core interfaces that form the contract between
// the simulation core and the components plugged into it.
// These interfaces keep the engine independent of concrete devices and of
// the observability backends, and make the system testable.
package ports

import "time"

// Tickable is anything the simulation driver advances once per logical tick.
// Every device, the cycle controller and the status scanner implement it.
type Tickable interface {
	// ID returns a unique identifier for this component.
	// The ID is used for tick ordering, logging and diagnostics and must
	// remain constant for the component's lifetime.
	ID() string

	// Tick performs one step of simulated work covering dt of simulated
	// time. Tick is always invoked from the driver goroutine, one component
	// at a time, in a fixed order, so implementations need no locking for
	// state that only the driver mutates.
	//
	// Components that are switched off must still accept Tick and simply
	// do nothing.
	Tick(dt time.Duration)
}

// Switchable is a Tickable whose periodic work can be suspended without
// losing state.
type Switchable interface {
	Tickable

	// Start activates the periodic work. Calling Start on a running
	// component has no effect.
	Start()

	// Stop suspends the periodic work. Stop is idempotent and must leave
	// the component in a consistent, observable state.
	Stop()

	// Running reports whether the periodic work is active.
	Running() bool
}
