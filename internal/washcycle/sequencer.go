package washcycle

import (
	"slices"
	"time"
)

// Timer converts simulated durations into tick counts at the current time
// factor.
type Timer interface {
	TicksFor(d time.Duration) uint64
}

type stepKind int

const (
	stepAction stepKind = iota
	stepActuate
	stepRelease
	stepDelay
	stepUntil
	stepBranch
)

// Step is one instruction of a sequencer program. Steps are built with
// Action, Actuate, Release, Delay, Until and If.
type Step struct {
	kind  stepKind
	label string
	fn    func()
	delay time.Duration
	every time.Duration
	cond  func() bool
	then  []Step
}

// Label returns the step's diagnostic label.
func (s Step) Label() string { return s.label }

// Action runs fn and moves on within the same tick.
func Action(label string, fn func()) Step {
	return Step{kind: stepAction, label: label, fn: fn}
}

// Actuate runs apply and remembers it as the current actuator state, so that
// Resume can re-apply it after a pause.
func Actuate(label string, apply func()) Step {
	return Step{kind: stepActuate, label: label, fn: apply}
}

// Release runs fn and forgets the remembered actuator state.
func Release(label string, fn func()) Step {
	return Step{kind: stepRelease, label: label, fn: fn}
}

// Delay waits for d of simulated time. The tick count is fixed when the wait
// begins, so later time factor changes do not affect it.
func Delay(label string, d time.Duration) Step {
	return Step{kind: stepDelay, label: label, delay: d}
}

// Until waits until cond holds, checking it when the wait begins and then
// every interval of simulated time.
func Until(label string, every time.Duration, cond func() bool) Step {
	return Step{kind: stepUntil, label: label, every: every, cond: cond}
}

// If runs then in place of the step when cond holds at the moment the step
// is reached, and skips it otherwise.
func If(label string, cond func() bool, then ...Step) Step {
	return Step{kind: stepBranch, label: label, cond: cond, then: then}
}

// Sequencer executes a program of steps one tick at a time. It replaces
// suspended coroutines with explicit state: a program counter, the ticks
// left on the current wait and the actuator state to restore on resume.
// A Sequencer is driven by a single goroutine and is not safe for
// concurrent use.
type Sequencer struct {
	timer Timer

	steps   []Step
	pc      int
	armed   bool
	wait    uint64
	paused  bool
	restore func()
}

// NewSequencer creates an idle sequencer.
func NewSequencer(timer Timer) *Sequencer {
	return &Sequencer{timer: timer}
}

// Load replaces the program and starts it from the first step at the next
// Tick.
func (s *Sequencer) Load(steps ...Step) {
	s.steps = slices.Clone(steps)
	s.pc = 0
	s.armed = false
	s.wait = 0
	s.paused = false
	s.restore = nil
}

// Cancel abandons the program.
func (s *Sequencer) Cancel() { s.Load() }

// Active reports whether the sequencer has unfinished steps.
func (s *Sequencer) Active() bool { return s.pc < len(s.steps) }

// Paused reports whether progression is frozen.
func (s *Sequencer) Paused() bool { return s.paused }

// Pause freezes progression at the current step.
func (s *Sequencer) Pause() { s.paused = true }

// Resume continues from where Pause left off and re-applies the last
// actuator state.
func (s *Sequencer) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	if s.restore != nil {
		s.restore()
	}
}

// Current returns the label of the step in progress.
func (s *Sequencer) Current() string {
	if !s.Active() {
		return ""
	}
	return s.steps[s.pc].label
}

// Tick advances the program. Instantaneous steps run back to back until a
// wait consumes the tick or the program ends.
func (s *Sequencer) Tick() {
	for !s.paused && s.Active() {
		if !s.exec(s.steps[s.pc]) {
			return
		}
	}
}

// exec runs one step. It returns false when the step consumed the tick.
func (s *Sequencer) exec(st Step) bool {
	switch st.kind {
	case stepAction:
		s.next()
		st.fn()
	case stepActuate:
		s.next()
		s.restore = st.fn
		st.fn()
	case stepRelease:
		s.next()
		s.restore = nil
		st.fn()
	case stepBranch:
		s.steps = slices.Delete(s.steps, s.pc, s.pc+1)
		if st.cond() {
			s.steps = slices.Insert(s.steps, s.pc, st.then...)
		}
	case stepDelay:
		if !s.armed {
			s.armed = true
			s.wait = s.timer.TicksFor(st.delay)
			if s.wait == 0 {
				s.next()
				return true
			}
			return false
		}
		s.wait--
		if s.wait > 0 {
			return false
		}
		s.next()
	case stepUntil:
		if !s.armed {
			s.armed = true
			s.wait = s.interval(st.every)
			if st.cond() {
				s.next()
				return true
			}
			return false
		}
		s.wait--
		if s.wait > 0 {
			return false
		}
		if st.cond() {
			s.next()
			return true
		}
		s.wait = s.interval(st.every)
		return false
	}
	return true
}

func (s *Sequencer) interval(every time.Duration) uint64 {
	return max(1, s.timer.TicksFor(every))
}

func (s *Sequencer) next() {
	s.pc++
	s.armed = false
	s.wait = 0
}
