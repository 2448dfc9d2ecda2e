package laundry

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/ports"
	"github.com/ahrav/go-washer/internal/sim"
	"github.com/ahrav/go-washer/internal/spin"
	"github.com/ahrav/go-washer/internal/washcycle"
)

// WasherOptions configures the washer's interlocks.
type WasherOptions struct {
	// DoorSafeLevel is the excess liquid below which the door may unlock.
	DoorSafeLevel domain.Volume
	// SettleDelay is waited before and after the safety drain, and before
	// unlocking on pause.
	SettleDelay         time.Duration
	ThermostatTolerance domain.Temperature
	Log                 logr.Logger
}

// Parts are the devices a washer is assembled from. Their ports must
// already be wired.
type Parts struct {
	Controller *washcycle.Controller
	Dispenser  *Dispenser
	Drum       *Drum
	Motor      *spin.Motor
	Pump       *plumbing.Pump
}

var _ ports.Tickable = (*Washer)(nil)

// Washer is the appliance seen from outside. It exposes the user intents,
// enforces the door interlock and runs the short safety sequences that
// follow a stop or a pause.
//
// Every intent is serialized with the simulation ticks through the engine,
// so intents may be called from any goroutine.
type Washer struct {
	engine     *sim.Engine
	controller *washcycle.Controller
	dispenser  *Dispenser
	drum       *Drum
	heater     *electric.Heater
	motor      *spin.Motor
	pump       *plumbing.Pump
	thermostat electric.Thermostat
	sideJob    *washcycle.Sequencer
	opts       WasherOptions
	log        logr.Logger

	doorLocked bool
	scanner    ports.StateScanner
}

// NewWasher assembles a washer from parts. The motor is coupled to the
// drum and the controller is bound to the washer.
func NewWasher(engine *sim.Engine, parts Parts, opts WasherOptions) (*Washer, error) {
	if engine == nil || parts.Controller == nil || parts.Dispenser == nil ||
		parts.Drum == nil || parts.Motor == nil || parts.Pump == nil {
		return nil, fmt.Errorf("washer is missing a part: %w", domain.ErrInvalidConfiguration)
	}
	if parts.Drum.Heater() == nil {
		return nil, fmt.Errorf("washer drum has no heater: %w", domain.ErrInvalidConfiguration)
	}
	if opts.DoorSafeLevel < 0 || opts.SettleDelay < 0 {
		return nil, fmt.Errorf("washer interlock settings: %w", domain.ErrInvalidConfiguration)
	}
	w := &Washer{
		engine:     engine,
		controller: parts.Controller,
		dispenser:  parts.Dispenser,
		drum:       parts.Drum,
		heater:     parts.Drum.Heater(),
		motor:      parts.Motor,
		pump:       parts.Pump,
		sideJob:    washcycle.NewSequencer(engine.Clock()),
		opts:       opts,
		log:        logging.OrDiscard(opts.Log).WithName("washer"),
	}
	w.thermostat = electric.Thermostat{
		Tolerance:   opts.ThermostatTolerance,
		OnDropBelow: w.heater.Start,
		OnRiseAbove: w.heater.Stop,
	}
	w.motor.Connect(w.drum)
	w.controller.Bind(machine{w})
	return w, nil
}

// ID implements ports.Tickable.
func (w *Washer) ID() string { return "washer" }

// Tick advances the safety sequence, if one is running.
func (w *Washer) Tick(time.Duration) { w.sideJob.Tick() }

// Controller returns the cycle controller.
func (w *Washer) Controller() *washcycle.Controller { return w.controller }

// Drum returns the drum.
func (w *Washer) Drum() *Drum { return w.drum }

// Dispenser returns the dispenser.
func (w *Washer) Dispenser() *Dispenser { return w.dispenser }

// Motor returns the drum motor.
func (w *Washer) Motor() *spin.Motor { return w.motor }

// Pump returns the drain pump.
func (w *Washer) Pump() *plumbing.Pump { return w.pump }

func (w *Washer) do(fn func()) { w.engine.Do(fn) }

func doBool(w *Washer, fn func() bool) bool {
	var ok bool
	w.do(func() { ok = fn() })
	return ok
}

// TogglePower switches the washer on or off. Toggling while a cycle runs
// stops the cycle instead.
func (w *Washer) TogglePower() bool {
	return doBool(w, func() bool {
		switch {
		case w.sideJob.Active():
			return false
		case w.controller.Running():
			return w.stop()
		case w.controller.PoweredOn():
			return w.controller.PowerOff()
		default:
			return w.controller.PowerOn()
		}
	})
}

// Start runs the selected cycle. The tray is closed first.
func (w *Washer) Start() bool { return doBool(w, w.start) }

// Stop abandons the running cycle, drains the drum and unlocks the door.
func (w *Washer) Stop() bool { return doBool(w, w.stop) }

// ToggleCycleRun starts the selected cycle when idle, and pauses or
// resumes the running one otherwise.
func (w *Washer) ToggleCycleRun() bool {
	return doBool(w, func() bool {
		if w.sideJob.Active() {
			return false
		}
		if !w.controller.Running() {
			return w.start()
		}
		if w.controller.Paused() {
			// Resuming re-applies the dispenser, which refuses an open tray.
			w.dispenser.CloseTray()
		}
		w.controller.TogglePause()
		if !w.controller.Paused() {
			w.lockDoor()
			return true
		}
		w.haltAll()
		if w.drum.ExcessLiquid() < w.opts.DoorSafeLevel {
			w.sideJob.Load(
				washcycle.Delay("settle", w.opts.SettleDelay),
				washcycle.Action("unlock", w.unlockDoor),
			)
		}
		return true
	})
}

func (w *Washer) start() bool {
	if w.sideJob.Active() {
		return false
	}
	w.dispenser.CloseTray()
	return w.controller.Start()
}

func (w *Washer) stop() bool {
	if w.sideJob.Active() || !w.controller.Running() {
		return false
	}
	w.haltAll()
	w.controller.Stop()
	w.runSafetyDrain()
	return true
}

// runSafetyDrain settles, drains until empty, settles again and unlocks.
func (w *Washer) runSafetyDrain() {
	steps := []washcycle.Step{washcycle.Delay("settle", w.opts.SettleDelay)}
	steps = append(steps, w.controller.DrainSteps(machine{w})...)
	steps = append(steps,
		washcycle.Delay("settle", w.opts.SettleDelay),
		washcycle.Action("unlock", w.unlockDoor),
	)
	w.sideJob.Load(steps...)
}

func (w *Washer) haltAll() {
	w.dispenser.HaltAll()
	w.motor.Stop()
	w.pump.Stop()
	w.heater.Stop()
}

func (w *Washer) lockDoor() {
	if !w.doorLocked {
		w.doorLocked = true
		w.log.V(logging.DEBUG).Info("Door locked")
	}
}

func (w *Washer) unlockDoor() {
	if w.doorLocked {
		w.doorLocked = false
		w.log.V(logging.DEBUG).Info("Door unlocked", "excessLiquid", w.drum.ExcessLiquid())
	}
}

func (w *Washer) cycleFinished() {
	w.haltAll()
	if w.drum.ExcessLiquid() < w.opts.DoorSafeLevel {
		w.unlockDoor()
		return
	}
	w.runSafetyDrain()
}

// TogglePreWash flips the selected cycle's pre-wash.
func (w *Washer) TogglePreWash() bool { return doBool(w, w.controller.TogglePreWash) }

// IncreaseTemperature raises the selected temperature.
func (w *Washer) IncreaseTemperature() bool { return doBool(w, w.controller.IncreaseTemperature) }

// DecreaseTemperature lowers the selected temperature.
func (w *Washer) DecreaseTemperature() bool { return doBool(w, w.controller.DecreaseTemperature) }

// IncreaseSpinSpeed raises the selected spin speed. A spin phase in
// progress picks up the new speed immediately.
func (w *Washer) IncreaseSpinSpeed() bool {
	return doBool(w, func() bool { return w.applySpinSpeed(w.controller.IncreaseSpinSpeed()) })
}

// DecreaseSpinSpeed lowers the selected spin speed.
func (w *Washer) DecreaseSpinSpeed() bool {
	return doBool(w, func() bool { return w.applySpinSpeed(w.controller.DecreaseSpinSpeed()) })
}

func (w *Washer) applySpinSpeed(changed bool) bool {
	if !changed || !w.controller.InSpinPhase() {
		return changed
	}
	if speed, ok := w.controller.Active().SpinSpeed(); ok {
		w.setMotorSpeed(speed)
	}
	return true
}

func (w *Washer) setMotorSpeed(s domain.Spin) {
	if err := w.motor.SetSpeed(s); err != nil {
		var rerr *domain.RangeError
		if errors.As(err, &rerr) {
			w.log.Error(err, "Spin speed out of motor range, using the nearest bound")
		}
		_ = w.motor.SetSpeed(domain.Spin(domain.Clamp(float64(s), 0, float64(w.motor.MaxSpeed()))))
	}
}

// SelectNextCycle moves the cycle selection.
func (w *Washer) SelectNextCycle(reverse bool) bool {
	return doBool(w, func() bool { return w.controller.SelectNext(reverse) })
}

// SelectCycle selects a cycle by name.
func (w *Washer) SelectCycle(name string) error {
	var err error
	w.do(func() { err = w.controller.Select(name) })
	return err
}

// Load puts items into the drum. It is rejected while the door is locked
// or when the items do not fit.
func (w *Washer) Load(items ...*domain.Body) bool {
	return doBool(w, func() bool { return !w.doorLocked && w.drum.Load(items...) })
}

// Unload takes items out of the drum. It is rejected while the door is
// locked.
func (w *Washer) Unload(items ...*domain.Body) bool {
	return doBool(w, func() bool { return !w.doorLocked && w.drum.Unload(items...) > 0 })
}

// UnloadAll empties the drum. It returns nil while the door is locked.
func (w *Washer) UnloadAll() []*domain.Body {
	var out []*domain.Body
	w.do(func() {
		if !w.doorLocked {
			out = w.drum.UnloadAll()
		}
	})
	return out
}

// OpenDispenserTray pulls the tray out. It is rejected while the door is
// locked.
func (w *Washer) OpenDispenserTray() bool {
	return doBool(w, func() bool { return !w.doorLocked && w.dispenser.OpenTray() })
}

// CloseDispenserTray inserts the tray.
func (w *Washer) CloseDispenserTray() bool {
	return doBool(w, func() bool { return !w.doorLocked && w.dispenser.CloseTray() })
}

// FillSlot pours s into a tray slot. The tray must be open and the slot
// must have room. What does not fit stays in s.
func (w *Washer) FillSlot(slot domain.SlotID, s *domain.Substance) bool {
	return doBool(w, func() bool {
		if !w.dispenser.TrayOpen() {
			return false
		}
		stored, err := w.dispenser.FillSlot(slot, s)
		if err != nil {
			w.log.V(logging.VERBOSE).Info("Fill rejected", "slot", slot, "err", err.Error())
			return false
		}
		return stored > 0
	})
}

// EmptySlot removes up to amount from a tray slot. It returns nil when the
// tray is closed or the slot is unknown or empty.
func (w *Washer) EmptySlot(slot domain.SlotID, amount domain.Volume) *domain.Substance {
	var out *domain.Substance
	w.do(func() {
		if !w.dispenser.TrayOpen() {
			return
		}
		got, err := w.dispenser.EmptySlot(slot, amount)
		if err != nil || got.IsEmpty() {
			return
		}
		out = got
	})
	return out
}

// SetTimeFactor changes the simulation speed. Waits already in progress
// keep their tick count.
func (w *Washer) SetTimeFactor(f float64) error {
	if err := w.engine.Clock().SetTimeFactor(f); err != nil {
		return err
	}
	w.log.Info("Time factor changed", "timeFactor", f)
	return nil
}

// DoorLocked reports whether the door is locked.
func (w *Washer) DoorLocked() bool {
	return doBool(w, func() bool { return w.doorLocked })
}

// SetScanner installs the scanner receiving a snapshot every tick. A nil
// scanner stops scanning.
func (w *Washer) SetScanner(s ports.StateScanner) {
	w.do(func() { w.scanner = s })
}

// Scanning returns the component publishing snapshots to the scanner. It
// should tick after every other component.
func (w *Washer) Scanning() ports.Tickable { return scanning{w} }

// Snapshot returns a copy of the appliance state.
func (w *Washer) Snapshot() domain.WasherSnapshot {
	var snap domain.WasherSnapshot
	w.do(func() { snap = w.snapshot() })
	return snap
}

func (w *Washer) snapshot() domain.WasherSnapshot {
	clock := w.engine.Clock()
	c := w.controller
	shown := c.Selected()
	energy := c.PowerInlet().Consumed() + w.heater.Inlet().Consumed() +
		w.motor.PowerInlet().Consumed() + w.pump.PowerInlet().Consumed()
	snap := domain.WasherSnapshot{
		Tick:        clock.Tick(),
		TimeFactor:  clock.TimeFactor(),
		PoweredOn:   c.PoweredOn(),
		Running:     c.Running(),
		Paused:      c.Paused(),
		DoorLocked:  w.doorLocked,
		Settling:    w.sideJob.Active(),
		Selected:    shown.Name(),
		Stage:       c.Stage(),
		Phase:       c.Phase(),
		RunningTime: c.RunningTime(),
		Tray:        w.dispenser.Snapshot(),

		MotorSpeed:     w.motor.CurrentSpeed(),
		MotorDirection: w.motor.Direction(),
		PumpRunning:    w.pump.Running(),
		HeaterRunning:  w.heater.Running(),
		ExcessLiquid:   w.drum.ExcessLiquid(),
		EnergyUsed:     energy,
		Drained:        w.pump.Pumped(),
	}
	if active := c.Active(); active != nil {
		snap.Active = active.Name()
		shown = active
	}
	snap.Duration = shown.Duration()
	snap.PreWash = shown.PreWash()
	snap.Temperature = shown.TemperatureSetting()
	snap.SpinSpeed = shown.SpinSpeedSetting()
	for _, cy := range c.Cycles() {
		snap.Cycles = append(snap.Cycles, cy.Name())
	}
	for _, b := range w.drum.Laundry() {
		snap.Load = append(snap.Load, b.ID())
	}
	if t, ok := w.drum.LiquidTemperature(); ok {
		snap.LiquidTemperature = t
	}
	return snap
}

type scanning struct{ w *Washer }

func (s scanning) ID() string { return "scanner" }

func (s scanning) Tick(time.Duration) {
	if s.w.scanner != nil {
		s.w.scanner.Scan(s.w.snapshot())
	}
}

// machine is the washer as seen by the cycle controller.
type machine struct{ w *Washer }

var _ washcycle.Appliance = machine{}

func (m machine) LockDoor()                   { m.w.lockDoor() }
func (m machine) ExcessLiquid() domain.Volume { return m.w.drum.ExcessLiquid() }
func (m machine) StartDrain()                 { m.w.pump.Start() }
func (m machine) StopDrain()                  { m.w.pump.Stop() }
func (m machine) StopMotor()                  { m.w.motor.Stop() }
func (m machine) StopHeating()                { m.w.heater.Stop() }
func (m machine) CycleFinished()              { m.w.cycleFinished() }

func (m machine) StartDispensing(slot domain.SlotID) {
	if !m.w.dispenser.Dispense(slot) {
		m.w.log.Info("Cannot dispense", "slot", slot, "trayOpen", m.w.dispenser.TrayOpen())
	}
}

func (m machine) StopDispensing(slot domain.SlotID) { m.w.dispenser.Halt(slot) }

func (m machine) StartMotor(direction domain.SpinDirection, speed domain.Spin) {
	m.w.motor.SetDirection(direction)
	m.w.setMotorSpeed(speed)
	m.w.motor.Start()
}

func (m machine) RegulateTemperature(target domain.Temperature) {
	m.w.thermostat.Setting = target
	if t, ok := m.w.drum.LiquidTemperature(); ok {
		m.w.thermostat.Check(t)
		return
	}
	m.w.heater.Stop()
}
