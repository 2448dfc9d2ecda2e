package washcycle

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/ports"
)

// Appliance is the set of commands the controller issues while a cycle
// runs. The washer implements it on top of its dispenser, drum, motor and
// pump.
type Appliance interface {
	LockDoor()
	ExcessLiquid() domain.Volume
	StartDispensing(slot domain.SlotID)
	StopDispensing(slot domain.SlotID)
	StartDrain()
	StopDrain()
	StartMotor(direction domain.SpinDirection, speed domain.Spin)
	StopMotor()
	// RegulateTemperature runs one thermostat check against target.
	RegulateTemperature(target domain.Temperature)
	StopHeating()
	// CycleFinished is called after the last phase of a cycle completes.
	CycleFinished()
}

// Clock is the part of the simulation context the controller uses.
type Clock interface {
	Timer
	electric.FlowIDs
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	ID    string
	Power domain.Power
	// MeasureEvery is the liquid level polling interval used by fill and
	// drain phases.
	MeasureEvery time.Duration
	// DrainThreshold is the least excess liquid worth draining.
	DrainThreshold domain.Volume
	Observer       ports.CycleObserver
	Log            logr.Logger
}

var _ ports.Tickable = (*Controller)(nil)

// Controller is the wash-cycle state machine. It owns the power state, the
// cycle selection and the Idle, Running and Paused lifecycle, and compiles
// the selected cycle into a sequencer program when a run starts.
//
// Controller is itself an electrical consumer: a tick that receives no
// energy does not advance the cycle.
type Controller struct {
	cfg       ControllerConfig
	inlet     *electric.Inlet
	log       logr.Logger
	observer  ports.CycleObserver
	appliance Appliance
	seq       *Sequencer

	cycles   []*Cycle
	selected int
	active   *Cycle

	poweredOn   bool
	runningTime time.Duration
	stage       string
	phase       domain.PhaseKind
	phaseStart  time.Duration
}

// NewController creates a controller over cycles. The first cycle is
// selected.
func NewController(net *electric.Network, clock Clock, cycles []*Cycle, cfg ControllerConfig) (*Controller, error) {
	if len(cycles) == 0 {
		return nil, fmt.Errorf("controller %q needs at least one cycle: %w", cfg.ID, domain.ErrInvalidConfiguration)
	}
	if cfg.MeasureEvery <= 0 {
		return nil, fmt.Errorf("controller %q measure interval %v: %w", cfg.ID, cfg.MeasureEvery, domain.ErrInvalidConfiguration)
	}
	if cfg.ID == "" {
		cfg.ID = "controller"
	}
	return &Controller{
		cfg:      cfg,
		inlet:    electric.NewInlet(net, clock, cfg.Power),
		log:      logging.OrDiscard(cfg.Log).WithName(cfg.ID),
		observer: cfg.Observer,
		seq:      NewSequencer(clock),
		cycles:   cycles,
	}, nil
}

// Bind attaches the appliance the controller commands.
func (c *Controller) Bind(a Appliance) { c.appliance = a }

// SetObserver replaces the cycle observer. A nil observer disables
// notifications.
func (c *Controller) SetObserver(o ports.CycleObserver) { c.observer = o }

// ID implements ports.Tickable.
func (c *Controller) ID() string { return c.cfg.ID }

// Power returns the controller's rated power.
func (c *Controller) Power() domain.Power { return c.cfg.Power }

// PowerInlet returns the electrical inlet.
func (c *Controller) PowerInlet() *electric.Inlet { return c.inlet }

// Tick draws standby power and, while a cycle runs, advances it.
func (c *Controller) Tick(dt time.Duration) {
	if !c.poweredOn {
		return
	}
	if required := c.cfg.Power.Over(dt); required > 0 && c.inlet.Draw(required, dt) <= 0 {
		return
	}
	if c.active == nil || c.seq.Paused() {
		return
	}
	c.runningTime += dt
	c.seq.Tick()
}

// PoweredOn reports whether the controller is on.
func (c *Controller) PoweredOn() bool { return c.poweredOn }

// PowerOn switches the controller on.
func (c *Controller) PowerOn() bool {
	if c.poweredOn {
		return false
	}
	c.poweredOn = true
	c.log.Info("Powered on")
	return true
}

// PowerOff switches the controller off. It is rejected while a cycle runs.
func (c *Controller) PowerOff() bool {
	if !c.poweredOn || c.active != nil {
		return false
	}
	c.poweredOn = false
	c.log.Info("Powered off")
	return true
}

// Cycles returns the available cycles in order.
func (c *Controller) Cycles() []*Cycle { return c.cycles }

// Selected returns the selected cycle.
func (c *Controller) Selected() *Cycle { return c.cycles[c.selected] }

// SelectNext moves the selection forward, or backward when reverse is set,
// wrapping around. It is rejected while powered off or running.
func (c *Controller) SelectNext(reverse bool) bool {
	if !c.poweredOn || c.active != nil {
		return false
	}
	delta := 1
	if reverse {
		delta = -1
	}
	n := len(c.cycles)
	c.selected = ((c.selected+delta)%n + n) % n
	c.log.V(logging.VERBOSE).Info("Cycle selected", "cycle", c.Selected().Name())
	return true
}

// Select selects a cycle by name. Matching ignores case; an unknown name
// yields an error wrapping domain.ErrUnknownCycle.
func (c *Controller) Select(name string) error {
	if c.active != nil {
		return fmt.Errorf("select %q while %q runs: %w", name, c.active.Name(), domain.ErrInvalidConfiguration)
	}
	names := make([]string, len(c.cycles))
	for i, cy := range c.cycles {
		names[i] = cy.Name()
	}
	idx, err := Lookup(names, name)
	if err != nil {
		return err
	}
	c.selected = idx
	return nil
}

// Active returns the running cycle, or nil when idle.
func (c *Controller) Active() *Cycle { return c.active }

// Running reports whether a cycle is active, paused or not.
func (c *Controller) Running() bool { return c.active != nil }

// Paused reports whether the active cycle is paused.
func (c *Controller) Paused() bool { return c.active != nil && c.seq.Paused() }

// Stage returns the name of the stage in progress.
func (c *Controller) Stage() string { return c.stage }

// Phase returns the kind of the phase in progress.
func (c *Controller) Phase() domain.PhaseKind { return c.phase }

// RunningTime returns the simulated time the active cycle has run,
// excluding pauses.
func (c *Controller) RunningTime() time.Duration { return c.runningTime }

// Step returns the label of the sequencer step in progress.
func (c *Controller) Step() string { return c.seq.Current() }

// Start runs the selected cycle from its first stage. The door is locked
// before the first stage begins. Start is rejected while powered off, while
// a cycle is active or when no appliance is bound.
func (c *Controller) Start() bool {
	if !c.poweredOn || c.active != nil || c.appliance == nil {
		return false
	}
	cycle := c.Selected()
	c.active = cycle
	c.runningTime = 0
	c.stage, c.phase = "", ""
	c.appliance.LockDoor()
	c.seq.Load(c.program(cycle)...)
	c.log.Info("Cycle started", "cycle", cycle.Name(), "duration", cycle.Duration())
	if c.observer != nil {
		c.observer.CycleStarted(cycle.Name())
	}
	return true
}

// Stop abandons the active cycle. Actuators are left to the caller.
func (c *Controller) Stop() bool {
	if c.active == nil {
		return false
	}
	cycle := c.active
	c.seq.Cancel()
	c.reset()
	c.log.Info("Cycle stopped", "cycle", cycle.Name(), "runningTime", c.runningTime)
	if c.observer != nil {
		c.observer.CycleEnded(cycle.Name(), c.runningTime, false)
	}
	return true
}

// TogglePause pauses a running cycle or resumes a paused one. Resuming
// re-applies the actuator state that was in force when the pause began.
func (c *Controller) TogglePause() bool {
	if c.active == nil {
		return false
	}
	if c.seq.Paused() {
		c.seq.Resume()
		c.log.Info("Cycle resumed", "stage", c.stage, "phase", c.phase)
	} else {
		c.seq.Pause()
		c.log.Info("Cycle paused", "stage", c.stage, "phase", c.phase)
	}
	return true
}

// InSpinPhase reports whether a centrifuge phase is in progress.
func (c *Controller) InSpinPhase() bool {
	return c.active != nil && c.phase == domain.PhaseSpin
}

// SpinSpeedFor returns the speed a spin phase of the active cycle runs at.
func (c *Controller) SpinSpeedFor(p PhaseSpec) domain.Spin {
	cycle := c.active
	if cycle == nil {
		cycle = c.Selected()
	}
	if s, ok := cycle.SpinSpeed(); ok {
		return s
	}
	return p.SpinSpeed
}

// IncreaseTemperature raises the selected cycle's temperature setting.
func (c *Controller) IncreaseTemperature() bool {
	return c.poweredOn && c.Selected().IncreaseTemperature()
}

// DecreaseTemperature lowers the selected cycle's temperature setting.
func (c *Controller) DecreaseTemperature() bool {
	return c.poweredOn && c.Selected().DecreaseTemperature()
}

// IncreaseSpinSpeed raises the selected cycle's spin speed setting.
func (c *Controller) IncreaseSpinSpeed() bool {
	return c.poweredOn && c.Selected().IncreaseSpinSpeed()
}

// DecreaseSpinSpeed lowers the selected cycle's spin speed setting.
func (c *Controller) DecreaseSpinSpeed() bool {
	return c.poweredOn && c.Selected().DecreaseSpinSpeed()
}

// TogglePreWash flips the selected cycle's pre-wash toggle. A cycle that
// is already running keeps the stages it started with.
func (c *Controller) TogglePreWash() bool {
	return c.poweredOn && c.Selected().TogglePreWash()
}

func (c *Controller) reset() {
	c.active = nil
	c.stage, c.phase = "", ""
}

func (c *Controller) beginPhase(stage string, kind domain.PhaseKind) {
	c.endPhase()
	c.stage, c.phase = stage, kind
	c.phaseStart = c.runningTime
	c.log.V(logging.VERBOSE).Info("Phase started", "stage", stage, "phase", kind, "at", c.runningTime)
	if c.observer != nil {
		c.observer.PhaseStarted(stage, kind)
	}
}

func (c *Controller) endPhase() {
	if c.phase == "" {
		return
	}
	elapsed := c.runningTime - c.phaseStart
	if c.observer != nil {
		c.observer.PhaseEnded(c.stage, c.phase, elapsed)
	}
}

func (c *Controller) finish() {
	cycle := c.active
	c.endPhase()
	c.reset()
	c.log.Info("Cycle finished", "cycle", cycle.Name(), "runningTime", c.runningTime)
	if c.observer != nil {
		c.observer.CycleEnded(cycle.Name(), c.runningTime, true)
	}
	c.appliance.CycleFinished()
}

// program compiles a cycle into sequencer steps.
func (c *Controller) program(cycle *Cycle) []Step {
	var steps []Step
	for _, stage := range cycle.Stages() {
		for _, phase := range stage.Phases {
			steps = append(steps, Action("begin "+string(phase.Kind), func() {
				c.beginPhase(stage.Name, phase.Kind)
			}))
			steps = append(steps, c.phaseSteps(cycle, phase)...)
		}
	}
	return append(steps, Action("finish", c.finish))
}

func (c *Controller) phaseSteps(cycle *Cycle, p PhaseSpec) []Step {
	a := c.appliance
	switch p.Kind {
	case domain.PhaseFill:
		return []Step{
			Actuate("dispense", func() { a.StartDispensing(p.Slot) }),
			Until("fill level", c.cfg.MeasureEvery, func() bool { return a.ExcessLiquid() >= p.Amount }),
			Release("halt dispenser", func() { a.StopDispensing(p.Slot) }),
		}
	case domain.PhaseWash:
		return c.washSteps(cycle, p)
	case domain.PhaseDrain:
		return []Step{c.drainStep()}
	case domain.PhaseSpin:
		return []Step{
			Actuate("centrifuge", func() {
				a.StartDrain()
				a.StartMotor(domain.SpinPositive, c.SpinSpeedFor(p))
			}),
			Delay("centrifuge", p.Duration),
			Release("centrifuge done", func() {
				a.StopMotor()
				a.StopDrain()
			}),
		}
	}
	return nil
}

// washSteps alternates the drum direction on every agitation round and
// checks the thermostat before each one.
func (c *Controller) washSteps(cycle *Cycle, p PhaseSpec) []Step {
	a := c.appliance
	rounds := p.Rhythms()
	steps := make([]Step, 0, rounds*5+1)
	for i := range rounds {
		direction := domain.SpinPositive
		if i%2 == 1 {
			direction = domain.SpinNegative
		}
		steps = append(steps,
			Action("thermostat", func() {
				if t, ok := cycle.Temperature(); ok && p.Heat {
					a.RegulateTemperature(t)
					return
				}
				a.StopHeating()
			}),
			Actuate("agitate", func() { a.StartMotor(direction, p.SpinSpeed) }),
			Delay("agitate", p.SpinPeriod),
			Release("rest", a.StopMotor),
			Delay("rest", p.RestPeriod),
		)
	}
	return append(steps, Action("heater off", a.StopHeating))
}

// DrainSteps returns the steps that empty the drum: nothing happens when
// less than the drain threshold is present, otherwise the pump runs until
// the drum is empty.
func (c *Controller) DrainSteps(a Appliance) []Step {
	return []Step{If("drain",
		func() bool { return a.ExcessLiquid() >= c.cfg.DrainThreshold },
		Actuate("pump", a.StartDrain),
		Until("empty", c.cfg.MeasureEvery, func() bool { return a.ExcessLiquid().IsNegligible() }),
		Release("pump off", a.StopDrain),
	)}
}

func (c *Controller) drainStep() Step { return c.DrainSteps(c.appliance)[0] }
