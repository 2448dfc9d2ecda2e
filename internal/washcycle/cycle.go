// Package washcycle models wash cycles and runs them: the declarative cycle
// catalog, the explicit-wait sequencer that steps through a cycle tick by
// tick, and the controller state machine that owns power, selection and
// the run/pause lifecycle.
package washcycle

import (
	"math"
	"slices"
	"time"

	"github.com/ahrav/go-washer/internal/domain"
)

// PhaseSpec declares one phase of a stage. Which fields apply depends on
// Kind:
//   - fill: Slot and Amount. The phase ends once the drum holds Amount of
//     excess liquid.
//   - wash: Duration, SpinPeriod, RestPeriod, SpinSpeed and Heat.
//   - drain: no parameters. The phase ends once the drum is empty.
//   - spin: Duration and SpinSpeed, which is overridden by the selected
//     spin speed setting when the cycle offers one.
type PhaseSpec struct {
	Kind       domain.PhaseKind `yaml:"kind" validate:"required,oneof=fill wash drain spin"`
	Slot       domain.SlotID    `yaml:"slot,omitempty" validate:"required_if=Kind fill,omitempty,oneof=prewash detergent softener"`
	Amount     domain.Volume    `yaml:"amount,omitempty" validate:"required_if=Kind fill,gte=0"`
	Duration   time.Duration    `yaml:"duration,omitempty" validate:"gte=0"`
	SpinPeriod time.Duration    `yaml:"spin_period,omitempty" validate:"gte=0"`
	RestPeriod time.Duration    `yaml:"rest_period,omitempty" validate:"gte=0"`
	SpinSpeed  domain.Spin      `yaml:"spin_speed,omitempty" validate:"gte=0"`
	// Heat makes the phase regulate the liquid to the selected temperature.
	Heat bool `yaml:"heat,omitempty"`
}

// Timed reports whether the phase has a declared duration. Fill and drain
// phases end on a liquid-level condition instead.
func (p PhaseSpec) Timed() bool {
	return p.Kind == domain.PhaseWash || p.Kind == domain.PhaseSpin
}

// Rhythms returns how many spin-and-rest rounds a wash phase performs.
func (p PhaseSpec) Rhythms() int {
	period := p.SpinPeriod + p.RestPeriod
	if p.Kind != domain.PhaseWash || period <= 0 {
		return 0
	}
	return int(math.Round(float64(p.Duration) / float64(period)))
}

// StageSpec is a named group of phases, such as "main wash" or "rinse".
type StageSpec struct {
	Name   string      `yaml:"name" validate:"required,max=64"`
	Phases []PhaseSpec `yaml:"phases" validate:"required,min=1,dive"`
}

// Duration sums the declared durations of the stage's timed phases.
func (s StageSpec) Duration() time.Duration {
	var total time.Duration
	for _, p := range s.Phases {
		if p.Timed() {
			total += p.Duration
		}
	}
	return total
}

// PreWashSpec makes a cycle pre-wash capable.
type PreWashSpec struct {
	// Enabled is the initial state of the pre-wash toggle.
	Enabled bool      `yaml:"enabled"`
	Stage   StageSpec `yaml:"stage" validate:"required"`
}

// CycleSpec is the declarative definition of a wash cycle.
type CycleSpec struct {
	Name string `yaml:"name" validate:"required,max=64"`
	// Temperatures lists the selectable wash temperatures in ascending
	// order. An empty list means the cycle does not heat.
	Temperatures       []domain.Temperature `yaml:"temperatures,omitempty" validate:"dive,gte=0,lte=95"`
	DefaultTemperature int                  `yaml:"default_temperature" validate:"gte=0"`
	// SpinSpeeds lists the selectable final spin speeds in ascending order.
	SpinSpeeds       []domain.Spin `yaml:"spin_speeds,omitempty" validate:"dive,gte=0"`
	DefaultSpinSpeed int           `yaml:"default_spin_speed" validate:"gte=0"`
	PreWash          *PreWashSpec  `yaml:"pre_wash,omitempty"`
	Stages           []StageSpec   `yaml:"stages" validate:"required,min=1,dive"`
}

// Cycle is a wash cycle together with its user-adjustable settings.
type Cycle struct {
	spec        CycleSpec
	temperature int
	spinSpeed   int
	preWash     bool
}

// NewCycle creates a cycle with its default settings selected.
func NewCycle(spec CycleSpec) *Cycle {
	c := &Cycle{spec: spec, temperature: -1, spinSpeed: -1}
	if len(spec.Temperatures) > 0 {
		c.temperature = min(spec.DefaultTemperature, len(spec.Temperatures)-1)
	}
	if len(spec.SpinSpeeds) > 0 {
		c.spinSpeed = min(spec.DefaultSpinSpeed, len(spec.SpinSpeeds)-1)
	}
	if spec.PreWash != nil {
		c.preWash = spec.PreWash.Enabled
	}
	return c
}

// Name returns the cycle name.
func (c *Cycle) Name() string { return c.spec.Name }

// Spec returns the cycle definition.
func (c *Cycle) Spec() CycleSpec { return c.spec }

// Stages returns the stages the cycle will run with its current settings,
// including the pre-wash stage when it is enabled.
func (c *Cycle) Stages() []StageSpec {
	stages := slices.Clone(c.spec.Stages)
	if c.spec.PreWash != nil && c.preWash {
		stages = slices.Insert(stages, 0, c.spec.PreWash.Stage)
	}
	return stages
}

// Duration is the sum of the durations of the stages the cycle will run.
func (c *Cycle) Duration() time.Duration {
	var total time.Duration
	for _, s := range c.Stages() {
		total += s.Duration()
	}
	return total
}

// Temperature returns the selected temperature. The second result is false
// when the cycle offers no temperature setting.
func (c *Cycle) Temperature() (domain.Temperature, bool) {
	if c.temperature < 0 {
		return 0, false
	}
	return c.spec.Temperatures[c.temperature], true
}

// SpinSpeed returns the selected spin speed. The second result is false
// when the cycle offers no spin speed setting.
func (c *Cycle) SpinSpeed() (domain.Spin, bool) {
	if c.spinSpeed < 0 {
		return 0, false
	}
	return c.spec.SpinSpeeds[c.spinSpeed], true
}

// TemperatureSetting returns the temperature options and selection.
func (c *Cycle) TemperatureSetting() domain.SettingSnapshot[domain.Temperature] {
	return domain.SettingSnapshot[domain.Temperature]{
		Options:  slices.Clone(c.spec.Temperatures),
		Selected: c.temperature,
	}
}

// SpinSpeedSetting returns the spin speed options and selection.
func (c *Cycle) SpinSpeedSetting() domain.SettingSnapshot[domain.Spin] {
	return domain.SettingSnapshot[domain.Spin]{
		Options:  slices.Clone(c.spec.SpinSpeeds),
		Selected: c.spinSpeed,
	}
}

// PreWash returns the pre-wash toggle, or nil when the cycle is not
// pre-wash capable.
func (c *Cycle) PreWash() *bool {
	if c.spec.PreWash == nil {
		return nil
	}
	v := c.preWash
	return &v
}

// IncreaseTemperature selects the next higher temperature. It reports
// false when the cycle has no temperature setting or is already at the
// top.
func (c *Cycle) IncreaseTemperature() bool {
	return step(&c.temperature, len(c.spec.Temperatures), 1)
}

// DecreaseTemperature selects the next lower temperature.
func (c *Cycle) DecreaseTemperature() bool {
	return step(&c.temperature, len(c.spec.Temperatures), -1)
}

// IncreaseSpinSpeed selects the next higher spin speed.
func (c *Cycle) IncreaseSpinSpeed() bool {
	return step(&c.spinSpeed, len(c.spec.SpinSpeeds), 1)
}

// DecreaseSpinSpeed selects the next lower spin speed.
func (c *Cycle) DecreaseSpinSpeed() bool {
	return step(&c.spinSpeed, len(c.spec.SpinSpeeds), -1)
}

// TogglePreWash flips the pre-wash toggle. It reports false when the
// cycle is not pre-wash capable.
func (c *Cycle) TogglePreWash() bool {
	if c.spec.PreWash == nil {
		return false
	}
	c.preWash = !c.preWash
	return true
}

func step(idx *int, n, delta int) bool {
	if *idx < 0 {
		return false
	}
	next := *idx + delta
	if next < 0 || next >= n {
		return false
	}
	*idx = next
	return true
}
