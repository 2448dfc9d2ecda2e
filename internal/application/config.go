// Package application loads the appliance configuration and assembles the
// simulated washer from it: power and liquid networks, devices, the cycle
// controller and the order in which the engine ticks them.
package application

import (
	"time"

	"github.com/ahrav/go-washer/internal/domain"
)

// WasherConfig represents the complete YAML configuration of a simulated
// appliance. Every value is fixed at construction time; only the time
// factor may be changed afterwards through the washer's intents.
type WasherConfig struct {
	// Version specifies the configuration schema version for compatibility
	// checking. Must follow semantic versioning format (e.g., "1.0.0").
	Version string `yaml:"version" validate:"required,semver"`

	// Simulation holds the logical clock settings.
	Simulation SimulationConfig `yaml:"simulation"`

	// Supply describes the water tap feeding the dispenser.
	Supply SupplyConfig `yaml:"supply"`

	// Power holds the mains rating and the rating of every consumer on the
	// power inlet.
	Power PowerConfig `yaml:"power"`

	// Drum holds the drum dimensions and wash physics.
	Drum DrumConfig `yaml:"drum"`

	// Dispenser describes the additive tray.
	Dispenser DispenserConfig `yaml:"dispenser"`

	// Controller holds the cycle controller's polling and drain settings.
	Controller ControllerConfig `yaml:"controller"`

	// Safety holds the door interlock and thermostat settings.
	Safety SafetyConfig `yaml:"safety"`

	// Cycles selects the cycle catalog and the cycle selected at power-up.
	Cycles CyclesConfig `yaml:"cycles,omitempty"`
}

// SimulationConfig holds the logical clock settings.
type SimulationConfig struct {
	// TickPeriod is the simulated time covered by one tick at time factor 1.
	TickPeriod time.Duration `yaml:"tick_period" validate:"gt=0"`

	// TimeFactor is the initial speed multiplier.
	TimeFactor float64 `yaml:"time_factor" validate:"gt=0"`
}

// SupplyConfig describes the water tap.
type SupplyConfig struct {
	// WaterRate is the most water the tap delivers per second.
	WaterRate domain.VolumeRate `yaml:"water_rate" validate:"gt=0"`

	// WaterTemperature is the temperature of tap water in °C.
	WaterTemperature domain.Temperature `yaml:"water_temperature" validate:"gte=0,lte=100"`
}

// PowerConfig holds electrical ratings in watts. The power inlet that fans
// the mains out to the consumers is rated at the sum of their ratings.
type PowerConfig struct {
	Mains      domain.Power `yaml:"mains" validate:"gt=0"`
	Controller domain.Power `yaml:"controller" validate:"gt=0"`
	Heater     domain.Power `yaml:"heater" validate:"gt=0"`
	Motor      domain.Power `yaml:"motor" validate:"gt=0"`
	Pump       domain.Power `yaml:"pump" validate:"gt=0"`

	// MotorMaxSpeed bounds the motor speed setting, in rpm.
	MotorMaxSpeed domain.Spin `yaml:"motor_max_speed" validate:"gt=0"`

	// PumpRate is the drain pump throughput at full power, in L/s.
	PumpRate domain.VolumeRate `yaml:"pump_rate" validate:"gt=0"`
}

// InletRating returns the rating of the power inlet conduit.
func (p PowerConfig) InletRating() domain.Power {
	return p.Controller + p.Heater + p.Motor + p.Pump
}

// DrumConfig holds the drum dimensions and wash physics.
type DrumConfig struct {
	// Capacity bounds both the stored liquid and the dry volume of the load.
	Capacity domain.Volume `yaml:"capacity" validate:"gt=0"`

	IntakeRate domain.VolumeRate `yaml:"intake_rate" validate:"gt=0"`
	OutputRate domain.VolumeRate `yaml:"output_rate" validate:"gt=0"`

	// CentrifugeThreshold is the speed in rpm above which the drum only
	// extracts liquid from the load.
	CentrifugeThreshold domain.Spin `yaml:"centrifuge_threshold" validate:"gt=0"`

	ResoakFactor float64 `yaml:"resoak_factor" validate:"gte=0,lte=1"`

	// LowerSoakRatio and UpperSoakRatio bound the soak ratio band in which
	// a wetter load cleans better.
	LowerSoakRatio float64 `yaml:"lower_soak_ratio" validate:"gte=0"`
	UpperSoakRatio float64 `yaml:"upper_soak_ratio" validate:"gtfield=LowerSoakRatio"`

	// ExtractionRate is the fraction of soaked liquid released per second
	// when centrifuging far above the threshold.
	ExtractionRate float64 `yaml:"extraction_rate" validate:"gte=0,lte=1"`
}

// DispenserConfig describes the additive tray.
type DispenserConfig struct {
	// Rate is the throughput of each dispensing channel, in L/s.
	Rate  domain.VolumeRate `yaml:"rate" validate:"gt=0"`
	Slots []SlotConfig      `yaml:"slots" validate:"required,min=1,dive"`
}

// SlotConfig describes one tray slot.
type SlotConfig struct {
	ID       domain.SlotID `yaml:"id" validate:"required,slotid"`
	Capacity domain.Volume `yaml:"capacity" validate:"gt=0"`

	// Prefill optionally pours an additive into the slot at assembly.
	Prefill *PrefillConfig `yaml:"prefill,omitempty"`
}

// PrefillConfig names an additive from the substance catalog and the
// amount poured.
type PrefillConfig struct {
	Additive string        `yaml:"additive" validate:"required,additive"`
	Amount   domain.Volume `yaml:"amount" validate:"gt=0"`
}

// ControllerConfig holds cycle controller settings.
type ControllerConfig struct {
	// MeasureEvery is how often a fill or drain wait polls the liquid level.
	MeasureEvery time.Duration `yaml:"measure_every" validate:"gt=0"`

	// DrainThreshold is the excess liquid below which a drain phase is
	// skipped.
	DrainThreshold domain.Volume `yaml:"drain_threshold" validate:"gte=0"`
}

// SafetyConfig holds the door interlock and thermostat settings.
type SafetyConfig struct {
	// DoorSafeLevel is the excess liquid below which the door may unlock.
	DoorSafeLevel domain.Volume `yaml:"door_safe_level" validate:"gt=0"`

	// SettleDelay is waited before and after the safety drain and before
	// unlocking a paused washer.
	SettleDelay time.Duration `yaml:"settle_delay" validate:"gte=0"`

	// ThermostatTolerance is how far the liquid may cool below the set
	// temperature before the heater restarts.
	ThermostatTolerance domain.Temperature `yaml:"thermostat_tolerance" validate:"gt=0"`
}

// CyclesConfig selects the cycle catalog.
type CyclesConfig struct {
	// Catalog is the path of a cycle catalog YAML file. Relative paths
	// resolve against the directory of the configuration file. The
	// built-in catalog is used when empty.
	Catalog string `yaml:"catalog,omitempty"`

	// Default names the cycle selected at power-up. Matching ignores case.
	Default string `yaml:"default,omitempty"`
}

// DefaultConfig returns the configuration of a typical household
// front-loader.
func DefaultConfig() *WasherConfig {
	return &WasherConfig{
		Version: "1.0.0",
		Simulation: SimulationConfig{
			TickPeriod: 100 * time.Millisecond,
			TimeFactor: 1,
		},
		Supply: SupplyConfig{
			WaterRate:        0.3,
			WaterTemperature: 15,
		},
		Power: PowerConfig{
			Mains:         10_000,
			Controller:    5,
			Heater:        2_000,
			Motor:         500,
			Pump:          100,
			MotorMaxSpeed: 1_400,
			PumpRate:      0.5,
		},
		Drum: DrumConfig{
			Capacity:            60,
			IntakeRate:          0.5,
			OutputRate:          0.5,
			CentrifugeThreshold: 400,
			ResoakFactor:        0.1,
			LowerSoakRatio:      0.2,
			UpperSoakRatio:      1,
			ExtractionRate:      0.05,
		},
		Dispenser: DispenserConfig{
			Rate: 0.5,
			Slots: []SlotConfig{
				{ID: domain.SlotPreWash, Capacity: 0.2},
				{ID: domain.SlotMainDetergent, Capacity: 0.3},
				{ID: domain.SlotMainSoftener, Capacity: 0.2},
			},
		},
		Controller: ControllerConfig{
			MeasureEvery:   time.Second,
			DrainThreshold: 1,
		},
		Safety: SafetyConfig{
			DoorSafeLevel:       1,
			SettleDelay:         2 * time.Second,
			ThermostatTolerance: 5,
		},
	}
}

// Clone returns a deep copy of c.
func (c *WasherConfig) Clone() *WasherConfig {
	out := *c
	out.Dispenser.Slots = make([]SlotConfig, len(c.Dispenser.Slots))
	for i, s := range c.Dispenser.Slots {
		if s.Prefill != nil {
			p := *s.Prefill
			s.Prefill = &p
		}
		out.Dispenser.Slots[i] = s
	}
	return &out
}
