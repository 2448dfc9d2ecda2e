package application

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/laundry"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/ports"
	"github.com/ahrav/go-washer/internal/sim"
	"github.com/ahrav/go-washer/internal/spin"
	"github.com/ahrav/go-washer/internal/washcycle"
)

// BuildOptions carries the collaborators that are not part of the
// configuration.
type BuildOptions struct {
	Log logr.Logger
	// Observer is notified of cycle and phase transitions.
	Observer ports.CycleObserver
	// Scanner receives a snapshot after every tick.
	Scanner ports.StateScanner
}

// Appliance is an assembled washer together with the engine that drives
// it and the supply it is plumbed into.
type Appliance struct {
	Engine *sim.Engine
	Washer *laundry.Washer
	Mains  *electric.Mains
	Tap    *plumbing.Tap
	Sink   *plumbing.Sink
	// Order is the tick order the engine was registered with.
	Order []ports.Tickable
}

// Build assembles a fresh appliance from bp. Two appliances built from the
// same blueprint share no mutable state.
//
// The power inlet fans the mains out to the controller, heater, motor and
// pump. Liquid flows from the tap through the dispenser into the drum and
// is pumped into the sink.
func Build(bp *Blueprint, opts BuildOptions) (*Appliance, error) {
	if bp == nil || bp.Config == nil || bp.Catalog == nil {
		return nil, fmt.Errorf("incomplete blueprint: %w", domain.ErrInvalidConfiguration)
	}
	cfg := bp.Config
	log := logging.OrDiscard(opts.Log)

	clock, err := sim.NewClock(cfg.Simulation.TickPeriod, cfg.Simulation.TimeFactor)
	if err != nil {
		return nil, domain.NewConfigError("simulation", err)
	}
	engine := sim.NewEngine(clock, sim.WithLogger(log))

	power := electric.NewNetwork(log)
	liquid := plumbing.NewNetwork(log)

	mains := electric.NewMains(power, clock, cfg.Power.Mains)
	inlet := electric.NewConduit(power, clock, "power-inlet", cfg.Power.InletRating(), 4, log)
	mains.Output().ConnectTo(inlet.Input(0))

	controller, err := washcycle.NewController(power, clock, bp.Catalog.Cycles(), washcycle.ControllerConfig{
		Power:          cfg.Power.Controller,
		MeasureEvery:   cfg.Controller.MeasureEvery,
		DrainThreshold: cfg.Controller.DrainThreshold,
		Observer:       opts.Observer,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	if cfg.Cycles.Default != "" {
		if err := controller.Select(cfg.Cycles.Default); err != nil {
			return nil, domain.NewConfigError("cycles.default", err)
		}
	}

	heater := electric.NewHeater("heater", power, clock, cfg.Power.Heater, log)
	motor, err := spin.NewMotor(power, clock, spin.MotorConfig{
		ID:       "motor",
		Power:    cfg.Power.Motor,
		MaxSpeed: cfg.Power.MotorMaxSpeed,
		Log:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create motor: %w", err)
	}
	pump := plumbing.NewPump(power, liquid, clock, plumbing.PumpConfig{
		ID:    "pump",
		Power: cfg.Power.Pump,
		Rate:  cfg.Power.PumpRate,
		Log:   log,
	})

	inlet.Output(0).ConnectTo(controller.PowerInlet().Port())
	inlet.Output(1).ConnectTo(heater.Inlet().Port())
	inlet.Output(2).ConnectTo(motor.PowerInlet().Port())
	inlet.Output(3).ConnectTo(pump.PowerInlet().Port())

	dispenser, err := buildDispenser(liquid, clock, cfg, log)
	if err != nil {
		return nil, err
	}

	drum, err := laundry.NewDrum(liquid, heater, laundry.DrumConfig{
		Capacity:            cfg.Drum.Capacity,
		IntakeRate:          cfg.Drum.IntakeRate,
		OutputRate:          cfg.Drum.OutputRate,
		CentrifugeThreshold: cfg.Drum.CentrifugeThreshold,
		ResoakFactor:        cfg.Drum.ResoakFactor,
		LowerSoakRatio:      cfg.Drum.LowerSoakRatio,
		UpperSoakRatio:      cfg.Drum.UpperSoakRatio,
		ExtractionRate:      cfg.Drum.ExtractionRate,
		Clock:               clock,
		Log:                 log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create drum: %w", err)
	}

	tap := plumbing.NewTap(liquid, clock, cfg.Supply.WaterRate, cfg.Supply.WaterTemperature)
	sink := plumbing.NewSink(liquid)

	tap.Output().ConnectTo(dispenser.Input())
	dispenser.Output().ConnectTo(drum.Input())
	drum.Output().ConnectTo(pump.Input())
	pump.Output().ConnectTo(sink.Input())

	washer, err := laundry.NewWasher(engine, laundry.Parts{
		Controller: controller,
		Dispenser:  dispenser,
		Drum:       drum,
		Motor:      motor,
		Pump:       pump,
	}, laundry.WasherOptions{
		DoorSafeLevel:       cfg.Safety.DoorSafeLevel,
		SettleDelay:         cfg.Safety.SettleDelay,
		ThermostatTolerance: cfg.Safety.ThermostatTolerance,
		Log:                 log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create washer: %w", err)
	}
	if opts.Scanner != nil {
		washer.SetScanner(opts.Scanner)
	}

	order, err := tickOrder(controller, washer, dispenser, heater, motor, pump, washer.Scanning())
	if err != nil {
		return nil, fmt.Errorf("failed to order components: %w", err)
	}
	if err := engine.Register(order...); err != nil {
		return nil, fmt.Errorf("failed to register components: %w", err)
	}

	log.V(logging.VERBOSE).Info("Assembled appliance",
		"cycles", len(bp.Catalog.Names()), "tickPeriod", cfg.Simulation.TickPeriod, "timeFactor", cfg.Simulation.TimeFactor)

	return &Appliance{
		Engine: engine,
		Washer: washer,
		Mains:  mains,
		Tap:    tap,
		Sink:   sink,
		Order:  order,
	}, nil
}

func buildDispenser(liquid *plumbing.Network, clock *sim.Clock, cfg *WasherConfig, log logr.Logger) (*laundry.Dispenser, error) {
	slots := make([]laundry.SlotConfig, len(cfg.Dispenser.Slots))
	for i, s := range cfg.Dispenser.Slots {
		slots[i] = laundry.SlotConfig{ID: s.ID, Capacity: s.Capacity}
	}
	dispenser, err := laundry.NewDispenser(liquid, clock, laundry.DispenserConfig{
		Rate:  cfg.Dispenser.Rate,
		Slots: slots,
		Log:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispenser: %w", err)
	}

	for _, s := range cfg.Dispenser.Slots {
		if s.Prefill == nil {
			continue
		}
		additive, ok := domain.LookupAdditive(s.Prefill.Additive)
		if !ok {
			return nil, domain.NewConfigError("dispenser.slots.prefill", fmt.Errorf("unknown additive %q: %w", s.Prefill.Additive, domain.ErrInvalidConfiguration))
		}
		if _, err := dispenser.FillSlot(s.ID, domain.NewSubstance(additive, s.Prefill.Amount, cfg.Supply.WaterTemperature)); err != nil {
			return nil, fmt.Errorf("failed to prefill slot %s: %w", s.ID, err)
		}
	}
	return dispenser, nil
}

// tickOrder sorts the components so that the controller issues its
// commands before anything acts on them, the washer's side sequence runs
// before the devices, and the scanner observes the settled state last.
func tickOrder(controller, washer, dispenser, heater, motor, pump, scanner ports.Tickable) ([]ports.Tickable, error) {
	g := NewTickGraph()
	for _, t := range []ports.Tickable{controller, washer, dispenser, heater, motor, pump, scanner} {
		if err := g.AddNode(t); err != nil {
			return nil, err
		}
	}

	edges := [][2]ports.Tickable{
		{controller, washer},
		{washer, dispenser},
		{washer, heater},
		{washer, motor},
		{washer, pump},
		{dispenser, scanner},
		{heater, scanner},
		{motor, scanner},
		{pump, scanner},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0].ID(), e[1].ID()); err != nil {
			return nil, err
		}
	}
	return g.TopologicalSort()
}
