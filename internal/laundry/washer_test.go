package laundry

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/sim"
	"github.com/ahrav/go-washer/internal/spin"
	"github.com/ahrav/go-washer/internal/testutils"
	"github.com/ahrav/go-washer/internal/washcycle"
)

type rig struct {
	engine *sim.Engine
	washer *Washer
	sink   *plumbing.Sink
}

func rigCycle() washcycle.CycleSpec {
	return washcycle.CycleSpec{
		Name:               "short",
		Temperatures:       []domain.Temperature{30, 40},
		DefaultTemperature: 1,
		SpinSpeeds:         []domain.Spin{400, 800},
		DefaultSpinSpeed:   1,
		Stages: []washcycle.StageSpec{
			{Name: "main wash", Phases: []washcycle.PhaseSpec{
				{Kind: domain.PhaseFill, Slot: domain.SlotMainDetergent, Amount: 4},
				{Kind: domain.PhaseWash, Duration: 30 * time.Second, SpinPeriod: 10 * time.Second, RestPeriod: 5 * time.Second, SpinSpeed: 50, Heat: true},
				{Kind: domain.PhaseDrain},
			}},
			{Name: "spin", Phases: []washcycle.PhaseSpec{
				{Kind: domain.PhaseSpin, Duration: 20 * time.Second, SpinSpeed: 1000},
			}},
		},
	}
}

// newRig assembles a complete appliance fed by a 1 L/s tap and draining
// into a sink.
func newRig(t *testing.T) *rig {
	t.Helper()
	clock, err := sim.NewClock(time.Second, 1)
	require.NoError(t, err)
	engine := sim.NewEngine(clock)
	log := logging.NewTestLogger()

	power := electric.NewNetwork(logr.Discard())
	liquid := plumbing.NewNetwork(logr.Discard())

	mains := electric.NewMains(power, clock, 10_000)
	inlet := electric.NewConduit(power, clock, "power-inlet", 2_605, 4, logr.Discard())
	mains.Output().ConnectTo(inlet.Input(0))

	controller, err := washcycle.NewController(power, clock, []*washcycle.Cycle{washcycle.NewCycle(rigCycle())},
		washcycle.ControllerConfig{Power: 5, MeasureEvery: time.Second, DrainThreshold: 1, Log: log})
	require.NoError(t, err)
	heater := electric.NewHeater("heater", power, clock, 2_000, log)
	motor, err := spin.NewMotor(power, clock, spin.MotorConfig{ID: "motor", Power: 500, MaxSpeed: 1_400, Log: log})
	require.NoError(t, err)
	pump := plumbing.NewPump(power, liquid, clock, plumbing.PumpConfig{ID: "pump", Power: 100, Rate: 0.5, Log: log})

	inlet.Output(0).ConnectTo(controller.PowerInlet().Port())
	inlet.Output(1).ConnectTo(heater.Inlet().Port())
	inlet.Output(2).ConnectTo(motor.PowerInlet().Port())
	inlet.Output(3).ConnectTo(pump.PowerInlet().Port())

	tap := plumbing.NewTap(liquid, clock, 1, 15)
	dispenser, err := NewDispenser(liquid, clock, DispenserConfig{
		Rate: 1,
		Slots: []SlotConfig{
			{ID: domain.SlotPreWash, Capacity: 0.2},
			{ID: domain.SlotMainDetergent, Capacity: 0.3},
			{ID: domain.SlotMainSoftener, Capacity: 0.2},
		},
		Log: log,
	})
	require.NoError(t, err)
	drumCfg := testDrumConfig()
	drumCfg.Clock = clock
	drum, err := NewDrum(liquid, heater, drumCfg)
	require.NoError(t, err)
	sink := plumbing.NewSink(liquid)

	tap.Output().ConnectTo(dispenser.Input())
	dispenser.Output().ConnectTo(drum.Input())
	drum.Output().ConnectTo(pump.Input())
	pump.Output().ConnectTo(sink.Input())

	washer, err := NewWasher(engine, Parts{
		Controller: controller,
		Dispenser:  dispenser,
		Drum:       drum,
		Motor:      motor,
		Pump:       pump,
	}, WasherOptions{DoorSafeLevel: 1, SettleDelay: time.Second, ThermostatTolerance: 5, Log: log})
	require.NoError(t, err)
	require.NoError(t, engine.Register(controller, washer, dispenser, heater, motor, pump, washer.Scanning()))
	return &rig{engine: engine, washer: washer, sink: sink}
}

// stepUntil steps until cond holds, at most limit times.
func (r *rig) stepUntil(cond func(domain.WasherSnapshot) bool, limit int) bool {
	for range limit {
		if cond(r.washer.Snapshot()) {
			return true
		}
		r.engine.Step()
	}
	return cond(r.washer.Snapshot())
}

func inPhase(p domain.PhaseKind) func(domain.WasherSnapshot) bool {
	return func(s domain.WasherSnapshot) bool { return s.Phase == p }
}

func idle(s domain.WasherSnapshot) bool { return !s.Running && !s.Settling }

func TestNewWasher_MissingParts(t *testing.T) {
	clock, err := sim.NewClock(time.Second, 1)
	require.NoError(t, err)
	_, err = NewWasher(sim.NewEngine(clock), Parts{}, WasherOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestWasher_RunsCompleteCycle(t *testing.T) {
	r := newRig(t)
	w := r.washer
	towel := domain.NewTowel("towel", 2).WithStain(domain.NewSubstance(domain.Dirt, 0.1, 20))

	require.True(t, w.Load(towel))
	require.True(t, w.TogglePower())
	require.True(t, w.Start())
	assert.True(t, w.DoorLocked(), "door locks before the first stage")

	require.True(t, r.stepUntil(idle, 500))
	snap := w.Snapshot()
	assert.False(t, snap.DoorLocked)
	assert.Less(t, float64(snap.ExcessLiquid), 1.0)
	assert.Positive(t, float64(snap.Drained))
	assert.Positive(t, float64(snap.EnergyUsed))
	assert.Equal(t, []domain.BodyID{"towel"}, snap.Load)
	assert.Less(t, float64(towel.StainAmount()), 0.1, "some stain was washed out")
	assert.Positive(t, float64(r.sink.Received().AmountOf(domain.Dirt.Name)))
}

func TestWasher_LockedDoorRejectsLoadAndTray(t *testing.T) {
	r := newRig(t)
	w := r.washer
	sock := domain.NewSock("sock", domain.SizeM, 0.2)
	shirt := domain.NewShirt("shirt", domain.SizeL, 0.5)

	require.True(t, w.Load(sock))
	w.TogglePower()
	require.True(t, w.Start())

	assert.False(t, w.Load(shirt))
	assert.False(t, w.Unload(sock))
	assert.Nil(t, w.UnloadAll())
	assert.False(t, w.OpenDispenserTray())
	assert.Equal(t, []domain.BodyID{"sock"}, w.Snapshot().Load)
}

func TestWasher_StopDuringSpin(t *testing.T) {
	r := newRig(t)
	w := r.washer
	w.TogglePower()
	require.True(t, w.Start())
	require.True(t, r.stepUntil(inPhase(domain.PhaseSpin), 500))
	r.engine.Step()
	require.Positive(t, float64(w.Motor().CurrentSpeed()))

	require.True(t, w.Stop())
	assert.Zero(t, w.Motor().CurrentSpeed(), "motor stops within the tick")
	assert.False(t, w.Pump().Running())
	snap := w.Snapshot()
	assert.False(t, snap.Running)
	assert.True(t, snap.Settling)
	assert.True(t, snap.DoorLocked)

	assert.False(t, w.Start(), "safety sequence in flight")
	assert.False(t, w.Stop())
	assert.False(t, w.ToggleCycleRun())
	assert.False(t, w.TogglePower())

	require.True(t, r.stepUntil(idle, 200))
	snap = w.Snapshot()
	assert.False(t, snap.DoorLocked)
	assert.Less(t, float64(snap.ExcessLiquid), 1.0)
}

func TestWasher_StopDrainsBeforeUnlocking(t *testing.T) {
	r := newRig(t)
	w := r.washer
	w.TogglePower()
	w.Start()
	require.True(t, r.stepUntil(func(s domain.WasherSnapshot) bool { return s.ExcessLiquid >= 3 }, 100))

	require.True(t, w.Stop())
	for w.Snapshot().Settling {
		snap := w.Snapshot()
		if snap.ExcessLiquid >= 1 {
			require.True(t, snap.DoorLocked, "door stays locked while liquid remains")
		}
		r.engine.Step()
	}
	assert.False(t, w.DoorLocked())
	assert.Positive(t, float64(r.sink.ReceivedAmount()))
}

func TestWasher_PauseUnlocksOnlyWhenSafe(t *testing.T) {
	t.Run("little liquid", func(t *testing.T) {
		r := newRig(t)
		w := r.washer
		require.True(t, w.Load(domain.NewTowel("towel", 2)))
		w.TogglePower()
		w.Start()
		r.engine.Step()
		require.Less(t, float64(w.Drum().ExcessLiquid()), 1.0, "the towel soaks the first liter")

		require.True(t, w.ToggleCycleRun())
		snap := w.Snapshot()
		assert.True(t, snap.Paused)
		assert.True(t, snap.DoorLocked, "unlock waits for the settle delay")
		assert.False(t, w.ToggleCycleRun(), "settling")

		require.True(t, r.stepUntil(func(s domain.WasherSnapshot) bool { return !s.Settling }, 5))
		assert.False(t, w.DoorLocked())

		require.True(t, w.ToggleCycleRun())
		snap = w.Snapshot()
		assert.False(t, snap.Paused)
		assert.True(t, snap.DoorLocked, "resume locks the door again")
	})

	t.Run("unsafe level", func(t *testing.T) {
		r := newRig(t)
		w := r.washer
		w.TogglePower()
		w.Start()
		require.True(t, r.stepUntil(func(s domain.WasherSnapshot) bool { return s.ExcessLiquid >= 2 }, 50))

		require.True(t, w.ToggleCycleRun())
		level := w.Drum().ExcessLiquid()
		r.engine.StepN(10)
		snap := w.Snapshot()
		assert.True(t, snap.Paused)
		assert.True(t, snap.DoorLocked)
		assert.False(t, snap.Settling)
		assert.Equal(t, level, snap.ExcessLiquid, "dispenser halted while paused")
	})
}

func TestWasher_ResumeClosesDispenserTray(t *testing.T) {
	r := newRig(t)
	w := r.washer
	require.True(t, w.Load(domain.NewTowel("towel", 2)))
	w.TogglePower()
	w.Start()
	r.engine.Step()

	require.True(t, w.ToggleCycleRun())
	require.True(t, r.stepUntil(func(s domain.WasherSnapshot) bool { return !s.Settling }, 5))
	require.False(t, w.DoorLocked())
	require.True(t, w.OpenDispenserTray())

	require.True(t, w.ToggleCycleRun())
	assert.False(t, w.Dispenser().TrayOpen())
	assert.True(t, w.DoorLocked())
	assert.True(t, r.stepUntil(inPhase(domain.PhaseWash), 600), "the fill completes after resuming")
}

func TestWasher_SpinSpeedChangeAppliesMidSpin(t *testing.T) {
	r := newRig(t)
	w := r.washer
	w.TogglePower()
	w.Start()
	require.True(t, r.stepUntil(inPhase(domain.PhaseSpin), 500))
	require.Equal(t, domain.Spin(800), w.Motor().SpeedSetting())

	require.True(t, w.DecreaseSpinSpeed())
	assert.Equal(t, domain.Spin(400), w.Motor().SpeedSetting())
	require.True(t, w.IncreaseSpinSpeed())
	assert.Equal(t, domain.Spin(800), w.Motor().SpeedSetting())
	assert.False(t, w.IncreaseSpinSpeed(), "already at the top")
}

func TestWasher_SettingsNeedPower(t *testing.T) {
	r := newRig(t)
	w := r.washer

	assert.False(t, w.IncreaseTemperature())
	assert.False(t, w.SelectNextCycle(false))
	assert.False(t, w.Start())

	require.True(t, w.TogglePower())
	assert.False(t, w.IncreaseTemperature(), "already at the top")
	assert.True(t, w.DecreaseTemperature())
	assert.False(t, w.TogglePreWash(), "cycle has no pre-wash")
	assert.True(t, w.SelectNextCycle(false), "single cycle wraps onto itself")
	assert.ErrorIs(t, w.SelectCycle("delicates"), domain.ErrUnknownCycle)
	assert.NoError(t, w.SelectCycle("SHORT"))

	require.True(t, w.Start())
	require.True(t, w.TogglePower(), "toggling power while running stops the cycle")
	assert.True(t, w.Snapshot().PoweredOn)
	require.True(t, r.stepUntil(idle, 100))
	require.True(t, w.TogglePower())
	assert.False(t, w.Snapshot().PoweredOn)
}

func TestWasher_DispenserSlots(t *testing.T) {
	r := newRig(t)
	w := r.washer
	detergent := domain.NewSubstance(domain.BasicDetergent, 0.5, 20)

	assert.False(t, w.FillSlot(domain.SlotMainDetergent, detergent), "tray closed")
	require.True(t, w.OpenDispenserTray())
	assert.False(t, w.OpenDispenserTray())

	require.True(t, w.FillSlot(domain.SlotMainDetergent, detergent))
	assert.InDelta(t, 0.2, float64(detergent.Amount()), 1e-9, "overflow stays with the caller")
	assert.False(t, w.FillSlot(domain.SlotMainDetergent, detergent), "slot full")
	assert.False(t, w.FillSlot("bleach", detergent))

	taken := w.EmptySlot(domain.SlotMainDetergent, 0.1)
	require.NotNil(t, taken)
	assert.InDelta(t, 0.1, float64(taken.Amount()), 1e-9)
	assert.Nil(t, w.EmptySlot(domain.SlotMainSoftener, 0.1), "slot empty")

	snap := w.Snapshot()
	assert.True(t, snap.Tray.Open)
	require.Len(t, snap.Tray.Slots, 3)
	assert.Equal(t, domain.SlotMainDetergent, snap.Tray.Slots[1].ID)
	assert.Equal(t, domain.BasicDetergent.Name, snap.Tray.Slots[1].Additive)
	assert.InDelta(t, 0.2, float64(snap.Tray.Slots[1].Amount), 1e-9)

	w.TogglePower()
	require.True(t, w.Start())
	assert.False(t, w.Snapshot().Tray.Open, "starting closes the tray")
	require.True(t, r.stepUntil(inPhase(domain.PhaseWash), 50))
	assert.Positive(t, float64(w.Drum().Stored().AmountOf(domain.BasicDetergent.Name)))
	assert.True(t, w.Dispenser().Tray().Slots()[1].Stored().IsEmpty())
}

func TestWasher_ScannerAndTimeFactor(t *testing.T) {
	r := newRig(t)
	w := r.washer
	scanner := &testutils.RecordingScanner{}
	w.SetScanner(scanner)

	assert.Error(t, w.SetTimeFactor(0))
	require.NoError(t, w.SetTimeFactor(10))
	r.engine.StepN(2)

	require.Len(t, scanner.Snapshots, 2)
	last := scanner.Snapshots[1]
	assert.Equal(t, uint64(2), last.Tick)
	assert.Equal(t, 10.0, last.TimeFactor)
	assert.Equal(t, []string{"short"}, last.Cycles)
	assert.Equal(t, "short", last.Selected)
	assert.Equal(t, 50*time.Second, last.Duration)

	w.SetScanner(nil)
	r.engine.Step()
	assert.Len(t, scanner.Snapshots, 2)
}
