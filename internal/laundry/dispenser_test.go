package laundry

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/sim"
)

type dispenserRig struct {
	engine    *sim.Engine
	dispenser *Dispenser
	target    *plumbing.Reservoir
}

func newDispenserRig(t *testing.T) *dispenserRig {
	t.Helper()
	clock, err := sim.NewClock(time.Second, 1)
	require.NoError(t, err)
	net := plumbing.NewNetwork(logr.Discard())

	tap := plumbing.NewTap(net, clock, 2, 20)
	d, err := NewDispenser(net, clock, DispenserConfig{
		Rate: 1,
		Slots: []SlotConfig{
			{ID: domain.SlotMainDetergent, Capacity: 0.3},
			{ID: domain.SlotMainSoftener, Capacity: 0.2},
		},
	})
	require.NoError(t, err)
	target := plumbing.NewReservoir(net, plumbing.ReservoirConfig{Capacity: 50, InputRate: 10, OutputRate: 10})
	tap.Output().ConnectTo(d.Input())
	d.Output().ConnectTo(target.Input())

	engine := sim.NewEngine(clock)
	require.NoError(t, engine.Register(d))
	return &dispenserRig{engine: engine, dispenser: d, target: target}
}

func TestNewDispenser_Validation(t *testing.T) {
	clock, err := sim.NewClock(time.Second, 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  DispenserConfig
	}{
		{"no slots", DispenserConfig{Rate: 1}},
		{"no rate", DispenserConfig{Slots: []SlotConfig{{ID: domain.SlotPreWash, Capacity: 1}}}},
		{"duplicate slot", DispenserConfig{Rate: 1, Slots: []SlotConfig{
			{ID: domain.SlotPreWash, Capacity: 1}, {ID: domain.SlotPreWash, Capacity: 1},
		}}},
		{"empty slot", DispenserConfig{Rate: 1, Slots: []SlotConfig{{ID: domain.SlotPreWash}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispenser(plumbing.NewNetwork(logr.Discard()), clock, tt.cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestDispenser_FlushesSlotWithWater(t *testing.T) {
	r := newDispenserRig(t)
	d := r.dispenser
	_, err := d.FillSlot(domain.SlotMainDetergent, domain.NewSubstance(domain.BasicDetergent, 0.3, 20))
	require.NoError(t, err)

	require.True(t, d.Dispense(domain.SlotMainDetergent))
	assert.True(t, d.Dispensing(domain.SlotMainDetergent))
	r.engine.Step()

	stored := r.target.Stored()
	assert.InDelta(t, 1, float64(stored.Amount()), 1e-9, "channel rate bounds the mixture")
	assert.InDelta(t, 0.3, float64(stored.AmountOf(domain.BasicDetergent.Name)), 1e-9)
	assert.InDelta(t, 0.7, float64(stored.AmountOf(domain.Water.Name)), 1e-9)

	r.engine.Step()
	assert.InDelta(t, 2, float64(r.target.StoredAmount()), 1e-9)

	require.True(t, d.Halt(domain.SlotMainDetergent))
	r.engine.Step()
	assert.InDelta(t, 2, float64(r.target.StoredAmount()), 1e-9)
}

func TestDispenser_ChannelsShareTheIntake(t *testing.T) {
	r := newDispenserRig(t)
	d := r.dispenser
	require.True(t, d.Dispense(domain.SlotMainDetergent))
	require.True(t, d.Dispense(domain.SlotMainSoftener))

	r.engine.Step()
	assert.InDelta(t, 1, float64(r.target.StoredAmount()), 1e-9, "the solvent input junction is shared")
}

func TestDispenser_OpenTrayDetachesChannels(t *testing.T) {
	r := newDispenserRig(t)
	d := r.dispenser
	slot, ok := d.Tray().Slot(domain.SlotMainDetergent)
	require.True(t, ok)
	require.True(t, slot.Output().IsConnected())

	require.True(t, d.Dispense(domain.SlotMainDetergent))
	require.True(t, d.OpenTray())
	assert.False(t, d.Dispensing(domain.SlotMainDetergent), "opening halts every channel")
	assert.False(t, slot.Output().IsConnected())
	assert.False(t, d.Dispense(domain.SlotMainDetergent))
	r.engine.Step()
	assert.Zero(t, r.target.StoredAmount())

	require.True(t, d.CloseTray())
	assert.False(t, d.CloseTray())
	assert.True(t, slot.Output().IsConnected())
	assert.False(t, d.Dispense("bleach"))
}

func TestDispenser_Slots(t *testing.T) {
	r := newDispenserRig(t)
	d := r.dispenser

	_, err := d.FillSlot("bleach", domain.NewSubstance(domain.BasicDetergent, 1, 20))
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)
	_, err = d.EmptySlot("bleach", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)

	softener := domain.NewSubstance(domain.StrongSoftener, 1, 20)
	stored, err := d.FillSlot(domain.SlotMainSoftener, softener)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, float64(stored), 1e-9)
	stored, err = d.FillSlot(domain.SlotMainSoftener, softener)
	require.NoError(t, err)
	assert.Zero(t, stored, "slot already full")

	snap := d.Snapshot()
	require.Len(t, snap.Slots, 2)
	assert.Equal(t, domain.StrongSoftener.Name, snap.Slots[1].Additive)
	assert.Empty(t, snap.Slots[0].Additive)

	emptied := d.Tray().Empty()
	assert.InDelta(t, 0.2, float64(emptied.Amount()), 1e-9)
}
