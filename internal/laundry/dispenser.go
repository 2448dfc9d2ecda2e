package laundry

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/flow"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/ports"
)

// Clock is what the dispenser needs from the simulation context.
type Clock interface {
	flow.TickCounter
	electric.FlowIDs
}

// SlotConfig describes one tray slot.
type SlotConfig struct {
	ID       domain.SlotID
	Capacity domain.Volume
}

// DispenserConfig describes a dispenser.
type DispenserConfig struct {
	ID string
	// Rate bounds both the water intake and the flush of each channel.
	Rate  domain.VolumeRate
	Slots []SlotConfig
	Log   logr.Logger
}

// Slot is an additive compartment of the tray.
type Slot struct {
	*plumbing.Reservoir
	id domain.SlotID
}

// ID returns the slot identifier.
func (s *Slot) ID() domain.SlotID { return s.id }

// Tray is the removable drawer holding the slots.
type Tray struct {
	slots []*Slot
}

// Slot returns the slot with the given id.
func (t *Tray) Slot(id domain.SlotID) (*Slot, bool) {
	for _, s := range t.slots {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// Slots returns the slots in tray order.
func (t *Tray) Slots() []*Slot { return t.slots }

// Empty drains every slot and returns the combined contents.
func (t *Tray) Empty() *domain.Substance {
	out := &domain.Substance{}
	for _, s := range t.slots {
		out.Add(s.Drain())
	}
	return out
}

// channel binds one slot to the solvent stream. While dispensing, each
// tick it pulls water from the solvent input, flushes the slot with it and
// pushes the mixture towards the drum.
type channel struct {
	rateTable
	slot       *Slot
	water      plumbing.InPort
	additive   plumbing.InPort
	out        plumbing.OutPort
	dispensing bool
}

type rateTable = flow.Rates[domain.Volume]

// PushFlow implements flow.Drain. Channels pull their inputs themselves.
func (c *channel) PushFlow(*domain.Substance, time.Duration, int64) domain.Volume { return 0 }

// PullFlow implements flow.Source. Channels push their output themselves.
func (c *channel) PullFlow(domain.Volume, time.Duration, int64) (*domain.Substance, bool) {
	return nil, false
}

// refreshTrayConnections plugs the channel into its slot while the tray is
// inserted and unplugs it while the tray is out.
func (c *channel) refreshTrayConnections(trayIn bool) {
	if trayIn {
		c.additive.ConnectTo(c.slot.Output())
		return
	}
	c.additive.Disconnect()
}

func (c *channel) flush(dt time.Duration, flowID int64) domain.Volume {
	budget := domain.Volume(float64(c.MaxOut) * dt.Seconds())
	mix := &domain.Substance{}
	if src, ok := c.additive.Upstream(); ok {
		if f, ok := src.PullFlow(budget, dt, flowID); ok {
			mix.Add(f)
		}
	}
	if src, ok := c.water.Upstream(); ok && budget > mix.Amount() {
		if f, ok := src.PullFlow(budget-mix.Amount(), dt, flowID); ok {
			mix.Add(f)
		}
	}
	if mix.IsEmpty() {
		c.RecordOut(0, dt)
		return 0
	}

	var pushed domain.Volume
	if dst, ok := c.out.Downstream(); ok {
		pushed = dst.PushFlow(mix, dt, flowID)
	}
	// What the drum refused goes back to the slot.
	mix.Extract(pushed)
	c.slot.Store(mix)
	c.RecordOut(pushed, dt)
	return pushed
}

var (
	_ ports.Tickable                                 = (*Dispenser)(nil)
	_ flow.Conduit[domain.Volume, *domain.Substance] = (*channel)(nil)
)

// Dispenser is the slotted additive dispenser. Water enters through a
// solvent input junction that fans out to one channel per slot; the
// channels merge into a solvent output junction feeding the drum.
type Dispenser struct {
	id       string
	clock    Clock
	log      logr.Logger
	tray     *Tray
	input    *plumbing.Conduit
	output   *plumbing.Conduit
	channels []*channel
	trayOpen bool
}

// NewDispenser registers a dispenser and its tray on net. The tray starts
// inserted.
func NewDispenser(net *plumbing.Network, clock Clock, cfg DispenserConfig) (*Dispenser, error) {
	if len(cfg.Slots) == 0 {
		return nil, fmt.Errorf("dispenser needs at least one slot: %w", domain.ErrInvalidConfiguration)
	}
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("dispenser rate %v: %w", cfg.Rate, domain.ErrInvalidConfiguration)
	}
	if cfg.ID == "" {
		cfg.ID = "dispenser"
	}
	log := logging.OrDiscard(cfg.Log).WithName(cfg.ID)
	n := len(cfg.Slots)
	d := &Dispenser{
		id:     cfg.ID,
		clock:  clock,
		log:    log,
		tray:   &Tray{},
		input:  plumbing.NewConduit(net, clock, "solvent-input", cfg.Rate, 1, n, log),
		output: plumbing.NewConduit(net, clock, "solvent-output", cfg.Rate, n, 1, log),
	}
	for i, sc := range cfg.Slots {
		if _, dup := d.tray.Slot(sc.ID); dup {
			return nil, fmt.Errorf("dispenser slot %q declared twice: %w", sc.ID, domain.ErrInvalidConfiguration)
		}
		if sc.Capacity <= 0 {
			return nil, fmt.Errorf("dispenser slot %q capacity %v: %w", sc.ID, sc.Capacity, domain.ErrInvalidConfiguration)
		}
		slot := &Slot{
			id: sc.ID,
			Reservoir: plumbing.NewReservoir(net, plumbing.ReservoirConfig{
				Capacity:   sc.Capacity,
				InputRate:  cfg.Rate,
				OutputRate: cfg.Rate,
				Clock:      clock,
			}),
		}
		d.tray.slots = append(d.tray.slots, slot)

		ch := &channel{
			rateTable: rateTable{MaxIn: domain.Volume(cfg.Rate), MaxOut: domain.Volume(cfg.Rate)},
			slot:      slot,
		}
		ch.water = net.NewDrainPort(ch)
		ch.additive = net.NewDrainPort(ch)
		ch.out = net.NewSourcePort(ch)
		ch.water.ConnectTo(d.input.Output(i))
		ch.out.ConnectTo(d.output.Input(i))
		d.channels = append(d.channels, ch)
	}
	d.refreshTrayConnections()
	return d, nil
}

// ID implements ports.Tickable.
func (d *Dispenser) ID() string { return d.id }

// Input returns the water inlet.
func (d *Dispenser) Input() plumbing.InPort { return d.input.Input(0) }

// Output returns the outlet towards the drum.
func (d *Dispenser) Output() plumbing.OutPort { return d.output.Output(0) }

// Tray returns the tray.
func (d *Dispenser) Tray() *Tray { return d.tray }

// TrayOpen reports whether the tray is pulled out.
func (d *Dispenser) TrayOpen() bool { return d.trayOpen }

// OpenTray pulls the tray out. Every channel is halted and unplugged.
func (d *Dispenser) OpenTray() bool {
	if d.trayOpen {
		return false
	}
	d.HaltAll()
	d.trayOpen = true
	d.refreshTrayConnections()
	return true
}

// CloseTray inserts the tray and plugs the channels back in.
func (d *Dispenser) CloseTray() bool {
	if !d.trayOpen {
		return false
	}
	d.trayOpen = false
	d.refreshTrayConnections()
	return true
}

func (d *Dispenser) refreshTrayConnections() {
	for _, ch := range d.channels {
		ch.refreshTrayConnections(!d.trayOpen)
	}
}

func (d *Dispenser) channel(slot domain.SlotID) (*channel, bool) {
	for _, ch := range d.channels {
		if ch.slot.id == slot {
			return ch, true
		}
	}
	return nil, false
}

// Dispense routes the slot's channel into the solvent stream. It fails
// for an unknown slot or while the tray is out.
func (d *Dispenser) Dispense(slot domain.SlotID) bool {
	ch, ok := d.channel(slot)
	if !ok || d.trayOpen {
		return false
	}
	if !ch.dispensing {
		ch.dispensing = true
		d.log.V(logging.DEBUG).Info("Dispensing", "slot", slot)
	}
	return true
}

// Halt stops the slot's channel.
func (d *Dispenser) Halt(slot domain.SlotID) bool {
	ch, ok := d.channel(slot)
	if !ok {
		return false
	}
	if ch.dispensing {
		ch.dispensing = false
		d.log.V(logging.DEBUG).Info("Dispensing halted", "slot", slot)
	}
	return true
}

// HaltAll stops every channel.
func (d *Dispenser) HaltAll() {
	for _, ch := range d.channels {
		d.Halt(ch.slot.id)
	}
}

// Dispensing reports whether the slot's channel is active.
func (d *Dispenser) Dispensing(slot domain.SlotID) bool {
	ch, ok := d.channel(slot)
	return ok && ch.dispensing
}

// Tick flushes every active channel.
func (d *Dispenser) Tick(dt time.Duration) {
	if d.trayOpen {
		return
	}
	for _, ch := range d.channels {
		if ch.dispensing {
			ch.flush(dt, d.clock.NextFlowID())
		}
	}
}

// FillSlot pours s into a slot. What does not fit stays in s. Filling is
// rejected for an unknown slot or a slot already at capacity.
func (d *Dispenser) FillSlot(id domain.SlotID, s *domain.Substance) (domain.Volume, error) {
	slot, ok := d.tray.Slot(id)
	if !ok {
		return 0, fmt.Errorf("slot %q: %w", id, domain.ErrUnknownSlot)
	}
	if slot.Headroom().IsNegligible() {
		return 0, nil
	}
	return slot.Store(s), nil
}

// EmptySlot removes up to amount from a slot. Emptying is rejected for an
// unknown slot and yields nothing for an empty one.
func (d *Dispenser) EmptySlot(id domain.SlotID, amount domain.Volume) (*domain.Substance, error) {
	slot, ok := d.tray.Slot(id)
	if !ok {
		return nil, fmt.Errorf("slot %q: %w", id, domain.ErrUnknownSlot)
	}
	return slot.Take(amount), nil
}

// Snapshot returns the tray state.
func (d *Dispenser) Snapshot() domain.TraySnapshot {
	snap := domain.TraySnapshot{Open: d.trayOpen, Slots: make([]domain.SlotSnapshot, 0, len(d.tray.slots))}
	for _, s := range d.tray.slots {
		ss := domain.SlotSnapshot{ID: s.id, Amount: s.StoredAmount(), Capacity: s.Capacity()}
		if p, ok := s.Stored().LargestPart(); ok {
			ss.Additive = p.Type.Name
		}
		snap.Slots = append(snap.Slots, ss)
	}
	return snap
}
