package plumbing

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/flow"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/ports"
)

var _ ports.Switchable = (*Pump)(nil)

// Pump is an electrical device that moves liquid from its inlet to its
// outlet. Its throughput degrades in proportion to any energy shortfall.
type Pump struct {
	rateTable
	id      string
	power   domain.Power
	rate    domain.VolumeRate
	inlet   *electric.Inlet
	clock   electric.FlowIDs
	log     logr.Logger
	running bool

	in  InPort
	out OutPort

	pumped domain.Volume
}

// PumpConfig describes a pump.
type PumpConfig struct {
	ID    string
	Power domain.Power
	Rate  domain.VolumeRate
	Log   logr.Logger
}

// NewPump registers a pump on both networks.
func NewPump(power *electric.Network, liquid *Network, clock electric.FlowIDs, cfg PumpConfig) *Pump {
	p := &Pump{
		rateTable: rateTable{MaxIn: domain.Volume(cfg.Rate), MaxOut: domain.Volume(cfg.Rate)},
		id:        cfg.ID,
		power:     cfg.Power,
		rate:      cfg.Rate,
		inlet:     electric.NewInlet(power, clock, cfg.Power),
		clock:     clock,
		log:       logging.OrDiscard(cfg.Log).WithName(cfg.ID),
	}
	p.in = liquid.NewDrainPort(p)
	p.out = liquid.NewSourcePort(p)
	return p
}

// ID implements ports.Tickable.
func (p *Pump) ID() string { return p.id }

// Power returns the rated power.
func (p *Pump) Power() domain.Power { return p.power }

// PowerInlet returns the electrical inlet.
func (p *Pump) PowerInlet() *electric.Inlet { return p.inlet }

// Input returns the liquid inlet port.
func (p *Pump) Input() InPort { return p.in }

// Output returns the liquid outlet port.
func (p *Pump) Output() OutPort { return p.out }

// Pumped returns the total volume moved.
func (p *Pump) Pumped() domain.Volume { return p.pumped }

// Start switches the pump on.
func (p *Pump) Start() {
	if !p.running {
		p.running = true
		p.log.V(logging.DEBUG).Info("Pump on")
	}
}

// Stop switches the pump off.
func (p *Pump) Stop() {
	if p.running {
		p.running = false
		p.log.V(logging.DEBUG).Info("Pump off")
	}
}

// Running reports whether the pump is on.
func (p *Pump) Running() bool { return p.running }

// Tick pulls liquid from upstream and pushes it downstream, scaled by the
// fraction of required energy that was delivered.
func (p *Pump) Tick(dt time.Duration) {
	if !p.running {
		return
	}
	required := p.power.Over(dt)
	if required <= 0 {
		return
	}
	ratio := float64(p.inlet.Draw(required, dt) / required)
	if ratio <= 0 {
		return
	}

	dst, ok := p.out.Downstream()
	if !ok {
		return
	}
	src, ok := p.in.Upstream()
	if !ok {
		return
	}

	id := p.clock.NextFlowID()
	want := domain.Volume(float64(p.rate.Over(dt)) * ratio)
	liquid, ok := src.PullFlow(want, dt, id)
	if !ok {
		return
	}
	moved := dst.PushFlow(liquid, dt, id)
	p.pumped += moved
	p.RecordOut(moved, dt)
	if moved >= liquid.Amount() {
		return
	}
	liquid.Extract(moved)
	returned := domain.Volume(0)
	if back, ok := src.(storer); ok {
		returned = back.Store(liquid)
	}
	p.log.V(logging.DEBUG).Info("Pump outlet refused liquid",
		"flowID", id, "returned", returned, "spilled", liquid.Amount())
}

// storer is a source that can take back liquid the pump could not deliver.
type storer interface {
	Store(s *domain.Substance) domain.Volume
}

// PullFlow implements flow.Source. A pump only moves liquid on its own
// tick, so pulls through it yield nothing.
func (p *Pump) PullFlow(domain.Volume, time.Duration, int64) (*domain.Substance, bool) {
	return nil, false
}

// PushFlow implements flow.Drain by forwarding to the outlet while the
// pump is running.
func (p *Pump) PushFlow(f *domain.Substance, timeFrame time.Duration, flowID int64) domain.Volume {
	if !p.running {
		return 0
	}
	dst, ok := p.out.Downstream()
	if !ok {
		return 0
	}
	moved := dst.PushFlow(f, timeFrame, flowID)
	p.RecordIn(moved, timeFrame)
	return moved
}

var _ flow.Conduit[domain.Volume, *domain.Substance] = (*Pump)(nil)
