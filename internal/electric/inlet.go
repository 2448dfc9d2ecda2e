package electric

import (
	"time"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/flow"
)

// Inlet is the single power inlet of an electrical consumer. It pulls
// energy from whatever source its port is connected to; consumers never
// fan in from more than one source.
type Inlet struct {
	rateTable
	port  InPort
	clock FlowIDs

	last     domain.Energy
	consumed domain.Energy
}

// NewInlet registers an inlet rated for power on net.
func NewInlet(net *Network, clock FlowIDs, power domain.Power) *Inlet {
	in := &Inlet{
		rateTable: rateTable{MaxIn: domain.Energy(power)},
		clock:     clock,
	}
	in.port = net.NewDrainPort(in)
	return in
}

// Port returns the inlet's port for wiring.
func (in *Inlet) Port() InPort { return in.port }

// Draw pulls up to amount of energy for timeFrame from the connected
// source and returns what was delivered. A disconnected inlet delivers
// nothing.
func (in *Inlet) Draw(amount domain.Energy, timeFrame time.Duration) domain.Energy {
	in.last = 0
	if amount <= 0 {
		return 0
	}
	src, ok := in.port.Upstream()
	if !ok {
		in.RecordIn(0, timeFrame)
		return 0
	}
	p, ok := src.PullFlow(amount, timeFrame, in.clock.NextFlowID())
	if !ok {
		in.RecordIn(0, timeFrame)
		return 0
	}
	got := min(p.Amount(), amount)
	in.last = got
	in.consumed += got
	in.RecordIn(got, timeFrame)
	return got
}

// PushFlow implements flow.Drain. A consumer burns whatever is pushed into
// it.
func (in *Inlet) PushFlow(p Packet, timeFrame time.Duration, _ int64) domain.Energy {
	in.consumed += p.Amount()
	in.RecordIn(p.Amount(), timeFrame)
	return p.Amount()
}

// LastDraw returns the energy delivered by the most recent Draw.
func (in *Inlet) LastDraw() domain.Energy { return in.last }

// Consumed returns all energy delivered to the inlet so far.
func (in *Inlet) Consumed() domain.Energy { return in.consumed }

var _ flow.Drain[domain.Energy, Packet] = (*Inlet)(nil)
