// Package electric specializes the flow graph for electrical energy: the
// mains supply, the fan-out conduit, and the consumers drawing from it.
package electric

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/flow"
)

// Packet is a quantity of energy delivered by one pull.
type Packet domain.Energy

// Amount implements flow.Flowable.
func (p Packet) Amount() domain.Energy { return domain.Energy(p) }

// Network, port and conduit types for the energy commodity.
type (
	Network   = flow.Network[domain.Energy, Packet]
	Source    = flow.Source[domain.Energy, Packet]
	Drain     = flow.Drain[domain.Energy, Packet]
	InPort    = flow.DrainPort[domain.Energy, Packet]
	OutPort   = flow.SourcePort[domain.Energy, Packet]
	Conduit   = flow.Junction[domain.Energy, Packet]
	rateTable = flow.Rates[domain.Energy]
)

// NewNetwork creates the energy network.
func NewNetwork(log logr.Logger) *Network {
	return flow.NewNetwork[domain.Energy, Packet]("power", log)
}

// FlowIDs hands out flow identifiers.
type FlowIDs interface {
	NextFlowID() int64
}

// Clock is the part of the simulation context electrical devices use.
type Clock interface {
	flow.TickCounter
	FlowIDs
}

// NewConduit creates a fan-out conduit with a single inlet and outputs
// outlets sharing rate.
func NewConduit(net *Network, clock flow.TickCounter, name string, rate domain.Power, outputs int, log logr.Logger) *Conduit {
	return flow.NewJunction(net, clock, flow.JunctionConfig[domain.Energy, Packet]{
		Name:    name,
		Rate:    domain.Energy(rate),
		Inputs:  1,
		Outputs: outputs,
		Join:    func(a, b Packet) Packet { return a + b },
		Split: func(p Packet, amount domain.Energy) (Packet, Packet) {
			part := min(p, Packet(amount))
			return part, p - part
		},
		Log: log,
	})
}

// Mains is the household supply. Availability scales what it can deliver,
// which lets a caller simulate brown-outs or a cut.
type Mains struct {
	rateTable
	out          OutPort
	budget       *flow.Budget[domain.Energy]
	availability float64
}

// NewMains creates a supply delivering up to rate.
func NewMains(net *Network, clock flow.TickCounter, rate domain.Power) *Mains {
	m := &Mains{
		rateTable:    rateTable{MaxOut: domain.Energy(rate)},
		budget:       flow.NewBudget[domain.Energy](clock),
		availability: 1,
	}
	m.out = net.NewSourcePort(m)
	return m
}

// Output returns the supply's outlet.
func (m *Mains) Output() OutPort { return m.out }

// SetAvailability sets the fraction of rated supply available, clamped to
// [0, 1].
func (m *Mains) SetAvailability(a float64) { m.availability = domain.Clamp(a, 0, 1) }

// Availability returns the fraction of rated supply available.
func (m *Mains) Availability() float64 { return m.availability }

// PullFlow implements flow.Source.
func (m *Mains) PullFlow(amount domain.Energy, timeFrame time.Duration, _ int64) (Packet, bool) {
	limit := domain.Energy(float64(flow.Limit(m.MaxOut, timeFrame)) * m.availability)
	got := m.budget.Take(limit, amount)
	m.RecordOut(got, timeFrame)
	return Packet(got), got > 0
}
