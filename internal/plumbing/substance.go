// Package plumbing specializes the flow graph for liquid substances:
// reservoirs, pass-through conduits, the water supply, the sewer and the
// electric pump.
package plumbing

import (
	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/flow"
)

// Network, port and conduit types for the substance commodity.
type (
	Network   = flow.Network[domain.Volume, *domain.Substance]
	Source    = flow.Source[domain.Volume, *domain.Substance]
	Drain     = flow.Drain[domain.Volume, *domain.Substance]
	InPort    = flow.DrainPort[domain.Volume, *domain.Substance]
	OutPort   = flow.SourcePort[domain.Volume, *domain.Substance]
	Conduit   = flow.Junction[domain.Volume, *domain.Substance]
	rateTable = flow.Rates[domain.Volume]
)

// NewNetwork creates the substance network.
func NewNetwork(log logr.Logger) *Network {
	return flow.NewNetwork[domain.Volume, *domain.Substance]("substance", log)
}

// NewConduit creates a pass-through conduit with the given port counts.
func NewConduit(net *Network, clock flow.TickCounter, name string, rate domain.VolumeRate, inputs, outputs int, log logr.Logger) *Conduit {
	return flow.NewJunction(net, clock, flow.JunctionConfig[domain.Volume, *domain.Substance]{
		Name:    name,
		Rate:    domain.Volume(rate),
		Inputs:  inputs,
		Outputs: outputs,
		Join:    join,
		Split:   split,
		Log:     log,
	})
}

func join(a, b *domain.Substance) *domain.Substance {
	a.Add(b)
	return a
}

func split(s *domain.Substance, amount domain.Volume) (*domain.Substance, *domain.Substance) {
	rest := s.Clone()
	part := rest.Extract(amount)
	return part, rest
}
