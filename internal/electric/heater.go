package electric

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/ports"
)

var _ ports.Switchable = (*Heater)(nil)

// Heater turns electrical energy into heat in the substance it is attached
// to.
type Heater struct {
	id      string
	power   domain.Power
	inlet   *Inlet
	log     logr.Logger
	running bool
	heated  *domain.Substance
}

// NewHeater creates a heater rated for power.
func NewHeater(id string, net *Network, clock FlowIDs, power domain.Power, log logr.Logger) *Heater {
	return &Heater{
		id:    id,
		power: power,
		inlet: NewInlet(net, clock, power),
		log:   logging.OrDiscard(log).WithName(id),
	}
}

// ID implements ports.Tickable.
func (h *Heater) ID() string { return h.id }

// Power returns the rated power.
func (h *Heater) Power() domain.Power { return h.power }

// Inlet returns the power inlet.
func (h *Heater) Inlet() *Inlet { return h.inlet }

// Attach sets the substance the heater heats.
func (h *Heater) Attach(s *domain.Substance) { h.heated = s }

// Start switches the heater on.
func (h *Heater) Start() {
	if !h.running {
		h.running = true
		h.log.V(logging.DEBUG).Info("Heater on")
	}
}

// Stop switches the heater off.
func (h *Heater) Stop() {
	if h.running {
		h.running = false
		h.log.V(logging.DEBUG).Info("Heater off")
	}
}

// Running reports whether the heater is on.
func (h *Heater) Running() bool { return h.running }

// Tick draws rated energy and heats the attached substance with whatever
// was delivered.
func (h *Heater) Tick(dt time.Duration) {
	if !h.running {
		return
	}
	got := h.inlet.Draw(h.power.Over(dt), dt)
	if h.heated != nil {
		h.heated.Heat(got)
	}
}
