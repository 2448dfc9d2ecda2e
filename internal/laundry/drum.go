// Package laundry assembles the appliance proper: the drum holding the
// load, the slotted additive dispenser and the washer that wires them to
// the cycle controller behind a set of user intents.
package laundry

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/flow"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/plumbing"
	"github.com/ahrav/go-washer/internal/spin"
)

// DrumConfig describes the drum and its wash physics.
type DrumConfig struct {
	Capacity   domain.Volume
	IntakeRate domain.VolumeRate
	OutputRate domain.VolumeRate
	// CentrifugeThreshold separates agitation, where the load is washed,
	// from centrifuging, where soaked liquid is only extracted.
	CentrifugeThreshold domain.Spin
	ResoakFactor        float64
	// LowerSoakRatio and UpperSoakRatio bound the soak ratio band mapped
	// onto the soak coefficient [0, 1].
	LowerSoakRatio float64
	UpperSoakRatio float64
	// ExtractionRate is the fraction of soaked liquid released per second
	// when spinning far above the centrifuge threshold.
	ExtractionRate float64
	// Clock makes the intake and output rates per-tick budgets.
	Clock flow.TickCounter
	Log   logr.Logger
}

var _ spin.Spinnable = (*Drum)(nil)

// Drum is a bounded liquid reservoir holding the load and a heater. Every
// push into the drum soaks the load. Spinning below the centrifuge
// threshold washes the load; above it the spin is banked and the load is
// wrung out when the drain path next pulls from the drum.
type Drum struct {
	*plumbing.Reservoir
	cfg     DrumConfig
	heater  *electric.Heater
	laundry []*domain.Body
	log     logr.Logger

	// Share of soaked liquid the centrifuge has loosened since the last
	// pull, in [0, 1].
	loosened float64
}

// NewDrum registers a drum on net. The heater is attached to the drum's
// stored liquid.
func NewDrum(net *plumbing.Network, heater *electric.Heater, cfg DrumConfig) (*Drum, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("drum capacity %v: %w", cfg.Capacity, domain.ErrInvalidConfiguration)
	}
	if cfg.CentrifugeThreshold <= 0 {
		return nil, fmt.Errorf("drum centrifuge threshold %v: %w", cfg.CentrifugeThreshold, domain.ErrInvalidConfiguration)
	}
	if cfg.UpperSoakRatio <= cfg.LowerSoakRatio {
		return nil, fmt.Errorf("drum soak band [%v, %v]: %w", cfg.LowerSoakRatio, cfg.UpperSoakRatio, domain.ErrInvalidConfiguration)
	}
	d := &Drum{
		Reservoir: plumbing.NewReservoir(net, plumbing.ReservoirConfig{
			Capacity:   cfg.Capacity,
			InputRate:  cfg.IntakeRate,
			OutputRate: cfg.OutputRate,
			Clock:      cfg.Clock,
		}),
		cfg:    cfg,
		heater: heater,
		log:    logging.OrDiscard(cfg.Log).WithName("drum"),
	}
	if heater != nil {
		heater.Attach(d.Stored())
	}
	d.OnPush(d.soak)
	d.OnPull(d.wring)
	return d, nil
}

// Heater returns the drum heater.
func (d *Drum) Heater() *electric.Heater { return d.heater }

// ExcessLiquid is the liquid in the drum not held by the load.
func (d *Drum) ExcessLiquid() domain.Volume { return d.StoredAmount() }

// LiquidTemperature returns the temperature of the excess liquid.
func (d *Drum) LiquidTemperature() (domain.Temperature, bool) {
	if d.Stored().IsEmpty() {
		return 0, false
	}
	return d.Stored().Temperature()
}

// Laundry returns the current load.
func (d *Drum) Laundry() []*domain.Body { return slices.Clone(d.laundry) }

// Load adds items to the drum. Nothing is loaded when the load would
// exceed the drum capacity. Items already in the drum are ignored.
func (d *Drum) Load(items ...*domain.Body) bool {
	fresh := make([]*domain.Body, 0, len(items))
	for _, b := range items {
		if b != nil && !slices.Contains(d.laundry, b) && !slices.Contains(fresh, b) {
			fresh = append(fresh, b)
		}
	}
	if domain.TotalVolume(d.laundry)+domain.TotalVolume(fresh) > d.Capacity() {
		d.log.V(logging.DEBUG).Info("Load rejected", "items", len(fresh), "capacity", d.Capacity())
		return false
	}
	d.laundry = append(d.laundry, fresh...)
	return true
}

// Unload removes the given items and returns how many were in the drum.
func (d *Drum) Unload(items ...*domain.Body) int {
	before := len(d.laundry)
	d.laundry = slices.DeleteFunc(d.laundry, func(b *domain.Body) bool {
		return slices.Contains(items, b)
	})
	return before - len(d.laundry)
}

// UnloadAll empties the drum and returns the whole load.
func (d *Drum) UnloadAll() []*domain.Body {
	out := d.laundry
	d.laundry = nil
	return out
}

func (d *Drum) soak() {
	for _, b := range d.laundry {
		b.Soak(d.Stored())
	}
}

// Spin implements spin.Spinnable. Up to the centrifuge threshold the load
// is washed. Above it nothing moves until the drain path pulls; see wring.
func (d *Drum) Spin(_ domain.SpinDirection, speed domain.Spin, duration time.Duration) {
	seconds := duration.Seconds()
	if speed > d.cfg.CentrifugeThreshold {
		step := d.cfg.ExtractionRate * (1 - float64(d.cfg.CentrifugeThreshold/speed)) * seconds
		d.loosened = domain.Clamp(d.loosened+step, 0, 1)
		return
	}
	// Nothing drained it, so loosened liquid falls back into the load.
	d.loosened = 0
	for _, b := range d.laundry {
		d.wash(b, speed, seconds)
	}
}

func (d *Drum) wash(b *domain.Body, speed domain.Spin, seconds float64) {
	effectiveness := domain.Clamp(1-float64(speed/d.cfg.CentrifugeThreshold), 0, 1)

	if b.Soakable() {
		resoak := domain.Volume(float64(min(b.SoakedAmount(), d.ExcessLiquid())) * d.cfg.ResoakFactor * effectiveness)
		b.ResoakWith(d.Stored(), resoak)

		diff := b.SoakedFresheningPotential() - b.Freshness()
		step := diff / 10 * effectiveness * seconds
		if diff >= 0 {
			step = min(step, diff)
		} else {
			step = max(step, diff)
		}
		b.Freshen(step)
	}

	power := d.cleaningPower(b) * effectiveness
	cleared := b.ClearStain(domain.Volume(float64(b.StainAmount()) * power * seconds))
	d.Stored().Add(cleared)
}

// cleaningPower is the liquid's cleaning power scaled by how soaked the
// body is and by the liquid temperature.
func (d *Drum) cleaningPower(b *domain.Body) float64 {
	if b.Soakable() {
		soak := domain.Clamp((b.SoakRatio()-d.cfg.LowerSoakRatio)/(d.cfg.UpperSoakRatio-d.cfg.LowerSoakRatio), 0, 1)
		t, _ := b.SoakedTemperature()
		return b.SoakedCleaningPower() * soak * temperatureCoefficient(t)
	}
	t, _ := d.Stored().Temperature()
	return d.Stored().CleaningPower() * temperatureCoefficient(t)
}

func temperatureCoefficient(t domain.Temperature) float64 {
	return domain.Clamp(float64(t)/100, 0, 1)
}

// wring runs before every pull from the drum. It moves the liquid the
// centrifuge loosened out of the load into the drum so the pull can carry
// it away.
func (d *Drum) wring() {
	fraction := d.loosened
	d.loosened = 0
	if fraction <= 0 {
		return
	}
	for _, b := range d.laundry {
		d.extract(b, fraction)
	}
}

// extract moves fraction of b's soaked liquid into the drum. Liquid that
// does not fit stays in the body.
func (d *Drum) extract(b *domain.Body, fraction float64) {
	if !b.Soakable() || b.SoakedAmount() <= 0 {
		return
	}
	released := b.ReleaseSoaked(domain.Volume(float64(b.SoakedAmount()) * fraction))
	d.Store(released)
	if !released.IsEmpty() {
		b.Soak(released)
	}
}
