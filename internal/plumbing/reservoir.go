package plumbing

import (
	"time"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/flow"
)

// Reservoir is a bounded store of substance with one inlet and one outlet.
//
// Pushing stores at most the input rate's share of the current tick and
// never more than the available headroom, and reports exactly the amount
// stored as consumed. Pulling is limited by the output rate's share of the
// tick and by what is stored. Direct Store and Take calls bypass the rates.
type Reservoir struct {
	rateTable
	capacity domain.Volume
	stored   *domain.Substance
	in       InPort
	out      OutPort
	onPush   func()
	onPull   func()

	// Per-tick accounting; nil without a clock, in which case every call
	// is limited on its own.
	inBudget  *flow.Budget[domain.Volume]
	outBudget *flow.Budget[domain.Volume]
}

// ReservoirConfig describes a reservoir.
type ReservoirConfig struct {
	Capacity   domain.Volume
	InputRate  domain.VolumeRate
	OutputRate domain.VolumeRate
	// Initial is copied into the reservoir, clipped to Capacity.
	Initial *domain.Substance
	// Clock, when set, makes the rates a budget shared by every push or
	// pull within one tick.
	Clock flow.TickCounter
}

// NewReservoir registers a reservoir on net.
func NewReservoir(net *Network, cfg ReservoirConfig) *Reservoir {
	r := &Reservoir{
		rateTable: rateTable{MaxIn: domain.Volume(cfg.InputRate), MaxOut: domain.Volume(cfg.OutputRate)},
		capacity:  cfg.Capacity,
		stored:    &domain.Substance{},
	}
	if cfg.Clock != nil {
		r.inBudget = flow.NewBudget[domain.Volume](cfg.Clock)
		r.outBudget = flow.NewBudget[domain.Volume](cfg.Clock)
	}
	if cfg.Initial != nil {
		r.Store(cfg.Initial.Clone())
	}
	r.in = net.NewDrainPort(r)
	r.out = net.NewSourcePort(r)
	return r
}

// Input returns the inlet port.
func (r *Reservoir) Input() InPort { return r.in }

// Output returns the outlet port.
func (r *Reservoir) Output() OutPort { return r.out }

// Capacity returns the reservoir capacity.
func (r *Reservoir) Capacity() domain.Volume { return r.capacity }

// Stored returns the live stored mixture. Callers outside the driver must
// not retain it.
func (r *Reservoir) Stored() *domain.Substance { return r.stored }

// StoredAmount returns the stored volume.
func (r *Reservoir) StoredAmount() domain.Volume { return r.stored.Amount() }

// Headroom returns how much more the reservoir can hold.
func (r *Reservoir) Headroom() domain.Volume { return max(0, r.capacity-r.stored.Amount()) }

// OnPush registers fn to run after every push that stored something.
func (r *Reservoir) OnPush(fn func()) { r.onPush = fn }

// OnPull registers fn to run before every pull.
func (r *Reservoir) OnPull(fn func()) { r.onPull = fn }

// Store moves as much of s into the reservoir as fits and returns the
// amount stored. What does not fit stays in s.
func (r *Reservoir) Store(s *domain.Substance) domain.Volume {
	room := r.Headroom()
	if room <= 0 || s.Amount() <= 0 {
		return 0
	}
	part := s.Extract(room)
	r.stored.Add(part)
	return part.Amount()
}

// Take removes up to amount from the reservoir.
func (r *Reservoir) Take(amount domain.Volume) *domain.Substance {
	return r.stored.Extract(amount)
}

// Drain empties the reservoir.
func (r *Reservoir) Drain() *domain.Substance { return r.stored.ExtractAll() }

// PushFlow implements flow.Drain. The pushed mixture is not modified.
func (r *Reservoir) PushFlow(f *domain.Substance, timeFrame time.Duration, _ int64) domain.Volume {
	allowed := take(r.inBudget, flow.Limit(r.MaxIn, timeFrame), min(f.Amount(), r.Headroom()))
	if allowed <= 0 {
		r.RecordIn(0, timeFrame)
		return 0
	}
	stored := r.Store(f.Clone().Extract(allowed))
	refund(r.inBudget, allowed-stored)
	r.RecordIn(stored, timeFrame)
	if stored > 0 && r.onPush != nil {
		r.onPush()
	}
	return stored
}

// PullFlow implements flow.Source.
func (r *Reservoir) PullFlow(amount domain.Volume, timeFrame time.Duration, _ int64) (*domain.Substance, bool) {
	if r.onPull != nil {
		r.onPull()
	}
	limit := take(r.outBudget, flow.Limit(r.MaxOut, timeFrame), min(amount, r.StoredAmount()))
	got := r.Take(limit)
	refund(r.outBudget, limit-got.Amount())
	r.RecordOut(got.Amount(), timeFrame)
	return got, got.Amount() > 0
}

func take(b *flow.Budget[domain.Volume], limit, want domain.Volume) domain.Volume {
	if b == nil {
		return max(0, min(limit, want))
	}
	return b.Take(limit, want)
}

func refund(b *flow.Budget[domain.Volume], amount domain.Volume) {
	if b != nil && amount > 0 {
		b.Refund(amount)
	}
}

var _ flow.Conduit[domain.Volume, *domain.Substance] = (*Reservoir)(nil)
