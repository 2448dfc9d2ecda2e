package plumbing

import (
	"time"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/flow"
)

// Tap is the household water supply. It delivers unlimited water at a fixed
// temperature, limited only by its rate.
type Tap struct {
	rateTable
	out         OutPort
	budget      *flow.Budget[domain.Volume]
	temperature domain.Temperature
	open        bool
}

// NewTap registers a tap delivering water at rate and temperature.
func NewTap(net *Network, clock flow.TickCounter, rate domain.VolumeRate, temperature domain.Temperature) *Tap {
	t := &Tap{
		rateTable:   rateTable{MaxOut: domain.Volume(rate)},
		budget:      flow.NewBudget[domain.Volume](clock),
		temperature: temperature,
		open:        true,
	}
	t.out = net.NewSourcePort(t)
	return t
}

// Output returns the tap's outlet.
func (t *Tap) Output() OutPort { return t.out }

// SetOpen opens or closes the main valve.
func (t *Tap) SetOpen(open bool) { t.open = open }

// Open reports whether the main valve is open.
func (t *Tap) Open() bool { return t.open }

// PullFlow implements flow.Source.
func (t *Tap) PullFlow(amount domain.Volume, timeFrame time.Duration, _ int64) (*domain.Substance, bool) {
	if !t.open {
		t.RecordOut(0, timeFrame)
		return nil, false
	}
	got := t.budget.Take(flow.Limit(t.MaxOut, timeFrame), amount)
	t.RecordOut(got, timeFrame)
	if got <= 0 {
		return nil, false
	}
	return domain.NewSubstance(domain.Water, got, t.temperature), true
}

// Sink is the sewer. It absorbs everything pushed into it and keeps a
// record of the total.
type Sink struct {
	rateTable
	in       InPort
	received *domain.Substance
}

// NewSink registers a sink.
func NewSink(net *Network) *Sink {
	s := &Sink{received: &domain.Substance{}}
	s.in = net.NewDrainPort(s)
	return s
}

// Input returns the sink inlet.
func (s *Sink) Input() InPort { return s.in }

// Received returns a copy of everything drained so far.
func (s *Sink) Received() *domain.Substance { return s.received.Clone() }

// ReceivedAmount returns the total drained volume.
func (s *Sink) ReceivedAmount() domain.Volume { return s.received.Amount() }

// PushFlow implements flow.Drain.
func (s *Sink) PushFlow(f *domain.Substance, timeFrame time.Duration, _ int64) domain.Volume {
	s.received.Add(f)
	s.RecordIn(f.Amount(), timeFrame)
	return f.Amount()
}

var (
	_ flow.Source[domain.Volume, *domain.Substance] = (*Tap)(nil)
	_ flow.Drain[domain.Volume, *domain.Substance]  = (*Sink)(nil)
)
