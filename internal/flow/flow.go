// Package flow implements the generic flow graph shared by every commodity
// the appliance moves around: typed source and drain ports, symmetric
// connections between them, and the pull/push exchange performed once per
// tick.
package flow

import "time"

// Flowable is a quantity of some commodity produced by a single pull or
// offered by a single push.
type Flowable[U ~float64] interface {
	// Amount returns the size of the quantity in the commodity's unit.
	Amount() U
}

// Source produces a commodity for connected drains.
// Rates are expressed in U per second.
type Source[U ~float64, F Flowable[U]] interface {
	// MaxOutputFlowRate is the most the source can produce per second.
	MaxOutputFlowRate() U

	// RealOutputFlowRate is the rate the source produced at during the last
	// tick it was pulled from.
	RealOutputFlowRate() U

	// PullFlow is called by a connected drain at most once per tick. It
	// returns at most min(amount, MaxOutputFlowRate × timeFrame). The
	// boolean is false when nothing could be produced (disconnected or
	// exhausted). flowID is an opaque identifier used only for diagnostics.
	PullFlow(amount U, timeFrame time.Duration, flowID int64) (F, bool)
}

// Drain absorbs a commodity from connected sources.
type Drain[U ~float64, F Flowable[U]] interface {
	// MaxInputFlowRate is the most the drain can absorb per second.
	MaxInputFlowRate() U

	// RealInputFlowRate is the rate the drain absorbed at during the last
	// tick it was pushed to.
	RealInputFlowRate() U

	// PushFlow offers flowable to the drain and returns exactly how much it
	// absorbed, which may be less than offered.
	PushFlow(flowable F, timeFrame time.Duration, flowID int64) U
}

// Conduit is both a drain and a source, passing the commodity through.
type Conduit[U ~float64, F Flowable[U]] interface {
	Source[U, F]
	Drain[U, F]
}

// Rates implements the rate accessors of Source and Drain for embedding.
// Real rates are updated by the owner through Record.
type Rates[U ~float64] struct {
	MaxIn, MaxOut   U
	realIn, realOut U
}

// MaxInputFlowRate implements Drain.
func (r *Rates[U]) MaxInputFlowRate() U { return r.MaxIn }

// MaxOutputFlowRate implements Source.
func (r *Rates[U]) MaxOutputFlowRate() U { return r.MaxOut }

// RealInputFlowRate implements Drain.
func (r *Rates[U]) RealInputFlowRate() U { return r.realIn }

// RealOutputFlowRate implements Source.
func (r *Rates[U]) RealOutputFlowRate() U { return r.realOut }

// RecordIn stores the real input rate for amount moved in timeFrame.
func (r *Rates[U]) RecordIn(amount U, timeFrame time.Duration) {
	r.realIn = perSecond(amount, timeFrame)
}

// RecordOut stores the real output rate for amount moved in timeFrame.
func (r *Rates[U]) RecordOut(amount U, timeFrame time.Duration) {
	r.realOut = perSecond(amount, timeFrame)
}

// Limit returns the most a rate allows during timeFrame.
func Limit[U ~float64](rate U, timeFrame time.Duration) U {
	return U(float64(rate) * timeFrame.Seconds())
}

func perSecond[U ~float64](amount U, timeFrame time.Duration) U {
	if timeFrame <= 0 {
		return 0
	}
	return U(float64(amount) / timeFrame.Seconds())
}
