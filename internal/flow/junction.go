package flow

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/logging"
)

// Joiner merges the quantity b into a and returns the combined quantity.
type Joiner[F any] func(a, b F) F

// Splitter divides f into a part of at most amount and the remainder,
// without modifying f.
type Splitter[U ~float64, F any] func(f F, amount U) (part, rest F)

// Junction is the general pass-through conduit. It owns a fixed number of
// input and output ports and moves the commodity between them on demand:
// a pull on any output is served by pulling from the inputs in order, and a
// push on any input is forwarded to the outputs in order. The junction's
// rate is a per-tick budget shared by all of its ports.
type Junction[U ~float64, F Flowable[U]] struct {
	Rates[U]

	name    string
	log     logr.Logger
	budget  *Budget[U]
	inputs  []DrainPort[U, F]
	outputs []SourcePort[U, F]
	join    Joiner[F]
	split   Splitter[U, F]
}

// JunctionConfig describes a junction.
type JunctionConfig[U ~float64, F Flowable[U]] struct {
	Name    string
	Rate    U
	Inputs  int
	Outputs int
	Join    Joiner[F]
	Split   Splitter[U, F]
	Log     logr.Logger
}

// NewJunction registers a junction on net. Capacity accounting resets on
// every tick of clock.
func NewJunction[U ~float64, F Flowable[U]](
	net *Network[U, F],
	clock TickCounter,
	cfg JunctionConfig[U, F],
) *Junction[U, F] {
	j := &Junction[U, F]{
		Rates:  Rates[U]{MaxIn: cfg.Rate, MaxOut: cfg.Rate},
		name:   cfg.Name,
		log:    logging.OrDiscard(cfg.Log).WithName(cfg.Name),
		budget: NewBudget[U](clock),
		join:   cfg.Join,
		split:  cfg.Split,
	}
	for range max(cfg.Inputs, 1) {
		j.inputs = append(j.inputs, net.NewDrainPort(j))
	}
	for range max(cfg.Outputs, 1) {
		j.outputs = append(j.outputs, net.NewSourcePort(j))
	}
	return j
}

// Name returns the junction name.
func (j *Junction[U, F]) Name() string { return j.name }

// Input returns the i-th input port.
func (j *Junction[U, F]) Input(i int) DrainPort[U, F] { return j.inputs[i] }

// Output returns the i-th output port.
func (j *Junction[U, F]) Output(i int) SourcePort[U, F] { return j.outputs[i] }

// Inputs returns all input ports.
func (j *Junction[U, F]) Inputs() []DrainPort[U, F] { return j.inputs }

// Outputs returns all output ports.
func (j *Junction[U, F]) Outputs() []SourcePort[U, F] { return j.outputs }

// PullFlow implements Source by pulling from the connected inputs in order
// until amount is gathered or the tick budget is spent.
func (j *Junction[U, F]) PullFlow(amount U, timeFrame time.Duration, flowID int64) (F, bool) {
	var got F
	want := j.budget.Take(Limit(j.MaxOut, timeFrame), amount)
	if want <= 0 {
		return got, false
	}

	var gathered U
	have := false
	for _, in := range j.inputs {
		if gathered >= want {
			break
		}
		src, ok := in.Upstream()
		if !ok {
			continue
		}
		f, ok := src.PullFlow(want-gathered, timeFrame, flowID)
		if !ok || f.Amount() <= 0 {
			continue
		}
		if have {
			got = j.join(got, f)
		} else {
			got, have = f, true
		}
		gathered += f.Amount()
	}

	j.budget.Refund(want - gathered)
	j.RecordOut(gathered, timeFrame)
	if want < amount {
		j.log.V(logging.TRACE).Info("Pull clipped by rate", "flowID", flowID, "requested", amount, "granted", want)
	}
	return got, have
}

// PushFlow implements Drain by forwarding f to the connected outputs in
// order. It returns the amount the downstream drains absorbed.
func (j *Junction[U, F]) PushFlow(f F, timeFrame time.Duration, flowID int64) U {
	allowed := j.budget.Take(Limit(j.MaxIn, timeFrame), f.Amount())
	if allowed <= 0 {
		return 0
	}

	remaining, _ := j.split(f, allowed)
	var consumed U
	for _, out := range j.outputs {
		if remaining.Amount() <= 0 {
			break
		}
		dst, ok := out.Downstream()
		if !ok {
			continue
		}
		c := dst.PushFlow(remaining, timeFrame, flowID)
		if c <= 0 {
			continue
		}
		consumed += c
		_, remaining = j.split(remaining, c)
	}

	j.budget.Refund(allowed - consumed)
	j.RecordIn(consumed, timeFrame)
	return consumed
}
