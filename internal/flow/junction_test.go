package flow

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Conduit[amount, amount] = (*Junction[amount, amount])(nil)

func joinAmounts(a, b amount) amount { return a + b }

func splitAmount(f amount, n amount) (amount, amount) {
	part := min(f, n)
	return part, f - part
}

// sink absorbs up to capacity in total.
type sink struct {
	Rates[amount]
	in       DrainPort[amount, amount]
	capacity amount
	stored   amount
}

func (s *sink) PushFlow(f amount, timeFrame time.Duration, _ int64) amount {
	c := min(f, s.capacity-s.stored)
	s.stored += c
	s.RecordIn(c, timeFrame)
	return c
}

func newJunction(t *testing.T, clock *fakeClock, rate amount, inputs, outputs int) (*Network[amount, amount], *Junction[amount, amount]) {
	t.Helper()
	net := NewNetwork[amount, amount]("test", logr.Discard())
	j := NewJunction(net, clock, JunctionConfig[amount, amount]{
		Name:    "junction",
		Rate:    rate,
		Inputs:  inputs,
		Outputs: outputs,
		Join:    joinAmounts,
		Split:   splitAmount,
	})
	return net, j
}

func TestJunction_PullFansInAcrossInputs(t *testing.T) {
	clock := &fakeClock{tick: 1}
	net, j := newJunction(t, clock, 100, 2, 1)

	first := &stubSource{Rates: Rates[amount]{MaxOut: 3}}
	first.out = net.NewSourcePort(first)
	second := &stubSource{Rates: Rates[amount]{MaxOut: 10}}
	second.out = net.NewSourcePort(second)
	first.out.ConnectTo(j.Input(0))
	second.out.ConnectTo(j.Input(1))

	got, ok := j.PullFlow(8, time.Second, 1)
	require.True(t, ok)
	assert.Equal(t, amount(8), got, "3 from the first input and 5 from the second")
}

func TestJunction_PullSharesRateBudgetWithinTick(t *testing.T) {
	clock := &fakeClock{tick: 1}
	net, j := newJunction(t, clock, 10, 1, 2)
	src := &stubSource{Rates: Rates[amount]{MaxOut: 100}}
	src.out = net.NewSourcePort(src)
	src.out.ConnectTo(j.Input(0))

	got, ok := j.PullFlow(7, time.Second, 1)
	require.True(t, ok)
	assert.Equal(t, amount(7), got)

	got, ok = j.PullFlow(7, time.Second, 2)
	require.True(t, ok)
	assert.Equal(t, amount(3), got, "second outlet only gets what is left of the tick budget")

	_, ok = j.PullFlow(7, time.Second, 3)
	assert.False(t, ok)

	clock.tick++
	got, ok = j.PullFlow(7, time.Second, 4)
	require.True(t, ok)
	assert.Equal(t, amount(7), got)
}

func TestJunction_PullWithoutUpstreamYieldsNothing(t *testing.T) {
	_, j := newJunction(t, &fakeClock{tick: 1}, 10, 1, 1)

	_, ok := j.PullFlow(5, time.Second, 1)
	assert.False(t, ok)
}

func TestJunction_PushForwardsToOutputsInOrder(t *testing.T) {
	clock := &fakeClock{tick: 1}
	net, j := newJunction(t, clock, 100, 1, 2)
	small := &sink{capacity: 4}
	small.in = net.NewDrainPort(small)
	large := &sink{capacity: 100}
	large.in = net.NewDrainPort(large)
	j.Output(0).ConnectTo(small.in)
	j.Output(1).ConnectTo(large.in)

	consumed := j.PushFlow(10, time.Second, 1)

	assert.Equal(t, amount(10), consumed)
	assert.Equal(t, amount(4), small.stored)
	assert.Equal(t, amount(6), large.stored)
}

func TestJunction_PushReportsOnlyAbsorbed(t *testing.T) {
	clock := &fakeClock{tick: 1}
	net, j := newJunction(t, clock, 5, 1, 1)
	s := &sink{capacity: 3}
	s.in = net.NewDrainPort(s)
	j.Output(0).ConnectTo(s.in)

	assert.Equal(t, amount(3), j.PushFlow(10, time.Second, 1))
	assert.Equal(t, amount(3), j.RealInputFlowRate())
}
