package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstance_AddMixesPartsAndTemperature(t *testing.T) {
	water := NewSubstance(Water, 3, 20)
	water.Add(NewSubstance(Water, 1, 60))
	water.Add(NewSubstance(BasicDetergent, 0.5, 20))

	assert.InDelta(t, 4.5, float64(water.Amount()), 1e-9)
	assert.InDelta(t, 4.0, float64(water.AmountOf(Water.Name)), 1e-9)
	assert.Len(t, water.Parts(), 2)

	temp, ok := water.Temperature()
	require.True(t, ok)
	// (3*20 + 1*60)/4 = 30, then (4*30 + 0.5*20)/4.5.
	assert.InDelta(t, (4*30.0+0.5*20)/4.5, float64(temp), 1e-9)
}

func TestSubstance_ExtractIsProportional(t *testing.T) {
	mix := NewSubstance(Water, 8, 30)
	mix.Add(NewSubstance(BasicSoftener, 2, 30))

	out := mix.Extract(5)

	assert.InDelta(t, 5.0, float64(out.Amount()), 1e-9)
	assert.InDelta(t, 4.0, float64(out.AmountOf(Water.Name)), 1e-9)
	assert.InDelta(t, 1.0, float64(out.AmountOf(BasicSoftener.Name)), 1e-9)
	assert.InDelta(t, 5.0, float64(mix.Amount()), 1e-9)
}

func TestSubstance_ExtractClipsToStored(t *testing.T) {
	mix := NewSubstance(Water, 2, 20)

	out := mix.Extract(10)

	assert.InDelta(t, 2.0, float64(out.Amount()), 1e-9)
	assert.True(t, mix.IsEmpty())
	_, ok := mix.Temperature()
	assert.False(t, ok, "empty mixture has no temperature")
}

func TestSubstance_CleaningPowerIsWeighted(t *testing.T) {
	mix := NewSubstance(Water, float64ToVolume(15), 20)
	mix.Add(NewSubstance(BasicSoftener, 0.05, 20))

	// Nominal values are defined so that the reference dilution yields the
	// desired power.
	assert.InDelta(t, 0.0002, mix.CleaningPower(), 1e-12)
	assert.Equal(t, 0.0, (&Substance{}).CleaningPower())
}

func TestSubstance_Heat(t *testing.T) {
	mix := NewSubstance(Water, 1, 20)
	mix.Heat(Power(4186).Over(10 * time.Second))

	temp, _ := mix.Temperature()
	assert.InDelta(t, 30.0, float64(temp), 1e-9)

	empty := &Substance{}
	empty.Heat(1000)
	_, ok := empty.Temperature()
	assert.False(t, ok)
}

func TestSubstance_LargestPart(t *testing.T) {
	mix := NewSubstance(BasicDetergent, 0.1, 20)
	mix.Add(NewSubstance(Water, 0.3, 20))

	part, ok := mix.LargestPart()
	require.True(t, ok)
	assert.Equal(t, Water.Name, part.Type.Name)

	_, ok = (&Substance{}).LargestPart()
	assert.False(t, ok)
}

func TestNominalValue(t *testing.T) {
	got := NominalValue(0.0003, 0.0001, 15, 0.05)
	want := (0.0003*15.05 - 0.0001*15) / 0.05
	assert.InDelta(t, want, got, 1e-12)
}

func float64ToVolume(v float64) Volume { return Volume(v) }
