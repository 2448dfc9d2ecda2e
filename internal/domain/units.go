// Package domain contains pure, dependency-free value types for the
// washing appliance simulation: physical units, substance mixtures, fabric
// bodies and the read-only appliance snapshot.
package domain

import (
	"math"
	"time"
)

// Energy is an amount of electrical energy in joules.
type Energy float64

// Power is an energy flow rate in watts (joules per second).
type Power float64

// Volume is an amount of substance in liters.
type Volume float64

// VolumeRate is a substance flow rate in liters per second.
type VolumeRate float64

// Temperature is measured in degrees Celsius.
type Temperature float64

// Spin is a rotational speed in revolutions per minute.
type Spin float64

// Milliliters converts a milliliter count into a Volume.
func Milliliters(ml float64) Volume { return Volume(ml / 1000) }

// Over returns the energy delivered by p during d.
func (p Power) Over(d time.Duration) Energy { return Energy(float64(p) * d.Seconds()) }

// Over returns the volume moved by r during d.
func (r VolumeRate) Over(d time.Duration) Volume { return Volume(float64(r) * d.Seconds()) }

// negligibleVolume is the level below which a volume is treated as empty.
const negligibleVolume Volume = 0.001

// IsNegligible reports whether v is small enough to be treated as empty.
func (v Volume) IsNegligible() bool { return v < negligibleVolume }

// SpinDirection is the rotation sense of a motor or drum.
type SpinDirection int

const (
	// SpinPositive rotates clockwise when viewed from the door.
	SpinPositive SpinDirection = iota
	// SpinNegative rotates counter-clockwise.
	SpinNegative
)

// String returns the human-readable name of the direction.
func (d SpinDirection) String() string {
	if d == SpinNegative {
		return "negative"
	}
	return "positive"
}

// Reverse returns the opposite direction.
func (d SpinDirection) Reverse() SpinDirection {
	if d == SpinNegative {
		return SpinPositive
	}
	return SpinNegative
}

// Clamp limits v to [lo, hi]. It never fails; NaN saturates to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
