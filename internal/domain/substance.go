package domain

import "slices"

// Consistency describes how a substance pours.
type Consistency int

const (
	// ThinLiquid pours like water.
	ThinLiquid Consistency = iota
	// ThickLiquid pours like gel detergent or concentrated softener.
	ThickLiquid
)

// specificHeat is the heat capacity of one liter of any simulated liquid,
// in joules per kelvin. All mixtures are treated as water.
const specificHeat = 4186.0

// SubstanceType identifies a kind of substance and carries the properties
// the washing physics reads from it. Types are compared by Name.
type SubstanceType struct {
	// Name uniquely identifies the type within the catalog.
	Name string `yaml:"name"`
	// CleaningPower is the fraction of stain one liter of the pure type
	// clears per second.
	CleaningPower float64 `yaml:"cleaning_power"`
	// FresheningPotential is the freshness a body converges to when soaked
	// in the pure type.
	FresheningPotential float64 `yaml:"freshening_potential"`
	// Consistency determines how the type is poured.
	Consistency Consistency `yaml:"consistency"`
}

// Part is one constituent of a mixture.
type Part struct {
	Type   SubstanceType
	Amount Volume
}

// Substance is a mutable mixture of named constituents at a common
// temperature. The zero value is an empty mixture.
type Substance struct {
	parts       []Part
	temperature Temperature
}

// NewSubstance returns a mixture containing amount of a single type.
func NewSubstance(t SubstanceType, amount Volume, temperature Temperature) *Substance {
	s := &Substance{temperature: temperature}
	if amount > 0 {
		s.parts = []Part{{Type: t, Amount: amount}}
	}
	return s
}

// Amount returns the total volume of all parts.
func (s *Substance) Amount() Volume {
	if s == nil {
		return 0
	}
	var total Volume
	for _, p := range s.parts {
		total += p.Amount
	}
	return total
}

// IsEmpty reports whether the mixture holds a negligible volume.
func (s *Substance) IsEmpty() bool { return s.Amount().IsNegligible() }

// Parts returns a copy of the mixture's constituents in insertion order.
func (s *Substance) Parts() []Part {
	if s == nil {
		return nil
	}
	return slices.Clone(s.parts)
}

// AmountOf returns how much of the named type the mixture contains.
func (s *Substance) AmountOf(name string) Volume {
	if s == nil {
		return 0
	}
	for _, p := range s.parts {
		if p.Type.Name == name {
			return p.Amount
		}
	}
	return 0
}

// Temperature returns the mixture temperature. The second result is false
// when the mixture is empty and so has no meaningful temperature.
func (s *Substance) Temperature() (Temperature, bool) {
	if s == nil || s.Amount() <= 0 {
		return 0, false
	}
	return s.temperature, true
}

// SetTemperature overrides the mixture temperature.
func (s *Substance) SetTemperature(t Temperature) { s.temperature = t }

// Heat raises the temperature of the mixture by the given energy. Empty
// mixtures absorb nothing.
func (s *Substance) Heat(e Energy) {
	amount := s.Amount()
	if amount <= 0 {
		return
	}
	s.temperature += Temperature(float64(e) / (specificHeat * float64(amount)))
}

// Add pours other into s. The resulting temperature is the amount-weighted
// mean of both. other is left untouched.
func (s *Substance) Add(other *Substance) {
	addAmount := other.Amount()
	if addAmount <= 0 {
		return
	}
	own := s.Amount()
	if own <= 0 {
		s.temperature = other.temperature
	} else {
		s.temperature = Temperature(
			(float64(s.temperature)*float64(own) + float64(other.temperature)*float64(addAmount)) /
				float64(own+addAmount))
	}
	for _, op := range other.parts {
		if op.Amount <= 0 {
			continue
		}
		idx := slices.IndexFunc(s.parts, func(p Part) bool { return p.Type.Name == op.Type.Name })
		if idx < 0 {
			s.parts = append(s.parts, op)
			continue
		}
		s.parts[idx].Amount += op.Amount
	}
}

// Extract removes up to amount from the mixture, proportionally across all
// parts, and returns what was removed. Requests beyond the stored amount
// are clipped.
func (s *Substance) Extract(amount Volume) *Substance {
	out := &Substance{temperature: s.temperature}
	total := s.Amount()
	if amount <= 0 || total <= 0 {
		return out
	}
	if amount >= total {
		return s.ExtractAll()
	}
	ratio := float64(amount / total)
	kept := s.parts[:0]
	for _, p := range s.parts {
		taken := Volume(float64(p.Amount) * ratio)
		out.parts = append(out.parts, Part{Type: p.Type, Amount: taken})
		p.Amount -= taken
		if p.Amount > 0 {
			kept = append(kept, p)
		}
	}
	s.parts = kept
	return out
}

// ExtractAll empties the mixture and returns its former contents.
func (s *Substance) ExtractAll() *Substance {
	out := &Substance{parts: s.parts, temperature: s.temperature}
	s.parts = nil
	return out
}

// Clone returns an independent copy of the mixture.
func (s *Substance) Clone() *Substance {
	if s == nil {
		return &Substance{}
	}
	return &Substance{parts: slices.Clone(s.parts), temperature: s.temperature}
}

// LargestPart returns the constituent with the greatest amount.
func (s *Substance) LargestPart() (Part, bool) {
	if s == nil || len(s.parts) == 0 {
		return Part{}, false
	}
	largest := s.parts[0]
	for _, p := range s.parts[1:] {
		if p.Amount > largest.Amount {
			largest = p
		}
	}
	return largest, true
}

// CleaningPower is the amount-weighted cleaning power of the mixture.
func (s *Substance) CleaningPower() float64 {
	return s.weighted(func(t SubstanceType) float64 { return t.CleaningPower })
}

// FresheningPotential is the amount-weighted freshening potential of the
// mixture.
func (s *Substance) FresheningPotential() float64 {
	return s.weighted(func(t SubstanceType) float64 { return t.FresheningPotential })
}

func (s *Substance) weighted(prop func(SubstanceType) float64) float64 {
	total := s.Amount()
	if total <= 0 {
		return 0
	}
	var sum float64
	for _, p := range s.parts {
		sum += prop(p.Type) * float64(p.Amount/total)
	}
	return sum
}
