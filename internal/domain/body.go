package domain

import "fmt"

// BodyID identifies a laundry item.
type BodyID string

// FabricKind is the kind of laundry item.
type FabricKind int

const (
	// Towel is a plain absorbent fabric.
	Towel FabricKind = iota
	// Sock is a small clothing item.
	Sock
	// Shirt is a larger clothing item.
	Shirt
)

// String returns the human-readable kind name.
func (k FabricKind) String() string {
	switch k {
	case Towel:
		return "towel"
	case Sock:
		return "sock"
	case Shirt:
		return "shirt"
	default:
		return "unknown"
	}
}

// ClothingSize is the labelled size of a clothing item.
type ClothingSize int

// Clothing sizes.
const (
	SizeNone ClothingSize = iota
	SizeXXS
	SizeXS
	SizeS
	SizeM
	SizeL
	SizeXL
	SizeXXL
)

// String returns the size label.
func (s ClothingSize) String() string {
	labels := [...]string{"", "XXS", "XS", "S", "M", "L", "XL", "XXL"}
	if s < 0 || int(s) >= len(labels) {
		return fmt.Sprintf("ClothingSize(%d)", s)
	}
	return labels[s]
}

// Default absorbency per kind, as the maximum soaked liters per liter of
// fabric.
const (
	towelAbsorbency    = 1.2
	clothingAbsorbency = 0.8
)

// Body is a fabric item. It is created outside the appliance and is only
// mutated while it sits in a drum.
type Body struct {
	id         BodyID
	kind       FabricKind
	size       ClothingSize
	volume     Volume
	absorbency float64
	stain      *Substance
	soaked     *Substance
	freshness  float64
}

func newBody(id BodyID, kind FabricKind, size ClothingSize, volume Volume, absorbency float64) *Body {
	return &Body{
		id:         id,
		kind:       kind,
		size:       size,
		volume:     volume,
		absorbency: absorbency,
		stain:      &Substance{},
		soaked:     &Substance{},
	}
}

// NewTowel creates a towel of the given volume.
func NewTowel(id BodyID, volume Volume) *Body {
	return newBody(id, Towel, SizeNone, volume, towelAbsorbency)
}

// NewSock creates a sock.
func NewSock(id BodyID, size ClothingSize, volume Volume) *Body {
	return newBody(id, Sock, size, volume, clothingAbsorbency)
}

// NewShirt creates a shirt.
func NewShirt(id BodyID, size ClothingSize, volume Volume) *Body {
	return newBody(id, Shirt, size, volume, clothingAbsorbency)
}

// WithStain adds stain to the body and returns it for chaining.
func (b *Body) WithStain(stain *Substance) *Body {
	b.stain.Add(stain)
	return b
}

// WithFreshness sets the starting freshness and returns the body.
func (b *Body) WithFreshness(f float64) *Body {
	b.freshness = Clamp(f, 0, 1)
	return b
}

// ID returns the body identifier.
func (b *Body) ID() BodyID { return b.id }

// Kind returns the fabric kind.
func (b *Body) Kind() FabricKind { return b.kind }

// Size returns the clothing size, SizeNone for non-clothing.
func (b *Body) Size() ClothingSize { return b.size }

// Volume returns the dry volume of the fabric.
func (b *Body) Volume() Volume { return b.volume }

// Soakable reports whether the body absorbs liquid.
func (b *Body) Soakable() bool { return b.absorbency > 0 }

// Stain returns a copy of the stain mixture.
func (b *Body) Stain() *Substance { return b.stain.Clone() }

// StainAmount returns the remaining stain volume.
func (b *Body) StainAmount() Volume { return b.stain.Amount() }

// Soaked returns a copy of the absorbed mixture.
func (b *Body) Soaked() *Substance { return b.soaked.Clone() }

// SoakedAmount returns how much liquid the body holds.
func (b *Body) SoakedAmount() Volume { return b.soaked.Amount() }

// SoakRatio is the absorbed liquid per unit of fabric volume.
func (b *Body) SoakRatio() float64 {
	if b.volume <= 0 {
		return 0
	}
	return float64(b.soaked.Amount() / b.volume)
}

// SoakedTemperature returns the temperature of the absorbed liquid.
func (b *Body) SoakedTemperature() (Temperature, bool) { return b.soaked.Temperature() }

// SoakedCleaningPower returns the cleaning power of the absorbed liquid.
func (b *Body) SoakedCleaningPower() float64 { return b.soaked.CleaningPower() }

// SoakedFresheningPotential returns the freshening potential of the
// absorbed liquid.
func (b *Body) SoakedFresheningPotential() float64 { return b.soaked.FresheningPotential() }

// Freshness returns the freshness scalar in [0, 1].
func (b *Body) Freshness() float64 { return b.freshness }

// Freshen moves freshness by step, saturating at [0, 1].
func (b *Body) Freshen(step float64) {
	b.freshness = Clamp(b.freshness+step, 0, 1)
}

// soakCapacity is the most liquid the body can hold.
func (b *Body) soakCapacity() Volume {
	return Volume(float64(b.volume) * b.absorbency)
}

// Soak absorbs from source until the body is saturated or source runs dry.
// It returns the absorbed volume.
func (b *Body) Soak(source *Substance) Volume {
	if !b.Soakable() {
		return 0
	}
	room := b.soakCapacity() - b.soaked.Amount()
	if room <= 0 {
		return 0
	}
	taken := source.Extract(room)
	b.soaked.Add(taken)
	return taken.Amount()
}

// ResoakWith exchanges amount of absorbed liquid with liquid from source:
// the body releases amount into source and then absorbs the same amount of
// the resulting mixture.
func (b *Body) ResoakWith(source *Substance, amount Volume) {
	if !b.Soakable() || amount <= 0 {
		return
	}
	source.Add(b.soaked.Extract(amount))
	b.soaked.Add(source.Extract(amount))
}

// ReleaseSoaked gives up to amount of absorbed liquid.
func (b *Body) ReleaseSoaked(amount Volume) *Substance {
	return b.soaked.Extract(amount)
}

// ClearStain removes up to amount of stain and returns the removed mixture.
func (b *Body) ClearStain(amount Volume) *Substance {
	return b.stain.Extract(amount)
}

// TotalVolume sums the dry volume of the given bodies.
func TotalVolume(bodies []*Body) Volume {
	var total Volume
	for _, b := range bodies {
		total += b.volume
	}
	return total
}
