package domain

// Reference dilution used to express additive strength: an additive is
// rated by the cleaning power of 50 mL of it dissolved in 15 L of water.
const (
	referenceSolvent Volume = 15
	referenceSolute  Volume = 0.05
)

// waterCleaningPower is the per-second stain fraction plain water clears.
const waterCleaningPower = 0.0001

// NominalValue returns the property value a solute must have so that
// soluteAmount of it dissolved in solventAmount of a solvent with
// solventValue yields desired for the whole mixture.
func NominalValue(desired, solventValue float64, solventAmount, soluteAmount Volume) float64 {
	return (desired*float64(solventAmount+soluteAmount) - solventValue*float64(solventAmount)) /
		float64(soluteAmount)
}

func diluted(desired float64) float64 {
	return NominalValue(desired, waterCleaningPower, referenceSolvent, referenceSolute)
}

// Common substance types.
var (
	Water = SubstanceType{Name: "water", CleaningPower: waterCleaningPower, FresheningPotential: 0.5}

	Dirt   = SubstanceType{Name: "dirt"}
	Grease = SubstanceType{Name: "grease", Consistency: ThickLiquid}
	Sweat  = SubstanceType{Name: "sweat", FresheningPotential: 0.1}

	BasicDetergent    = SubstanceType{Name: "basic detergent", CleaningPower: diluted(0.0004), FresheningPotential: 0.6, Consistency: ThickLiquid}
	StrongDetergent   = SubstanceType{Name: "strong detergent", CleaningPower: diluted(0.0006), FresheningPotential: 0.6, Consistency: ThickLiquid}
	UltimateDetergent = SubstanceType{Name: "ultimate detergent", CleaningPower: diluted(0.0008), FresheningPotential: 0.7, Consistency: ThickLiquid}

	UselessSoftener  = SubstanceType{Name: "useless softener", CleaningPower: 0, FresheningPotential: 0.5}
	BarelySoftener   = SubstanceType{Name: "barely softener", CleaningPower: diluted(0.00005), FresheningPotential: 0.6}
	WeakSoftener     = SubstanceType{Name: "weak softener", CleaningPower: diluted(0.0001), FresheningPotential: 0.7}
	MildSoftener     = SubstanceType{Name: "mild softener", CleaningPower: diluted(0.00015), FresheningPotential: 0.8}
	BasicSoftener    = SubstanceType{Name: "basic softener", CleaningPower: diluted(0.0002), FresheningPotential: 0.85}
	StrongSoftener   = SubstanceType{Name: "strong softener", CleaningPower: diluted(0.00025), FresheningPotential: 0.9, Consistency: ThickLiquid}
	UltimateSoftener = SubstanceType{Name: "ultimate softener", CleaningPower: diluted(0.0003), FresheningPotential: 1, Consistency: ThickLiquid}
)

// Additives lists the types a user may pour into a dispenser slot.
var Additives = []SubstanceType{
	BasicDetergent, StrongDetergent, UltimateDetergent,
	UselessSoftener, BarelySoftener, WeakSoftener, MildSoftener,
	BasicSoftener, StrongSoftener, UltimateSoftener,
}

// LookupAdditive finds an additive type by name.
func LookupAdditive(name string) (SubstanceType, bool) {
	for _, t := range Additives {
		if t.Name == name {
			return t, true
		}
	}
	return SubstanceType{}, false
}
