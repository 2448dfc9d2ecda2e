package washcycle

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-washer/internal/domain"
)

//go:embed cycles.yaml
var builtinCycles []byte

// maxSuggestionDistance bounds how far a misspelt cycle name may be from a
// known one for the lookup to suggest it.
const maxSuggestionDistance = 3

// CatalogFile is the YAML document listing cycles.
type CatalogFile struct {
	Cycles []CycleSpec `yaml:"cycles" validate:"required,min=1,dive"`
}

// Catalog is an ordered, validated set of cycle definitions.
type Catalog struct {
	specs []CycleSpec
}

// DefaultCatalog returns the built-in cycles.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(builtinCycles)
}

// ParseCatalog decodes and validates a catalog document. Unknown fields are
// rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode cycle catalog: %w", err)
	}
	return NewCatalog(file.Cycles)
}

// NewCatalog validates specs and returns a catalog over them.
func NewCatalog(specs []CycleSpec) (*Catalog, error) {
	if err := ValidateSpecs(validator.New(), specs); err != nil {
		return nil, err
	}
	return &Catalog{specs: specs}, nil
}

// ValidateSpecs checks struct tags and the rules tags cannot express:
// unique names, default indexes within range and playable wash phases.
func ValidateSpecs(v *validator.Validate, specs []CycleSpec) error {
	verr := domain.NewValidationError("cycles")
	if len(specs) == 0 {
		verr.AddError("at least one cycle is required")
		return verr
	}
	for _, s := range specs {
		if err := v.Struct(s); err != nil {
			verr.AddError(fmt.Sprintf("cycle %q: %v", s.Name, err))
		}
	}
	if verr.HasErrors() {
		return verr
	}

	fold := cases.Fold()
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		key := fold.String(s.Name)
		if _, dup := seen[key]; dup {
			verr.AddError(fmt.Sprintf("duplicate cycle %q", s.Name))
		}
		seen[key] = struct{}{}

		if len(s.Temperatures) > 0 && s.DefaultTemperature >= len(s.Temperatures) {
			verr.AddError(fmt.Sprintf("cycle %q: default temperature index %d out of range", s.Name, s.DefaultTemperature))
		}
		if len(s.SpinSpeeds) > 0 && s.DefaultSpinSpeed >= len(s.SpinSpeeds) {
			verr.AddError(fmt.Sprintf("cycle %q: default spin speed index %d out of range", s.Name, s.DefaultSpinSpeed))
		}

		stages := s.Stages
		if s.PreWash != nil {
			stages = append([]StageSpec{s.PreWash.Stage}, stages...)
		}
		for _, st := range stages {
			for i, p := range st.Phases {
				if p.Kind == domain.PhaseWash && p.Rhythms() == 0 {
					verr.AddError(fmt.Sprintf("cycle %q stage %q phase %d: wash needs a duration of at least one spin and rest period", s.Name, st.Name, i))
				}
				if p.Kind == domain.PhaseSpin && p.Duration <= 0 {
					verr.AddError(fmt.Sprintf("cycle %q stage %q phase %d: spin needs a duration", s.Name, st.Name, i))
				}
			}
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Len returns the number of cycles.
func (c *Catalog) Len() int { return len(c.specs) }

// Specs returns the cycle definitions in catalog order.
func (c *Catalog) Specs() []CycleSpec {
	out := make([]CycleSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Names returns the cycle names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.specs))
	for i, s := range c.specs {
		names[i] = s.Name
	}
	return names
}

// DisplayName returns the title-cased name shown to users.
func (c *Catalog) DisplayName(name string) string { return DisplayName(name) }

// DisplayName title-cases a cycle name for presentation.
func DisplayName(name string) string {
	return cases.Title(language.English).String(name)
}

// Cycles instantiates every cycle with its default settings.
func (c *Catalog) Cycles() []*Cycle {
	out := make([]*Cycle, len(c.specs))
	for i, s := range c.specs {
		out[i] = NewCycle(s)
	}
	return out
}

// Index finds a cycle by name, ignoring case. When nothing matches, the
// error wraps domain.ErrUnknownCycle and names the closest known cycle if
// one is near enough.
func (c *Catalog) Index(name string) (int, error) {
	return Lookup(c.Names(), name)
}

// Lookup finds name among names the same way Catalog.Index does.
func Lookup(names []string, name string) (int, error) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	best, bestDist := -1, maxSuggestionDistance+1
	for i, n := range names {
		folded := fold.String(n)
		if folded == want {
			return i, nil
		}
		if d := levenshtein.ComputeDistance(folded, want); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return -1, fmt.Errorf("cycle %q: %w (did you mean %q?)", name, domain.ErrUnknownCycle, names[best])
	}
	return -1, fmt.Errorf("cycle %q: %w", name, domain.ErrUnknownCycle)
}
