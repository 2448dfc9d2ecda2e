package application

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/washcycle"
)

// knownSlots lists the slots of the standard tray. Cycle definitions refer
// to these IDs in their fill phases.
var knownSlots = []domain.SlotID{domain.SlotPreWash, domain.SlotMainDetergent, domain.SlotMainSoftener}

// RegisterWasherValidators registers the custom tags used by WasherConfig:
// semver, slotid and additive.
// RegisterWasherValidators returns an error if any registration fails.
func RegisterWasherValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("slotid", validateSlotID); err != nil {
		return fmt.Errorf("failed to register slotid validator: %w", err)
	}
	if err := v.RegisterValidation("additive", validateAdditive); err != nil {
		return fmt.Errorf("failed to register additive validator: %w", err)
	}
	return nil
}

// validateSemver accepts X.Y.Z where X, Y and Z are non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0 &&
		value == fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

func validateSlotID(fl validator.FieldLevel) bool {
	return slices.Contains(knownSlots, domain.SlotID(fl.Field().String()))
}

// validateAdditive accepts the name of an additive from the substance
// catalog.
func validateAdditive(fl validator.FieldLevel) bool {
	_, ok := domain.LookupAdditive(fl.Field().String())
	return ok
}

// validateSemantics checks the rules struct tags cannot express: unique
// slots, prefills that fit their slot, cycles that only fill from
// configured slots, and a default cycle that exists in the catalog.
// All violations are collected into one domain.ValidationError.
func validateSemantics(cfg *WasherConfig, catalog *washcycle.Catalog) error {
	verr := domain.NewValidationError("washer config")

	slots := make(map[domain.SlotID]struct{}, len(cfg.Dispenser.Slots))
	for _, s := range cfg.Dispenser.Slots {
		if _, dup := slots[s.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate dispenser slot %q", s.ID))
		}
		slots[s.ID] = struct{}{}
		if s.Prefill != nil && s.Prefill.Amount > s.Capacity {
			verr.AddError(fmt.Sprintf("slot %q prefill %v exceeds capacity %v", s.ID, s.Prefill.Amount, s.Capacity))
		}
	}

	for _, spec := range catalog.Specs() {
		stages := spec.Stages
		if spec.PreWash != nil {
			stages = append([]washcycle.StageSpec{spec.PreWash.Stage}, stages...)
		}
		for _, stage := range stages {
			for _, phase := range stage.Phases {
				if phase.Kind != domain.PhaseFill {
					continue
				}
				if _, ok := slots[phase.Slot]; !ok {
					verr.AddError(fmt.Sprintf("cycle %q stage %q fills from unconfigured slot %q", spec.Name, stage.Name, phase.Slot))
				}
				if phase.Amount > cfg.Drum.Capacity {
					verr.AddError(fmt.Sprintf("cycle %q stage %q fills %v but the drum holds %v", spec.Name, stage.Name, phase.Amount, cfg.Drum.Capacity))
				}
			}
		}
	}

	if cfg.Cycles.Default != "" {
		if _, err := catalog.Index(cfg.Cycles.Default); err != nil {
			verr.AddError(err.Error())
		}
	}

	if cfg.Power.InletRating() > cfg.Power.Mains {
		verr.AddError(fmt.Sprintf("consumers draw %v W but mains supplies %v W", cfg.Power.InletRating(), cfg.Power.Mains))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
