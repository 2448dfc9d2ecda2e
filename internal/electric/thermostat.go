package electric

import "github.com/ahrav/go-washer/internal/domain"

// Thermostat is a two-point trigger. It fires OnDropBelow when a measured
// temperature falls under Setting minus Tolerance and OnRiseAbove when it
// climbs over Setting.
type Thermostat struct {
	Setting     domain.Temperature
	Tolerance   domain.Temperature
	OnDropBelow func()
	OnRiseAbove func()
}

// Check compares t with the thresholds and fires the matching callback.
func (th *Thermostat) Check(t domain.Temperature) {
	switch {
	case t < th.Setting-th.Tolerance:
		if th.OnDropBelow != nil {
			th.OnDropBelow()
		}
	case t > th.Setting:
		if th.OnRiseAbove != nil {
			th.OnRiseAbove()
		}
	}
}
