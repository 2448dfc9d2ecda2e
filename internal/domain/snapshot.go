package domain

import "time"

// SlotID names a dispenser tray slot.
type SlotID string

// Dispenser slots of the standard tray.
const (
	SlotPreWash       SlotID = "prewash"
	SlotMainDetergent SlotID = "detergent"
	SlotMainSoftener  SlotID = "softener"
)

// PhaseKind is the type of a wash cycle phase.
type PhaseKind string

// Phase kinds.
const (
	PhaseFill  PhaseKind = "fill"
	PhaseWash  PhaseKind = "wash"
	PhaseDrain PhaseKind = "drain"
	PhaseSpin  PhaseKind = "spin"
)

// SlotSnapshot is the published state of one dispenser slot.
type SlotSnapshot struct {
	ID       SlotID
	Additive string
	Amount   Volume
	Capacity Volume
}

// TraySnapshot is the published state of the dispenser tray.
type TraySnapshot struct {
	Open  bool
	Slots []SlotSnapshot
}

// SettingSnapshot describes a discrete user setting. Selected is -1 when
// the cycle does not offer the setting.
type SettingSnapshot[T any] struct {
	Options  []T
	Selected int
}

// Value returns the selected option.
func (s SettingSnapshot[T]) Value() (T, bool) {
	var zero T
	if s.Selected < 0 || s.Selected >= len(s.Options) {
		return zero, false
	}
	return s.Options[s.Selected], true
}

// WasherSnapshot is an immutable view of the appliance published to the
// presentation layer. It holds copies only.
type WasherSnapshot struct {
	Tick        uint64
	TimeFactor  float64
	PoweredOn   bool
	Running     bool
	Paused      bool
	DoorLocked  bool
	Settling    bool
	Cycles      []string
	Selected    string
	Active      string
	Stage       string
	Phase       PhaseKind
	RunningTime time.Duration
	Duration    time.Duration
	PreWash     *bool
	Temperature SettingSnapshot[Temperature]
	SpinSpeed   SettingSnapshot[Spin]
	Load        []BodyID
	Tray        TraySnapshot

	MotorSpeed        Spin
	MotorDirection    SpinDirection
	PumpRunning       bool
	HeaterRunning     bool
	ExcessLiquid      Volume
	LiquidTemperature Temperature
	EnergyUsed        Energy
	Drained           Volume
}
