// Package spin provides the electric motor and the contract of the loads it
// turns.
package spin

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/electric"
	"github.com/ahrav/go-washer/internal/logging"
	"github.com/ahrav/go-washer/internal/ports"
)

// Spinnable is a load a motor can turn.
type Spinnable interface {
	// Spin turns the load in direction at speed for duration of simulated
	// time.
	Spin(direction domain.SpinDirection, speed domain.Spin, duration time.Duration)
}

var _ ports.Switchable = (*Motor)(nil)

// Motor converts electrical energy into rotation. Its real speed follows
// the speed setting scaled by the fraction of required energy that was
// actually delivered.
type Motor struct {
	id       string
	power    domain.Power
	maxSpeed domain.Spin
	inlet    *electric.Inlet
	log      logr.Logger

	load      Spinnable
	setting   domain.Spin
	current   domain.Spin
	direction domain.SpinDirection
	running   bool
}

// MotorConfig describes a motor.
type MotorConfig struct {
	ID       string
	Power    domain.Power
	MaxSpeed domain.Spin
	// InitialSpeed is the starting speed setting. Zero means MaxSpeed.
	InitialSpeed domain.Spin
	Log          logr.Logger
}

// NewMotor creates a motor. It fails when the ratings are not positive or
// the initial speed is outside [0, MaxSpeed].
func NewMotor(net *electric.Network, clock electric.FlowIDs, cfg MotorConfig) (*Motor, error) {
	if cfg.Power <= 0 {
		return nil, fmt.Errorf("motor %q power %g: %w", cfg.ID, cfg.Power, domain.ErrInvalidConfiguration)
	}
	if cfg.MaxSpeed <= 0 {
		return nil, fmt.Errorf("motor %q max speed %g: %w", cfg.ID, cfg.MaxSpeed, domain.ErrInvalidConfiguration)
	}
	setting := cfg.InitialSpeed
	if setting == 0 {
		setting = cfg.MaxSpeed
	}
	if setting < 0 || setting > cfg.MaxSpeed {
		return nil, fmt.Errorf("motor %q: %w", cfg.ID,
			domain.NewRangeError("initial speed", float64(setting), 0, float64(cfg.MaxSpeed)))
	}
	return &Motor{
		id:       cfg.ID,
		power:    cfg.Power,
		maxSpeed: cfg.MaxSpeed,
		inlet:    electric.NewInlet(net, clock, cfg.Power),
		log:      logging.OrDiscard(cfg.Log).WithName(cfg.ID),
		setting:  setting,
	}, nil
}

// ID implements ports.Tickable.
func (m *Motor) ID() string { return m.id }

// Power returns the rated power.
func (m *Motor) Power() domain.Power { return m.power }

// MaxSpeed returns the highest allowed speed setting.
func (m *Motor) MaxSpeed() domain.Spin { return m.maxSpeed }

// PowerInlet returns the electrical inlet.
func (m *Motor) PowerInlet() *electric.Inlet { return m.inlet }

// Connect attaches the load the motor turns. A nil load detaches it.
func (m *Motor) Connect(load Spinnable) { m.load = load }

// SpeedSetting returns the requested speed.
func (m *Motor) SpeedSetting() domain.Spin { return m.setting }

// SetSpeed changes the requested speed. Values outside [0, MaxSpeed] are
// rejected with a *domain.RangeError and leave the setting untouched.
func (m *Motor) SetSpeed(s domain.Spin) error {
	if s < 0 || s > m.maxSpeed {
		return domain.NewRangeError("speed setting", float64(s), 0, float64(m.maxSpeed))
	}
	m.setting = s
	return nil
}

// CurrentSpeed returns the speed reached during the last tick.
func (m *Motor) CurrentSpeed() domain.Spin { return m.current }

// Direction returns the spin direction.
func (m *Motor) Direction() domain.SpinDirection { return m.direction }

// SetDirection changes the spin direction.
func (m *Motor) SetDirection(d domain.SpinDirection) { m.direction = d }

// Start switches the motor on.
func (m *Motor) Start() {
	if !m.running {
		m.running = true
		m.log.V(logging.DEBUG).Info("Motor on", "setting", m.setting, "direction", m.direction)
	}
}

// Stop switches the motor off. The current speed drops to zero at once.
func (m *Motor) Stop() {
	m.current = 0
	if m.running {
		m.running = false
		m.log.V(logging.DEBUG).Info("Motor off")
	}
}

// Running reports whether the motor is on.
func (m *Motor) Running() bool { return m.running }

// RequiredEnergy returns the energy the motor needs to hold its setting
// for dt.
func (m *Motor) RequiredEnergy(dt time.Duration) domain.Energy {
	return domain.Energy(float64(m.power.Over(dt)) * float64(m.setting/m.maxSpeed))
}

// Tick draws energy, resolves the real speed and drives the load.
func (m *Motor) Tick(dt time.Duration) {
	if !m.running {
		return
	}
	required := m.RequiredEnergy(dt)
	if required <= 0 {
		m.current = 0
		return
	}
	m.resolve(required, m.inlet.Draw(required, dt))
	if m.current > 0 && m.load != nil {
		m.load.Spin(m.direction, m.current, dt)
	}
}

// resolve sets the current speed from the energy supplied against the
// energy required.
func (m *Motor) resolve(required, supplied domain.Energy) {
	m.current = m.setting * domain.Spin(supplied/required)
}
