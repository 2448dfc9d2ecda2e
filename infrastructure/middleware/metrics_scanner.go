package middleware

import (
	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/ports"
)

var _ ports.StateScanner = (*MetricsScanner)(nil)

// MetricsScanner exports appliance snapshots through a MetricsCollector.
// Gauges mirror the latest snapshot, counters accumulate the growth of
// consumed energy and drained liquid between scans, and a phase change is
// counted once.
type MetricsScanner struct {
	metrics ports.MetricsCollector

	scanned bool
	energy  domain.Energy
	drained domain.Volume
	phase   domain.PhaseKind
	stage   string
}

// NewMetricsScanner creates a scanner reporting to metrics.
func NewMetricsScanner(metrics ports.MetricsCollector) *MetricsScanner {
	return &MetricsScanner{metrics: metrics}
}

// Scan implements ports.StateScanner.
func (m *MetricsScanner) Scan(s domain.WasherSnapshot) {
	m.metrics.RecordGauge("motor_speed_rpm", float64(s.MotorSpeed), nil)
	m.metrics.RecordGauge("excess_liquid_liters", float64(s.ExcessLiquid), nil)
	m.metrics.RecordGauge("liquid_temperature_celsius", float64(s.LiquidTemperature), nil)
	m.metrics.RecordGauge("time_factor", s.TimeFactor, nil)
	m.metrics.RecordGauge("running_seconds", s.RunningTime.Seconds(), nil)
	m.metrics.RecordGauge("powered_on", boolGauge(s.PoweredOn), nil)
	m.metrics.RecordGauge("running", boolGauge(s.Running), nil)
	m.metrics.RecordGauge("paused", boolGauge(s.Paused), nil)
	m.metrics.RecordGauge("door_locked", boolGauge(s.DoorLocked), nil)
	m.metrics.RecordGauge("heater_running", boolGauge(s.HeaterRunning), nil)
	m.metrics.RecordGauge("pump_running", boolGauge(s.PumpRunning), nil)
	m.metrics.RecordGauge("load_items", float64(len(s.Load)), nil)

	labels := map[string]string{"cycle": s.Active}

	// The first scan only establishes the baseline.
	if m.scanned {
		if d := s.EnergyUsed - m.energy; d > 0 {
			m.metrics.RecordCounter(MetricEnergy, float64(d), labels)
			m.metrics.RecordHistogram("energy_per_tick_joules", float64(d), labels)
		}
		if d := s.Drained - m.drained; d > 0 {
			m.metrics.RecordCounter(MetricDrained, float64(d), labels)
		}
	}

	if s.Phase != "" && (s.Phase != m.phase || s.Stage != m.stage) {
		m.metrics.RecordCounter("phase_"+string(s.Phase), 1, labels)
	}

	m.scanned = true
	m.energy = s.EnergyUsed
	m.drained = s.Drained
	m.phase = s.Phase
	m.stage = s.Stage
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
