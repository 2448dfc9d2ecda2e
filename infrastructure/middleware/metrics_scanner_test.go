package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-washer/internal/domain"
	"github.com/ahrav/go-washer/internal/testutils"
)

func TestMetricsScanner_GaugesMirrorSnapshot(t *testing.T) {
	rc := testutils.NewRecordingCollector()
	s := NewMetricsScanner(rc)

	s.Scan(domain.WasherSnapshot{
		PoweredOn:         true,
		Running:           true,
		DoorLocked:        true,
		MotorSpeed:        800,
		ExcessLiquid:      3.5,
		LiquidTemperature: 40,
		TimeFactor:        10,
		Load:              []domain.BodyID{"towel", "sock"},
	})

	tests := []struct {
		metric string
		want   float64
	}{
		{"powered_on", 1},
		{"running", 1},
		{"paused", 0},
		{"door_locked", 1},
		{"motor_speed_rpm", 800},
		{"excess_liquid_liters", 3.5},
		{"liquid_temperature_celsius", 40},
		{"time_factor", 10},
		{"load_items", 2},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, ok := rc.Gauge(tt.metric)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsScanner_CountsGrowthBetweenScans(t *testing.T) {
	rc := testutils.NewRecordingCollector()
	s := NewMetricsScanner(rc)

	s.Scan(domain.WasherSnapshot{EnergyUsed: 1_000, Drained: 2})
	assert.Zero(t, rc.Counter(MetricEnergy), "first scan is the baseline")

	s.Scan(domain.WasherSnapshot{EnergyUsed: 1_600, Drained: 2.5, Active: "cotton"})
	s.Scan(domain.WasherSnapshot{EnergyUsed: 1_600, Drained: 2.5, Active: "cotton"})

	assert.Equal(t, 600.0, rc.Counter(MetricEnergy))
	assert.Equal(t, 0.5, rc.Counter(MetricDrained))
	assert.Len(t, rc.Histograms(), 1)
	assert.Equal(t, "cotton", rc.Counters()[0].Labels["cycle"])
}

func TestMetricsScanner_CountsPhaseChangesOnce(t *testing.T) {
	rc := testutils.NewRecordingCollector()
	s := NewMetricsScanner(rc)

	phases := []struct {
		stage string
		phase domain.PhaseKind
	}{
		{"", ""},
		{"main wash", domain.PhaseFill},
		{"main wash", domain.PhaseFill},
		{"main wash", domain.PhaseWash},
		{"main wash", domain.PhaseDrain},
		{"rinse", domain.PhaseFill},
		{"rinse", domain.PhaseFill},
	}
	for _, p := range phases {
		s.Scan(domain.WasherSnapshot{Active: "cotton", Stage: p.stage, Phase: p.phase})
	}

	assert.Equal(t, 2.0, rc.Counter("phase_fill"))
	assert.Equal(t, 1.0, rc.Counter("phase_wash"))
	assert.Equal(t, 1.0, rc.Counter("phase_drain"))
}

func TestMetricsScanner_WithPrometheus(t *testing.T) {
	pm, _ := newTestMetrics(t)
	s := NewMetricsScanner(pm)

	s.Scan(domain.WasherSnapshot{EnergyUsed: 0})
	s.Scan(domain.WasherSnapshot{EnergyUsed: 250, MotorSpeed: 50, Phase: domain.PhaseWash, Stage: "main wash", Active: "quick"})

	assert.Equal(t, 250.0, testutil.ToFloat64(pm.energy))
	assert.Equal(t, 50.0, testutil.ToFloat64(pm.state.WithLabelValues("motor_speed_rpm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.events.WithLabelValues("phase_wash", "quick")))
}
