package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	return NewPrometheusMetrics(reg), reg
}

// TestNewPrometheusMetrics verifies that two collectors can live side by
// side when each has its own registry.
func TestNewPrometheusMetrics(t *testing.T) {
	a, _ := newTestMetrics(t)
	b, _ := newTestMetrics(t)

	assert.NotNil(t, a.phaseDuration)
	assert.NotNil(t, a.events)
	assert.NotNil(t, a.energy)
	assert.NotNil(t, a.drained)
	assert.NotNil(t, a.state)
	assert.NotNil(t, a.observations)
	assert.NotSame(t, a, b)
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		value  float64
		labels map[string]string
		read   func(pm *PrometheusMetrics) float64
		want   float64
	}{
		{
			name:   "energy has its own series",
			metric: MetricEnergy,
			value:  1_500,
			read:   func(pm *PrometheusMetrics) float64 { return testutil.ToFloat64(pm.energy) },
			want:   1_500,
		},
		{
			name:   "drained liquid has its own series",
			metric: MetricDrained,
			value:  2.5,
			labels: map[string]string{"cycle": "cotton"},
			read:   func(pm *PrometheusMetrics) float64 { return testutil.ToFloat64(pm.drained) },
			want:   2.5,
		},
		{
			name:   "other counters are events labelled by cycle",
			metric: "phase_fill",
			value:  1,
			labels: map[string]string{"cycle": "cotton"},
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.events.WithLabelValues("phase_fill", "cotton"))
			},
			want: 1,
		},
		{
			name:   "missing cycle label",
			metric: "cycle_stopped",
			value:  1,
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.events.WithLabelValues("cycle_stopped", noCycle))
			},
			want: 1,
		},
		{
			name:   "negative values are ignored",
			metric: MetricEnergy,
			value:  -3,
			read:   func(pm *PrometheusMetrics) float64 { return testutil.ToFloat64(pm.energy) },
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, _ := newTestMetrics(t)
			assert.NotPanics(t, func() { pm.RecordCounter(tt.metric, tt.value, tt.labels) })
			assert.Equal(t, tt.want, tt.read(pm))
		})
	}
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge("motor_speed_rpm", 800, nil)
	pm.RecordGauge("motor_speed_rpm", 1_200, nil)
	pm.RecordGauge("door_locked", 1, map[string]string{"ignored": "x"})

	assert.Equal(t, 1_200.0, testutil.ToFloat64(pm.state.WithLabelValues("motor_speed_rpm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.state.WithLabelValues("door_locked")))
}

func TestPrometheusMetrics_RecordLatencyAndHistogram(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency("phase_wash", 40*time.Minute, map[string]string{"cycle": "cotton"})
	pm.RecordLatency("phase_wash", 10*time.Minute, map[string]string{"cycle": "cotton"})
	pm.RecordHistogram("energy_per_tick_joules", 260, nil)

	assert.Equal(t, 1, testutil.CollectAndCount(pm.phaseDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.observations))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "washer_phase_duration_seconds" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		h := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), h.GetSampleCount())
		assert.Equal(t, 3_000.0, h.GetSampleSum())
		found = true
	}
	assert.True(t, found, "phase duration histogram is registered")
}
