package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-washer/internal/domain"
)

const validConfig = `
version: "1.0.0"
simulation:
  tick_period: 100ms
  time_factor: 10
supply:
  water_rate: 0.3
  water_temperature: 15
power:
  mains: 10000
  controller: 5
  heater: 2000
  motor: 500
  pump: 100
  motor_max_speed: 1400
  pump_rate: 0.5
drum:
  capacity: 60
  intake_rate: 0.5
  output_rate: 0.5
  centrifuge_threshold: 400
  resoak_factor: 0.1
  lower_soak_ratio: 0.2
  upper_soak_ratio: 1
  extraction_rate: 0.05
dispenser:
  rate: 0.5
  slots:
    - {id: prewash, capacity: 0.2}
    - id: detergent
      capacity: 0.3
      prefill: {additive: basic detergent, amount: 0.1}
    - {id: softener, capacity: 0.2}
controller:
  measure_every: 1s
  drain_threshold: 1
safety:
  door_safe_level: 1
  settle_delay: 2s
  thermostat_tolerance: 5
cycles:
  default: Synthetics
`

func newTestLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	l, err := NewConfigLoader()
	require.NoError(t, err)
	return l
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	bp, err := newTestLoader(t).LoadFromReader(strings.NewReader(validConfig))
	require.NoError(t, err)

	cfg := bp.Config
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickPeriod)
	assert.Equal(t, 10.0, cfg.Simulation.TimeFactor)
	assert.Equal(t, domain.Power(2_605), cfg.Power.InletRating())
	assert.Equal(t, 2*time.Second, cfg.Safety.SettleDelay)
	require.Len(t, cfg.Dispenser.Slots, 3)
	require.NotNil(t, cfg.Dispenser.Slots[1].Prefill)
	assert.Equal(t, "basic detergent", cfg.Dispenser.Slots[1].Prefill.Additive)
	assert.Equal(t, []string{"cotton", "synthetics", "wool", "quick", "rinse", "spin"}, bp.Catalog.Names())
}

func TestConfigLoader_DefaultConfigIsValid(t *testing.T) {
	bp, err := newTestLoader(t).LoadConfig(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), bp.Config)
}

func TestConfigLoader_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WasherConfig)
		wantErr string
	}{
		{
			name:    "bad version",
			mutate:  func(c *WasherConfig) { c.Version = "v1" },
			wantErr: "semver",
		},
		{
			name:    "zero tick period",
			mutate:  func(c *WasherConfig) { c.Simulation.TickPeriod = 0 },
			wantErr: "TickPeriod",
		},
		{
			name:    "inverted soak band",
			mutate:  func(c *WasherConfig) { c.Drum.UpperSoakRatio = 0.1 },
			wantErr: "gtfield",
		},
		{
			name:    "unknown slot",
			mutate:  func(c *WasherConfig) { c.Dispenser.Slots[0].ID = "bleach" },
			wantErr: "slotid",
		},
		{
			name: "unknown additive",
			mutate: func(c *WasherConfig) {
				c.Dispenser.Slots[1].Prefill = &PrefillConfig{Additive: "bleach", Amount: 0.1}
			},
			wantErr: "additive",
		},
		{
			name: "prefill above capacity",
			mutate: func(c *WasherConfig) {
				c.Dispenser.Slots[1].Prefill = &PrefillConfig{Additive: "basic detergent", Amount: 1}
			},
			wantErr: "exceeds capacity",
		},
		{
			name: "duplicate slot",
			mutate: func(c *WasherConfig) {
				c.Dispenser.Slots = append(c.Dispenser.Slots, SlotConfig{ID: domain.SlotMainSoftener, Capacity: 0.1})
			},
			wantErr: "duplicate dispenser slot",
		},
		{
			name:    "cycles fill from a missing slot",
			mutate:  func(c *WasherConfig) { c.Dispenser.Slots = c.Dispenser.Slots[1:] },
			wantErr: `unconfigured slot "prewash"`,
		},
		{
			name:    "cycle fills more than the drum holds",
			mutate:  func(c *WasherConfig) { c.Drum.Capacity = 10 },
			wantErr: "fills 14 but the drum holds 10",
		},
		{
			name:    "unknown default cycle",
			mutate:  func(c *WasherConfig) { c.Cycles.Default = "cottn" },
			wantErr: `did you mean "cotton"`,
		},
		{
			name:    "consumers exceed mains",
			mutate:  func(c *WasherConfig) { c.Power.Mains = 1_000 },
			wantErr: "mains supplies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			_, err := newTestLoader(t).LoadConfig(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigLoader_StrictDecoding(t *testing.T) {
	doc := strings.Replace(validConfig, "  capacity: 60\n", "  capacity: 60\n  capacty: 70\n", 1)
	_, err := newTestLoader(t).LoadFromReader(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacty")
}

func TestConfigLoader_Caching(t *testing.T) {
	loader := newTestLoader(t)

	first, err := loader.LoadFromReader(strings.NewReader(validConfig))
	require.NoError(t, err)

	// Same document with different layout and key order.
	var node map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(validConfig), &node))
	reordered, err := yaml.Marshal(node)
	require.NoError(t, err)

	second, err := loader.LoadFromReader(strings.NewReader(string(reordered)))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.CacheLen())

	loader.ClearCache()
	third, err := loader.LoadFromReader(strings.NewReader(validConfig))
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestConfigLoader_ConcurrentLoadsShareOneBlueprint(t *testing.T) {
	loader := newTestLoader(t)

	const n = 16
	results := make([]*Blueprint, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bp, err := loader.LoadConfig(DefaultConfig())
			assert.NoError(t, err)
			results[i] = bp
		}()
	}
	wg.Wait()

	for _, bp := range results {
		assert.Same(t, results[0], bp)
	}
}

func TestConfigLoader_CatalogRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	catalog := `
cycles:
  - name: express
    stages:
      - name: main
        phases:
          - {kind: fill, slot: detergent, amount: 5}
          - {kind: wash, duration: 60s, spin_period: 10s, rest_period: 5s, spin_speed: 50}
          - {kind: drain}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cycles.yaml"), []byte(catalog), 0o600))
	doc := strings.Replace(validConfig, "  default: Synthetics\n", "  catalog: cycles.yaml\n  default: EXPRESS\n", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "washer.yaml"), []byte(doc), 0o600))

	bp, err := newTestLoader(t).LoadFromFile(filepath.Join(dir, "washer.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"express"}, bp.Catalog.Names())
	assert.Equal(t, filepath.Join(dir, "cycles.yaml"), bp.Config.Cycles.Catalog)
}

func TestConfigLoader_RejectsOversizedFillInCatalogFile(t *testing.T) {
	catalog := `
cycles:
  - name: flood
    stages:
      - name: main
        phases:
          - {kind: fill, slot: detergent, amount: 500}
          - {kind: drain}
`
	loader := newTestLoader(t)
	loader.readFile = func(string) ([]byte, error) { return []byte(catalog), nil }
	cfg := DefaultConfig()
	cfg.Cycles.Catalog = "/etc/washer/flood.yaml"

	_, err := loader.LoadConfig(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `cycle "flood" stage "main" fills 500`)
}

func TestConfigLoader_BlueprintDoesNotAliasCallerConfig(t *testing.T) {
	loader := newTestLoader(t)
	cfg := DefaultConfig()
	cfg.Dispenser.Slots[1].Prefill = &PrefillConfig{Additive: "basic detergent", Amount: 0.2}

	bp, err := loader.LoadConfig(cfg)
	require.NoError(t, err)

	cfg.Drum.Capacity = 1
	cfg.Dispenser.Slots[0].Capacity = 9
	cfg.Dispenser.Slots[1].Prefill.Amount = 9

	assert.Equal(t, domain.Volume(60), bp.Config.Drum.Capacity)
	assert.Equal(t, domain.Volume(0.2), bp.Config.Dispenser.Slots[0].Capacity)
	assert.Equal(t, domain.Volume(0.2), bp.Config.Dispenser.Slots[1].Prefill.Amount)

	again, err := loader.LoadConfig(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, domain.Volume(60), again.Config.Drum.Capacity)
}

func TestConfigLoader_ReadFailures(t *testing.T) {
	loader := newTestLoader(t)

	_, err := loader.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	cfg := DefaultConfig()
	cfg.Cycles.Catalog = "/nonexistent/cycles.yaml"
	_, err = loader.LoadConfig(cfg)
	require.Error(t, err)
	var cerr *domain.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cycles.catalog", cerr.ConfigKey)
}

func FuzzConfigLoader_ParseYAML(f *testing.F) {
	f.Add(validConfig)
	f.Add(`version: "1.0.0`)
	f.Add(`version: 1
drum: "invalid"`)
	f.Add(`dispenser: {slots: [{id: prewash, capacity: -1}]}`)
	f.Add("")

	loader, err := NewConfigLoader()
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, doc string) {
		bp, err := loader.LoadFromReader(strings.NewReader(doc))
		if err == nil && (bp == nil || bp.Catalog == nil) {
			t.Fatalf("nil blueprint without error")
		}
	})
}
