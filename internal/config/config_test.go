package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "stability.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 95.0, cfg.Stability.Threshold)
	assert.Equal(t, 80.0, cfg.Stability.EmergencyFloor)
	assert.Equal(t, 0.042, cfg.Stability.EvolutionRate)
	assert.Equal(t, 100, cfg.Stability.PatternCapacity)
	assert.Equal(t, time.Second, cfg.Schedule.MonitorInterval)
	assert.Equal(t, 5*time.Second, cfg.Schedule.EvolutionInterval)
	assert.Equal(t, "127.0.0.1:7450", cfg.Transport.Listen)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
stability:
  threshold: 90
  pattern_horizon: 30s
schedule:
  scan_interval: 250ms
journal:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90.0, cfg.Stability.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Stability.PatternHorizon)
	assert.Equal(t, 250*time.Millisecond, cfg.Schedule.ScanInterval)
	assert.False(t, cfg.Journal.Enabled)
	// untouched keys keep defaults
	assert.Equal(t, 80.0, cfg.Stability.EmergencyFloor)
	assert.Equal(t, time.Second, cfg.Schedule.MonitorInterval)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stability:\n  threshold: 90\n")
	t.Setenv("STABILITY_THRESHOLD", "92.5")
	t.Setenv("STABILITY_EVOLUTION_RATE", "0.1")
	t.Setenv("STABILITY_DB", "/tmp/x.db")
	t.Setenv("STABILITY_LISTEN", ":9000")
	t.Setenv("STABILITY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 92.5, cfg.Stability.Threshold)
	assert.Equal(t, 0.1, cfg.Stability.EvolutionRate)
	assert.Equal(t, "/tmp/x.db", cfg.Journal.Path)
	assert.Equal(t, ":9000", cfg.Transport.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "stability: [not, a, map]\n"))
	assert.Error(t, err)

	t.Setenv("STABILITY_THRESHOLD", "high")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"threshold above 100", func(c *Config) { c.Stability.Threshold = 101 }, false},
		{"negative threshold", func(c *Config) { c.Stability.Threshold = -1 }, false},
		{"floor above threshold", func(c *Config) { c.Stability.EmergencyFloor = 96 }, false},
		{"negative rate", func(c *Config) { c.Stability.EvolutionRate = -0.1 }, false},
		{"zero capacity", func(c *Config) { c.Stability.PatternCapacity = 0 }, false},
		{"zero interval", func(c *Config) { c.Schedule.ScanInterval = 0 }, false},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }, false},
		{"journal disabled without path", func(c *Config) { c.Journal.Enabled = false; c.Journal.Path = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

// A 0-1 threshold is accepted verbatim: every score >= 0.95 then verifies.
func TestFractionalThresholdIsNotRescaled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stability:\n  threshold: 0.95\n  emergency_floor: 0.5\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Stability.Threshold)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stability.yaml")
	cfg := DefaultConfig()
	cfg.Stability.Threshold = 91
	cfg.Schedule.EvolutionInterval = 2 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
