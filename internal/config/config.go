package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// #region config
// Config holds all stabilityd configuration.
type Config struct {
	Stability   StabilityConfig   `yaml:"stability"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Journal     JournalConfig     `yaml:"journal"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Transport   TransportConfig   `yaml:"transport"`
	Integration IntegrationConfig `yaml:"integration"`
}

// StabilityConfig tunes the control loop. Threshold and EmergencyFloor are on
// the 0-100 score scale.
type StabilityConfig struct {
	Threshold       float64       `yaml:"threshold" env:"STABILITY_THRESHOLD"`
	EmergencyFloor  float64       `yaml:"emergency_floor" env:"STABILITY_EMERGENCY_FLOOR"`
	EvolutionRate   float64       `yaml:"evolution_rate" env:"STABILITY_EVOLUTION_RATE"`
	PatternCapacity int           `yaml:"pattern_capacity" env:"STABILITY_PATTERN_CAPACITY"`
	StabilityBonus  float64       `yaml:"stability_bonus"`
	MemoryGammaStep float64       `yaml:"memory_gamma_step"`
	FPSAlphaStep    float64       `yaml:"fps_alpha_step"`
	PatternHorizon  time.Duration `yaml:"pattern_horizon"`
	PressureWeight  float64       `yaml:"pressure_weight"`
	DimensionWeight float64       `yaml:"dimension_weight"`
}

// ScheduleConfig sets the periodic loop intervals.
type ScheduleConfig struct {
	MonitorInterval   time.Duration `yaml:"monitor_interval" env:"STABILITY_MONITOR_INTERVAL"`
	EvolutionInterval time.Duration `yaml:"evolution_interval" env:"STABILITY_EVOLUTION_INTERVAL"`
	ScanInterval      time.Duration `yaml:"scan_interval" env:"STABILITY_SCAN_INTERVAL"`
}

// JournalConfig configures the SQLite diagnostic journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"STABILITY_JOURNAL"`
	Path    string `yaml:"path" env:"STABILITY_DB"`
	Buffer  int    `yaml:"buffer"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level" env:"STABILITY_LOG_LEVEL"`
	Development bool   `yaml:"development"`
}

// TracingConfig configures OpenTelemetry export. An empty endpoint disables it.
type TracingConfig struct {
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint" env:"STABILITY_OTEL_ENDPOINT"`
}

// TransportConfig configures the gRPC listener.
type TransportConfig struct {
	Listen string `yaml:"listen" env:"STABILITY_LISTEN"`
}

// IntegrationConfig toggles host integration features.
type IntegrationConfig struct {
	EnableCompilerHooks     bool `yaml:"enable_compiler_hooks"`
	EnableRuntimeMonitoring bool `yaml:"enable_runtime_monitoring"`
	EnableReclaim           bool `yaml:"enable_reclaim"`
}
// #endregion config

// #region defaults
// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Stability: StabilityConfig{
			Threshold:       95,
			EmergencyFloor:  80,
			EvolutionRate:   0.042,
			PatternCapacity: 100,
			StabilityBonus:  5,
			MemoryGammaStep: 0.5,
			FPSAlphaStep:    1.0,
			PatternHorizon:  60 * time.Second,
			PressureWeight:  2.0,
			DimensionWeight: 1.0,
		},
		Schedule: ScheduleConfig{
			MonitorInterval:   time.Second,
			EvolutionInterval: 5 * time.Second,
			ScanInterval:      time.Second,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "stability.db",
			Buffer:  256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Tracing: TracingConfig{
			ServiceName: "stabilityd",
		},
		Transport: TransportConfig{
			Listen: "127.0.0.1:7450",
		},
		Integration: IntegrationConfig{
			EnableCompilerHooks:     true,
			EnableRuntimeMonitoring: true,
			EnableReclaim:           true,
		},
	}
}
// #endregion defaults

// #region load
// Load reads a YAML file over the defaults and applies environment overrides.
// A missing file yields the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
// #endregion load

// #region validate
// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks ranges and orderings. A threshold written on the 0-1 scale
// passes validation unchanged; it is not rescaled.
func (c *Config) Validate() error {
	s := c.Stability
	switch {
	case s.Threshold < 0 || s.Threshold > 100:
		return fmt.Errorf("%w: threshold %v outside [0, 100]", ErrInvalid, s.Threshold)
	case s.EmergencyFloor < 0 || s.EmergencyFloor > 100:
		return fmt.Errorf("%w: emergency_floor %v outside [0, 100]", ErrInvalid, s.EmergencyFloor)
	case s.EmergencyFloor > s.Threshold:
		return fmt.Errorf("%w: emergency_floor %v above threshold %v", ErrInvalid, s.EmergencyFloor, s.Threshold)
	case s.EvolutionRate < 0:
		return fmt.Errorf("%w: evolution_rate %v is negative", ErrInvalid, s.EvolutionRate)
	case s.PatternCapacity < 1:
		return fmt.Errorf("%w: pattern_capacity %d below 1", ErrInvalid, s.PatternCapacity)
	case s.PatternHorizon < 0:
		return fmt.Errorf("%w: pattern_horizon %v is negative", ErrInvalid, s.PatternHorizon)
	}

	sch := c.Schedule
	if sch.MonitorInterval <= 0 || sch.EvolutionInterval <= 0 || sch.ScanInterval <= 0 {
		return fmt.Errorf("%w: schedule intervals must be positive", ErrInvalid)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("%w: journal enabled without a path", ErrInvalid)
	}
	return nil
}
// #endregion validate
