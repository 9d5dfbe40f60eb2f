package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/stability"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region fixture-types

// Op names a single replay step.
type Op string

const (
	OpRecognize Op = "recognize"
	OpAdjust    Op = "adjust"
	OpEvolve    Op = "evolve"
	OpOptimize  Op = "optimize"
	OpEmergency Op = "emergency"
	OpTick      Op = "tick"
	OpCheck     Op = "check"
)

var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is the top-level structure of a replay fixture JSON file.
type Fixture struct {
	Description string           `json:"description"`
	Config      FixtureConfig    `json:"config"`
	Start       *stability.Start `json:"start,omitempty"`
	Steps       []Step           `json:"steps"`
}

// FixtureConfig overrides System defaults. Zero fields keep the default.
type FixtureConfig struct {
	Threshold      float64 `json:"threshold"`
	EmergencyFloor float64 `json:"emergency_floor"`
	EvolutionRate  float64 `json:"evolution_rate"`
	Capacity       int     `json:"capacity"`
}

// Step is one operation plus its arguments. Which arguments apply depends
// on Op: recognize reads Pattern, adjust reads Dimensions, evolve and tick
// read Elapsed, optimize reads Target.
type Step struct {
	ID         string                   `json:"id"`
	Op         Op                       `json:"op"`
	Advance    float64                  `json:"advance,omitempty"` // clock seconds before the step
	Pattern    *pattern.Candidate       `json:"pattern,omitempty"`
	Dimensions *state.PartialDimensions `json:"dimensions,omitempty"`
	Elapsed    float64                  `json:"elapsed,omitempty"`
	Target     string                   `json:"target,omitempty"`
	Expect     *Expect                  `json:"expect,omitempty"`
}

// Expect holds optional post-step assertions. Nil fields are not checked.
type Expect struct {
	Stable       *bool    `json:"stable,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	Critical     *bool    `json:"critical,omitempty"`
	Accepted     *bool    `json:"accepted,omitempty"`
	Success      *bool    `json:"success,omitempty"`
	ScoreMin     *float64 `json:"score_min,omitempty"`
	ScoreMax     *float64 `json:"score_max,omitempty"`
	PatternCount *int     `json:"pattern_count,omitempty"`
	PatternTypes []string `json:"pattern_types,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and validates a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks that every step names a known op and carries the
// arguments that op needs.
func (f *Fixture) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("no steps: %w", ErrInvalidFixture)
	}
	for i, st := range f.Steps {
		switch st.Op {
		case OpRecognize:
			if st.Pattern == nil {
				return fmt.Errorf("step %d: recognize without pattern: %w", i, ErrInvalidFixture)
			}
		case OpAdjust:
			if st.Dimensions == nil {
				return fmt.Errorf("step %d: adjust without dimensions: %w", i, ErrInvalidFixture)
			}
		case OpEvolve, OpOptimize, OpEmergency, OpTick, OpCheck:
		default:
			return fmt.Errorf("step %d: unknown op %q: %w", i, st.Op, ErrInvalidFixture)
		}
		if st.Advance < 0 {
			return fmt.Errorf("step %d: negative advance: %w", i, ErrInvalidFixture)
		}
	}
	return nil
}

// ToOptions converts the fixture config into System options.
func (c FixtureConfig) ToOptions() stability.Options {
	opts := stability.DefaultOptions()
	if c.Threshold != 0 {
		opts.Params.Threshold = c.Threshold
	}
	if c.EmergencyFloor != 0 {
		opts.EmergencyFloor = c.EmergencyFloor
	}
	if c.EvolutionRate != 0 {
		opts.Params.EvolutionRate = c.EvolutionRate
	}
	if c.Capacity != 0 {
		opts.Params.Capacity = c.Capacity
	}
	return opts
}

// #endregion fixture-loader
