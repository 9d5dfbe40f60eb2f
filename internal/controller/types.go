package controller

// #region imports
import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #endregion

// #region target

// Target names what an optimization pass should favor.
type Target string

const (
	TargetMemory    Target = "memory"
	TargetFPS       Target = "fps"
	TargetStability Target = "stability"
	TargetAll       Target = "all"
)

// ErrUnknownTarget is returned by ParseTarget for unrecognized names.
var ErrUnknownTarget = errors.New("unknown optimization target")

// ParseTarget parses a target name. The empty string means TargetAll.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TargetAll, nil
	case TargetMemory, TargetFPS, TargetStability, TargetAll:
		return t, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownTarget)
	}
}

// Valid reports whether t names a known pass.
func (t Target) Valid() bool {
	switch t {
	case TargetMemory, TargetFPS, TargetStability, TargetAll:
		return true
	}
	return false
}

// #endregion

// #region actions

// Action labels recorded in reports.
const (
	ActionAdjustedDimensions   = "adjusted dimensions"
	ActionClearedPatterns      = "cleared non-essential patterns"
	ActionRequestedReclaim     = "requested memory reclamation"
	ActionReclaimUnavailable   = "memory reclamation unavailable"
	ActionRequestedOptimize    = "requested engine optimization"
	ActionResetPosition        = "reset position"
	ActionBalancedDimensions   = "balanced dimensions"
	ActionBoostedStability     = "boosted stability"
	ActionEvolvedSystem        = "evolved system"
	ActionClearedPatternMemory = "cleared pattern history"
)

// ReasonEscalated marks a pass replaced by an emergency reset because the
// state was critical.
const ReasonEscalated = "critical state: emergency stabilization"

// #endregion

// #region config

// Config holds the step sizes of each corrective action.
type Config struct {
	GammaStep      float64 // memory: gamma raise per pass
	AlphaStep      float64 // fps: alpha raise per pass
	StabilityBonus float64 // stability: score bonus, capped at 100
	EvolveSeconds  float64 // stability: evolution applied after the reset
}

// DefaultConfig returns the documented step sizes.
func DefaultConfig() Config {
	return Config{
		GammaStep:      0.5,
		AlphaStep:      1.0,
		StabilityBonus: 5,
		EvolveSeconds:  5,
	}
}

// #endregion

// #region reports

// Metrics is the before/after view recorded around an optimization.
type Metrics struct {
	Score        float64          `json:"score"`
	Dimensions   state.Dimensions `json:"dimensions"`
	PatternCount int              `json:"pattern_count"`
}

// MetricsOf captures the report metrics of a state.
func MetricsOf(st *state.State) Metrics {
	return Metrics{
		Score:        st.Score(),
		Dimensions:   st.Dimensions(),
		PatternCount: st.PatternCount(),
	}
}

// ActionReport describes one target-specific pass.
type ActionReport struct {
	Target    Target            `json:"target"`
	Actions   []string          `json:"actions"`
	Pruned    int               `json:"pruned,omitempty"`
	Evolution *evolution.Result `json:"evolution,omitempty"`
}

// Report is the aggregate result of Optimize.
type Report struct {
	ID            string         `json:"id"`
	Target        Target         `json:"target"`
	Success       bool           `json:"success"`
	Reason        string         `json:"reason,omitempty"`
	Optimizations []ActionReport `json:"optimizations"`
	Before        Metrics        `json:"before"`
	After         Metrics        `json:"after"`
	CreatedAt     time.Time      `json:"created_at"`
}

// EmergencyReport describes a full reset.
type EmergencyReport struct {
	Before  Metrics  `json:"before"`
	After   Metrics  `json:"after"`
	Cleared int      `json:"cleared"`
	Actions []string `json:"actions"`
}

// #endregion

// #region interfaces

// Reclaimer accepts memory reclamation hints. RequestReclaim must not block.
type Reclaimer interface {
	RequestReclaim()
}

// #endregion
