package monitor

import "github.com/danielpatrickdp/adaptive-state/stability/internal/state"

// #region mode
// Mode is the logical state of the stability loop.
type Mode string

const (
	ModeStable   Mode = "stable"
	ModeDegraded Mode = "degraded"
	ModeCritical Mode = "critical" // sub-state of degraded: score below the emergency floor
)
// #endregion mode

// #region status
// Status is a point-in-time view of the stability state.
type Status struct {
	Stable         bool             `json:"stable"`
	Mode           Mode             `json:"mode"`
	Score          float64          `json:"score"`
	Threshold      float64          `json:"threshold"`
	EmergencyFloor float64          `json:"emergency_floor"`
	Dimensions     state.Dimensions `json:"dimensions"`
	PatternCount   int              `json:"pattern_count"`
}

// Critical reports whether the status is in the critical sub-state.
func (s Status) Critical() bool {
	return s.Mode == ModeCritical
}
// #endregion status

// #region advice
// Directive is a degradation the host may apply. The loop never applies it.
type Directive string

const (
	DirectiveReduceEffects   Directive = "reduce_effects"
	DirectiveSimplifyPhysics Directive = "simplify_physics"
	DirectiveDrawDistance    Directive = "shrink_draw_distance"
	DirectiveReclaimMemory   Directive = "reclaim_memory"
	DirectiveEmergencyReset  Directive = "emergency_reset"
)

// Advice bundles host-side degradation limits for a non-stable status.
type Advice struct {
	Directives        []Directive `json:"directives"`
	MaxEffectsLevel   float64     `json:"max_effects_level"`
	MaxPhysicsDetail  float64     `json:"max_physics_detail"`
	DrawDistanceScale float64     `json:"draw_distance_scale"`
}
// #endregion advice
