package monitor

import "github.com/danielpatrickdp/adaptive-state/stability/internal/state"

// #region monitor
// Monitor samples a State without mutating it.
type Monitor struct {
	floor float64
}

// NewMonitor creates a monitor with the given emergency floor (0-100 scale).
func NewMonitor(emergencyFloor float64) *Monitor {
	return &Monitor{floor: state.Clamp(emergencyFloor)}
}

// Floor returns the emergency floor.
func (m *Monitor) Floor() float64 {
	return m.floor
}

// SetFloor replaces the emergency floor.
func (m *Monitor) SetFloor(v float64) {
	m.floor = state.Clamp(v)
}

// Check returns a snapshot status. It is a pure read and safe to call at any
// rate. Caller must hold the state's owner lock.
func (m *Monitor) Check(st *state.State) Status {
	snap := st.Snapshot()
	return Status{
		Stable:         st.Verify(),
		Mode:           m.Classify(snap.Score, snap.Threshold),
		Score:          snap.Score,
		Threshold:      snap.Threshold,
		EmergencyFloor: m.floor,
		Dimensions:     snap.Dimensions,
		PatternCount:   snap.PatternCount,
	}
}

// Classify maps a score to a mode.
func (m *Monitor) Classify(score, threshold float64) Mode {
	switch {
	case score >= threshold:
		return ModeStable
	case score < m.floor:
		return ModeCritical
	default:
		return ModeDegraded
	}
}
// #endregion monitor

// #region advise
const (
	degradedEffectsLevel  = 0.5
	degradedPhysicsDetail = 0.5
	degradedDrawDistance  = 0.8
)

// Advise returns host degradation directives for a status. A stable status
// yields empty advice with neutral limits.
func Advise(s Status) Advice {
	a := Advice{
		MaxEffectsLevel:   1,
		MaxPhysicsDetail:  1,
		DrawDistanceScale: 1,
	}
	if s.Stable {
		return a
	}

	a.Directives = append(a.Directives,
		DirectiveReduceEffects,
		DirectiveSimplifyPhysics,
		DirectiveDrawDistance,
	)
	a.MaxEffectsLevel = degradedEffectsLevel
	a.MaxPhysicsDetail = degradedPhysicsDetail
	a.DrawDistanceScale = degradedDrawDistance

	if s.Dimensions.Gamma < state.BaselineDimensions().Gamma {
		a.Directives = append(a.Directives, DirectiveReclaimMemory)
	}
	if s.Critical() {
		a.Directives = append(a.Directives, DirectiveEmergencyReset)
	}
	return a
}
// #endregion advise
