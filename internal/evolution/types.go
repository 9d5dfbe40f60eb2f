package evolution

import "time"

// #region config
// Config holds the evolution target model.
//
// Each tick the score moves toward a target by at most rate*elapsed points.
// The target starts at 100 and is lowered by the dimension deficit (how far
// the dimension mean sits below the baseline mean, times DimensionWeight) and
// by pattern pressure (PressureWeight times the summed strength of retained
// critical records not produced by the controller itself).
//
// Decay policy: before computing pressure, records older than Horizon
// relative to the newest retained record are dropped. The reference point is
// taken from the state, so the step is deterministic for a given state and
// elapsed time. A zero Horizon disables active decay and leaves pruning to
// capacity eviction.
type Config struct {
	DimensionWeight float64
	PressureWeight  float64
	Horizon         time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DimensionWeight: 1.0,
		PressureWeight:  2.0,
		Horizon:         60 * time.Second,
	}
}
// #endregion config

// #region result
// Result captures telemetry from one evolution tick.
type Result struct {
	Applied  bool    `json:"applied"`
	Reason   string  `json:"reason"`
	Elapsed  float64 `json:"elapsed_seconds"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	Target   float64 `json:"target"`
	Step     float64 `json:"step"`
	Pressure float64 `json:"pressure"`
	Deficit  float64 `json:"deficit"`
	Decayed  int     `json:"decayed"`

	// Emergency is set by the state owner when a critical state was reset
	// instead of evolved.
	Emergency bool `json:"emergency,omitempty"`
}
// #endregion result
