package evolution

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region engine
// Engine advances a State over time.
type Engine struct {
	config Config
}

// NewEngine creates an engine with the given configuration.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}
// #endregion engine

// #region evolve
// Evolve advances st by elapsedSeconds. A zero, negative or non-finite
// elapsed time is a no-op. Caller must hold the state's owner lock.
func (e *Engine) Evolve(st *state.State, elapsedSeconds float64) Result {
	before := st.Score()
	if !(elapsedSeconds > 0) || math.IsInf(elapsedSeconds, 1) {
		return Result{
			Reason: "no elapsed time",
			Before: before,
			After:  before,
			Target: before,
		}
	}

	// 1. Decay stale pattern records
	decayed := e.decay(st)

	// 2. Target from dimension deficit and pattern pressure
	deficit := e.Deficit(st.Dimensions())
	pressure := e.Pressure(st.Patterns())
	target := state.Clamp(state.MaxScore - deficit - pressure)

	// 3. Bounded step toward target
	step := st.EvolutionRate() * elapsedSeconds
	gap := target - before
	switch {
	case math.Abs(gap) <= step:
		st.SetScore(target)
	case gap > 0:
		st.SetScore(before + step)
	default:
		st.SetScore(before - step)
	}
	after := st.Score()

	return Result{
		Applied:  true,
		Reason:   fmt.Sprintf("score %.4f -> %.4f toward %.4f", before, after, target),
		Elapsed:  elapsedSeconds,
		Before:   before,
		After:    after,
		Target:   target,
		Step:     step,
		Pressure: pressure,
		Deficit:  deficit,
		Decayed:  decayed,
	}
}
// #endregion evolve

// #region helpers
// Deficit returns the weighted shortfall of the dimension mean below baseline.
func (e *Engine) Deficit(d state.Dimensions) float64 {
	gap := state.BaselineDimensions().Mean() - d.Mean()
	if gap <= 0 {
		return 0
	}
	return gap * e.config.DimensionWeight
}

// Pressure returns the weighted strength of adverse critical records.
func (e *Engine) Pressure(records []state.PatternRecord) float64 {
	var sum float64
	for _, rec := range records {
		if rec.IsCritical() && rec.Source != state.SourceController {
			sum += rec.Strength
		}
	}
	return sum * e.config.PressureWeight
}

// decay drops records older than the horizon relative to the newest record.
func (e *Engine) decay(st *state.State) int {
	if e.config.Horizon <= 0 || st.PatternCount() == 0 {
		return 0
	}
	var newest time.Time
	for _, rec := range st.Patterns() {
		if rec.Timestamp.After(newest) {
			newest = rec.Timestamp
		}
	}
	cutoff := newest.Add(-e.config.Horizon)
	return st.Retain(func(rec state.PatternRecord) bool {
		return !rec.Timestamp.Before(cutoff)
	})
}
// #endregion helpers
