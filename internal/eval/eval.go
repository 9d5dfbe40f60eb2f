package eval

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region eval-harness
// EvalHarness checks state invariants at an observable boundary.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks a snapshot and its pattern history. Every failing check is
// recorded; the reason names the first.
func (h *EvalHarness) Run(snap state.Snapshot, patterns []state.PatternRecord) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Scalars within bounds
	scalars := []struct {
		name  string
		value float64
	}{
		{"score", snap.Score},
		{"threshold", snap.Threshold},
		{"alpha", snap.Dimensions.Alpha},
		{"beta", snap.Dimensions.Beta},
		{"gamma", snap.Dimensions.Gamma},
	}
	for _, s := range scalars {
		check(s.name, s.value, h.inBounds(s.value),
			fmt.Sprintf("%s %.4f outside [%.0f, %.0f]", s.name, s.value, h.config.MinValue, h.config.MaxValue))
	}

	// 2. History bounded by capacity
	check("pattern_count", float64(len(patterns)), len(patterns) <= snap.Capacity,
		fmt.Sprintf("pattern count %d exceeds capacity %d", len(patterns), snap.Capacity))

	// 3. Every stored record well-formed
	malformed := 0
	for _, rec := range patterns {
		if !wellFormed(rec) {
			malformed++
		}
	}
	check("malformed_patterns", float64(malformed), malformed == 0,
		fmt.Sprintf("%d malformed pattern records", malformed))

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func (h *EvalHarness) inBounds(v float64) bool {
	return !math.IsNaN(v) && v >= h.config.MinValue && v <= h.config.MaxValue
}

func wellFormed(rec state.PatternRecord) bool {
	if strings.TrimSpace(rec.Type) == "" {
		return false
	}
	if math.IsNaN(rec.Strength) || rec.Strength < 0 || rec.Strength > 1 {
		return false
	}
	for _, d := range rec.Signature {
		if d > 1 {
			return false
		}
	}
	return true
}

// #endregion helpers
