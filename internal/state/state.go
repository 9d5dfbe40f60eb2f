package state

import "math"

// #region params
// Params configures a new State.
type Params struct {
	Threshold     float64
	EvolutionRate float64
	Capacity      int
}

// DefaultParams returns the documented defaults. Threshold is on the same
// 0-100 scale as the score.
func DefaultParams() Params {
	return Params{
		Threshold:     DefaultThreshold,
		EvolutionRate: DefaultEvolutionRate,
		Capacity:      DefaultCapacity,
	}
}
// #endregion params

// #region state-struct
// State is the mutable stability record. It performs no locking: the owner
// (stability.System) serializes every read and write.
type State struct {
	dimensions    Dimensions
	score         float64
	threshold     float64
	evolutionRate float64
	position      Position
	capacity      int
	patterns      []PatternRecord
}

// New creates a State at the documented baseline: baseline dimensions and
// position, score 100, empty pattern history.
func New(p Params) *State {
	if p.Capacity < 1 {
		p.Capacity = DefaultCapacity
	}
	if p.EvolutionRate < 0 || math.IsNaN(p.EvolutionRate) {
		p.EvolutionRate = DefaultEvolutionRate
	}
	return &State{
		dimensions:    BaselineDimensions(),
		score:         MaxScore,
		threshold:     Clamp(p.Threshold),
		evolutionRate: p.EvolutionRate,
		position:      BaselinePosition(),
		capacity:      p.Capacity,
		patterns:      make([]PatternRecord, 0, p.Capacity),
	}
}
// #endregion state-struct

// #region accessors
// Verify reports whether the score is at or above the threshold.
func (s *State) Verify() bool {
	return s.score >= s.threshold
}

// Score returns the aggregate stability score.
func (s *State) Score() float64 { return s.score }

// SetScore sets the score, clamped to [0, 100].
func (s *State) SetScore(v float64) { s.score = Clamp(v) }

// AddScore shifts the score by delta, clamped to [0, 100].
func (s *State) AddScore(delta float64) { s.score = Clamp(s.score + delta) }

// Threshold returns the stability gate.
func (s *State) Threshold() float64 { return s.threshold }

// SetThreshold sets the gate, clamped to [0, 100].
func (s *State) SetThreshold(v float64) { s.threshold = Clamp(v) }

// EvolutionRate returns the per-second evolution step size.
func (s *State) EvolutionRate() float64 { return s.evolutionRate }

// SetEvolutionRate sets the step size. Negative or NaN values are ignored.
func (s *State) SetEvolutionRate(v float64) {
	if v < 0 || math.IsNaN(v) {
		return
	}
	s.evolutionRate = v
}

// Dimensions returns a copy of the current dimensions.
func (s *State) Dimensions() Dimensions { return s.dimensions }

// SetDimensions replaces all three axes, clamping each.
func (s *State) SetDimensions(d Dimensions) { s.dimensions = d.clamped() }

// AdjustDimensions merges any subset of the axes into the current values.
// Out-of-range values are clamped, never rejected.
func (s *State) AdjustDimensions(p PartialDimensions) {
	d := s.dimensions
	if p.Alpha != nil {
		d.Alpha = *p.Alpha
	}
	if p.Beta != nil {
		d.Beta = *p.Beta
	}
	if p.Gamma != nil {
		d.Gamma = *p.Gamma
	}
	s.dimensions = d.clamped()
}

// Position returns the current position marker.
func (s *State) Position() Position { return s.position }

// ResetBaseline restores position and dimensions to their documented baselines.
func (s *State) ResetBaseline() {
	s.position = BaselinePosition()
	s.dimensions = BaselineDimensions()
}

// Capacity returns the maximum number of retained pattern records.
func (s *State) Capacity() int { return s.capacity }
// #endregion accessors

// #region patterns
// PatternCount returns the number of retained pattern records.
func (s *State) PatternCount() int { return len(s.patterns) }

// Patterns returns a copy of the pattern history, oldest first.
func (s *State) Patterns() []PatternRecord {
	out := make([]PatternRecord, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// Append stores an already-validated record, evicting the oldest record when
// the history is at capacity. Returns the evicted record, if any.
func (s *State) Append(rec PatternRecord) (PatternRecord, bool) {
	if len(s.patterns) < s.capacity {
		s.patterns = append(s.patterns, rec)
		return PatternRecord{}, false
	}
	evicted := s.patterns[0]
	copy(s.patterns, s.patterns[1:])
	s.patterns[len(s.patterns)-1] = rec
	return evicted, true
}

// Retain keeps only records for which keep returns true, preserving order.
// Returns the number of records removed.
func (s *State) Retain(keep func(PatternRecord) bool) int {
	kept := s.patterns[:0]
	for _, rec := range s.patterns {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(s.patterns) - len(kept)
	for i := len(kept); i < len(s.patterns); i++ {
		s.patterns[i] = PatternRecord{}
	}
	s.patterns = kept
	return removed
}

// ClearPatterns drops the entire pattern history and returns how many
// records were removed.
func (s *State) ClearPatterns() int {
	n := len(s.patterns)
	s.patterns = make([]PatternRecord, 0, s.capacity)
	return n
}
// #endregion patterns

// #region snapshot
// Snapshot returns a copy of the scalar state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Score:         s.score,
		Threshold:     s.threshold,
		EvolutionRate: s.evolutionRate,
		Dimensions:    s.dimensions,
		Position:      s.position,
		PatternCount:  len(s.patterns),
		Capacity:      s.capacity,
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.patterns = make([]PatternRecord, len(s.patterns), s.capacity)
	copy(c.patterns, s.patterns)
	return &c
}

// Equal reports whether two states are identical, including pattern history.
func (s *State) Equal(o *State) bool {
	if s.Snapshot() != o.Snapshot() || len(s.patterns) != len(o.patterns) {
		return false
	}
	for i := range s.patterns {
		a, b := s.patterns[i], o.patterns[i]
		if a.ID != b.ID || a.Type != b.Type || a.Strength != b.Strength ||
			a.Signature != b.Signature || !a.Timestamp.Equal(b.Timestamp) ||
			a.Source != b.Source || len(a.Metrics) != len(b.Metrics) {
			return false
		}
		for k, v := range a.Metrics {
			if bv, ok := b.Metrics[k]; !ok || bv != v {
				return false
			}
		}
	}
	return true
}
// #endregion snapshot

// #region helpers
// Clamp restricts v to [0, 100]. NaN clamps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
// #endregion helpers
