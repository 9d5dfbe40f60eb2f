package pattern

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/google/uuid"
)

// #region matcher
// Matcher validates candidates and records accepted ones into a State.
// It detects critical events but never acts on them.
type Matcher struct {
	now func() time.Time
}

// NewMatcher creates a matcher. now supplies record timestamps; nil uses time.Now.
func NewMatcher(now func() time.Time) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{now: now}
}
// #endregion matcher

// #region validate
// Validate checks a candidate and returns the parsed signature.
func Validate(c Candidate) (state.Signature, error) {
	var sig state.Signature
	if strings.TrimSpace(c.Type) == "" {
		return sig, ErrEmptyType
	}
	if math.IsNaN(c.Strength) || c.Strength < 0 || c.Strength > 1 {
		return sig, fmt.Errorf("strength %v: %w", c.Strength, ErrStrengthRange)
	}
	if len(c.Signature) != state.SignatureLength {
		return sig, fmt.Errorf("got %d digits: %w", len(c.Signature), ErrSignatureLength)
	}
	for i, d := range c.Signature {
		if d != 0 && d != 1 {
			return sig, fmt.Errorf("digit %d is %d: %w", i, d, ErrSignatureDigit)
		}
		sig[i] = uint8(d)
	}
	return sig, nil
}
// #endregion validate

// #region recognize
// Recognize validates c and, on success, appends a fully populated record to
// st, evicting the oldest record if the history is full. Invalid candidates
// leave st untouched. Caller must hold the state's owner lock.
func (m *Matcher) Recognize(st *state.State, c Candidate) Result {
	sig, err := Validate(c)
	if err != nil {
		return Result{Reason: err.Error()}
	}

	source := c.Source
	if source == "" {
		source = state.SourceHost
	}
	var metrics map[string]float64
	if len(c.Metrics) > 0 {
		metrics = make(map[string]float64, len(c.Metrics))
		for k, v := range c.Metrics {
			metrics[k] = v
		}
	}

	rec := state.PatternRecord{
		ID:        uuid.New().String(),
		Type:      c.Type,
		Strength:  c.Strength,
		Signature: sig,
		Timestamp: m.now(),
		Metrics:   metrics,
		Source:    source,
	}

	res := Result{
		Accepted: true,
		Critical: rec.IsCritical(),
		Record:   &rec,
	}
	if evicted, ok := st.Append(rec); ok {
		res.Evicted = &evicted
	}
	return res
}
// #endregion recognize

// #region constructors
// New builds a candidate with strength clamped to [0, 1]. A nil signature
// defaults to all zeros.
func New(typ string, strength float64, sig []int) Candidate {
	if math.IsNaN(strength) || strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	if sig == nil {
		sig = make([]int, state.SignatureLength)
	}
	return Candidate{Type: typ, Strength: strength, Signature: sig}
}

// Critical builds a candidate carrying the critical signature at strength 0.98.
func Critical(typ string) Candidate {
	return New(typ, 0.98, state.CriticalSignature.Ints())
}
// #endregion constructors
