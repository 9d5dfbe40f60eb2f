package pattern

import (
	"errors"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region errors
var (
	ErrEmptyType       = errors.New("pattern type is empty")
	ErrStrengthRange   = errors.New("strength outside [0, 1]")
	ErrSignatureLength = errors.New("signature must have exactly 5 digits")
	ErrSignatureDigit  = errors.New("signature digits must be 0 or 1")
)
// #endregion errors

// #region candidate
// Candidate is an unvalidated pattern observation as submitted by a host.
// Signature is a plain slice so that wrong-length input can be rejected.
type Candidate struct {
	Type      string             `json:"type"`
	Strength  float64            `json:"strength"`
	Signature []int              `json:"signature"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Source    state.Source       `json:"source,omitempty"`
}
// #endregion candidate

// #region result
// Result is the outcome of a recognition attempt. Rejection is a normal
// outcome: Accepted is false and Reason explains why.
type Result struct {
	Accepted bool                 `json:"accepted"`
	Critical bool                 `json:"critical"`
	Reason   string               `json:"reason,omitempty"`
	Record   *state.PatternRecord `json:"record,omitempty"`
	Evicted  *state.PatternRecord `json:"evicted,omitempty"`
}
// #endregion result
