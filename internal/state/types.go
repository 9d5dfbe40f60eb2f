package state

import "time"

// #region constants
const (
	// SignatureLength is the fixed number of binary digits in a pattern signature.
	SignatureLength = 5

	// CriticalStrength is the minimum strength at which the critical signature
	// is treated as a critical event.
	CriticalStrength = 0.9

	DefaultCapacity       = 100
	DefaultThreshold      = 95.0
	DefaultEvolutionRate  = 0.042
	DefaultEmergencyFloor = 80.0

	MinScore = 0.0
	MaxScore = 100.0
)
// #endregion constants

// #region dimensions
// Dimensions are the three independent health axes, each in [0, 100].
type Dimensions struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// BaselineDimensions returns the documented known-good dimension values.
func BaselineDimensions() Dimensions {
	return Dimensions{Alpha: 98.7, Beta: 99.1, Gamma: 98.9}
}

// Mean returns the arithmetic mean of the three axes.
func (d Dimensions) Mean() float64 {
	return (d.Alpha + d.Beta + d.Gamma) / 3
}

func (d Dimensions) clamped() Dimensions {
	return Dimensions{
		Alpha: Clamp(d.Alpha),
		Beta:  Clamp(d.Beta),
		Gamma: Clamp(d.Gamma),
	}
}

// PartialDimensions carries any subset of the axes. Nil fields are left as-is.
type PartialDimensions struct {
	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty"`
}

// Float returns a pointer to v, for building PartialDimensions literals.
func Float(v float64) *float64 {
	return &v
}
// #endregion dimensions

// #region position
// Position is a marker that is reset to BaselinePosition during stabilization.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BaselinePosition returns the documented reset position.
func BaselinePosition() Position {
	return Position{X: 100, Y: 0, Z: 100}
}
// #endregion position

// #region signature
// Signature is a fixed-length binary sequence. Elements are always 0 or 1.
type Signature [SignatureLength]uint8

// CriticalSignature denotes an event that requires immediate corrective action.
var CriticalSignature = Signature{1, 0, 1, 1, 0}

// String renders the signature as a digit string, e.g. "10110".
func (s Signature) String() string {
	b := make([]byte, SignatureLength)
	for i, d := range s {
		b[i] = '0' + d
	}
	return string(b)
}

// Ints returns the signature as a plain int slice.
func (s Signature) Ints() []int {
	out := make([]int, SignatureLength)
	for i, d := range s {
		out[i] = int(d)
	}
	return out
}
// #endregion signature

// #region pattern-record
// Source identifies who produced a pattern record.
type Source string

const (
	SourceHost       Source = "host"
	SourceController Source = "controller"
	SourceScanner    Source = "scanner"
	SourceCompiler   Source = "compiler"
)

// PatternRecord is an accepted, validated observation. Records are never
// mutated after creation; the Metrics map is owned by the record.
type PatternRecord struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Strength  float64            `json:"strength"`
	Signature Signature          `json:"signature"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Source    Source             `json:"source"`
}

// IsCritical reports whether the record carries the critical signature at
// critical strength.
func (r PatternRecord) IsCritical() bool {
	return r.Signature == CriticalSignature && r.Strength >= CriticalStrength
}
// #endregion pattern-record

// #region snapshot
// Snapshot is a point-in-time copy of the scalar parts of the state.
type Snapshot struct {
	Score         float64    `json:"score"`
	Threshold     float64    `json:"threshold"`
	EvolutionRate float64    `json:"evolution_rate"`
	Dimensions    Dimensions `json:"dimensions"`
	Position      Position   `json:"position"`
	PatternCount  int        `json:"pattern_count"`
	Capacity      int        `json:"capacity"`
}

// SnapshotRecord is a journaled snapshot with lineage.
type SnapshotRecord struct {
	VersionID string
	ParentID  string
	Trigger   string
	Snapshot  Snapshot
	CreatedAt time.Time
}
// #endregion snapshot
