package state

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"
)

func record(i int, strength float64) PatternRecord {
	return PatternRecord{
		ID:        fmt.Sprintf("p-%d", i),
		Type:      "performance_drop",
		Strength:  strength,
		Signature: Signature{0, 1, 0, 1, 0},
		Timestamp: time.Unix(int64(i), 0),
		Source:    SourceHost,
	}
}

func TestNewStartsAtBaseline(t *testing.T) {
	s := New(DefaultParams())

	if s.Score() != 100 {
		t.Fatalf("expected score 100, got %f", s.Score())
	}
	if s.Dimensions() != BaselineDimensions() {
		t.Fatalf("expected baseline dimensions, got %+v", s.Dimensions())
	}
	if s.Position() != BaselinePosition() {
		t.Fatalf("expected baseline position, got %+v", s.Position())
	}
	if s.PatternCount() != 0 {
		t.Fatalf("expected empty history, got %d", s.PatternCount())
	}
	if s.Threshold() != DefaultThreshold {
		t.Fatalf("expected threshold %f, got %f", DefaultThreshold, s.Threshold())
	}
	if !s.Verify() {
		t.Fatal("baseline state should verify")
	}
}

func TestNewFixesInvalidParams(t *testing.T) {
	s := New(Params{Threshold: 250, EvolutionRate: -1, Capacity: 0})

	if s.Threshold() != 100 {
		t.Errorf("expected threshold clamped to 100, got %f", s.Threshold())
	}
	if s.EvolutionRate() != DefaultEvolutionRate {
		t.Errorf("expected default evolution rate, got %f", s.EvolutionRate())
	}
	if s.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity, got %d", s.Capacity())
	}
}

func TestVerifyUsesPercentScale(t *testing.T) {
	s := New(DefaultParams())
	s.SetScore(90)

	// A fractional 0.95 gate would rate this stable; the gate is on the score's scale.
	if s.Verify() {
		t.Fatal("score 90 must be below the default threshold of 95")
	}
	s.SetScore(95)
	if !s.Verify() {
		t.Fatal("score equal to threshold should verify")
	}
}

func TestAdjustDimensionsMergesSubset(t *testing.T) {
	s := New(DefaultParams())
	s.AdjustDimensions(PartialDimensions{Beta: Float(50)})

	d := s.Dimensions()
	if d.Beta != 50 {
		t.Fatalf("expected beta 50, got %f", d.Beta)
	}
	if d.Alpha != 98.7 || d.Gamma != 98.9 {
		t.Fatalf("untouched axes changed: %+v", d)
	}
}

func TestAdjustDimensionsClamps(t *testing.T) {
	s := New(DefaultParams())
	s.AdjustDimensions(PartialDimensions{Alpha: Float(-20), Beta: Float(140), Gamma: Float(math.NaN())})

	d := s.Dimensions()
	if d.Alpha != 0 || d.Beta != 100 || d.Gamma != 0 {
		t.Fatalf("expected {0,100,0}, got %+v", d)
	}
}

func TestAdjustDimensionsRandomSequenceStaysInRange(t *testing.T) {
	s := New(DefaultParams())
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		d := s.Dimensions()
		var p PartialDimensions
		switch i % 4 {
		case 0:
			p.Alpha = Float(d.Alpha + (rng.Float64()-0.5)*400)
		case 1:
			p.Beta = Float(d.Beta + (rng.Float64()-0.5)*1e6)
		case 2:
			p.Gamma = Float(d.Gamma - rng.Float64()*300)
		default:
			p = PartialDimensions{
				Alpha: Float(rng.NormFloat64() * 1e3),
				Beta:  Float(math.Inf(1)),
				Gamma: Float(math.Inf(-1)),
			}
		}
		s.AdjustDimensions(p)

		got := s.Dimensions()
		for name, v := range map[string]float64{"alpha": got.Alpha, "beta": got.Beta, "gamma": got.Gamma} {
			if v < 0 || v > 100 {
				t.Fatalf("step %d: %s out of range: %f", i, name, v)
			}
		}
	}
}

func TestScoreSettersClamp(t *testing.T) {
	s := New(DefaultParams())
	s.AddScore(25)
	if s.Score() != 100 {
		t.Fatalf("expected 100, got %f", s.Score())
	}
	s.SetScore(-3)
	if s.Score() != 0 {
		t.Fatalf("expected 0, got %f", s.Score())
	}
	s.SetThreshold(101)
	if s.Threshold() != 100 {
		t.Fatalf("expected threshold 100, got %f", s.Threshold())
	}
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	s := New(Params{Threshold: 95, EvolutionRate: 0.04, Capacity: 3})

	for i := 0; i < 3; i++ {
		if _, evicted := s.Append(record(i, 0.5)); evicted {
			t.Fatalf("unexpected eviction at %d", i)
		}
	}
	old, evicted := s.Append(record(3, 0.5))
	if !evicted {
		t.Fatal("expected eviction at capacity")
	}
	if old.ID != "p-0" {
		t.Fatalf("expected p-0 evicted, got %s", old.ID)
	}

	got := s.Patterns()
	want := []string{"p-1", "p-2", "p-3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d patterns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("index %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestRetainPreservesOrder(t *testing.T) {
	s := New(DefaultParams())
	for i, strength := range []float64{0.2, 0.99, 0.3, 0.995} {
		s.Append(record(i, strength))
	}

	removed := s.Retain(func(r PatternRecord) bool { return r.Strength > 0.98 })
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	got := s.Patterns()
	if len(got) != 2 || got[0].ID != "p-1" || got[1].ID != "p-3" {
		t.Fatalf("unexpected retained set: %+v", got)
	}
}

func TestPatternsReturnsCopy(t *testing.T) {
	s := New(DefaultParams())
	s.Append(record(0, 0.5))

	got := s.Patterns()
	got[0].Type = "mutated"
	if s.Patterns()[0].Type != "performance_drop" {
		t.Fatal("caller mutation leaked into state")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(DefaultParams())
	s.Append(record(0, 0.5))

	c := s.Clone()
	if !c.Equal(s) {
		t.Fatal("clone should equal original")
	}
	c.Append(record(1, 0.7))
	c.SetScore(10)
	if s.PatternCount() != 1 || s.Score() != 100 {
		t.Fatal("clone mutation leaked into original")
	}
	if c.Equal(s) {
		t.Fatal("diverged clone should not be equal")
	}
}

func TestIsCritical(t *testing.T) {
	tests := []struct {
		sig      Signature
		strength float64
		want     bool
	}{
		{CriticalSignature, 0.95, true},
		{CriticalSignature, 0.9, true},
		{CriticalSignature, 0.5, false},
		{Signature{1, 0, 1, 0, 1}, 0.99, false},
	}
	for _, tt := range tests {
		r := PatternRecord{Signature: tt.sig, Strength: tt.strength}
		if got := r.IsCritical(); got != tt.want {
			t.Errorf("%s@%.2f: expected %v, got %v", tt.sig, tt.strength, tt.want, got)
		}
	}
}

func TestSignatureString(t *testing.T) {
	if got := CriticalSignature.String(); got != "10110" {
		t.Fatalf("expected 10110, got %s", got)
	}
}
