package evolution

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func critical(id string, at time.Duration, source state.Source) state.PatternRecord {
	return state.PatternRecord{
		ID:        id,
		Type:      "performance_drop",
		Strength:  0.95,
		Signature: state.CriticalSignature,
		Timestamp: t0.Add(at),
		Source:    source,
	}
}

func TestEvolveZeroIsNoOp(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.SetScore(72.5)
	st.AdjustDimensions(state.PartialDimensions{Alpha: state.Float(60)})
	st.Append(critical("a", 0, state.SourceHost))
	st.Append(critical("b", 10*time.Minute, state.SourceHost))
	before := st.Clone()

	for _, elapsed := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		res := e.Evolve(st, elapsed)
		if res.Applied {
			t.Fatalf("elapsed %v: expected no-op", elapsed)
		}
	}

	if diff := cmp.Diff(before, st, cmp.AllowUnexported(state.State{})); diff != "" {
		t.Fatalf("state changed on zero elapsed (-before +after):\n%s", diff)
	}
}

func TestEvolveRecoversTowardBaseline(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.SetScore(90)

	res := e.Evolve(st, 5)
	if !res.Applied {
		t.Fatal("expected applied")
	}
	if res.Target != 100 {
		t.Fatalf("expected target 100 at baseline, got %f", res.Target)
	}
	want := 90 + state.DefaultEvolutionRate*5
	if math.Abs(st.Score()-want) > 1e-9 {
		t.Fatalf("expected score %f, got %f", want, st.Score())
	}
}

func TestEvolveDoesNotOvershoot(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.SetScore(99.99)

	e.Evolve(st, 1000)
	if st.Score() != 100 {
		t.Fatalf("expected score to settle at 100, got %f", st.Score())
	}
}

func TestEvolveDecaysUnderPressure(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.Append(critical("a", 0, state.SourceHost))
	st.Append(critical("b", time.Second, state.SourceScanner))

	res := e.Evolve(st, 10)
	wantPressure := 2.0 * (0.95 + 0.95)
	if math.Abs(res.Pressure-wantPressure) > 1e-9 {
		t.Fatalf("expected pressure %f, got %f", wantPressure, res.Pressure)
	}
	if st.Score() >= 100 {
		t.Fatalf("expected decay under pressure, got %f", st.Score())
	}
	if math.Abs(st.Score()-(100-state.DefaultEvolutionRate*10)) > 1e-9 {
		t.Fatalf("expected one bounded step down, got %f", st.Score())
	}
}

func TestEvolveIgnoresControllerPatterns(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.Append(critical("req", 0, state.SourceController))

	res := e.Evolve(st, 5)
	if res.Pressure != 0 {
		t.Fatalf("controller requests must not create pressure, got %f", res.Pressure)
	}
	if st.Score() != 100 {
		t.Fatalf("expected score to stay at 100, got %f", st.Score())
	}
}

func TestEvolveDimensionDeficitLowersTarget(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := state.New(state.DefaultParams())
	st.SetDimensions(state.Dimensions{Alpha: 80, Beta: 80, Gamma: 80})

	res := e.Evolve(st, 1)
	wantDeficit := state.BaselineDimensions().Mean() - 80
	if math.Abs(res.Deficit-wantDeficit) > 1e-9 {
		t.Fatalf("expected deficit %f, got %f", wantDeficit, res.Deficit)
	}
	if math.Abs(res.Target-(100-wantDeficit)) > 1e-9 {
		t.Fatalf("unexpected target %f", res.Target)
	}
}

func TestEvolveDropsStaleRecords(t *testing.T) {
	e := NewEngine(Config{DimensionWeight: 1, PressureWeight: 2, Horizon: time.Minute})
	st := state.New(state.DefaultParams())
	st.Append(critical("old", 0, state.SourceHost))
	st.Append(critical("mid", 90*time.Second, state.SourceHost))
	st.Append(critical("new", 2*time.Minute, state.SourceHost))

	res := e.Evolve(st, 1)
	if res.Decayed != 1 {
		t.Fatalf("expected 1 decayed record, got %d", res.Decayed)
	}
	ids := []string{}
	for _, r := range st.Patterns() {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"mid", "new"}, ids); diff != "" {
		t.Fatalf("unexpected retained records (-want +got):\n%s", diff)
	}
}

func TestEvolveZeroHorizonKeepsHistory(t *testing.T) {
	e := NewEngine(Config{DimensionWeight: 1, PressureWeight: 2})
	st := state.New(state.DefaultParams())
	st.Append(critical("old", 0, state.SourceHost))
	st.Append(critical("new", time.Hour, state.SourceHost))

	if res := e.Evolve(st, 1); res.Decayed != 0 {
		t.Fatalf("expected no decay, got %d", res.Decayed)
	}
	if st.PatternCount() != 2 {
		t.Fatalf("expected 2 records, got %d", st.PatternCount())
	}
}

func TestEvolveDeterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := state.New(state.DefaultParams())
	base.SetScore(81)
	base.AdjustDimensions(state.PartialDimensions{Gamma: state.Float(70)})
	base.Append(critical("a", 0, state.SourceHost))

	a, b := base.Clone(), base.Clone()
	r1 := e.Evolve(a, 5)
	r2 := e.Evolve(b, 5)

	if r1 != r2 {
		t.Fatalf("non-deterministic results: %+v vs %+v", r1, r2)
	}
	if !a.Equal(b) {
		t.Fatal("non-deterministic state")
	}
}

func TestEvolveScoreStaysInRange(t *testing.T) {
	e := NewEngine(Config{DimensionWeight: 50, PressureWeight: 500, Horizon: time.Minute})
	st := state.New(state.Params{Threshold: 95, EvolutionRate: 40, Capacity: 10})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		if rng.Intn(3) == 0 {
			st.Append(critical("p", time.Duration(i)*time.Second, state.SourceHost))
		}
		if rng.Intn(5) == 0 {
			st.AdjustDimensions(state.PartialDimensions{Beta: state.Float(rng.Float64() * 100)})
		}
		e.Evolve(st, rng.Float64()*10)
		if s := st.Score(); s < 0 || s > 100 {
			t.Fatalf("step %d: score out of range: %f", i, s)
		}
	}
}
