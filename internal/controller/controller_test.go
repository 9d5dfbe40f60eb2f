package controller

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"go.uber.org/goleak"
)

type countingReclaimer struct{ calls int }

func (c *countingReclaimer) RequestReclaim() { c.calls++ }

func newController(r Reclaimer) *Controller {
	return NewController(pattern.NewMatcher(nil), evolution.NewEngine(evolution.DefaultConfig()), r, DefaultConfig())
}

func add(t *testing.T, st *state.State, typ string, strength float64) {
	t.Helper()
	res := pattern.NewMatcher(nil).Recognize(st, pattern.New(typ, strength, []int{0, 1, 0, 1, 0}))
	if !res.Accepted {
		t.Fatalf("seed pattern rejected: %s", res.Reason)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"memory", TargetMemory},
		{"FPS", TargetFPS},
		{" stability ", TargetStability},
		{"all", TargetAll},
		{"", TargetAll},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseTarget(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseTarget("network"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}

// 1. Memory pass keeps only essential records.
func TestOptimizeMemoryPrunes(t *testing.T) {
	r := &countingReclaimer{}
	c := newController(r)
	st := state.New(state.DefaultParams())
	add(t, st, "a", 0.5)
	add(t, st, "b", 0.6)
	add(t, st, "c", 0.7)
	add(t, st, "keep", 0.99)

	report := c.Optimize(st, TargetMemory)
	if !report.Success {
		t.Fatalf("expected success: %s", report.Reason)
	}
	recs := st.Patterns()
	if len(recs) != 1 || recs[0].Strength != 0.99 {
		t.Fatalf("expected only the 0.99 record, got %+v", recs)
	}
	if report.Optimizations[0].Pruned != 3 {
		t.Fatalf("expected 3 pruned, got %d", report.Optimizations[0].Pruned)
	}
	if math.Abs(st.Dimensions().Gamma-99.4) > 1e-9 {
		t.Fatalf("expected gamma 99.4, got %f", st.Dimensions().Gamma)
	}
	if r.calls != 1 {
		t.Fatalf("expected one reclaim request, got %d", r.calls)
	}
	if report.Before.PatternCount != 4 || report.After.PatternCount != 1 {
		t.Fatalf("unexpected before/after: %+v / %+v", report.Before, report.After)
	}
}

// 2. Type "critical" survives regardless of strength.
func TestOptimizeMemoryKeepsCriticalType(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	add(t, st, "critical", 0.1)
	add(t, st, "noise", 0.98)

	report := c.Optimize(st, TargetMemory)
	if st.PatternCount() != 1 || st.Patterns()[0].Type != "critical" {
		t.Fatalf("unexpected history: %+v", st.Patterns())
	}
	actions := report.Optimizations[0].Actions
	if actions[len(actions)-1] != ActionReclaimUnavailable {
		t.Fatalf("expected reclamation unavailable, got %v", actions)
	}
}

func TestOptimizeMemoryCapsGamma(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	st.AdjustDimensions(state.PartialDimensions{Gamma: state.Float(99.8)})

	c.Optimize(st, TargetMemory)
	if st.Dimensions().Gamma != 100 {
		t.Fatalf("expected gamma capped at 100, got %f", st.Dimensions().Gamma)
	}
}

// 3. FPS pass raises alpha and leaves a controller-sourced request.
func TestOptimizeFPS(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())

	c.Optimize(st, TargetFPS)
	if math.Abs(st.Dimensions().Alpha-99.7) > 1e-9 {
		t.Fatalf("expected alpha 99.7, got %f", st.Dimensions().Alpha)
	}
	recs := st.Patterns()
	if len(recs) != 1 {
		t.Fatalf("expected 1 request record, got %d", len(recs))
	}
	req := recs[0]
	if req.Type != "optimization_request" || req.Strength != 0.99 || req.Source != state.SourceController {
		t.Fatalf("unexpected request record: %+v", req)
	}
	if !req.IsCritical() {
		t.Fatal("expected request to carry the critical signature")
	}
}

// 4. Stability pass from a low score.
func TestOptimizeStabilityFromLowScore(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	st.SetScore(70)
	st.SetDimensions(state.Dimensions{Alpha: 50, Beta: 60, Gamma: 70})

	report := c.Optimize(st, TargetStability)
	if st.Dimensions() != state.BaselineDimensions() || st.Position() != state.BaselinePosition() {
		t.Fatalf("expected baseline geometry, got %+v %+v", st.Dimensions(), st.Position())
	}
	want := 75 + state.DefaultEvolutionRate*5
	if math.Abs(st.Score()-want) > 1e-9 {
		t.Fatalf("expected score %f, got %f", want, st.Score())
	}
	if report.Optimizations[0].Evolution == nil || !report.Optimizations[0].Evolution.Applied {
		t.Fatal("expected evolution to be applied")
	}
}

func TestOptimizeStabilityCapsScore(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	st.SetScore(98)

	c.Optimize(st, TargetStability)
	if st.Score() != 100 {
		t.Fatalf("expected score capped at 100, got %f", st.Score())
	}
}

func TestOptimizeAllRunsEveryPass(t *testing.T) {
	r := &countingReclaimer{}
	c := newController(r)
	st := state.New(state.DefaultParams())
	add(t, st, "noise", 0.2)

	report := c.Optimize(st, TargetAll)
	if len(report.Optimizations) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(report.Optimizations))
	}
	order := []Target{TargetMemory, TargetFPS, TargetStability}
	for i, o := range report.Optimizations {
		if o.Target != order[i] {
			t.Fatalf("pass %d: expected %s, got %s", i, order[i], o.Target)
		}
	}
	// memory pruned the noise, fps added its request, stability reset the axes
	recs := st.Patterns()
	if len(recs) != 1 || recs[0].Type != "optimization_request" {
		t.Fatalf("unexpected history: %+v", recs)
	}
	if st.Dimensions() != state.BaselineDimensions() {
		t.Fatalf("expected baseline dimensions, got %+v", st.Dimensions())
	}
	if r.calls != 1 {
		t.Fatalf("expected one reclaim request, got %d", r.calls)
	}
}

func TestOptimizeUnknownTarget(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	st.SetScore(88)
	before := st.Clone()

	report := c.Optimize(st, Target("network"))
	if report.Success {
		t.Fatal("expected unsuccessful report")
	}
	if report.Reason == "" {
		t.Fatal("expected a reason")
	}
	if !st.Equal(before) {
		t.Fatal("unknown target modified state")
	}
}

// 5. Emergency restores baseline and clears history.
func TestEmergencyStabilize(t *testing.T) {
	c := newController(nil)
	st := state.New(state.Params{Threshold: 90, EvolutionRate: 0.1, Capacity: 10})
	st.SetScore(75)
	st.SetDimensions(state.Dimensions{Alpha: 10, Beta: 20, Gamma: 30})
	add(t, st, "x", 0.5)
	add(t, st, "y", 0.99)

	report := c.EmergencyStabilize(st)
	if st.Score() != 100 || st.PatternCount() != 0 {
		t.Fatalf("unexpected state after emergency: score %f, patterns %d", st.Score(), st.PatternCount())
	}
	if st.Dimensions() != state.BaselineDimensions() || st.Position() != state.BaselinePosition() {
		t.Fatal("expected baseline geometry")
	}
	if st.Threshold() != 90 || st.EvolutionRate() != 0.1 || st.Capacity() != 10 {
		t.Fatal("emergency must not touch configuration")
	}
	if report.Cleared != 2 || report.Before.Score != 75 || report.After.Score != 100 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

// 6. An escalated pass reports the reset under the requested target.
func TestEscalatedReport(t *testing.T) {
	c := newController(nil)
	st := state.New(state.DefaultParams())
	st.SetScore(70)
	add(t, st, "x", 0.5)

	report := c.Escalated(TargetStability, c.EmergencyStabilize(st))
	if !report.Success || report.Reason != ReasonEscalated || report.Target != TargetStability {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Before.Score != 70 || report.After.Score != 100 || report.After.PatternCount != 0 {
		t.Fatalf("unexpected metrics: %+v -> %+v", report.Before, report.After)
	}
	if len(report.Optimizations) != 1 || report.Optimizations[0].Target != TargetStability || report.ID == "" {
		t.Fatalf("unexpected optimizations: %+v", report.Optimizations)
	}
}

func TestTargetValid(t *testing.T) {
	for _, tgt := range []Target{TargetMemory, TargetFPS, TargetStability, TargetAll} {
		if !tgt.Valid() {
			t.Errorf("%s should be valid", tgt)
		}
	}
	for _, tgt := range []Target{"", "gpu", "FPS"} {
		if tgt.Valid() {
			t.Errorf("%q should be invalid", tgt)
		}
	}
}

func TestRuntimeReclaimerCoalescesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ran := make(chan struct{}, 10)
	r := newReclaimer(func() { ran <- struct{}{} })
	r.Start()
	r.RequestReclaim()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("reclaim pass never ran")
	}

	r.Stop()
	r.Stop()
	r.RequestReclaim()
	if r.Completed() < 1 {
		t.Fatalf("expected at least one completed pass, got %d", r.Completed())
	}
}

func TestRuntimeReclaimerStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRuntimeReclaimer()
	r.RequestReclaim()
	r.RequestReclaim()
	r.Stop()
	if r.Completed() != 0 {
		t.Fatalf("expected no passes, got %d", r.Completed())
	}
}
