package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/eval"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/stability"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// #region types

// Epoch is the fixed clock origin of every replay.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Outcome labels what a step did.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeApplied   = "applied"
	OutcomeNoOp      = "no_op"
	OutcomeFailed    = "failed"
	OutcomeChecked   = "checked"
	OutcomeEmergency = "emergency"
)

// StepResult is the outcome of replaying a single step.
type StepResult struct {
	Index      int             `json:"index"`
	ID         string          `json:"id"`
	Op         Op              `json:"op"`
	Outcome    string          `json:"outcome"`
	Critical   bool            `json:"critical"`
	Reason     string          `json:"reason,omitempty"`
	Status     monitor.Status  `json:"status"`
	Eval       eval.EvalResult `json:"eval"`
	Delta      stability.Stats `json:"delta"`
	Mismatches []string        `json:"mismatches,omitempty"`
}

// Summary aggregates a replay run.
type Summary struct {
	TotalSteps        int            `json:"total_steps"`
	Accepted          int            `json:"accepted"`
	Rejected          int            `json:"rejected"`
	Critical          int            `json:"critical"`
	Optimizations     int            `json:"optimizations"`
	Emergencies       int            `json:"emergencies"`
	Evolutions        int            `json:"evolutions"`
	InvariantFailures int            `json:"invariant_failures"`
	Mismatches        int            `json:"mismatches"`
	Final             state.Snapshot `json:"final"`
}

// OK reports whether the run had no invariant failures and no mismatches.
func (s Summary) OK() bool {
	return s.InvariantFailures == 0 && s.Mismatches == 0
}

// #endregion types

// #region clock

// stepClock advances one millisecond per reading so record timestamps are
// strictly ordered, and jumps forward on Advance.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *stepClock) Advance(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Duration(seconds * float64(time.Second)))
}

// #endregion clock

// #region replay

// Run replays f against a fresh System on a fixed clock and checks
// invariants after every step. logger may be nil. Results are fully
// determined by the fixture. f is validated first.
func Run(ctx context.Context, f *Fixture, logger *zap.Logger) ([]StepResult, Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, Summary{}, err
	}
	clock := &stepClock{t: Epoch}
	opts := f.Config.ToOptions()
	opts.Start = f.Start
	opts.Logger = logger
	opts.Now = clock.Now
	sys := stability.New(opts)
	if err := sys.Init(ctx); err != nil {
		return nil, Summary{}, fmt.Errorf("init replay system: %w", err)
	}
	defer sys.Shutdown(ctx)
	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())

	results := make([]StepResult, 0, len(f.Steps))
	for i, step := range f.Steps {
		clock.Advance(step.Advance)
		before := sys.Stats()

		r := apply(ctx, sys, step)
		r.Index = i
		r.ID = step.ID
		r.Op = step.Op
		r.Status = sys.CheckStability()
		r.Eval = harness.Run(sys.Snapshot(), sys.Patterns())
		r.Delta = diffStats(before, sys.Stats())
		if step.Expect != nil {
			r.Mismatches = check(*step.Expect, r, sys)
		}
		results = append(results, r)
	}

	return results, Summarize(results, sys.Snapshot()), nil
}

// apply dispatches one step. Outcome, Critical and Reason are filled in.
func apply(ctx context.Context, sys *stability.System, step Step) StepResult {
	var r StepResult
	switch step.Op {
	case OpRecognize:
		res := sys.RecognizePattern(ctx, *step.Pattern)
		r.Critical = res.Critical
		r.Reason = res.Reason
		r.Outcome = OutcomeRejected
		if res.Accepted {
			r.Outcome = OutcomeAccepted
		}
	case OpAdjust:
		sys.AdjustDimensions(*step.Dimensions)
		r.Outcome = OutcomeApplied
	case OpEvolve:
		var res evolution.Result
		if step.Elapsed != 0 {
			res = sys.EvolveFor(ctx, step.Elapsed)
		} else {
			res = sys.EvolveSystem(ctx)
		}
		r.Reason = res.Reason
		switch {
		case res.Emergency:
			r.Outcome = OutcomeEmergency
		case res.Applied:
			r.Outcome = OutcomeApplied
		default:
			r.Outcome = OutcomeNoOp
		}
	case OpOptimize:
		report := sys.OptimizePerformance(ctx, step.Target)
		r.Reason = report.Reason
		r.Outcome = OutcomeFailed
		if report.Success {
			r.Outcome = OutcomeApplied
		}
	case OpEmergency:
		sys.EmergencyStabilize(ctx)
		r.Outcome = OutcomeEmergency
	case OpTick:
		sys.Tick(ctx, step.Elapsed)
		r.Outcome = OutcomeApplied
	case OpCheck:
		r.Outcome = OutcomeChecked
	default:
		r.Outcome = OutcomeFailed
		r.Reason = fmt.Sprintf("unknown op %q", step.Op)
	}
	return r
}

// check compares a step result against its expectations and returns one
// message per mismatch.
func check(e Expect, r StepResult, sys *stability.System) []string {
	var out []string
	if e.Stable != nil && *e.Stable != r.Status.Stable {
		out = append(out, fmt.Sprintf("stable: want %v, got %v", *e.Stable, r.Status.Stable))
	}
	if e.Mode != "" && monitor.Mode(e.Mode) != r.Status.Mode {
		out = append(out, fmt.Sprintf("mode: want %s, got %s", e.Mode, r.Status.Mode))
	}
	if e.Critical != nil && *e.Critical != r.Critical {
		out = append(out, fmt.Sprintf("critical: want %v, got %v", *e.Critical, r.Critical))
	}
	if e.Accepted != nil && *e.Accepted != (r.Outcome == OutcomeAccepted) {
		out = append(out, fmt.Sprintf("accepted: want %v, got outcome %s", *e.Accepted, r.Outcome))
	}
	if e.Success != nil && *e.Success != (r.Outcome == OutcomeApplied) {
		out = append(out, fmt.Sprintf("success: want %v, got outcome %s", *e.Success, r.Outcome))
	}
	if e.ScoreMin != nil && r.Status.Score < *e.ScoreMin {
		out = append(out, fmt.Sprintf("score: want >= %.4f, got %.4f", *e.ScoreMin, r.Status.Score))
	}
	if e.ScoreMax != nil && r.Status.Score > *e.ScoreMax {
		out = append(out, fmt.Sprintf("score: want <= %.4f, got %.4f", *e.ScoreMax, r.Status.Score))
	}
	if e.PatternCount != nil && *e.PatternCount != r.Status.PatternCount {
		out = append(out, fmt.Sprintf("pattern_count: want %d, got %d", *e.PatternCount, r.Status.PatternCount))
	}
	if e.PatternTypes != nil {
		got := []string{}
		for _, rec := range sys.Patterns() {
			got = append(got, rec.Type)
		}
		if diff := cmp.Diff(e.PatternTypes, got); diff != "" {
			out = append(out, "pattern_types (-want +got):\n"+diff)
		}
	}
	return out
}

func diffStats(a, b stability.Stats) stability.Stats {
	return stability.Stats{
		Accepted:      b.Accepted - a.Accepted,
		Rejected:      b.Rejected - a.Rejected,
		Critical:      b.Critical - a.Critical,
		Optimizations: b.Optimizations - a.Optimizations,
		Emergencies:   b.Emergencies - a.Emergencies,
		Evolutions:    b.Evolutions - a.Evolutions,
	}
}

// #endregion replay

// #region summary

// Summarize aggregates step results into a Summary.
func Summarize(results []StepResult, final state.Snapshot) Summary {
	s := Summary{TotalSteps: len(results), Final: final}
	for _, r := range results {
		s.Accepted += r.Delta.Accepted
		s.Rejected += r.Delta.Rejected
		s.Critical += r.Delta.Critical
		s.Optimizations += r.Delta.Optimizations
		s.Emergencies += r.Delta.Emergencies
		s.Evolutions += r.Delta.Evolutions
		if !r.Eval.Passed {
			s.InvariantFailures++
		}
		s.Mismatches += len(r.Mismatches)
	}
	return s
}

// #endregion summary
