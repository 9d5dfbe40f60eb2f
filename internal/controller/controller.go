package controller

// #region imports
import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/google/uuid"
)

// #endregion

// #region controller-struct

// Controller applies corrective actions to a State. It performs no locking;
// the owner of the State serializes calls.
type Controller struct {
	matcher   *pattern.Matcher
	engine    *evolution.Engine
	reclaimer Reclaimer
	config    Config
	now       func() time.Time
}

// #endregion

// #region constructor

// NewController wires a controller. reclaimer may be nil, in which case memory
// passes report reclamation as unavailable.
func NewController(matcher *pattern.Matcher, engine *evolution.Engine, reclaimer Reclaimer, config Config) *Controller {
	return &Controller{
		matcher:   matcher,
		engine:    engine,
		reclaimer: reclaimer,
		config:    config,
		now:       time.Now,
	}
}

// CanReclaim reports whether a reclamation capability is attached.
func (c *Controller) CanReclaim() bool {
	return c.reclaimer != nil
}

// Config returns the step sizes in use.
func (c *Controller) Config() Config {
	return c.config
}

// #endregion

// #region optimize

// Optimize runs the corrective pass for target. TargetAll runs memory, fps
// and stability in that order. Unknown targets produce an unsuccessful report
// and leave st untouched.
func (c *Controller) Optimize(st *state.State, target Target) Report {
	report := Report{
		ID:        uuid.New().String(),
		Target:    target,
		Before:    MetricsOf(st),
		CreatedAt: c.now(),
	}

	switch target {
	case TargetMemory:
		report.Optimizations = append(report.Optimizations, c.optimizeMemory(st))
	case TargetFPS:
		report.Optimizations = append(report.Optimizations, c.optimizeFPS(st))
	case TargetStability:
		report.Optimizations = append(report.Optimizations, c.optimizeStability(st))
	case TargetAll:
		report.Optimizations = append(report.Optimizations,
			c.optimizeMemory(st),
			c.optimizeFPS(st),
			c.optimizeStability(st),
		)
	default:
		report.Reason = fmt.Sprintf("%q: %v", string(target), ErrUnknownTarget)
		report.After = report.Before
		return report
	}

	report.Success = true
	report.After = MetricsOf(st)
	return report
}

// optimizeMemory raises gamma, keeps only essential history and hints the
// runtime to reclaim memory.
func (c *Controller) optimizeMemory(st *state.State) ActionReport {
	r := ActionReport{Target: TargetMemory}

	gamma := st.Dimensions().Gamma + c.config.GammaStep
	st.AdjustDimensions(state.PartialDimensions{Gamma: state.Float(gamma)})
	r.Actions = append(r.Actions, ActionAdjustedDimensions)

	r.Pruned = st.Retain(essential)
	r.Actions = append(r.Actions, ActionClearedPatterns)

	if c.reclaimer != nil {
		c.reclaimer.RequestReclaim()
		r.Actions = append(r.Actions, ActionRequestedReclaim)
	} else {
		r.Actions = append(r.Actions, ActionReclaimUnavailable)
	}
	return r
}

// optimizeFPS raises alpha and records an optimization request in history.
func (c *Controller) optimizeFPS(st *state.State) ActionReport {
	r := ActionReport{Target: TargetFPS}

	alpha := st.Dimensions().Alpha + c.config.AlphaStep
	st.AdjustDimensions(state.PartialDimensions{Alpha: state.Float(alpha)})
	r.Actions = append(r.Actions, ActionAdjustedDimensions)

	req := pattern.New("optimization_request", 0.99, state.CriticalSignature.Ints())
	req.Source = state.SourceController
	c.matcher.Recognize(st, req)
	r.Actions = append(r.Actions, ActionRequestedOptimize)
	return r
}

// optimizeStability restores baseline geometry, adds the bonus and runs a
// short evolution step.
func (c *Controller) optimizeStability(st *state.State) ActionReport {
	r := ActionReport{Target: TargetStability}

	st.ResetBaseline()
	r.Actions = append(r.Actions, ActionResetPosition, ActionBalancedDimensions)

	st.AddScore(c.config.StabilityBonus)
	r.Actions = append(r.Actions, ActionBoostedStability)

	res := c.engine.Evolve(st, c.config.EvolveSeconds)
	r.Evolution = &res
	r.Actions = append(r.Actions, ActionEvolvedSystem)
	return r
}

// essential reports whether a record survives a memory pass.
func essential(rec state.PatternRecord) bool {
	return rec.Type == "critical" || rec.Strength > 0.98
}

// #endregion

// #region emergency

// EmergencyStabilize resets position and dimensions to baseline, clears the
// pattern history and sets the score to 100. Threshold, evolution rate and
// capacity are unchanged.
func (c *Controller) EmergencyStabilize(st *state.State) EmergencyReport {
	r := EmergencyReport{Before: MetricsOf(st)}

	st.ResetBaseline()
	r.Cleared = st.ClearPatterns()
	st.SetScore(state.MaxScore)

	r.Actions = []string{
		ActionResetPosition,
		ActionBalancedDimensions,
		ActionClearedPatternMemory,
		ActionBoostedStability,
	}
	r.After = MetricsOf(st)
	return r
}

// Escalated reports an emergency reset that ran in place of the pass for
// target.
func (c *Controller) Escalated(target Target, em EmergencyReport) Report {
	return Report{
		ID:            uuid.New().String(),
		Target:        target,
		Success:       true,
		Reason:        ReasonEscalated,
		Optimizations: []ActionReport{{Target: target, Actions: em.Actions}},
		Before:        em.Before,
		After:         em.After,
		CreatedAt:     c.now(),
	}
}

// #endregion
