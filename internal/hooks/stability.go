package hooks

import (
	"context"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"go.uber.org/zap"
)

// #region target

// Target is the part of the control loop the hooks drive.
type Target interface {
	RecognizePattern(ctx context.Context, c pattern.Candidate) pattern.Result
	VerifyStability() bool
	Tick(ctx context.Context, dt float64) monitor.Status
}

// #endregion

// #region stability-hooks

// CodePatternStrength is the strength of recorded code_pattern observations.
const CodePatternStrength = 0.97

// StabilityHooks records compile-time code patterns and feeds step timings
// into the telemetry tracker before ticking the loop.
type StabilityHooks struct {
	target  Target
	tracker *telemetry.Tracker
	logger  *zap.Logger
}

// NewStabilityHooks wires hooks to target. tracker may be nil.
func NewStabilityHooks(target Target, tracker *telemetry.Tracker, logger *zap.Logger) *StabilityHooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StabilityHooks{target: target, tracker: tracker, logger: logger.Named("hooks")}
}

// OnBeforeCompile analyses src and records a code_pattern.
func (h *StabilityHooks) OnBeforeCompile(src string) {
	a := Analyze(src)
	c := pattern.New("code_pattern", CodePatternStrength, a.Signature())
	c.Metrics = a.Metrics()
	c.Source = state.SourceCompiler
	h.target.RecognizePattern(context.Background(), c)

	if !h.target.VerifyStability() {
		h.logger.Warn("stability below threshold before compile", zap.Int("complexity", a.Complexity))
	}
}

// OnAfterCompile logs compile failures.
func (h *StabilityHooks) OnAfterCompile(src, out string, err error) {
	if err != nil {
		h.logger.Warn("compile failed", zap.Int("source_bytes", len(src)), zap.Error(err))
		return
	}
	h.logger.Debug("compiled", zap.Int("source_bytes", len(src)), zap.Int("output_bytes", len(out)))
}

// OnStep records the step duration and ticks the loop.
func (h *StabilityHooks) OnStep(dt float64, took time.Duration) {
	if h.tracker != nil {
		h.tracker.RecordStep(took)
	}
	h.target.Tick(context.Background(), dt)
}

// #endregion
