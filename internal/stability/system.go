package stability

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/logging"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// #endregion

// #region system-struct

// ErrShutdown is returned by Init after Shutdown.
var ErrShutdown = errors.New("stability system shut down")

// worker is an optional collaborator with its own goroutine.
type worker interface {
	Start()
	Stop()
}

// System owns the State and serializes every operation on it behind one
// mutex. Components never lock; System calls them with the lock held.
type System struct {
	mu         sync.Mutex
	st         *state.State
	matcher    *pattern.Matcher
	monitor    *monitor.Monitor
	engine     *evolution.Engine
	controller *controller.Controller

	tracker *telemetry.Tracker
	journal *logging.Journal
	workers []worker
	caps    Capabilities
	stats   Stats

	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	lastEvolve  time.Time
	lastMode    monitor.Mode
	lastVersion string
	running     bool
	closed      bool
}

// #endregion

// #region constructor

// New builds a System at the documented baseline. Optional capabilities are
// checked here once.
func New(opts Options) *System {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Tracer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	matcher := pattern.NewMatcher(opts.Now)
	engine := evolution.NewEngine(opts.Evolution)

	s := &System{
		st:         state.New(opts.Params),
		matcher:    matcher,
		monitor:    monitor.NewMonitor(opts.EmergencyFloor),
		engine:     engine,
		controller: controller.NewController(matcher, engine, opts.Reclaimer, opts.Controller),
		tracker:    opts.Tracker,
		journal:    opts.Journal,
		logger:     opts.Logger.Named("stability"),
		tracer:     opts.Tracer,
		now:        opts.Now,
		lastMode:   monitor.ModeStable,
		caps: Capabilities{
			Reclaim:   opts.Reclaimer != nil,
			Telemetry: opts.Tracker != nil,
			Journal:   opts.Journal != nil,
		},
	}
	if opts.Start != nil {
		if opts.Start.Score != nil {
			s.st.SetScore(*opts.Start.Score)
		}
		s.st.AdjustDimensions(opts.Start.Dimensions)
	}
	if w, ok := opts.Reclaimer.(worker); ok {
		s.workers = append(s.workers, w)
	}
	if opts.Journal != nil {
		s.workers = append(s.workers, opts.Journal)
	}
	return s
}

// Capabilities reports which optional collaborators were attached.
func (s *System) Capabilities() Capabilities {
	return s.caps
}

// Stats returns the operation counters.
func (s *System) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// #endregion

// #region lifecycle

// Init starts background workers and journals the baseline snapshot.
func (s *System) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdown
	}
	if s.running {
		return nil
	}
	for _, w := range s.workers {
		w.Start()
	}
	s.running = true
	s.lastEvolve = s.now()
	s.recordLocked("init", nil)
	s.logger.Info("stability system started",
		zap.Float64("threshold", s.st.Threshold()),
		zap.Float64("emergency_floor", s.monitor.Floor()),
		zap.Bool("reclaim", s.caps.Reclaim),
		zap.Bool("telemetry", s.caps.Telemetry),
		zap.Bool("journal", s.caps.Journal),
	)
	return nil
}

// Shutdown journals a final snapshot and stops workers, waiting for them
// until ctx is done. Safe to call more than once.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.running {
		s.recordLocked("shutdown", nil)
	}
	s.running = false
	workers := s.workers
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, w := range workers {
			w.Stop()
		}
	}()

	select {
	case <-done:
		s.logger.Info("stability system stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

// #endregion

// #region reads

// CheckStability samples the current status. It never mutates state.
func (s *System) CheckStability() monitor.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Check(s.st)
}

// VerifyStability reports whether score >= threshold.
func (s *System) VerifyStability() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Verify()
}

// Snapshot returns a copy of the scalar state.
func (s *System) Snapshot() state.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Snapshot()
}

// Patterns returns a copy of the pattern history, oldest first.
func (s *System) Patterns() []state.PatternRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Patterns()
}

// Position returns the current position marker.
func (s *System) Position() state.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Position()
}

// Advice returns host degradation advice for the current status.
func (s *System) Advice() monitor.Advice {
	return monitor.Advise(s.CheckStability())
}

// #endregion

// #region adjust

// AdjustDimensions merges p into the dimensions, clamping each axis, and
// returns the result.
func (s *System) AdjustDimensions(p state.PartialDimensions) state.Dimensions {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.AdjustDimensions(p)
	d := s.st.Dimensions()
	s.recordLocked("adjust", &logging.Event{EventType: "adjust", Decision: "applied", DetailJSON: detail(d)})
	return d
}

// #endregion

// #region evolve

// EvolveSystem evolves by the wall-clock time elapsed since the previous
// evolution (or Init).
func (s *System) EvolveSystem(ctx context.Context) evolution.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var elapsed float64
	if !s.lastEvolve.IsZero() {
		elapsed = now.Sub(s.lastEvolve).Seconds()
	}
	s.lastEvolve = now
	return s.evolveLocked(ctx, elapsed)
}

// EvolveFor evolves by an explicit number of seconds.
func (s *System) EvolveFor(ctx context.Context, elapsedSeconds float64) evolution.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evolveLocked(ctx, elapsedSeconds)
}

func (s *System) evolveLocked(ctx context.Context, elapsed float64) evolution.Result {
	_, span := s.tracer.Start(ctx, "stability.evolve")
	defer span.End()

	// Critical only leaves through an emergency reset.
	if elapsed > 0 && !math.IsInf(elapsed, 1) && s.monitor.Check(s.st).Critical() {
		em := s.emergencyLocked(ctx, "evolve")
		span.SetAttributes(
			attribute.Bool("stability.emergency", true),
			attribute.Float64("stability.score_before", em.Before.Score),
		)
		return evolution.Result{
			Reason:    controller.ReasonEscalated,
			Elapsed:   elapsed,
			Before:    em.Before.Score,
			After:     em.After.Score,
			Target:    em.After.Score,
			Emergency: true,
		}
	}

	res := s.engine.Evolve(s.st, elapsed)
	span.SetAttributes(
		attribute.Float64("stability.elapsed_seconds", sanitize(elapsed)),
		attribute.Bool("stability.applied", res.Applied),
		attribute.Float64("stability.score_before", res.Before),
		attribute.Float64("stability.score_after", res.After),
		attribute.Int("stability.decayed", res.Decayed),
	)
	if !res.Applied {
		return res
	}
	s.stats.Evolutions++
	s.logger.Debug("evolved",
		zap.Float64("elapsed", res.Elapsed),
		zap.Float64("before", res.Before),
		zap.Float64("after", res.After),
		zap.Float64("target", res.Target),
		zap.Int("decayed", res.Decayed),
	)
	s.recordLocked("evolve", &logging.Event{EventType: "evolve", Decision: "applied", DetailJSON: detail(res)})
	return res
}

// #endregion

// #region recognize

// RecognizePattern validates and records c. An accepted critical event from
// anyone but the controller triggers an immediate response: emergency
// stabilization below the floor, otherwise an fps optimization.
func (s *System) RecognizePattern(ctx context.Context, c pattern.Candidate) pattern.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.matcher.Recognize(s.st, c)
	if !res.Accepted {
		s.stats.Rejected++
		s.logger.Debug("pattern rejected", zap.String("type", c.Type), zap.String("reason", res.Reason))
		s.recordLocked("", &logging.Event{
			EventType:   "recognize",
			PatternType: c.Type,
			Decision:    "rejected",
			Reason:      res.Reason,
		})
		return res
	}

	rec := res.Record
	s.stats.Accepted++
	if res.Critical {
		s.stats.Critical++
	}
	s.logger.Debug("pattern recognized",
		zap.String("type", rec.Type),
		zap.Float64("strength", rec.Strength),
		zap.Stringer("signature", rec.Signature),
		zap.Bool("critical", res.Critical),
	)
	s.recordLocked("", &logging.Event{
		EventType:   "recognize",
		PatternType: rec.Type,
		Decision:    "accepted",
		DetailJSON:  detail(rec),
	})

	if res.Critical && rec.Source != state.SourceController {
		s.respondLocked(ctx, rec)
	}
	return res
}

func (s *System) respondLocked(ctx context.Context, rec *state.PatternRecord) {
	status := s.monitor.Check(s.st)
	s.logger.Warn("critical pattern detected",
		zap.String("type", rec.Type),
		zap.String("source", string(rec.Source)),
		zap.Float64("score", status.Score),
		zap.String("mode", string(status.Mode)),
	)
	if status.Critical() {
		s.emergencyLocked(ctx, "critical_pattern")
		return
	}
	s.optimizeLocked(ctx, controller.TargetFPS)
}

// #endregion

// #region optimize

// OptimizePerformance runs the named corrective pass. Unknown targets yield
// a report with Success false and leave state untouched.
func (s *System) OptimizePerformance(ctx context.Context, target string) controller.Report {
	t, err := controller.ParseTarget(target)
	if err != nil {
		t = controller.Target(target)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optimizeLocked(ctx, t)
}

func (s *System) optimizeLocked(ctx context.Context, t controller.Target) controller.Report {
	_, span := s.tracer.Start(ctx, "stability.optimize")
	defer span.End()

	if t.Valid() && s.monitor.Check(s.st).Critical() {
		em := s.emergencyLocked(ctx, "optimize")
		span.SetAttributes(
			attribute.String("stability.target", string(t)),
			attribute.Bool("stability.emergency", true),
		)
		return s.controller.Escalated(t, em)
	}

	report := s.controller.Optimize(s.st, t)
	span.SetAttributes(
		attribute.String("stability.target", string(t)),
		attribute.Bool("stability.success", report.Success),
		attribute.Float64("stability.score_before", report.Before.Score),
		attribute.Float64("stability.score_after", report.After.Score),
		attribute.Int("stability.pattern_count", report.After.PatternCount),
	)

	if !report.Success {
		s.logger.Info("optimization rejected", zap.String("target", string(t)), zap.String("reason", report.Reason))
		s.recordLocked("", &logging.Event{EventType: "optimize", Decision: "failed", Reason: report.Reason})
		return report
	}
	s.stats.Optimizations++
	s.logger.Info("optimized",
		zap.String("id", report.ID),
		zap.String("target", string(t)),
		zap.Float64("score_before", report.Before.Score),
		zap.Float64("score_after", report.After.Score),
		zap.Int("patterns_before", report.Before.PatternCount),
		zap.Int("patterns_after", report.After.PatternCount),
	)
	s.recordLocked("optimize", &logging.Event{EventType: "optimize", Decision: "applied", DetailJSON: detail(report)})
	return report
}

// #endregion

// #region emergency

// EmergencyStabilize resets the state to its documented baseline.
func (s *System) EmergencyStabilize(ctx context.Context) controller.EmergencyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergencyLocked(ctx, "manual")
}

func (s *System) emergencyLocked(ctx context.Context, reason string) controller.EmergencyReport {
	_, span := s.tracer.Start(ctx, "stability.emergency")
	defer span.End()

	report := s.controller.EmergencyStabilize(s.st)
	s.stats.Emergencies++
	span.SetAttributes(
		attribute.String("stability.reason", reason),
		attribute.Float64("stability.score_before", report.Before.Score),
		attribute.Int("stability.cleared", report.Cleared),
	)
	s.logger.Warn("emergency stabilization",
		zap.String("reason", reason),
		zap.Float64("score_before", report.Before.Score),
		zap.Int("cleared", report.Cleared),
	)
	s.recordLocked("emergency", &logging.Event{
		EventType:  "emergency",
		Decision:   "applied",
		Reason:     reason,
		DetailJSON: detail(report),
	})
	s.noteModeLocked(monitor.ModeStable)
	return report
}

// #endregion

// #region tick

// Degraded tick nudges, per second of host time.
const (
	tickAlphaRate    = 0.5
	tickAlphaFloor   = 95
	tickGammaRate    = 0.2
	tickGammaCeiling = 99.5
)

// Tick handles one host step of dt seconds. Degraded nudges alpha down
// toward 95 and gamma up toward 99.5 at the per-second tick rates, so a zero
// dt leaves dimensions alone. Critical runs emergency stabilization. Returns
// the status after handling.
func (s *System) Tick(ctx context.Context, dt float64) monitor.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.monitor.Check(s.st)
	s.noteModeLocked(status.Mode)

	switch status.Mode {
	case monitor.ModeDegraded:
		if !(dt > 0) || math.IsInf(dt, 1) {
			break
		}
		d := s.st.Dimensions()
		s.st.AdjustDimensions(state.PartialDimensions{
			Alpha: state.Float(math.Max(tickAlphaFloor, d.Alpha-tickAlphaRate*dt)),
			Gamma: state.Float(math.Min(tickGammaCeiling, d.Gamma+tickGammaRate*dt)),
		})
	case monitor.ModeCritical:
		s.emergencyLocked(ctx, "tick")
	}
	return s.monitor.Check(s.st)
}

func (s *System) noteModeLocked(m monitor.Mode) {
	if m == s.lastMode {
		return
	}
	s.logger.Info("stability mode changed",
		zap.String("from", string(s.lastMode)),
		zap.String("to", string(m)),
		zap.Float64("score", s.st.Score()),
	)
	s.lastMode = m
}

// #endregion

// #region telemetry

// ScanTelemetry samples the tracker, scans it and forwards strong
// candidates to RecognizePattern. No-op without a tracker.
func (s *System) ScanTelemetry(ctx context.Context) []pattern.Result {
	if s.tracker == nil {
		return nil
	}
	s.tracker.Sample()
	var out []pattern.Result
	for _, c := range s.tracker.Scan() {
		if !s.tracker.Forwardable(c) {
			continue
		}
		out = append(out, s.RecognizePattern(ctx, c))
	}
	return out
}

// Tracker returns the attached telemetry tracker, or nil.
func (s *System) Tracker() *telemetry.Tracker {
	return s.tracker
}

// #endregion

// #region retune

// Retune applies new threshold, evolution rate and emergency floor.
func (s *System) Retune(t Tuning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.SetThreshold(t.Threshold)
	s.st.SetEvolutionRate(t.EvolutionRate)
	s.monitor.SetFloor(t.EmergencyFloor)
	s.logger.Info("retuned",
		zap.Float64("threshold", s.st.Threshold()),
		zap.Float64("evolution_rate", s.st.EvolutionRate()),
		zap.Float64("emergency_floor", s.monitor.Floor()),
	)
	s.recordLocked("retune", &logging.Event{EventType: "retune", Decision: "applied", DetailJSON: detail(t)})
}

// #endregion

// #region journal

// recordLocked hands a snapshot and/or event to the journal. An empty
// trigger journals only the event.
func (s *System) recordLocked(trigger string, ev *logging.Event) {
	if s.journal == nil {
		return
	}
	entry := logging.Entry{Event: ev}
	var rec state.SnapshotRecord
	if trigger != "" {
		rec = state.NewSnapshotRecord(s.lastVersion, trigger, s.st.Snapshot())
		entry.Snapshot = &rec
	} else if ev != nil {
		ev.VersionID = s.lastVersion
	}
	if entry.Snapshot == nil && entry.Event == nil {
		return
	}
	if s.journal.Submit(entry) && entry.Snapshot != nil {
		s.lastVersion = rec.VersionID
	}
}

func detail(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// #endregion
