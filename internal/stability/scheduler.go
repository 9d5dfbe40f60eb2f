package stability

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region schedule

// Schedule sets the wall-clock cadence of the periodic loops.
type Schedule struct {
	MonitorInterval   time.Duration
	EvolutionInterval time.Duration
	ScanInterval      time.Duration
}

// DefaultSchedule returns the reference cadence: monitor 1s, evolution 5s,
// scan 1s.
func DefaultSchedule() Schedule {
	return Schedule{
		MonitorInterval:   time.Second,
		EvolutionInterval: 5 * time.Second,
		ScanInterval:      time.Second,
	}
}

// #endregion

// #region scheduler

// Scheduler drives a System from wall-clock tickers.
type Scheduler struct {
	sys      *System
	schedule Schedule
	logger   *zap.Logger
}

// NewScheduler creates a scheduler for sys.
func NewScheduler(sys *System, schedule Schedule, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{sys: sys, schedule: schedule, logger: logger.Named("scheduler")}
}

// Run blocks until ctx is done, running the monitor, evolution and scan
// loops concurrently. The scan loop only runs with a telemetry tracker.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.schedule.MonitorInterval <= 0 || s.schedule.EvolutionInterval <= 0 || s.schedule.ScanInterval <= 0 {
		return fmt.Errorf("run scheduler: intervals must be positive: %+v", s.schedule)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, s.schedule.MonitorInterval, func() {
			s.sys.Tick(ctx, s.schedule.MonitorInterval.Seconds())
		})
	})
	g.Go(func() error {
		return every(ctx, s.schedule.EvolutionInterval, func() {
			s.sys.EvolveSystem(ctx)
		})
	})
	if s.sys.Capabilities().Telemetry {
		g.Go(func() error {
			return every(ctx, s.schedule.ScanInterval, func() {
				s.sys.ScanTelemetry(ctx)
			})
		})
	}

	s.logger.Info("scheduler started",
		zap.Duration("monitor", s.schedule.MonitorInterval),
		zap.Duration("evolution", s.schedule.EvolutionInterval),
		zap.Duration("scan", s.schedule.ScanInterval),
	)
	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func every(ctx context.Context, d time.Duration, fn func()) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn()
		}
	}
}

// #endregion

// #region cadence

// Cadence drives the periodic work from host time instead of wall-clock
// time, for simulations and replays. It is not safe for concurrent use.
type Cadence struct {
	sys      *System
	schedule Schedule
	evolveAt float64
	scanAt   float64
}

// NewCadence creates a host-time cadence for sys.
func NewCadence(sys *System, schedule Schedule) *Cadence {
	return &Cadence{sys: sys, schedule: schedule}
}

// Advance accumulates dt seconds of host time and runs every due scan and
// evolution. Returns the number of evolutions applied.
func (c *Cadence) Advance(ctx context.Context, dt float64) int {
	if dt <= 0 {
		return 0
	}
	evolved := 0

	c.scanAt += dt
	scanEvery := c.schedule.ScanInterval.Seconds()
	for scanEvery > 0 && c.scanAt >= scanEvery {
		c.scanAt -= scanEvery
		c.sys.ScanTelemetry(ctx)
	}

	c.evolveAt += dt
	evolveEvery := c.schedule.EvolutionInterval.Seconds()
	for evolveEvery > 0 && c.evolveAt >= evolveEvery {
		c.evolveAt -= evolveEvery
		if c.sys.EvolveFor(ctx, evolveEvery).Applied {
			evolved++
		}
	}
	return evolved
}

// #endregion
