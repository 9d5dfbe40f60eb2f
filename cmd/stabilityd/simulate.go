package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/hooks"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/stability"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"github.com/spf13/cobra"
)

// #region simulate-cmd

var (
	simFrames  int
	simProfile string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive a synthetic host through the hooks and print the final status",
	Long: `Runs a synthetic frame loop on simulated time. Each frame's cost comes
from the fps profile:

  steady   every frame 16ms
  drop     16ms, then 45ms from the halfway frame
  recover  45ms, then 16ms from the halfway frame
  spike    16ms with a 120ms frame every 10 frames

Step times feed the telemetry tracker, which is scanned on the configured
scan interval; evolution runs on the configured evolution interval.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simFrames, "frames", 600, "number of frames to simulate")
	simulateCmd.Flags().StringVar(&simProfile, "fps-profile", "steady", "frame cost profile: steady, drop, recover, spike")
}

// frameProfile returns the simulated cost of frame i of n.
type frameProfile func(i, n int) time.Duration

var profiles = map[string]frameProfile{
	"steady": func(int, int) time.Duration { return 16 * time.Millisecond },
	"drop": func(i, n int) time.Duration {
		if i < n/2 {
			return 16 * time.Millisecond
		}
		return 45 * time.Millisecond
	},
	"recover": func(i, n int) time.Duration {
		if i < n/2 {
			return 45 * time.Millisecond
		}
		return 16 * time.Millisecond
	},
	"spike": func(i, _ int) time.Duration {
		if i%10 == 9 {
			return 120 * time.Millisecond
		}
		return 16 * time.Millisecond
	},
}

// sampleShader is compiled once through the hooks so the code pattern path
// is exercised.
const sampleShader = `
vec3 shade(vec3 n, vec3 l) {
	float d = max(dot(n, l), 0.0);
	for (int i = 0; i < 4; i++) {
		if (d > 0.5) { d = clamp(d, 0.0, 1.0); }
	}
	return vec3(d);
}`

// simulation is the printed result of a run.
type simulation struct {
	Profile    string            `json:"profile"`
	Frames     int               `json:"frames"`
	Simulated  string            `json:"simulated"`
	Evolutions int               `json:"evolutions"`
	Status     monitor.Status    `json:"status"`
	Advice     monitor.Advice    `json:"advice"`
	Stats      stability.Stats   `json:"stats"`
	Telemetry  telemetry.Metrics `json:"telemetry"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	profile, ok := profiles[strings.ToLower(simProfile)]
	if !ok {
		return fmt.Errorf("unknown fps profile %q", simProfile)
	}
	if simFrames < 1 {
		return fmt.Errorf("frames must be positive, got %d", simFrames)
	}

	sim, err := simulate(cmd.Context(), simFrames, profile)
	if err != nil {
		return err
	}
	sim.Profile = strings.ToLower(simProfile)
	return printJSON(cmd.OutOrStdout(), sim)
}

// simulate runs n frames of profile against a fresh System on simulated time.
func simulate(ctx context.Context, n int, profile frameProfile) (simulation, error) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	tracker := telemetry.NewTracker(telemetry.DefaultConfig(), nil)
	opts := buildOptions(cfg)
	opts.Logger = logger
	opts.Tracker = tracker
	opts.Now = now
	sys := stability.New(opts)
	if err := sys.Init(ctx); err != nil {
		return simulation{}, fmt.Errorf("init stability system: %w", err)
	}
	defer sys.Shutdown(ctx)

	h := hooks.NewStabilityHooks(sys, tracker, logger)
	if cfg.Integration.EnableCompilerHooks {
		compiler := hooks.WrapCompiler(hooks.CompilerFunc(func(src string) (string, error) {
			return strings.Join(strings.Fields(src), " "), nil
		}), h)
		if _, err := compiler.Compile(sampleShader); err != nil {
			return simulation{}, fmt.Errorf("compile sample: %w", err)
		}
	}

	var cost time.Duration
	stepper := hooks.WrapStepperClock(hooks.StepperFunc(func(float64) {
		clock = clock.Add(cost)
	}), h, now)
	cadence := stability.NewCadence(sys, scheduleOf(cfg))

	start := clock
	evolutions := 0
	for i := 0; i < n; i++ {
		cost = profile(i, n)
		stepper.Step(cost.Seconds())
		evolutions += cadence.Advance(ctx, cost.Seconds())
	}

	return simulation{
		Frames:     n,
		Simulated:  clock.Sub(start).String(),
		Evolutions: evolutions,
		Status:     sys.CheckStability(),
		Advice:     sys.Advice(),
		Stats:      sys.Stats(),
		Telemetry:  tracker.Metrics(),
	}, nil
}

// #endregion simulate-cmd
