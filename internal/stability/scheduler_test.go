package stability

import (
	"context"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type growingSampler struct{ mb float64 }

func (g *growingSampler) SampleMB() float64 {
	g.mb += 2
	return g.mb
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, logs := newSystem(t, func(o *Options) {
		o.Now = time.Now
		o.Tracker = telemetry.NewTracker(telemetry.DefaultConfig(), nil)
	})
	require.NoError(t, s.Init(context.Background()))
	setScore(s, 90)

	sched := NewScheduler(s, Schedule{
		MonitorInterval:   5 * time.Millisecond,
		EvolutionInterval: 10 * time.Millisecond,
		ScanInterval:      5 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("stability mode changed").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	s, _ := newSystem(t)
	err := NewScheduler(s, Schedule{MonitorInterval: time.Second}, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestCadenceRunsDueWork(t *testing.T) {
	s, _ := newSystem(t, func(o *Options) {
		o.Tracker = telemetry.NewTracker(telemetry.DefaultConfig(), &growingSampler{})
	})
	setScore(s, 90)
	c := NewCadence(s, DefaultSchedule())
	ctx := context.Background()

	evolved := 0
	for i := 0; i < 120; i++ {
		evolved += c.Advance(ctx, 0.1)
	}
	assert.Equal(t, 2, evolved)
	assert.Equal(t, 0, c.Advance(ctx, 0))

	// 12 samples of +2MB each: growth over the last 10 is 18MB, forwarded
	// as memory_growth.
	found := false
	for _, rec := range s.Patterns() {
		if rec.Type == "memory_growth" {
			found = true
		}
	}
	assert.True(t, found, "expected memory_growth from scan")
}

func TestScanTelemetryWithoutTracker(t *testing.T) {
	s, _ := newSystem(t)
	assert.Nil(t, s.ScanTelemetry(context.Background()))
}

func TestScanTelemetryForwardsStrongCandidates(t *testing.T) {
	tracker := telemetry.NewTracker(telemetry.DefaultConfig(), nil)
	s, _ := newSystem(t, func(o *Options) { o.Tracker = tracker })
	for i := 0; i < 10; i++ {
		tracker.RecordFPS(12)
	}

	results := s.ScanTelemetry(context.Background())
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.Accepted)
	}
	assert.Equal(t, tracker, s.Tracker())
}
