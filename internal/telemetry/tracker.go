package telemetry

import (
	"math"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/pattern"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region tracker

// Tracker keeps bounded step-time, fps and memory histories and turns them
// into pattern candidates. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	config  Config
	sampler MemorySampler
	steps   []float64 // milliseconds
	fps     []float64
	memory  []float64 // megabytes
}

// NewTracker creates a tracker. sampler may be nil, in which case no memory
// samples are taken.
func NewTracker(config Config, sampler MemorySampler) *Tracker {
	return &Tracker{config: config, sampler: sampler}
}

// #endregion tracker

// #region record

// RecordStep records the duration of one host step.
func (t *Tracker) RecordStep(took time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = push(t.steps, float64(took)/float64(time.Millisecond), t.config.StepHistory)
}

// Sample appends the current FPS estimate and, when a sampler is attached,
// the current memory use.
func (t *Tracker) Sample() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fps = push(t.fps, t.fpsLocked(), t.config.SampleHistory)
	if t.sampler != nil {
		t.memory = push(t.memory, t.sampler.SampleMB(), t.config.SampleHistory)
	}
}

// RecordFPS appends an externally measured FPS value.
func (t *Tracker) RecordFPS(fps float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fps = push(t.fps, fps, t.config.SampleHistory)
}

// RecordMemory appends an externally measured memory sample in megabytes.
func (t *Tracker) RecordMemory(mb float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.memory = push(t.memory, mb, t.config.SampleHistory)
}

func push(h []float64, v float64, limit int) []float64 {
	h = append(h, v)
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h
}

// #endregion record

// #region derived

// FPS estimates frames per second from the average step time, capped at
// MaxFPS. With fewer than 2 steps it returns MaxFPS.
func (t *Tracker) FPS() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fpsLocked()
}

func (t *Tracker) fpsLocked() float64 {
	if len(t.steps) < 2 {
		return t.config.MaxFPS
	}
	avg := mean(t.steps)
	if avg <= 0 {
		return t.config.MaxFPS
	}
	return math.Min(t.config.MaxFPS, math.Round(1000/avg))
}

// MemoryGrowth returns newest minus oldest of the last 10 memory samples, or
// 0 with fewer than 10.
func (t *Tracker) MemoryGrowth() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.memoryGrowthLocked()
}

func (t *Tracker) memoryGrowthLocked() float64 {
	if len(t.memory) < 10 {
		return 0
	}
	recent := t.memory[len(t.memory)-10:]
	return recent[len(recent)-1] - recent[0]
}

// Metrics returns the current derived values.
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := Metrics{
		FPS:          t.fpsLocked(),
		MemoryGrowth: t.memoryGrowthLocked(),
		Steps:        len(t.steps),
		Samples:      len(t.fps),
	}
	if n := len(t.memory); n > 0 {
		m.MemoryMB = t.memory[n-1]
	}
	return m
}

// #endregion derived

// #region scan

// Scan turns the current histories into candidates. It never touches any
// State; callers decide what to forward.
func (t *Tracker) Scan() []pattern.Candidate {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []pattern.Candidate
	if n := len(t.fps); n > 0 {
		avg := mean(t.fps[max(0, n-10):])
		if avg < t.config.LowFPS {
			c := pattern.New("performance_degradation", 0.95, state.CriticalSignature.Ints())
			c.Metrics = map[string]float64{"fps": avg}
			out = append(out, scanned(c))
		}
	}

	if growth := t.memoryGrowthLocked(); growth > t.config.MemoryGrowthLimit {
		c := pattern.New("memory_growth", 0.93, []int{1, 0, 1, 0, 1})
		c.Metrics = map[string]float64{"growth": growth}
		out = append(out, scanned(c))
	}

	if len(t.fps) >= 10 {
		recent := mean(t.fps[len(t.fps)-5:])
		previous := mean(t.fps[len(t.fps)-10 : len(t.fps)-5])
		metrics := map[string]float64{"recent_fps": recent, "previous_fps": previous}
		if recent < t.config.LowFPS && recent < previous*t.config.DropRatio {
			c := pattern.Critical("performance_drop")
			c.Metrics = metrics
			out = append(out, scanned(c))
		}
		if previous < t.config.LowFPS && recent > previous*t.config.RecoveryRatio {
			c := pattern.New("performance_recovery", 0.9, []int{0, 1, 1, 0, 1})
			c.Metrics = metrics
			out = append(out, scanned(c))
		}
	}
	return out
}

// Forwardable reports whether the scan loop should submit c to the matcher.
func (t *Tracker) Forwardable(c pattern.Candidate) bool {
	return c.Strength > t.config.ForwardStrength
}

func scanned(c pattern.Candidate) pattern.Candidate {
	c.Source = state.SourceScanner
	return c
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// #endregion scan
