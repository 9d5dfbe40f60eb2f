package telemetry

import (
	"runtime"
)

// #region config

// Config bounds the telemetry histories and sets detection thresholds.
type Config struct {
	StepHistory       int     // step durations retained
	SampleHistory     int     // fps and memory samples retained
	MaxFPS            float64 // FPS ceiling
	LowFPS            float64 // below this the host is struggling
	MemoryGrowthLimit float64 // MB growth over the last 10 samples
	DropRatio         float64 // recent/previous below this is a drop
	RecoveryRatio     float64 // recent/previous above this is a recovery
	ForwardStrength   float64 // scan loop forwards candidates strictly above this
}

// DefaultConfig returns the documented telemetry thresholds.
func DefaultConfig() Config {
	return Config{
		StepHistory:       100,
		SampleHistory:     60,
		MaxFPS:            60,
		LowFPS:            30,
		MemoryGrowthLimit: 5,
		DropRatio:         0.8,
		RecoveryRatio:     1.3,
		ForwardStrength:   0.9,
	}
}

// #endregion config

// #region sampler

// MemorySampler reports current memory use in megabytes.
type MemorySampler interface {
	SampleMB() float64
}

// RuntimeMemorySampler reads the Go heap size.
type RuntimeMemorySampler struct{}

// SampleMB returns the live heap in megabytes.
func (RuntimeMemorySampler) SampleMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / (1024 * 1024)
}

// #endregion sampler

// #region metrics

// Metrics is a read-only view of the tracker.
type Metrics struct {
	FPS          float64 `json:"fps"`
	MemoryMB     float64 `json:"memory_mb"`
	MemoryGrowth float64 `json:"memory_growth"`
	Steps        int     `json:"steps"`
	Samples      int     `json:"samples"`
}

// #endregion metrics
