package main

import (
	"github.com/danielpatrickdp/adaptive-state/stability/internal/config"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/stability"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region mapping

// buildOptions maps configuration onto System options. Optional
// capabilities are attached by the caller.
func buildOptions(c *config.Config) stability.Options {
	s := c.Stability
	return stability.Options{
		Params: state.Params{
			Threshold:     s.Threshold,
			EvolutionRate: s.EvolutionRate,
			Capacity:      s.PatternCapacity,
		},
		EmergencyFloor: s.EmergencyFloor,
		Evolution: evolution.Config{
			DimensionWeight: s.DimensionWeight,
			PressureWeight:  s.PressureWeight,
			Horizon:         s.PatternHorizon,
		},
		Controller: controller.Config{
			GammaStep:      s.MemoryGammaStep,
			AlphaStep:      s.FPSAlphaStep,
			StabilityBonus: s.StabilityBonus,
			EvolveSeconds:  controller.DefaultConfig().EvolveSeconds,
		},
	}
}

func tuningOf(c *config.Config) stability.Tuning {
	return stability.Tuning{
		Threshold:      c.Stability.Threshold,
		EvolutionRate:  c.Stability.EvolutionRate,
		EmergencyFloor: c.Stability.EmergencyFloor,
	}
}

func scheduleOf(c *config.Config) stability.Schedule {
	return stability.Schedule{
		MonitorInterval:   c.Schedule.MonitorInterval,
		EvolutionInterval: c.Schedule.EvolutionInterval,
		ScanInterval:      c.Schedule.ScanInterval,
	}
}

// #endregion mapping
