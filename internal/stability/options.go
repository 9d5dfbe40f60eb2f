package stability

import (
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/controller"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/evolution"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/logging"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// #region options

// Options wires a System. Nil collaborators are optional capabilities that
// are simply absent.
type Options struct {
	Params         state.Params
	EmergencyFloor float64
	Start          *Start
	Evolution      evolution.Config
	Controller     controller.Config

	Reclaimer controller.Reclaimer // memory reclamation hint target
	Tracker   *telemetry.Tracker   // runtime telemetry for scans
	Journal   *logging.Journal     // diagnostic SQLite journal

	Logger *zap.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

// DefaultOptions returns the documented defaults with no optional capabilities.
func DefaultOptions() Options {
	return Options{
		Params:         state.DefaultParams(),
		EmergencyFloor: state.DefaultEmergencyFloor,
		Evolution:      evolution.DefaultConfig(),
		Controller:     controller.DefaultConfig(),
	}
}

// #endregion

// #region start

// Start overrides the baseline score and dimensions of a new System, for
// replaying recorded scenarios. Nil fields keep the baseline.
type Start struct {
	Score      *float64                `json:"score,omitempty"`
	Dimensions state.PartialDimensions `json:"dimensions"`
}

// #endregion

// #region tuning

// Tuning is the subset of configuration that can change while running.
type Tuning struct {
	Threshold      float64 `json:"threshold"`
	EvolutionRate  float64 `json:"evolution_rate"`
	EmergencyFloor float64 `json:"emergency_floor"`
}

// Capabilities reports which optional collaborators are attached.
type Capabilities struct {
	Reclaim   bool `json:"reclaim"`
	Telemetry bool `json:"telemetry"`
	Journal   bool `json:"journal"`
}

// Stats counts what the System has done since construction.
type Stats struct {
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	Critical      int `json:"critical"`
	Optimizations int `json:"optimizations"`
	Emergencies   int `json:"emergencies"`
	Evolutions    int `json:"evolutions"`
}

// #endregion
