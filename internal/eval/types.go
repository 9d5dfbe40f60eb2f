package eval

// #region eval-config
// EvalConfig holds the bounds every observable state must satisfy.
type EvalConfig struct {
	MinValue float64 // lower bound for score, threshold and dimensions
	MaxValue float64 // upper bound for score, threshold and dimensions
}

// DefaultEvalConfig returns the [0, 100] bounds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinValue: 0,
		MaxValue: 100,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single invariant check.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of an invariant check.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
