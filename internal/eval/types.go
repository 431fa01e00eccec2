package eval

// #region eval-config
// EvalConfig holds thresholds for validating an influence update before it
// is committed.
type EvalConfig struct {
	MaxMovement  float64 `yaml:"max_movement"`  // reject if one update moves the map further than this (L1)
	MaxSpread    float64 `yaml:"max_spread"`    // reject if strongest/weakest factor exceeds this ratio
	MaxDominance float64 `yaml:"max_dominance"` // warn if one factor holds more than this share of total influence
}

// DefaultEvalConfig returns sensible defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxMovement:  0.5,
		MaxSpread:    4.0,
		MaxDominance: 0.35,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of pre-commit validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
