package update

import "github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"

// #region learning-rates
// LearningRates holds the adaptive-influence learning parameters.
type LearningRates struct {
	SuccessDelta float64 `yaml:"success_delta"` // nudge up on a won play
	FailureDelta float64 `yaml:"failure_delta"` // nudge down on a lost play, scaled by severity
	MinInfluence float64 `yaml:"min_influence"`
	MaxInfluence float64 `yaml:"max_influence"`
	ForgetFactor float64 `yaml:"forget_factor"` // per-cycle decay toward neutral (1 = never forget)

	// Severity bands: a miss within NearMissDistance pockets of the
	// recommended zone is mild; beyond FarMissDistance it is severe.
	NearMissDistance int     `yaml:"near_miss_distance"`
	FarMissDistance  int     `yaml:"far_miss_distance"`
	NearMissSeverity float64 `yaml:"near_miss_severity"`
	FarMissSeverity  float64 `yaml:"far_miss_severity"`
}

// DefaultLearningRates returns sensible defaults.
func DefaultLearningRates() LearningRates {
	return LearningRates{
		SuccessDelta:     0.05,
		FailureDelta:     0.04,
		MinInfluence:     0.5,
		MaxInfluence:     2.0,
		ForgetFactor:     0.98,
		NearMissDistance: 2,
		FarMissDistance:  9,
		NearMissSeverity: 0.5,
		FarMissSeverity:  1.5,
	}
}

// #endregion learning-rates

// #region outcome
// Outcome describes one confirmed record from the learner's point of view.
type Outcome struct {
	RecordID int64
	Played   bool
	Won      bool
	// Contributing are the factors present in the recommended candidate.
	Contributing []factor.Kind
	// MissDistance is the pocket distance from the winning position to the
	// recommended zone; nil when unknown.
	MissDistance *int
}

// #endregion outcome

// #region decision
// Decision records what the update function decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region metrics
// FactorMetric captures per-factor telemetry from an update cycle.
type FactorMetric struct {
	Factor factor.Kind
	Before float64
	After  float64
	Nudge  float64
}

// Metrics captures telemetry from an update cycle.
type Metrics struct {
	Severity      float64
	FactorsNudged []factor.Kind
	FactorMetrics []FactorMetric
	TotalMovement float64
}

// #endregion metrics

// #region update-result
// UpdateResult bundles everything returned by Update().
type UpdateResult struct {
	Influence factor.InfluenceMap
	Decision  Decision
	Metrics   Metrics
}

// #endregion update-result
