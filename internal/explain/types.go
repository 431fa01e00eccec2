package explain

import "github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"

// #region explain-config
// ExplainConfig holds the windows and thresholds of the explanation.
type ExplainConfig struct {
	RecentWindow int `yaml:"recent_window"` // confirmed records in the recent hit-rate window
	MinSample    int `yaml:"min_sample"`    // fewest records before confidence can rise above low

	HighGapPct    float64 `yaml:"high_gap_pct"`
	MediumGapPct  float64 `yaml:"medium_gap_pct"`
	HighHitRate   float64 `yaml:"high_hit_rate"`   // fraction 0..1
	MediumHitRate float64 `yaml:"medium_hit_rate"` // fraction 0..1

	StreakHeadline int `yaml:"streak_headline"`
}

// DefaultExplainConfig returns sensible defaults.
func DefaultExplainConfig() ExplainConfig {
	return ExplainConfig{
		RecentWindow:   10,
		MinSample:      5,
		HighGapPct:     50,
		MediumGapPct:   20,
		HighHitRate:    0.5,
		MediumHitRate:  0.3,
		StreakHeadline: 3,
	}
}

// #endregion explain-config

// #region subject
// Subject describes the winning candidate.
type Subject struct {
	GroupID       string
	Label         string
	Score         float64
	CurrentStreak int
	PrimaryFactor *factor.Kind
	PrimaryPoints float64 // influenced contribution of the primary factor
	BoardPct      *float64 // decay-weighted hit rate over all confirmed history
	ContextNotes  []string
}

func (s Subject) name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.GroupID
}

// #endregion subject

// #region explanation
// Confidence is the qualitative confidence label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Explanation is the structured rationale of a recommendation.
type Explanation struct {
	Headline      string     `json:"headline"`
	Confidence    Confidence `json:"confidence"`
	ScoreGapPct   float64    `json:"score_gap_pct"`
	RecentHitRate float64    `json:"recent_hit_rate"`
	RecentHits    int        `json:"recent_hits"`
	SampleSize    int        `json:"sample_size"`
	Bullets       []string   `json:"bullets"`
	FactorShift   string     `json:"factor_shift,omitempty"`
}

// #endregion explanation
