package stats

import "github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"

// #region config

// Config holds the windows and thresholds of the aggregates.
type Config struct {
	DecayFactor          float64 `yaml:"decay_factor"`
	ConditionalMinSample int     `yaml:"conditional_min_sample"`
	RollingWindow        int     `yaml:"rolling_window"`
	RollingMinPlays      int     `yaml:"rolling_min_plays"`
	FactorShiftWindow    int     `yaml:"factor_shift_window"`
	DiversityThreshold   float64 `yaml:"diversity_threshold"` // ratio 0-1
	DominanceThreshold   float64 `yaml:"dominance_threshold"` // percent 0-100
	DynamicTerminals     bool    `yaml:"dynamic_terminals"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DecayFactor:          0.95,
		ConditionalMinSample: 5,
		RollingWindow:        10,
		RollingMinPlays:      5,
		FactorShiftWindow:    10,
		DiversityThreshold:   0.6,
		DominanceThreshold:   40,
		DynamicTerminals:     true,
	}
}

// minFactorShiftSample is the fewest successful records factor shift reports on.
const minFactorShiftSample = 3

// #endregion config

// #region trend

// TypeTrend is the decay-weighted trend of one prediction type.
type TypeTrend struct {
	WeightedOccurrences float64
	WeightedSuccesses   float64
	CurrentStreak       int
	Streaks             []int // completed streak lengths
	AverageStreak       float64
}

// HitRate returns weighted successes over weighted occurrences, 0-1.
func (t TypeTrend) HitRate() float64 {
	if t.WeightedOccurrences == 0 {
		return 0
	}
	return t.WeightedSuccesses / t.WeightedOccurrences
}

// Trend aggregates per-type streak statistics.
type Trend struct {
	Records      int
	ByType       map[string]TypeTrend
	LastHitTypes []string // hit set of the most recent successful record
}

// #endregion trend

// #region board

// BoardRate is the decay-weighted hit rate of one type.
type BoardRate struct {
	WeightedSuccesses float64
	WeightedTotal     float64
}

// Percent returns the hit rate as a percentage.
func (b BoardRate) Percent() float64 {
	if b.WeightedTotal == 0 {
		return 0
	}
	return b.WeightedSuccesses / b.WeightedTotal * 100
}

// Board maps type ID to its hit rate.
type Board map[string]BoardRate

// #endregion board

// #region neighbour

// NeighbourMass is the decay-weighted mass of each position, indexed by position.
type NeighbourMass [37]float64

// Over sums the mass of positions.
func (n NeighbourMass) Over(positions []int) float64 {
	var s float64
	for _, p := range positions {
		if p >= 0 && p < len(n) {
			s += n[p]
		}
	}
	return s
}

// #endregion neighbour

// #region conditional

// Conditional is the transition probability for one group.
type Conditional struct {
	Group       string
	Occurrences int
	Hits        int
	Probability float64 // zero unless Sufficient
	Sufficient  bool
}

// #endregion conditional

// #region rolling

// Rolling summarises recent played recommendations.
type Rolling struct {
	Plays             int
	Wins              int
	Losses            int
	ConsecutiveLosses int
	WinRate           float64
	SufficientData    bool
}

// #endregion rolling

// #region factor-shift

// FactorShift describes how stable the primary driving factor has been.
type FactorShift struct {
	SampleSize     int
	Counts         map[factor.Kind]int
	Dominant       factor.Kind
	DominantPct    float64
	Diversity      float64
	IsShifting     bool
	SufficientData bool
}

// #endregion factor-shift

// #region summary

// Summary bundles every aggregate over one history collection.
type Summary struct {
	Trend       Trend
	Board       Board
	Neighbours  NeighbourMass
	Conditional map[string]Conditional
	Rolling     Rolling
	FactorShift FactorShift
}

// #endregion summary
