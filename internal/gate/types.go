package gate

import "github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/stats"

// #region signal
// Signal is the discrete recommendation outcome for one scoring cycle.
type Signal string

const (
	AvoidPlay  Signal = "avoid_play"
	StrongPlay Signal = "strong_play"
	Play       Signal = "play"
	Wait       Signal = "wait"
)

// Actionable reports whether the signal recommends playing.
func (s Signal) Actionable() bool {
	return s == StrongPlay || s == Play
}

// Label returns the display form of the signal.
func (s Signal) Label() string {
	switch s {
	case AvoidPlay:
		return "AVOID PLAY"
	case StrongPlay:
		return "STRONG PLAY"
	case Play:
		return "PLAY"
	default:
		return "WAIT"
	}
}

// #endregion signal

// #region rule
// Rule names the classification rule that produced a decision.
type Rule string

const (
	RuleTableChange       Rule = "table_change_warning"
	RuleAdaptive          Rule = "adaptive_play"
	RuleLessStrict        Rule = "less_strict_escalation"
	RuleTrendConfirmation Rule = "trend_confirmation"
	RuleSimple            Rule = "simple_play"
	RuleNoCandidate       Rule = "no_candidate"
)

// #endregion rule

// #region gate-config
// ThresholdPair is a strong-play / play score boundary pair.
type ThresholdPair struct {
	Strong float64 `yaml:"strong"`
	Play   float64 `yaml:"play"`
}

// GateConfig holds thresholds for signal classification.
type GateConfig struct {
	Standard   ThresholdPair `yaml:"standard"`
	LessStrict ThresholdPair `yaml:"less_strict"`
	SimplePlay float64       `yaml:"simple_play"`

	// Less-strict escalation of Wait to StrongPlay.
	RelaxedHitRate float64 `yaml:"relaxed_hit_rate"` // fraction 0..1
	RelaxedStreak  int     `yaml:"relaxed_streak"`

	// Table-change warning.
	LossStreakThreshold int     `yaml:"loss_streak_threshold"`
	WinRateThreshold    float64 `yaml:"win_rate_threshold"` // fraction 0..1
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Standard:            ThresholdPair{Strong: 6.0, Play: 3.5},
		LessStrict:          ThresholdPair{Strong: 4.5, Play: 2.5},
		SimplePlay:          3.0,
		RelaxedHitRate:      0.4,
		RelaxedStreak:       2,
		LossStreakThreshold: 4,
		WinRateThreshold:    0.25,
	}
}

// Modes selects which classification rules are active.
type Modes struct {
	AdaptivePlay       bool
	LessStrict         bool
	TableChangeWarning bool
	TrendConfirmation  bool
}

// #endregion gate-config

// #region input
// Input is everything the gate needs about the best candidate.
type Input struct {
	GroupID       string
	Score         float64
	HitRate       float64 // decay-weighted trend hit rate, 0..1
	CurrentStreak int
	Rolling       stats.Rolling
	LastHitTypes  []string // hit set of the most recent successful record
}

// #endregion input

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Signal Signal
	Reason string
	Rule   Rule
	// Downgraded is set when trend confirmation turned an actionable signal into Wait.
	Downgraded bool
}

// #endregion gate-decision
