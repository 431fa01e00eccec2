package engine

import (
	"time"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/explain"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/stats"
)

// #region strategy-config
// StrategyConfig holds the multipliers, caps and bounds of the six factors.
type StrategyConfig struct {
	HitRateThreshold      float64 `yaml:"hit_rate_threshold"` // fraction 0..1
	HitRateMultiplier     float64 `yaml:"hit_rate_multiplier"`
	StreakMultiplier      float64 `yaml:"streak_multiplier"`
	StreakCap             float64 `yaml:"streak_cap"`
	ProximityMaxDistance  int     `yaml:"proximity_max_distance"`
	ProximityMultiplier   float64 `yaml:"proximity_multiplier"`
	NeighbourMultiplier   float64 `yaml:"neighbour_multiplier"`
	NeighbourCap          float64 `yaml:"neighbour_cap"`
	AIMultiplier          float64 `yaml:"ai_multiplier"`
	ConditionalMultiplier float64 `yaml:"conditional_multiplier"`
	PocketBoost           float64 `yaml:"pocket_boost"` // applied when the zone is within 1 pocket of the last winner
}

// DefaultStrategyConfig returns sensible defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		HitRateThreshold:      0.3,
		HitRateMultiplier:     10,
		StreakMultiplier:      1.5,
		StreakCap:             6,
		ProximityMaxDistance:  4,
		ProximityMultiplier:   0.5,
		NeighbourMultiplier:   0.5,
		NeighbourCap:          3,
		AIMultiplier:          5,
		ConditionalMultiplier: 4,
		PocketBoost:           1.2,
	}
}

// #endregion strategy-config

// #region toggles
// Toggles are the named feature switches.
type Toggles struct {
	DynamicTerminals   bool `yaml:"dynamic_terminals"`
	AdaptivePlay       bool `yaml:"adaptive_play"`
	LessStrict         bool `yaml:"less_strict"`
	TableChangeWarning bool `yaml:"table_change_warning"`
	TrendConfirmation  bool `yaml:"trend_confirmation"`
	ProximityBoost     bool `yaml:"proximity_boost"`
	ContextModifiers   bool `yaml:"context_modifiers"`
	// AIAffectsScore lets AI confidence and context modifiers change the score.
	// When false they are reported as annotations only.
	AIAffectsScore bool `yaml:"ai_affects_score"`
}

// DefaultToggles returns every feature enabled except less-strict mode.
func DefaultToggles() Toggles {
	return Toggles{
		DynamicTerminals:   true,
		AdaptivePlay:       true,
		LessStrict:         false,
		TableChangeWarning: true,
		TrendConfirmation:  true,
		ProximityBoost:     true,
		ContextModifiers:   true,
		AIAffectsScore:     true,
	}
}

// Modes returns the gate modes selected by t.
func (t Toggles) Modes() gate.Modes {
	return gate.Modes{
		AdaptivePlay:       t.AdaptivePlay,
		LessStrict:         t.LessStrict,
		TableChangeWarning: t.TableChangeWarning,
		TrendConfirmation:  t.TrendConfirmation,
	}
}

// #endregion toggles

// #region config
// Config bundles the configuration of every stage the engine runs.
type Config struct {
	Strategy StrategyConfig        `yaml:"strategy"`
	Stats    stats.Config          `yaml:"stats"`
	Gate     gate.GateConfig       `yaml:"gate"`
	Explain  explain.ExplainConfig `yaml:"explain"`
	Toggles  Toggles               `yaml:"toggles"`
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		Strategy: DefaultStrategyConfig(),
		Stats:    stats.DefaultConfig(),
		Gate:     gate.DefaultGateConfig(),
		Explain:  explain.DefaultExplainConfig(),
		Toggles:  DefaultToggles(),
	}
}

// #endregion config

// #region collaborators
// AIInput is the externally supplied probability map.
type AIInput struct {
	Ready         bool
	Probabilities map[string]float64 // group ID → probability 0..1
}

// ContextResult is the answer of a context provider for one hit zone.
type ContextResult struct {
	HasContext bool
	Modifier   float64 // ≤ 1; stress reduces it
	Stress     float64
	Notes      []string
}

// ContextProvider supplies stress context for a hit zone.
type ContextProvider interface {
	GroupNumberContext(zone hitzone.Zone) (ContextResult, error)
	GroupSectorContext(zone hitzone.Zone) (ContextResult, error)
}

// ContextFactory builds a provider over the history known before a cycle.
// A nil provider disables context for that cycle.
type ContextFactory func(records []history.Record) ContextProvider

// Recorder receives engine telemetry.
type Recorder interface {
	RecordRecommendation(signal string, ranked, excluded, skipped int, elapsed time.Duration)
	RecordContextFailure(source string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRecommendation(string, int, int, int, time.Duration) {}

func (nopRecorder) RecordContextFailure(string) {}

// #endregion collaborators

// #region request
// Request is the input of one recommendation cycle.
type Request struct {
	A, B      int
	History   []history.Record
	Influence factor.InfluenceMap
	AI        AIInput
	Context   ContextProvider // nil when unavailable
}

// #endregion request

// #region candidate
// Candidate is the score breakdown of one prediction type.
type Candidate struct {
	GroupID   string
	Label     string
	Color     string
	Base      int
	Terminals []int
	Zone      hitzone.Zone

	Values        factor.Values // raw factor values
	Weighted      factor.Values // values × influence
	PrimaryFactor *factor.Kind
	RawScore      float64
	FinalScore    float64

	MinDistance     *int    // to the last winning position
	Boosted         bool    // pocket boost applied
	ContextModifier float64 // 1 when no context applied
	Reasons         []string
	ContextNotes    []string
}

// PrimaryPoints returns the influenced contribution of the primary factor.
func (c Candidate) PrimaryPoints() float64 {
	if c.PrimaryFactor == nil {
		return 0
	}
	return c.Weighted.Value(*c.PrimaryFactor)
}

// #endregion candidate

// #region result
// Result is the output of one recommendation cycle.
type Result struct {
	Best        *Candidate
	Signal      gate.Signal
	Reason      string
	Rule        gate.Rule
	Ranked      []Candidate
	Explanation *explain.Explanation
	Skipped     []string // unknown active type IDs
	Excluded    []string // groups with a non-finite or non-positive score
	FactorShift stats.FactorShift
}

// Snapshot freezes the best candidate for storage on the pending record.
// Score is only non-zero for actionable signals.
func (r Result) Snapshot() *history.Snapshot {
	if r.Best == nil {
		return nil
	}
	snap := &history.Snapshot{
		GroupID: r.Best.GroupID,
		Signal:  string(r.Signal),
		Values:  r.Best.Values,
	}
	if r.Signal.Actionable() {
		snap.Score = r.Best.FinalScore
	}
	if r.Best.PrimaryFactor != nil {
		pf := *r.Best.PrimaryFactor
		snap.PrimaryFactor = &pf
	}
	return snap
}

// Contributing lists the factors present in the best candidate.
func (r Result) Contributing() []factor.Kind {
	if r.Best == nil {
		return nil
	}
	return r.Best.Values.PresentKinds()
}

// #endregion result
