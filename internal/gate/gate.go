package gate

import (
	"fmt"
	"slices"
)

// #region gate
// Gate classifies the best candidate into a Signal.
type Gate struct {
	config GateConfig
	modes  Modes
}

// NewGate creates a gate with the given configuration and active modes.
func NewGate(config GateConfig, modes Modes) *Gate {
	return &Gate{config: config, modes: modes}
}

// Config returns the gate's thresholds.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate applies the rules in priority order: table-change warning,
// adaptive or simple classification, trend-confirmation override.
func (g *Gate) Evaluate(in Input) GateDecision {
	// --- Priority 1: table-change warning (terminal) ---
	if d, ok := g.tableChange(in); ok {
		return d
	}

	// --- Simple mode ---
	if !g.modes.AdaptivePlay {
		if in.Score >= g.config.SimplePlay {
			return GateDecision{
				Signal: Play,
				Rule:   RuleSimple,
				Reason: fmt.Sprintf("%s score %.2f ≥ %.2f", in.GroupID, in.Score, g.config.SimplePlay),
			}
		}
		return GateDecision{
			Signal: Wait,
			Rule:   RuleSimple,
			Reason: fmt.Sprintf("%s score %.2f below play threshold %.2f", in.GroupID, in.Score, g.config.SimplePlay),
		}
	}

	// --- Priority 2: adaptive play ---
	d := g.classify(in)

	// --- Priority 3: trend confirmation ---
	if g.modes.TrendConfirmation && d.Signal.Actionable() &&
		len(in.LastHitTypes) > 0 && !slices.Contains(in.LastHitTypes, in.GroupID) {
		return GateDecision{
			Signal:     Wait,
			Rule:       RuleTrendConfirmation,
			Reason:     "awaiting trend confirmation",
			Downgraded: true,
		}
	}
	return d
}

// #endregion gate

// #region rules
func (g *Gate) tableChange(in Input) (GateDecision, bool) {
	if !g.modes.TableChangeWarning || !in.Rolling.SufficientData {
		return GateDecision{}, false
	}
	r := in.Rolling
	switch {
	case r.ConsecutiveLosses >= g.config.LossStreakThreshold:
		return GateDecision{
			Signal: AvoidPlay,
			Rule:   RuleTableChange,
			Reason: fmt.Sprintf("table change warning: %d consecutive losses", r.ConsecutiveLosses),
		}, true
	case r.WinRate < g.config.WinRateThreshold:
		return GateDecision{
			Signal: AvoidPlay,
			Rule:   RuleTableChange,
			Reason: fmt.Sprintf("table change warning: win rate %.0f%% over last %d plays", r.WinRate*100, r.Plays),
		}, true
	}
	return GateDecision{}, false
}

func (g *Gate) classify(in Input) GateDecision {
	pair := g.config.Standard
	if g.modes.LessStrict {
		pair = g.config.LessStrict
	}

	switch {
	case in.Score >= pair.Strong:
		return GateDecision{
			Signal: StrongPlay,
			Rule:   RuleAdaptive,
			Reason: fmt.Sprintf("%s score %.2f ≥ strong threshold %.2f", in.GroupID, in.Score, pair.Strong),
		}
	case in.Score >= pair.Play:
		return GateDecision{
			Signal: Play,
			Rule:   RuleAdaptive,
			Reason: fmt.Sprintf("%s score %.2f ≥ play threshold %.2f", in.GroupID, in.Score, pair.Play),
		}
	}

	if g.modes.LessStrict {
		if in.HitRate > g.config.RelaxedHitRate {
			return GateDecision{
				Signal: StrongPlay,
				Rule:   RuleLessStrict,
				Reason: fmt.Sprintf("%s hit rate %.0f%% above relaxed threshold", in.GroupID, in.HitRate*100),
			}
		}
		if in.CurrentStreak > g.config.RelaxedStreak {
			return GateDecision{
				Signal: StrongPlay,
				Rule:   RuleLessStrict,
				Reason: fmt.Sprintf("%s on %d-spin streak", in.GroupID, in.CurrentStreak),
			}
		}
	}

	return GateDecision{
		Signal: Wait,
		Rule:   RuleAdaptive,
		Reason: fmt.Sprintf("%s score %.2f below play threshold %.2f", in.GroupID, in.Score, pair.Play),
	}
}

// #endregion rules
