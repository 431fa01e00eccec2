package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/explain"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/stats"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// WaitForSignal is the reason reported when no candidate qualifies.
const WaitForSignal = "Wait for Signal"

// #region engine-struct
// Engine scores prediction types and classifies the best one.
type Engine struct {
	seq       wheel.Sequence
	terms     hitzone.TerminalMapping
	active    []hitzone.PredictionType
	skipped   []string
	config    Config
	agg       *stats.Aggregator
	gate      *gate.Gate
	explainer *explain.Generator
	recorder  Recorder
	logger    zerolog.Logger
}

// Setup carries what NewEngine needs besides configuration.
type Setup struct {
	Sequence    wheel.Sequence
	Terminals   hitzone.TerminalMapping
	Catalog     hitzone.Catalog
	ActiveTypes []string // empty selects the whole catalog
	Recorder    Recorder // optional
	Logger      zerolog.Logger
}

// #endregion engine-struct

// #region constructor
// NewEngine wires the aggregator, gate and explainer for one configuration.
func NewEngine(setup Setup, config Config) *Engine {
	config.Stats.DynamicTerminals = config.Toggles.DynamicTerminals

	active, unknown := setup.Catalog.Active(setup.ActiveTypes)
	logger := setup.Logger.With().Str("component", "engine").Logger()
	if len(unknown) > 0 {
		logger.Warn().Strs("types", unknown).Msg("unknown prediction types skipped")
	}

	rec := setup.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Engine{
		seq:       setup.Sequence,
		terms:     setup.Terminals,
		active:    active,
		skipped:   unknown,
		config:    config,
		agg:       stats.NewAggregator(setup.Sequence, setup.Terminals, active, config.Stats),
		gate:      gate.NewGate(config.Gate, config.Toggles.Modes()),
		explainer: explain.NewGenerator(config.Explain),
		recorder:  rec,
		logger:    logger,
	}
}

// Active returns the prediction types the engine scores.
func (e *Engine) Active() []hitzone.PredictionType {
	return e.active
}

// Aggregator returns the statistics aggregator the engine uses.
func (e *Engine) Aggregator() *stats.Aggregator {
	return e.agg
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion constructor

// #region recommend
// Recommend scores every active type for operands req.A and req.B. It never
// fails: every degenerate input resolves to a Wait result.
func (e *Engine) Recommend(req Request) Result {
	start := time.Now()
	summary := e.agg.Summarize(req.History)
	lastWinning := history.LastWinning(req.History, 0)

	res := Result{
		Skipped:     e.skipped,
		FactorShift: summary.FactorShift,
	}

	for _, pt := range e.active {
		c := e.score(pt, req, summary, lastWinning)
		if math.IsNaN(c.FinalScore) || math.IsInf(c.FinalScore, 0) || c.FinalScore <= 0 {
			res.Excluded = append(res.Excluded, c.GroupID)
			continue
		}
		res.Ranked = append(res.Ranked, c)
	}

	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].FinalScore > res.Ranked[j].FinalScore
	})

	if len(res.Ranked) == 0 {
		res.Signal = gate.Wait
		res.Reason = WaitForSignal
		res.Rule = gate.RuleNoCandidate
		e.finish(res, start)
		return res
	}

	best := res.Ranked[0]
	res.Best = &best

	trend := summary.Trend.ByType[best.GroupID]
	d := e.gate.Evaluate(gate.Input{
		GroupID:       best.GroupID,
		Score:         best.FinalScore,
		HitRate:       trend.HitRate(),
		CurrentStreak: trend.CurrentStreak,
		Rolling:       summary.Rolling,
		LastHitTypes:  summary.Trend.LastHitTypes,
	})
	res.Signal, res.Reason, res.Rule = d.Signal, d.Reason, d.Rule

	scores := make([]float64, len(res.Ranked))
	for i, c := range res.Ranked {
		scores[i] = c.FinalScore
	}
	var boardPct *float64
	if b, ok := summary.Board[best.GroupID]; ok && b.WeightedTotal > 0 {
		pct := b.Percent()
		boardPct = &pct
	}
	ex := e.explainer.Generate(explain.Subject{
		GroupID:       best.GroupID,
		Label:         best.Label,
		Score:         best.FinalScore,
		CurrentStreak: trend.CurrentStreak,
		PrimaryFactor: best.PrimaryFactor,
		PrimaryPoints: best.PrimaryPoints(),
		ContextNotes:  best.ContextNotes,
		BoardPct:      boardPct,
	}, scores, req.History, summary.FactorShift)
	res.Explanation = &ex

	e.finish(res, start)
	return res
}

func (e *Engine) finish(res Result, start time.Time) {
	elapsed := time.Since(start)
	e.recorder.RecordRecommendation(string(res.Signal), len(res.Ranked), len(res.Excluded), len(res.Skipped), elapsed)

	ev := e.logger.Debug().
		Str("signal", string(res.Signal)).
		Str("reason", res.Reason).
		Int("ranked", len(res.Ranked)).
		Int("excluded", len(res.Excluded)).
		Dur("elapsed", elapsed)
	if res.Best != nil {
		ev = ev.Str("group", res.Best.GroupID).Float64("score", res.Best.FinalScore)
	}
	ev.Msg("recommendation")
}

// #endregion recommend

// #region score
func (e *Engine) score(pt hitzone.PredictionType, req Request, summary stats.Summary, lastWinning *int) Candidate {
	s := e.config.Strategy
	t := e.config.Toggles

	base, terminals, zone := hitzone.ForType(e.seq, e.terms, pt, req.A, req.B, lastWinning, t.DynamicTerminals)
	c := Candidate{
		GroupID:         pt.ID,
		Label:           pt.Label,
		Color:           pt.Color,
		Base:            base,
		Terminals:       terminals,
		Zone:            zone,
		ContextModifier: 1,
	}

	trend := summary.Trend.ByType[pt.ID]

	// (a) hit-rate excess
	if excess := trend.HitRate() - s.HitRateThreshold; excess > 0 {
		c.Values.Set(factor.HitRate, excess*s.HitRateMultiplier)
	}

	// (b) current streak
	if trend.CurrentStreak > 0 {
		c.Values.Set(factor.Streak, math.Min(float64(trend.CurrentStreak)*s.StreakMultiplier, s.StreakCap))
	}

	// (c) proximity to the last winning position
	if lastWinning != nil {
		if d, ok := zone.MinDistance(e.seq, *lastWinning); ok {
			c.MinDistance = &d
			if d <= s.ProximityMaxDistance {
				c.Values.Set(factor.Proximity, float64(s.ProximityMaxDistance-d)*s.ProximityMultiplier)
			}
		}
	}

	// (d) hot zone
	if mass := summary.Neighbours.Over(zone.Members()); mass > 0 {
		c.Values.Set(factor.HotZone, math.Min(mass*s.NeighbourMultiplier, s.NeighbourCap))
	}

	// (e) AI confidence
	if req.AI.Ready {
		if p, ok := req.AI.Probabilities[pt.ID]; ok && !math.IsNaN(p) && !math.IsInf(p, 0) {
			if t.AIAffectsScore {
				c.Values.Set(factor.AIConfidence, p*s.AIMultiplier)
			} else {
				c.Reasons = append(c.Reasons, fmt.Sprintf("AI %.0f%% (display only)", p*100))
			}
		}
	}

	// (f) conditional probability
	if cond, ok := summary.Conditional[pt.ID]; ok && cond.Sufficient {
		c.Values.Set(factor.ConditionalProbability, cond.Probability*s.ConditionalMultiplier)
	}

	c.Weighted = c.Values.Weighted(req.Influence)
	c.RawScore = c.Weighted.Sum()
	if k, _, ok := c.Weighted.Max(); ok {
		c.PrimaryFactor = &k
	}
	for _, k := range c.Weighted.PresentKinds() {
		c.Reasons = append(c.Reasons, fmt.Sprintf("%s +%.2f", k.Label(), c.Weighted.Value(k)))
	}

	c.FinalScore = c.RawScore
	if t.ProximityBoost && c.MinDistance != nil && *c.MinDistance <= 1 {
		c.FinalScore *= s.PocketBoost
		c.Boosted = true
		c.Reasons = append(c.Reasons, fmt.Sprintf("pocket boost ×%.2f", s.PocketBoost))
	}

	if t.ContextModifiers && req.Context != nil {
		mod, notes := e.context(req.Context, pt.ID, zone)
		c.ContextNotes = notes
		if mod < 1 {
			if t.AIAffectsScore {
				c.ContextModifier = mod
				c.FinalScore *= mod
				c.Reasons = append(c.Reasons, fmt.Sprintf("context ×%.2f", mod))
			} else {
				c.Reasons = append(c.Reasons, fmt.Sprintf("context ×%.2f (display only)", mod))
			}
		}
	}

	return c
}

// context queries both context sources. A failing source is logged and
// contributes nothing.
func (e *Engine) context(p ContextProvider, group string, zone hitzone.Zone) (float64, []string) {
	mod := 1.0
	var notes []string

	sources := []struct {
		name string
		fn   func(hitzone.Zone) (ContextResult, error)
	}{
		{"number", p.GroupNumberContext},
		{"sector", p.GroupSectorContext},
	}
	for _, src := range sources {
		r, err := src.fn(zone)
		if err != nil {
			e.recorder.RecordContextFailure(src.name)
			e.logger.Warn().Err(err).Str("group", group).Str("source", src.name).Msg("context provider failed")
			continue
		}
		if !r.HasContext {
			continue
		}
		if r.Modifier >= 0 && r.Modifier < 1 {
			mod *= r.Modifier
		}
		notes = append(notes, r.Notes...)
	}
	return mod, notes
}

// #endregion score
