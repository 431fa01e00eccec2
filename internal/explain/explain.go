package explain

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/stats"
)

// #region generator
// Generator formats recommendations into explanations. It has no side effects.
type Generator struct {
	config ExplainConfig
}

// NewGenerator creates a generator with the given configuration.
func NewGenerator(config ExplainConfig) *Generator {
	return &Generator{config: config}
}

// Generate explains subject. ranked holds the final scores of every ranked
// candidate in order, subject first.
func (g *Generator) Generate(subject Subject, ranked []float64, records []history.Record, shift stats.FactorShift) Explanation {
	gap := ScoreGap(ranked)
	hits, sample := g.recent(records, subject.GroupID)
	var rate float64
	if sample > 0 {
		rate = float64(hits) / float64(sample)
	}

	ex := Explanation{
		ScoreGapPct:   gap,
		RecentHitRate: rate,
		RecentHits:    hits,
		SampleSize:    sample,
		Confidence:    g.confidence(gap, sample, rate),
	}
	ex.Headline = g.headline(subject, gap, rate, sample)
	ex.Bullets = g.bullets(subject, hits, sample, rate)
	if shift.SufficientData && shift.IsShifting {
		ex.FactorShift = fmt.Sprintf("Driving factors are shifting: %s leads %.0f%% of the last %d hits",
			shift.Dominant.Label(), shift.DominantPct, shift.SampleSize)
	}
	return ex
}

// #endregion generator

// #region score-gap
// ScoreGap returns the lead of ranked[0] over ranked[1] as a percentage of
// ranked[1]; 100 when there is no runner-up or it scored zero.
func ScoreGap(ranked []float64) float64 {
	if len(ranked) == 0 {
		return 0
	}
	if len(ranked) < 2 || ranked[1] == 0 {
		return 100
	}
	return (ranked[0] - ranked[1]) / ranked[1] * 100
}

// #endregion score-gap

// #region helpers
// recent counts hits of group over the last RecentWindow confirmed records.
func (g *Generator) recent(records []history.Record, group string) (hits, sample int) {
	confirmed := history.ConfirmedOnly(records)
	start := len(confirmed) - g.config.RecentWindow
	if start < 0 {
		start = 0
	}
	for _, rec := range confirmed[start:] {
		sample++
		if rec.Hit(group) {
			hits++
		}
	}
	return hits, sample
}

func (g *Generator) confidence(gap float64, sample int, rate float64) Confidence {
	if sample < g.config.MinSample {
		return ConfidenceLow
	}
	if gap >= g.config.HighGapPct && rate >= g.config.HighHitRate {
		return ConfidenceHigh
	}
	if gap >= g.config.MediumGapPct || rate >= g.config.MediumHitRate {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func (g *Generator) headline(s Subject, gap, rate float64, sample int) string {
	switch {
	case s.CurrentStreak >= g.config.StreakHeadline:
		return fmt.Sprintf("%s on %d-spin streak", s.name(), s.CurrentStreak)
	case sample > 0 && rate >= g.config.HighHitRate:
		return fmt.Sprintf("%s hitting %.0f%% of the last %d spins", s.name(), rate*100, sample)
	case gap >= g.config.HighGapPct:
		return fmt.Sprintf("%s leads by a clear margin", s.name())
	default:
		return fmt.Sprintf("%s is the top-scoring group", s.name())
	}
}

func (g *Generator) bullets(s Subject, hits, sample int, rate float64) []string {
	var out []string
	if s.CurrentStreak > 0 {
		out = append(out, fmt.Sprintf("Current streak: %d consecutive hits", s.CurrentStreak))
	}
	if sample > 0 {
		out = append(out, fmt.Sprintf("Recent hit rate: %.0f%% (%d/%d)", rate*100, hits, sample))
	}
	if s.BoardPct != nil {
		out = append(out, fmt.Sprintf("Board hit rate: %.0f%%", *s.BoardPct))
	}
	if s.PrimaryFactor != nil {
		out = append(out, fmt.Sprintf("Primary factor: %s (+%.2f pts)", s.PrimaryFactor.Label(), s.PrimaryPoints))
	}
	out = append(out, s.ContextNotes...)
	return out
}

// #endregion helpers
