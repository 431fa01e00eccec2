package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/stats"
)

// confirmed builds n confirmed records where group hits on the listed indexes.
func confirmed(n int, group string, hitAt ...int) []history.Record {
	hits := make(map[int]bool, len(hitAt))
	for _, i := range hitAt {
		hits[i] = true
	}
	out := make([]history.Record, n)
	for i := range out {
		rec := history.NewPending(int64(i+1), 1, 2)
		w := 0
		rec.Winning = &w
		rec.Hits = map[string]bool{group: hits[i]}
		rec.Status = history.StatusFail
		if hits[i] {
			rec.Status = history.StatusSuccess
		}
		out[i] = rec
	}
	return out
}

func TestScoreGap(t *testing.T) {
	assert.Equal(t, 0.0, ScoreGap(nil))
	assert.Equal(t, 100.0, ScoreGap([]float64{4}))
	assert.Equal(t, 100.0, ScoreGap([]float64{4, 0}))
	assert.InDelta(t, 25.0, ScoreGap([]float64{5, 4}), 1e-9)
}

func TestGenerate_StreakHeadlineWins(t *testing.T) {
	g := NewGenerator(DefaultExplainConfig())
	pf := factor.Streak
	ex := g.Generate(Subject{
		GroupID:       "diff",
		Label:         "Difference",
		Score:         9,
		CurrentStreak: 3,
		PrimaryFactor: &pf,
		PrimaryPoints: 4.5,
		ContextNotes:  []string{"Sector stress: arc cold for 8 spins"},
	}, []float64{9, 3}, confirmed(10, "diff", 7, 8, 9), stats.FactorShift{})

	assert.Equal(t, "Difference on 3-spin streak", ex.Headline)
	require.Len(t, ex.Bullets, 4)
	assert.Equal(t, "Current streak: 3 consecutive hits", ex.Bullets[0])
	assert.Equal(t, "Recent hit rate: 30% (3/10)", ex.Bullets[1])
	assert.Equal(t, "Primary factor: Streak (+4.50 pts)", ex.Bullets[2])
	assert.True(t, strings.HasPrefix(ex.Bullets[3], "Sector stress"))
	assert.InDelta(t, 200.0, ex.ScoreGapPct, 1e-9)
}

func TestGenerate_BoardHitRateBullet(t *testing.T) {
	g := NewGenerator(DefaultExplainConfig())
	pct := 62.4
	ex := g.Generate(Subject{GroupID: "diff", BoardPct: &pct}, []float64{5}, confirmed(4, "diff", 1, 3), stats.FactorShift{})

	require.Len(t, ex.Bullets, 2)
	assert.Equal(t, "Recent hit rate: 50% (2/4)", ex.Bullets[0])
	assert.Equal(t, "Board hit rate: 62%", ex.Bullets[1])
}

func TestGenerate_HeadlinePriority(t *testing.T) {
	g := NewGenerator(DefaultExplainConfig())

	ex := g.Generate(Subject{GroupID: "sum"}, []float64{5, 4.9}, confirmed(10, "sum", 0, 2, 4, 6, 8, 9), stats.FactorShift{})
	assert.Equal(t, "sum hitting 60% of the last 10 spins", ex.Headline)

	ex = g.Generate(Subject{GroupID: "sum"}, []float64{6, 2}, confirmed(10, "sum"), stats.FactorShift{})
	assert.Equal(t, "sum leads by a clear margin", ex.Headline)

	ex = g.Generate(Subject{GroupID: "sum"}, []float64{5, 4.9}, confirmed(10, "sum"), stats.FactorShift{})
	assert.Equal(t, "sum is the top-scoring group", ex.Headline)
}

func TestGenerate_Confidence(t *testing.T) {
	g := NewGenerator(DefaultExplainConfig())

	ex := g.Generate(Subject{GroupID: "d"}, []float64{6, 2}, confirmed(10, "d", 0, 1, 2, 3, 4, 5), stats.FactorShift{})
	assert.Equal(t, ConfidenceHigh, ex.Confidence)

	ex = g.Generate(Subject{GroupID: "d"}, []float64{5, 4}, confirmed(10, "d"), stats.FactorShift{})
	assert.Equal(t, ConfidenceMedium, ex.Confidence)

	ex = g.Generate(Subject{GroupID: "d"}, []float64{5, 4.9}, confirmed(10, "d"), stats.FactorShift{})
	assert.Equal(t, ConfidenceLow, ex.Confidence)

	// Small samples are always low.
	ex = g.Generate(Subject{GroupID: "d"}, []float64{6, 2}, confirmed(2, "d", 0, 1), stats.FactorShift{})
	assert.Equal(t, ConfidenceLow, ex.Confidence)
}

func TestGenerate_RecentWindowIgnoresPending(t *testing.T) {
	cfg := DefaultExplainConfig()
	cfg.RecentWindow = 3
	g := NewGenerator(cfg)

	records := append(confirmed(5, "d", 0, 3), history.NewPending(6, 1, 2))
	ex := g.Generate(Subject{GroupID: "d"}, []float64{1}, records, stats.FactorShift{})
	assert.Equal(t, 3, ex.SampleSize)
	assert.Equal(t, 1, ex.RecentHits)
}

func TestGenerate_FactorShiftNote(t *testing.T) {
	g := NewGenerator(DefaultExplainConfig())
	shift := stats.FactorShift{SampleSize: 5, Dominant: factor.HotZone, DominantPct: 20, IsShifting: true, SufficientData: true}
	ex := g.Generate(Subject{GroupID: "d"}, []float64{1}, nil, shift)
	assert.Contains(t, ex.FactorShift, "Hot zone")

	shift.SufficientData = false
	ex = g.Generate(Subject{GroupID: "d"}, []float64{1}, nil, shift)
	assert.Empty(t, ex.FactorShift)
}
