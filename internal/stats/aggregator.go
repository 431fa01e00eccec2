package stats

import (
	"math"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region aggregator

// Aggregator computes decay-weighted and windowed statistics over a history
// collection. It never mutates the records it reads.
type Aggregator struct {
	seq    wheel.Sequence
	terms  hitzone.TerminalMapping
	types  []hitzone.PredictionType
	config Config
}

// NewAggregator binds the wheel, terminals and active prediction types.
func NewAggregator(seq wheel.Sequence, terms hitzone.TerminalMapping, types []hitzone.PredictionType, config Config) *Aggregator {
	return &Aggregator{seq: seq, terms: terms, types: types, config: config}
}

// Summarize computes every aggregate in one pass over records.
func (a *Aggregator) Summarize(records []history.Record) Summary {
	confirmed := history.ConfirmedOnly(records)
	cond := make(map[string]Conditional, len(a.types))
	for _, pt := range a.types {
		cond[pt.ID] = a.conditional(confirmed, pt.ID)
	}
	return Summary{
		Trend:       a.trend(confirmed),
		Board:       a.board(confirmed),
		Neighbours:  a.neighbours(confirmed),
		Conditional: cond,
		Rolling:     a.rolling(confirmed),
		FactorShift: a.factorShift(confirmed),
	}
}

// weight returns decay^(n-1-i).
func (a *Aggregator) weight(i, n int) float64 {
	return math.Pow(a.config.DecayFactor, float64(n-1-i))
}

// zonesAt resolves every active type's zone at confirmed[i], using the
// previous confirmed record's winning position as recency context.
func (a *Aggregator) zonesAt(confirmed []history.Record, i int) []hitzone.Zone {
	var last *int
	if i > 0 {
		last = confirmed[i-1].Winning
	}
	rec := confirmed[i]
	zones := make([]hitzone.Zone, len(a.types))
	for j, pt := range a.types {
		_, _, zones[j] = hitzone.ForType(a.seq, a.terms, pt, rec.A, rec.B, last, a.config.DynamicTerminals)
	}
	return zones
}

// #endregion aggregator

// #region trend

// Trend computes weighted occurrence/success and streaks per type.
func (a *Aggregator) Trend(records []history.Record) Trend {
	return a.trend(history.ConfirmedOnly(records))
}

func (a *Aggregator) trend(confirmed []history.Record) Trend {
	n := len(confirmed)
	acc := make(map[string]*TypeTrend, len(a.types))
	for _, pt := range a.types {
		acc[pt.ID] = &TypeTrend{}
	}

	var lastHits []string
	for i, rec := range confirmed {
		w := a.weight(i, n)
		for _, pt := range a.types {
			tt := acc[pt.ID]
			tt.WeightedOccurrences += w
			if rec.Hit(pt.ID) {
				tt.WeightedSuccesses += w
				tt.CurrentStreak++
			} else {
				if tt.CurrentStreak > 0 {
					tt.Streaks = append(tt.Streaks, tt.CurrentStreak)
				}
				tt.CurrentStreak = 0
			}
		}
		if rec.Status == history.StatusSuccess {
			lastHits = rec.HitTypes()
		}
	}

	out := Trend{Records: n, ByType: make(map[string]TypeTrend, len(acc)), LastHitTypes: lastHits}
	for id, tt := range acc {
		lengths := tt.Streaks
		if tt.CurrentStreak > 0 {
			lengths = append(append([]int(nil), lengths...), tt.CurrentStreak)
		}
		if len(lengths) > 0 {
			var sum int
			for _, l := range lengths {
				sum += l
			}
			tt.AverageStreak = float64(sum) / float64(len(lengths))
		}
		out.ByType[id] = *tt
	}
	return out
}

// #endregion trend

// #region board

// Board computes the decay-weighted hit rate per type.
func (a *Aggregator) Board(records []history.Record) Board {
	return a.board(history.ConfirmedOnly(records))
}

func (a *Aggregator) board(confirmed []history.Record) Board {
	n := len(confirmed)
	b := make(Board, len(a.types))
	for i, rec := range confirmed {
		w := a.weight(i, n)
		for _, pt := range a.types {
			r := b[pt.ID]
			r.WeightedTotal += w
			if rec.Hit(pt.ID) {
				r.WeightedSuccesses += w
			}
			b[pt.ID] = r
		}
	}
	return b
}

// #endregion board

// #region neighbours

// Neighbours accumulates decay-weighted mass for positions inside the zone of
// a type that hit at each record.
func (a *Aggregator) Neighbours(records []history.Record) NeighbourMass {
	return a.neighbours(history.ConfirmedOnly(records))
}

func (a *Aggregator) neighbours(confirmed []history.Record) NeighbourMass {
	var mass NeighbourMass
	n := len(confirmed)
	for i, rec := range confirmed {
		if rec.Status != history.StatusSuccess {
			continue
		}
		w := a.weight(i, n)
		zones := a.zonesAt(confirmed, i)
		for j, pt := range a.types {
			if !rec.Hit(pt.ID) {
				continue
			}
			for _, p := range zones[j].Members() {
				mass[p] += w
			}
		}
	}
	return mass
}

// #endregion neighbours

// #region conditional

// Conditional computes P(group hits next | group was closest now).
func (a *Aggregator) Conditional(records []history.Record, group string) Conditional {
	return a.conditional(history.ConfirmedOnly(records), group)
}

func (a *Aggregator) conditional(confirmed []history.Record, group string) Conditional {
	c := Conditional{Group: group}
	for i := 0; i+1 < len(confirmed); i++ {
		closest, ok := a.closestGroup(confirmed, i)
		if !ok || closest != group {
			continue
		}
		c.Occurrences++
		if confirmed[i+1].Hit(group) {
			c.Hits++
		}
	}
	if c.Occurrences > 0 && c.Occurrences >= a.config.ConditionalMinSample {
		c.Sufficient = true
		c.Probability = float64(c.Hits) / float64(c.Occurrences)
	}
	return c
}

// closestGroup returns the type whose zone at confirmed[i] was nearest its
// winning position. Ties keep catalog order.
func (a *Aggregator) closestGroup(confirmed []history.Record, i int) (string, bool) {
	rec := confirmed[i]
	if rec.Winning == nil {
		return "", false
	}
	zones := a.zonesAt(confirmed, i)
	best, bestD, found := "", 0, false
	for j, pt := range a.types {
		d, ok := zones[j].MinDistance(a.seq, *rec.Winning)
		if !ok {
			continue
		}
		if !found || d < bestD {
			best, bestD, found = pt.ID, d, true
		}
	}
	return best, found
}

// #endregion conditional

// #region rolling

// Rolling summarises the most recent played recommendations.
func (a *Aggregator) Rolling(records []history.Record) Rolling {
	return a.rolling(history.ConfirmedOnly(records))
}

func (a *Aggregator) rolling(confirmed []history.Record) Rolling {
	var r Rolling
	losing := true
	for i := len(confirmed) - 1; i >= 0 && r.Plays < a.config.RollingWindow; i-- {
		rec := confirmed[i]
		if !rec.Played() {
			continue
		}
		r.Plays++
		if rec.Hit(rec.RecommendedGroup) {
			r.Wins++
			losing = false
		} else {
			r.Losses++
			if losing {
				r.ConsecutiveLosses++
			}
		}
	}
	if r.Plays > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Plays)
	}
	r.SufficientData = r.Plays >= a.config.RollingMinPlays
	return r
}

// #endregion rolling

// #region factor-shift

// FactorShift measures how concentrated recent primary factors are.
func (a *Aggregator) FactorShift(records []history.Record) FactorShift {
	return a.factorShift(history.ConfirmedOnly(records))
}

func (a *Aggregator) factorShift(confirmed []history.Record) FactorShift {
	fs := FactorShift{Counts: make(map[factor.Kind]int)}
	for i := len(confirmed) - 1; i >= 0 && fs.SampleSize < a.config.FactorShiftWindow; i-- {
		rec := confirmed[i]
		if rec.Status != history.StatusSuccess {
			continue
		}
		k, ok := rec.PrimaryFactor()
		if !ok {
			continue
		}
		fs.Counts[k]++
		fs.SampleSize++
	}
	if fs.SampleSize < minFactorShiftSample {
		return fs
	}

	fs.SufficientData = true
	maxCount := -1
	for _, k := range factor.Kinds() {
		if c := fs.Counts[k]; c > maxCount {
			maxCount = c
			fs.Dominant = k
		}
	}
	fs.DominantPct = float64(maxCount) / float64(fs.SampleSize) * 100
	fs.Diversity = float64(len(fs.Counts)) / float64(fs.SampleSize)
	fs.IsShifting = fs.Diversity >= a.config.DiversityThreshold || fs.DominantPct < a.config.DominanceThreshold
	return fs
}

// #endregion factor-shift
