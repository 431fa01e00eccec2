package signals

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region producer

// Producer derives number and sector stress for hit zones from recent
// winning positions. It satisfies engine.ContextProvider.
type Producer struct {
	seq     wheel.Sequence
	winners []int // newest last
	config  ProducerConfig
}

// NewProducer builds a producer over the confirmed records in history.
func NewProducer(seq wheel.Sequence, records []history.Record, config ProducerConfig) *Producer {
	confirmed := history.ConfirmedOnly(records)
	start := len(confirmed) - config.Window
	if start < 0 {
		start = 0
	}
	winners := make([]int, 0, len(confirmed)-start)
	for _, rec := range confirmed[start:] {
		winners = append(winners, *rec.Winning)
	}
	return &Producer{seq: seq, winners: winners, config: config}
}

var _ engine.ContextProvider = (*Producer)(nil)

// Factory returns an engine.ContextFactory building a fresh producer per cycle.
func Factory(seq wheel.Sequence, config ProducerConfig) engine.ContextFactory {
	return func(records []history.Record) engine.ContextProvider {
		return NewProducer(seq, records, config)
	}
}

// #endregion producer

// #region number-context

// GroupNumberContext reports stress when the zone's own positions have been
// hit less often than their share of the wheel predicts.
func (p *Producer) GroupNumberContext(zone hitzone.Zone) (engine.ContextResult, error) {
	cov, err := p.cover(zone.Members())
	if err != nil {
		return engine.ContextResult{}, err
	}
	return p.result("Number", cov), nil
}

// #endregion number-context

// #region sector-context

// GroupSectorContext does the same for the wheel arc around the zone.
func (p *Producer) GroupSectorContext(zone hitzone.Zone) (engine.ContextResult, error) {
	var positions []int
	for _, m := range zone.Members() {
		positions = append(positions, p.seq.Arc(m, p.config.SectorRadius)...)
	}
	cov, err := p.cover(hitzone.NewZone(positions...).Members())
	if err != nil {
		return engine.ContextResult{}, err
	}
	return p.result("Sector", cov), nil
}

// #endregion sector-context

// #region helpers

func (p *Producer) cover(positions []int) (coverage, error) {
	set := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		if !p.seq.Contains(pos) {
			return coverage{}, fmt.Errorf("position %d not on wheel", pos)
		}
		set[pos] = struct{}{}
	}

	cov := coverage{size: len(set), spins: len(p.winners), sinceLast: len(p.winners)}
	for i, w := range p.winners {
		if _, ok := set[w]; ok {
			cov.hits++
			cov.sinceLast = len(p.winners) - 1 - i
		}
	}
	cov.expected = float64(cov.spins) * float64(cov.size) / float64(p.seq.Len())
	return cov, nil
}

func (p *Producer) result(kind string, cov coverage) engine.ContextResult {
	if cov.spins < p.config.MinSample || cov.size == 0 || cov.expected == 0 {
		return engine.ContextResult{}
	}

	stress := clamp(1 - float64(cov.hits)/cov.expected)
	r := engine.ContextResult{
		HasContext: true,
		Stress:     stress,
		Modifier:   1 - p.config.MaxPenalty*stress,
	}
	if stress > 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%s stress %.0f%%: %d hits in %d spins (expected %.1f), last hit %d spins ago",
			kind, stress*100, cov.hits, cov.spins, cov.expected, cov.sinceLast))
	}
	return r
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
