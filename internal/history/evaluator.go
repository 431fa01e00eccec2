package history

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region evaluator

// EvalOptions carries the recency context used to derive hit zones.
type EvalOptions struct {
	LastWinning *int // winning position of the previous confirmed record
	Dynamic     bool // dynamic terminal neighbours
}

// Evaluator applies hit-zone resolution to single records.
type Evaluator struct {
	seq   wheel.Sequence
	terms hitzone.TerminalMapping
	types []hitzone.PredictionType
}

// NewEvaluator binds the wheel, terminal mapping and active types.
func NewEvaluator(seq wheel.Sequence, terms hitzone.TerminalMapping, types []hitzone.PredictionType) *Evaluator {
	return &Evaluator{seq: seq, terms: terms, types: types}
}

// Evaluate sets rec's outcome fields for winning. It mutates a pending record
// exactly once; confirmed records return ErrAlreadyConfirmed.
func (e *Evaluator) Evaluate(rec *Record, winning int, opts EvalOptions) error {
	if rec.Status != StatusPending {
		return fmt.Errorf("record %d: %w", rec.ID, ErrAlreadyConfirmed)
	}
	if !e.seq.Contains(winning) {
		return fmt.Errorf("position %d: %w", winning, ErrInvalidPosition)
	}

	hits := make(map[string]bool, len(e.types))
	var minDist *int
	for _, pt := range e.types {
		_, _, zone := hitzone.ForType(e.seq, e.terms, pt, rec.A, rec.B, opts.LastWinning, opts.Dynamic)
		hit := zone.Contains(winning)
		hits[pt.ID] = hit
		if !hit {
			continue
		}
		if d, ok := zone.MinDistance(e.seq, winning); ok && (minDist == nil || d < *minDist) {
			dd := d
			minDist = &dd
		}
	}

	w := winning
	rec.Winning = &w
	rec.Hits = hits
	rec.PocketDistance = minDist
	if minDist != nil {
		rec.Status = StatusSuccess
	} else {
		rec.Status = StatusFail
	}
	return nil
}

// Reevaluate resets rec to pending and evaluates it again. Only re-simulation
// uses this.
func (e *Evaluator) Reevaluate(rec *Record, winning int, opts EvalOptions) error {
	rec.Status = StatusPending
	rec.Winning = nil
	rec.Hits = nil
	rec.PocketDistance = nil
	return e.Evaluate(rec, winning, opts)
}

// #endregion evaluator
