package history

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region helpers

func diffOnly(t *testing.T) []hitzone.PredictionType {
	t.Helper()
	pt, err := hitzone.NewPredictionType("diff", "Difference", "", "diff")
	if err != nil {
		t.Fatal(err)
	}
	return []hitzone.PredictionType{pt}
}

func emptyTerminals() hitzone.TerminalMapping {
	return hitzone.TerminalMapping{}
}

// #endregion helpers

// #region scenario-tests

func TestEvaluate_ExactHitWithoutTerminals(t *testing.T) {
	ev := NewEvaluator(wheel.DefaultSequence(), emptyTerminals(), diffOnly(t))
	rec := NewPending(1, 10, 15)

	if err := ev.Evaluate(&rec, 5, EvalOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusSuccess {
		t.Errorf("expected success, got %s", rec.Status)
	}
	if rec.PocketDistance == nil || *rec.PocketDistance != 0 {
		t.Errorf("expected pocket distance 0, got %v", rec.PocketDistance)
	}
	if !rec.Hit("diff") {
		t.Error("expected diff to hit")
	}
	if rec.Difference != 5 {
		t.Errorf("difference = %d", rec.Difference)
	}
}

func TestEvaluate_WheelNeighbourIsStillAMiss(t *testing.T) {
	ev := NewEvaluator(wheel.DefaultSequence(), emptyTerminals(), diffOnly(t))
	rec := NewPending(1, 10, 15)

	if err := ev.Evaluate(&rec, 32, EvalOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusFail {
		t.Errorf("expected fail, got %s", rec.Status)
	}
	if rec.PocketDistance != nil {
		t.Errorf("expected nil pocket distance, got %d", *rec.PocketDistance)
	}
	if rec.Hit("diff") {
		t.Error("diff should not hit")
	}
}

// #endregion scenario-tests

// #region invariant-tests

func TestEvaluate_StatusMatchesDistance(t *testing.T) {
	seq := wheel.DefaultSequence()
	catalog := hitzone.DefaultCatalog()
	ev := NewEvaluator(seq, hitzone.DefaultTerminals(), catalog.All())

	for a := 0; a < 37; a += 5 {
		for b := 0; b < 37; b += 7 {
			for _, w := range []int{0, 5, 17, 32} {
				rec := NewPending(1, a, b)
				if err := ev.Evaluate(&rec, w, EvalOptions{}); err != nil {
					t.Fatal(err)
				}
				anyHit := len(rec.HitTypes()) > 0
				if (rec.Status == StatusSuccess) != anyHit {
					t.Fatalf("status %s with hits %v", rec.Status, rec.HitTypes())
				}
				if (rec.PocketDistance == nil) != (rec.Status == StatusFail) {
					t.Fatalf("distance %v with status %s", rec.PocketDistance, rec.Status)
				}
			}
		}
	}
}

func TestEvaluate_OnlyOnce(t *testing.T) {
	ev := NewEvaluator(wheel.DefaultSequence(), emptyTerminals(), diffOnly(t))
	rec := NewPending(1, 10, 15)
	if err := ev.Evaluate(&rec, 5, EvalOptions{}); err != nil {
		t.Fatal(err)
	}
	err := ev.Evaluate(&rec, 32, EvalOptions{})
	if !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if *rec.Winning != 5 {
		t.Error("second evaluation must not mutate the record")
	}

	if err := ev.Reevaluate(&rec, 32, EvalOptions{}); err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusFail {
		t.Errorf("re-evaluation should produce fail, got %s", rec.Status)
	}
}

func TestEvaluate_InvalidWinning(t *testing.T) {
	ev := NewEvaluator(wheel.DefaultSequence(), emptyTerminals(), diffOnly(t))
	rec := NewPending(1, 10, 15)
	if err := ev.Evaluate(&rec, 40, EvalOptions{}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if rec.Status != StatusPending {
		t.Error("record must stay pending")
	}
}

func TestLastWinning(t *testing.T) {
	w3, w7 := 3, 7
	recs := []Record{
		{ID: 2, Status: StatusFail, Winning: &w7},
		{ID: 1, Status: StatusSuccess, Winning: &w3},
		{ID: 3, Status: StatusPending},
	}
	if got := LastWinning(recs, 0); got == nil || *got != 7 {
		t.Errorf("LastWinning = %v, want 7", got)
	}
	if got := LastWinning(recs, 2); got == nil || *got != 3 {
		t.Errorf("LastWinning before 2 = %v, want 3", got)
	}
	if got := LastWinning(recs, 1); got != nil {
		t.Errorf("LastWinning before 1 = %v, want nil", *got)
	}
}

// #endregion invariant-tests
