package replay

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/update"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// helper: harness over the default wheel and catalog without terminals.
func newHarness(t *testing.T) *Harness {
	t.Helper()
	seq := wheel.DefaultSequence()
	terms := hitzone.TerminalMapping{}
	eng := engine.NewEngine(engine.Setup{
		Sequence:  seq,
		Terminals: terms,
		Catalog:   hitzone.DefaultCatalog(),
		Logger:    zerolog.Nop(),
	}, engine.DefaultConfig())
	ev := history.NewEvaluator(seq, terms, eng.Active())
	return NewHarness(seq, eng, ev, update.DefaultLearningRates())
}

// helper: n identical spins of operands (10,15) landing on 5.
func diffSpins(n int) []Spin {
	out := make([]Spin, n)
	for i := range out {
		out[i] = Spin{A: 10, B: 15, Winning: 5}
	}
	return out
}

// 1. Empty history: nothing can score, so the first spin waits and is not played.
func TestRun_FirstSpinWaits(t *testing.T) {
	run, err := newHarness(t).Run(factor.NeutralInfluence(), diffSpins(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(run.Results) != 1 || len(run.Records) != 1 {
		t.Fatalf("expected 1 result and record, got %d/%d", len(run.Results), len(run.Records))
	}
	r := run.Results[0]
	if r.Signal != gate.Wait || r.Rule != gate.RuleNoCandidate {
		t.Errorf("expected wait/no_candidate, got %s/%s", r.Signal, r.Rule)
	}
	if r.Played {
		t.Error("a wait must not count as played")
	}
	if r.UpdateDecision.Action != "no_op" {
		t.Errorf("neutral influence with no play should not move, got %s", r.UpdateDecision.Action)
	}
	rec := run.Records[0]
	if !rec.Confirmed() || rec.Status != history.StatusSuccess {
		t.Errorf("expected confirmed success (diff base 5), got %s", rec.Status)
	}
	if run.Summary.RunID == "" || run.Summary.RunID != run.ID {
		t.Errorf("expected run ID on summary, got %q", run.Summary.RunID)
	}
}

// 2. Repeated hits build a candidate and keep the summary consistent.
func TestRun_SummaryInvariants(t *testing.T) {
	spins := diffSpins(8)
	run, err := newHarness(t).Run(factor.NeutralInfluence(), spins)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := run.Summary
	if s.TotalSpins != len(spins) {
		t.Errorf("expected %d spins, got %d", len(spins), s.TotalSpins)
	}
	if s.Plays != s.Wins+s.Losses {
		t.Errorf("plays %d != wins %d + losses %d", s.Plays, s.Wins, s.Losses)
	}
	total := 0
	for _, n := range s.Signals {
		total += n
	}
	if total != len(spins) {
		t.Errorf("signal counts sum to %d, want %d", total, len(spins))
	}
	for i, rec := range run.Records {
		if rec.ID != int64(i+1) {
			t.Errorf("record %d has ID %d", i, rec.ID)
		}
		if !rec.Confirmed() {
			t.Errorf("record %d left pending", rec.ID)
		}
	}
	if last := run.Results[len(run.Results)-1]; last.GroupID == "" {
		t.Error("expected a recommended group once diff has a hit history")
	}
	for _, k := range factor.Kinds() {
		v := s.FinalInfluence.Get(k)
		if v < update.DefaultLearningRates().MinInfluence || v > update.DefaultLearningRates().MaxInfluence {
			t.Errorf("influence %s=%f out of bounds", k, v)
		}
	}
}

// An eval harness that rejects every move keeps the start influence.
func TestRun_EvalRollback(t *testing.T) {
	cfg := eval.DefaultEvalConfig()
	cfg.MaxMovement = 0
	run, err := newHarness(t).WithEval(cfg).Run(factor.NeutralInfluence(), append(diffSpins(6), Spin{A: 10, B: 15, Winning: 24}))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range run.Results {
		if r.UpdateDecision.Action == "commit" && r.Action != "eval_rollback" {
			t.Errorf("spin %d: expected eval_rollback, got %s", r.RecordID, r.Action)
		}
	}
	if run.Summary.Commits != 0 {
		t.Errorf("expected no commits, got %d", run.Summary.Commits)
	}
	if run.Summary.FinalInfluence != factor.NeutralInfluence() {
		t.Errorf("influence moved: %v", run.Summary.FinalInfluence)
	}
}

// 3. A winning position off the wheel aborts the run.
func TestRun_InvalidWinning(t *testing.T) {
	spins := diffSpins(2)
	spins[1].Winning = 40
	_, err := newHarness(t).Run(factor.NeutralInfluence(), spins)
	if !errors.Is(err, history.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

// 4. Expected signals that differ are reported as mismatches.
func TestRun_Mismatch(t *testing.T) {
	spins := diffSpins(2)
	spins[0].ExpectedSignal = gate.StrongPlay
	run, err := newHarness(t).Run(factor.NeutralInfluence(), spins)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(run.Summary.Mismatches, []int64{1}) {
		t.Errorf("expected mismatch on record 1, got %v", run.Summary.Mismatches)
	}
	if run.Results[1].Mismatch {
		t.Error("spin without expectation must not mismatch")
	}
}

// 5. Same spins, same results.
func TestRun_Deterministic(t *testing.T) {
	spins := append(diffSpins(5), Spin{A: 22, B: 4, Winning: 18}, Spin{A: 10, B: 15, Winning: 24})
	a, err := newHarness(t).Run(factor.NeutralInfluence(), spins)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newHarness(t).Run(factor.NeutralInfluence(), spins)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Results, b.Results) {
		t.Error("expected identical results across runs")
	}
	if a.ID == b.ID {
		t.Error("expected distinct run IDs")
	}
}

// 6. The context factory sees only the history before each spin.
func TestRun_ContextFactory(t *testing.T) {
	var seen []int
	h := newHarness(t).WithContext(func(records []history.Record) engine.ContextProvider {
		seen = append(seen, len(records))
		return nil
	})
	if _, err := h.Run(factor.NeutralInfluence(), diffSpins(3)); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Errorf("expected history lengths [0 1 2], got %v", seen)
	}
}

// 7. Persist replaces history and commits the final influence.
func TestRun_Persist(t *testing.T) {
	dir := t.TempDir()
	hs, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer hs.Close()
	vs, err := state.NewStore(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer vs.Close()

	if _, err := hs.CreatePending(1, 2); err != nil {
		t.Fatal(err)
	}

	run, err := newHarness(t).Run(factor.NeutralInfluence(), diffSpins(4))
	if err != nil {
		t.Fatal(err)
	}
	v, err := run.Persist(hs, vs)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := hs.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 4 {
		t.Errorf("expected 4 stored records, got %d", len(stored))
	}
	cur, err := vs.GetCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if cur.VersionID != v.VersionID || cur.Influence != run.Summary.FinalInfluence {
		t.Errorf("current version %s does not carry the final influence", cur.VersionID)
	}
	if cur.ParentID == "" || cur.RecordID != 4 || cur.Decision != "replay" {
		t.Errorf("unexpected version metadata: %+v", cur)
	}
}
