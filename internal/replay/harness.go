package replay

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/update"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region types
// Spin is one recorded observation to re-simulate.
type Spin struct {
	A, B    int
	Winning int
	// ExpectedSignal is checked against the recommendation when non-empty.
	ExpectedSignal gate.Signal
}

// SpinResult captures the outcome of replaying one spin through the full
// pipeline.
type SpinResult struct {
	RecordID int64
	Signal   gate.Signal
	Rule     gate.Rule
	GroupID  string
	Score    float64
	Status   history.Status
	Played   bool
	Won      bool
	Action   string // "commit" | "eval_rollback" | "no_op"

	UpdateDecision update.Decision
	UpdateMetrics  update.Metrics
	EvalResult     *eval.EvalResult    // nil when the update was a no-op
	Influence      factor.InfluenceMap // after this spin

	Expected gate.Signal
	Mismatch bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	RunID          string
	TotalSpins     int
	Plays          int
	Wins           int
	Losses         int
	Commits        int
	EvalRollbacks  int
	Signals        map[gate.Signal]int
	Mismatches     []int64 // record IDs whose signal differed from the expectation
	FinalInfluence factor.InfluenceMap
}

// Run is the rebuilt history plus per-spin results.
type Run struct {
	ID      string
	Records []history.Record
	Results []SpinResult
	Summary Summary
}

// #endregion types

// #region harness
// Harness re-simulates a spin list from an empty history.
type Harness struct {
	seq       wheel.Sequence
	engine    *engine.Engine
	evaluator *history.Evaluator
	guard     *eval.EvalHarness
	rates     update.LearningRates
	context   engine.ContextFactory
	now       func() time.Time
}

// NewHarness binds the engine and learner. The evaluator resolves zones over
// the engine's active types.
func NewHarness(seq wheel.Sequence, eng *engine.Engine, evaluator *history.Evaluator, rates update.LearningRates) *Harness {
	return &Harness{
		seq:       seq,
		engine:    eng,
		evaluator: evaluator,
		guard:     eval.NewEvalHarness(eval.DefaultEvalConfig()),
		rates:     rates,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithEval replaces the eval harness thresholds.
func (h *Harness) WithEval(config eval.EvalConfig) *Harness {
	h.guard = eval.NewEvalHarness(config)
	return h
}

// WithContext sets the context provider factory used on every spin.
func (h *Harness) WithContext(f engine.ContextFactory) *Harness {
	h.context = f
	return h
}

// Run replays spins in order starting from the start influence. Every spin
// goes through recommend → evaluate → learn → eval. Operates entirely in memory.
func (h *Harness) Run(start factor.InfluenceMap, spins []Spin) (Run, error) {
	run := Run{
		ID:      uuid.New().String(),
		Records: make([]history.Record, 0, len(spins)),
		Results: make([]SpinResult, 0, len(spins)),
	}
	influence := start
	dynamic := h.engine.Config().Stats.DynamicTerminals

	for i, sp := range spins {
		rec := history.NewPending(int64(i+1), sp.A, sp.B)
		rec.CreatedAt = h.now()

		// 1. Recommend over the history known so far
		req := engine.Request{
			A:         sp.A,
			B:         sp.B,
			History:   run.Records,
			Influence: influence,
		}
		if h.context != nil {
			req.Context = h.context(run.Records)
		}
		res := h.engine.Recommend(req)
		rec.Snapshot = res.Snapshot()
		if res.Best != nil {
			rec.RecommendedGroup = res.Best.GroupID
		}

		// 2. Evaluate
		opts := history.EvalOptions{
			LastWinning: history.LastWinning(run.Records, 0),
			Dynamic:     dynamic,
		}
		if err := h.evaluator.Evaluate(&rec, sp.Winning, opts); err != nil {
			return Run{}, fmt.Errorf("spin %d: %w", i+1, err)
		}

		// 3. Learn
		out := h.outcome(rec, res, sp.Winning)
		upd := update.Update(influence, out, h.rates)
		action := upd.Decision.Action

		// 4. Eval, then advance the influence on commit
		var evalResult *eval.EvalResult
		if action == "commit" {
			ev := h.guard.Run(influence, upd.Influence)
			evalResult = &ev
			if ev.Passed {
				influence = upd.Influence
			} else {
				action = "eval_rollback"
			}
		}

		run.Records = append(run.Records, rec)
		sr := SpinResult{
			RecordID:       rec.ID,
			Signal:         res.Signal,
			Rule:           res.Rule,
			GroupID:        rec.RecommendedGroup,
			Status:         rec.Status,
			Played:         out.Played,
			Won:            out.Won,
			Action:         action,
			UpdateDecision: upd.Decision,
			UpdateMetrics:  upd.Metrics,
			EvalResult:     evalResult,
			Influence:      influence,
			Expected:       sp.ExpectedSignal,
		}
		if rec.Snapshot != nil {
			sr.Score = rec.Snapshot.Score
		}
		sr.Mismatch = sp.ExpectedSignal != "" && sp.ExpectedSignal != res.Signal
		run.Results = append(run.Results, sr)
	}

	run.Summary = Summarize(run.ID, run.Results, influence)
	return run, nil
}

// outcome converts a confirmed record into the learner's view of it.
func (h *Harness) outcome(rec history.Record, res engine.Result, winning int) update.Outcome {
	out := update.Outcome{
		RecordID:     rec.ID,
		Played:       rec.Played(),
		Contributing: res.Contributing(),
	}
	if res.Best == nil {
		return out
	}
	out.Won = rec.Hit(res.Best.GroupID)
	if d, ok := res.Best.Zone.MinDistance(h.seq, winning); ok {
		out.MissDistance = &d
	}
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(runID string, results []SpinResult, final factor.InfluenceMap) Summary {
	s := Summary{
		RunID:          runID,
		TotalSpins:     len(results),
		Signals:        make(map[gate.Signal]int),
		FinalInfluence: final,
	}
	for _, r := range results {
		s.Signals[r.Signal]++
		switch r.Action {
		case "commit":
			s.Commits++
		case "eval_rollback":
			s.EvalRollbacks++
		}
		if r.Mismatch {
			s.Mismatches = append(s.Mismatches, r.RecordID)
		}
		if !r.Played {
			continue
		}
		s.Plays++
		if r.Won {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	return s
}

// #endregion harness

// #region persist
// Persist replaces the stored history with the rebuilt records and commits
// the final influence as a new version.
func (r Run) Persist(records *history.Store, versions *state.Store) (state.InfluenceVersion, error) {
	if err := records.ReplaceAll(r.Records); err != nil {
		return state.InfluenceVersion{}, fmt.Errorf("replace history: %w", err)
	}
	if _, err := versions.EnsureCurrent(); err != nil {
		return state.InfluenceVersion{}, err
	}
	var lastID int64
	if n := len(r.Records); n > 0 {
		lastID = r.Records[n-1].ID
	}
	reason := fmt.Sprintf("replay %s: %d spins, %d plays, %d wins", r.ID, r.Summary.TotalSpins, r.Summary.Plays, r.Summary.Wins)
	v, err := versions.CommitNext(r.Summary.FinalInfluence, lastID, "replay", reason)
	if err != nil {
		return state.InfluenceVersion{}, fmt.Errorf("commit influence: %w", err)
	}
	return v, nil
}

// #endregion persist
