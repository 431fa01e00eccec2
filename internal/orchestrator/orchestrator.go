package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/update"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #endregion

// #region orchestrator-struct

// Orchestrator is the top-level coordinator for one session: it turns an
// operand pair into a pending recommendation and a confirmed winning position
// into an influence update. Callers serialise access.
type Orchestrator struct {
	seq       wheel.Sequence
	terms     hitzone.TerminalMapping
	engine    *engine.Engine
	evaluator *history.Evaluator
	guard     *eval.EvalHarness
	records   *history.Store
	versions  *state.Store
	predictor Predictor
	observer  Observer
	context   engine.ContextFactory
	config    Config
	logger    zerolog.Logger
}

// Deps carries the collaborators. Predictor, Observer and Context are optional.
type Deps struct {
	Sequence  wheel.Sequence
	Terminals hitzone.TerminalMapping
	Engine    *engine.Engine
	History   *history.Store
	Versions  *state.Store
	Predictor Predictor
	Observer  Observer
	Context   engine.ContextFactory
	Logger    zerolog.Logger
}

// #endregion

// #region constructor

// New wires the session. The decision log lives in the version store's
// database; an initial influence version is created when none exists.
func New(deps Deps, config Config) (*Orchestrator, error) {
	if err := logging.EnsureSchema(deps.Versions.DB()); err != nil {
		return nil, err
	}
	cur, err := deps.Versions.EnsureCurrent()
	if err != nil {
		return nil, fmt.Errorf("ensure influence: %w", err)
	}

	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	obs.SetInfluence(cur.Influence)

	return &Orchestrator{
		seq:       deps.Sequence,
		terms:     deps.Terminals,
		engine:    deps.Engine,
		evaluator: history.NewEvaluator(deps.Sequence, deps.Terminals, deps.Engine.Active()),
		guard:     eval.NewEvalHarness(config.Eval),
		records:   deps.History,
		versions:  deps.Versions,
		predictor: deps.Predictor,
		observer:  obs,
		context:   deps.Context,
		config:    config,
		logger:    deps.Logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// #endregion

// #region recommend

// Recommend scores operands a and b against the stored history and the active
// influence, stores a pending record carrying the snapshot, and logs the
// decision.
func (o *Orchestrator) Recommend(ctx context.Context, a, b int) (Recommendation, error) {
	records, err := o.records.List()
	if err != nil {
		return Recommendation{}, fmt.Errorf("load history: %w", err)
	}
	cur, err := o.versions.GetCurrent()
	if err != nil {
		return Recommendation{}, fmt.Errorf("load influence: %w", err)
	}

	req := engine.Request{A: a, B: b, History: records, Influence: cur.Influence}
	if o.predictor != nil {
		ch := o.predictor.AsyncLookup(ctx, codec.PredictRequest{
			A:      a,
			B:      b,
			Groups: o.groupIDs(),
			Recent: recentWinners(records, o.config.RecentWinners),
		})
		req.AI = <-ch
	}
	if o.context != nil {
		req.Context = o.context(records)
	}

	res := o.engine.Recommend(req)

	rec, err := o.records.CreatePending(a, b)
	if err != nil {
		return Recommendation{}, fmt.Errorf("create pending: %w", err)
	}
	rec.Snapshot = res.Snapshot()
	if res.Best != nil {
		rec.RecommendedGroup = res.Best.GroupID
	}
	if err := o.records.Save(rec); err != nil {
		return Recommendation{}, err
	}

	entry := logging.DecisionEntry{
		RecordID:         rec.ID,
		Kind:             "recommend",
		InfluenceVersion: cur.VersionID,
		Signal:           string(res.Signal),
		GroupID:          rec.RecommendedGroup,
		Reason:           res.Reason,
		DetailJSON:       decisionDetail(rec, res, req, cur.Influence),
		CreatedAt:        time.Now().UTC(),
	}
	if rec.Snapshot != nil {
		entry.Score = rec.Snapshot.Score
	}
	id, err := logging.LogDecision(o.versions.DB(), entry)
	if err != nil {
		o.logger.Error().Err(err).Int64("record", rec.ID).Msg("decision log failed")
	}

	o.logger.Info().
		Int64("record", rec.ID).
		Str("signal", string(res.Signal)).
		Str("group", rec.RecommendedGroup).
		Str("rule", string(res.Rule)).
		Bool("ai_ready", req.AI.Ready).
		Msg("recommendation")

	return Recommendation{Record: rec, Result: res, InfluenceVersion: cur.VersionID, DecisionID: id}, nil
}

func (o *Orchestrator) groupIDs() []string {
	active := o.engine.Active()
	ids := make([]string, len(active))
	for i, pt := range active {
		ids[i] = pt.ID
	}
	return ids
}

// recentWinners returns up to n confirmed winning positions, oldest first.
func recentWinners(records []history.Record, n int) []int {
	confirmed := history.ConfirmedOnly(records)
	if n > 0 && len(confirmed) > n {
		confirmed = confirmed[len(confirmed)-n:]
	}
	out := make([]int, len(confirmed))
	for i, r := range confirmed {
		out[i] = *r.Winning
	}
	return out
}

// #endregion

// #region confirm

// Confirm evaluates the newest pending record against winning, stores it,
// applies the influence update and commits a new version when it moved and
// passes the eval harness.
func (o *Orchestrator) Confirm(winning int) (Confirmation, error) {
	rec, err := o.records.LatestPending()
	if errors.Is(err, history.ErrNotFound) {
		return Confirmation{}, ErrNoPending
	}
	if err != nil {
		return Confirmation{}, err
	}
	records, err := o.records.List()
	if err != nil {
		return Confirmation{}, fmt.Errorf("load history: %w", err)
	}

	lastWinning := history.LastWinning(records, rec.ID)
	opts := history.EvalOptions{
		LastWinning: lastWinning,
		Dynamic:     o.engine.Config().Stats.DynamicTerminals,
	}
	if err := o.evaluator.Evaluate(&rec, winning, opts); err != nil {
		return Confirmation{}, err
	}
	if err := o.records.Save(rec); err != nil {
		return Confirmation{}, err
	}

	cur, err := o.versions.GetCurrent()
	if err != nil {
		return Confirmation{}, fmt.Errorf("load influence: %w", err)
	}
	out := o.outcome(rec, lastWinning, opts.Dynamic)
	upd := update.Update(cur.Influence, out, o.config.Learning)

	conf := Confirmation{Record: rec, Outcome: out, Update: upd}
	versionID := cur.VersionID
	active := cur.Influence
	reason := upd.Decision.Reason
	if upd.Decision.Action == "commit" {
		ev := o.guard.Run(cur.Influence, upd.Influence)
		conf.Eval = &ev
		if ev.Passed {
			v, err := o.versions.CommitNext(upd.Influence, rec.ID, upd.Decision.Action, upd.Decision.Reason)
			if err != nil {
				return Confirmation{}, fmt.Errorf("commit influence: %w", err)
			}
			conf.Version = &v
			versionID = v.VersionID
			active = v.Influence
		} else {
			reason = ev.Reason
			o.logger.Warn().Int64("record", rec.ID).Str("reason", ev.Reason).Msg("influence update rejected")
		}
	}

	o.observer.RecordOutcome(string(rec.Status), out.Played)
	o.observer.SetInfluence(active)

	od := outcomeDetail(rec, out, upd)
	if conf.Eval != nil && !conf.Eval.Passed {
		od.UpdateAction = "eval_rollback"
	}
	detail, _ := json.Marshal(od)
	id, err := logging.LogDecision(o.versions.DB(), logging.DecisionEntry{
		RecordID:         rec.ID,
		Kind:             "outcome",
		InfluenceVersion: versionID,
		GroupID:          rec.RecommendedGroup,
		Reason:           reason,
		DetailJSON:       string(detail),
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		o.logger.Error().Err(err).Int64("record", rec.ID).Msg("outcome log failed")
	}
	conf.DecisionID = id

	o.logger.Info().
		Int64("record", rec.ID).
		Int("winning", winning).
		Str("status", string(rec.Status)).
		Bool("played", out.Played).
		Bool("won", out.Won).
		Str("update", upd.Decision.Action).
		Bool("committed", conf.Version != nil).
		Float64("movement", upd.Metrics.TotalMovement).
		Msg("outcome")

	return conf, nil
}

// outcome rebuilds the recommended zone as it stood when the record was
// created and measures the miss against it.
func (o *Orchestrator) outcome(rec history.Record, lastWinning *int, dynamic bool) update.Outcome {
	out := update.Outcome{RecordID: rec.ID, Played: rec.Played()}
	if rec.Snapshot == nil || rec.RecommendedGroup == "" {
		return out
	}
	out.Contributing = rec.Snapshot.Values.PresentKinds()
	out.Won = rec.Hit(rec.RecommendedGroup)

	for _, pt := range o.engine.Active() {
		if pt.ID != rec.RecommendedGroup {
			continue
		}
		_, _, zone := hitzone.ForType(o.seq, o.terms, pt, rec.A, rec.B, lastWinning, dynamic)
		if d, ok := zone.MinDistance(o.seq, *rec.Winning); ok {
			out.MissDistance = &d
		}
	}
	return out
}

// #endregion

// #region rollback

// Rollback re-activates an earlier influence version.
func (o *Orchestrator) Rollback(versionID string) (state.InfluenceVersion, error) {
	if err := o.versions.Rollback(versionID); err != nil {
		return state.InfluenceVersion{}, err
	}
	v, err := o.versions.GetCurrent()
	if err != nil {
		return state.InfluenceVersion{}, err
	}
	o.observer.SetInfluence(v.Influence)
	o.logger.Warn().Str("version", versionID).Msg("influence rolled back")
	return v, nil
}

// #endregion

// #region detail

func decisionDetail(rec history.Record, res engine.Result, req engine.Request, influence factor.InfluenceMap) string {
	d := logging.DecisionRecord{
		RecordID:  rec.ID,
		A:         rec.A,
		B:         rec.B,
		Signal:    string(res.Signal),
		Rule:      string(res.Rule),
		Reason:    res.Reason,
		Skipped:   res.Skipped,
		Excluded:  res.Excluded,
		AIReady:   req.AI.Ready,
		Influence: influenceMap(influence),
	}
	for _, c := range res.Ranked {
		rc := logging.RankedCandidate{
			GroupID:    c.GroupID,
			Base:       c.Base,
			Zone:       c.Zone.Members(),
			RawScore:   c.RawScore,
			FinalScore: c.FinalScore,
			Values:     c.Values.Map(),
			Reasons:    c.Reasons,
		}
		if c.PrimaryFactor != nil {
			rc.PrimaryFactor = c.PrimaryFactor.String()
		}
		d.Ranked = append(d.Ranked, rc)
	}
	if ex := res.Explanation; ex != nil {
		d.Headline = ex.Headline
		d.Confidence = string(ex.Confidence)
		d.Bullets = ex.Bullets
	}
	b, _ := json.Marshal(d)
	return string(b)
}

func outcomeDetail(rec history.Record, out update.Outcome, upd update.UpdateResult) logging.OutcomeRecord {
	r := logging.OutcomeRecord{
		RecordID:     rec.ID,
		Winning:      *rec.Winning,
		Status:       string(rec.Status),
		Played:       out.Played,
		Won:          out.Won,
		Severity:     upd.Metrics.Severity,
		Movement:     upd.Metrics.TotalMovement,
		Influence:    influenceMap(upd.Influence),
		UpdateAction: upd.Decision.Action,
	}
	for _, k := range upd.Metrics.FactorsNudged {
		r.Nudged = append(r.Nudged, k.String())
	}
	return r
}

func influenceMap(m factor.InfluenceMap) map[string]float64 {
	out := make(map[string]float64, factor.Count)
	for _, k := range factor.Kinds() {
		out[k.String()] = m.Get(k)
	}
	return out
}

// #endregion
