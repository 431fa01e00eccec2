package orchestrator

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/update"
)

// #endregion

// #region errors

// ErrNoPending is returned by Confirm when no recommendation awaits an outcome.
var ErrNoPending = errors.New("no pending recommendation")

// #endregion

// #region collaborators

// Predictor starts one AI probability lookup. *codec.PredictorClient
// satisfies it.
type Predictor interface {
	AsyncLookup(ctx context.Context, req codec.PredictRequest) <-chan engine.AIInput
}

// Observer receives session telemetry. *metrics.Registry satisfies it.
type Observer interface {
	RecordOutcome(status string, played bool)
	SetInfluence(m factor.InfluenceMap)
}

type nopObserver struct{}

func (nopObserver) RecordOutcome(string, bool)       {}
func (nopObserver) SetInfluence(factor.InfluenceMap) {}

// #endregion

// #region config

// Config tunes the session loop.
type Config struct {
	Learning update.LearningRates
	Eval     eval.EvalConfig
	// RecentWinners is how many confirmed winning positions the predictor
	// receives as context.
	RecentWinners int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Learning:      update.DefaultLearningRates(),
		Eval:          eval.DefaultEvalConfig(),
		RecentWinners: 12,
	}
}

// #endregion

// #region results

// Recommendation is the outcome of one "a b" request.
type Recommendation struct {
	Record           history.Record // the new pending record
	Result           engine.Result
	InfluenceVersion string
	DecisionID       string
}

// Confirmation is the outcome of confirming a winning position.
type Confirmation struct {
	Record     history.Record // the confirmed record
	Outcome    update.Outcome
	Update     update.UpdateResult
	Eval       *eval.EvalResult        // nil when the update was a no-op
	Version    *state.InfluenceVersion // nil unless the update was committed
	DecisionID string
}

// #endregion
