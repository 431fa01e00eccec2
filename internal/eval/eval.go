package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

// #region eval-harness
// EvalHarness runs lightweight validation on a proposed influence map.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks next against old. Returns pass/fail with metrics.
func (h *EvalHarness) Run(old, next factor.InfluenceMap) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Finite, positive values
	bad := 0
	for _, k := range factor.Kinds() {
		v := next[k]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			bad++
		}
	}
	metrics = append(metrics, EvalMetric{Name: "invalid_factors", Value: float64(bad), Pass: bad == 0})
	if bad > 0 {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d factors non-finite or non-positive", bad))
		return result(metrics, passed, failReasons)
	}

	// 2. Movement of this update
	var movement float64
	for _, k := range factor.Kinds() {
		movement += math.Abs(next[k] - old[k])
	}
	movePass := movement <= h.config.MaxMovement
	metrics = append(metrics, EvalMetric{Name: "movement", Value: movement, Pass: movePass})
	if !movePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("movement %.4f exceeds %.4f", movement, h.config.MaxMovement))
	}

	// 3. Spread between strongest and weakest factor
	lo, hi, total := math.Inf(1), 0.0, 0.0
	for _, k := range factor.Kinds() {
		lo = math.Min(lo, next[k])
		hi = math.Max(hi, next[k])
		total += next[k]
	}
	spread := hi / lo
	spreadPass := spread <= h.config.MaxSpread
	metrics = append(metrics, EvalMetric{Name: "spread", Value: spread, Pass: spreadPass})
	if !spreadPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("spread %.4f exceeds %.4f", spread, h.config.MaxSpread))
	}

	// 4. Dominance: informational only, does not fail
	dominance := hi / total
	metrics = append(metrics, EvalMetric{
		Name:  "dominance",
		Value: dominance,
		Pass:  dominance <= h.config.MaxDominance,
	})

	return result(metrics, passed, failReasons)
}

func result(metrics []EvalMetric, passed bool, failReasons []string) EvalResult {
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}
	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
