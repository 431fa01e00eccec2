package update

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestUpdateNoOp(t *testing.T) {
	old := factor.NeutralInfluence()
	result := Update(old, Outcome{RecordID: 1}, DefaultLearningRates())

	if result.Decision.Action != "no_op" {
		t.Fatalf("expected no_op, got %s", result.Decision.Action)
	}
	if result.Influence != old {
		t.Fatalf("influence changed: %v", result.Influence)
	}
	if result.Metrics.TotalMovement != 0 {
		t.Fatalf("expected zero movement, got %f", result.Metrics.TotalMovement)
	}
}

func TestUpdateForgetsTowardNeutral(t *testing.T) {
	rates := DefaultLearningRates()
	rates.ForgetFactor = 0.5
	old := factor.NeutralInfluence()
	old[factor.Streak] = 1.8
	old[factor.HitRate] = 0.6

	result := Update(old, Outcome{}, rates)
	if !approx(result.Influence[factor.Streak], 1.4) {
		t.Errorf("streak = %f, want 1.4", result.Influence[factor.Streak])
	}
	if !approx(result.Influence[factor.HitRate], 0.8) {
		t.Errorf("hit rate = %f, want 0.8", result.Influence[factor.HitRate])
	}
	if result.Decision.Action != "commit" {
		t.Errorf("expected commit, got %s", result.Decision.Action)
	}
}

func TestUpdateWinNudgesContributingUp(t *testing.T) {
	rates := DefaultLearningRates()
	rates.ForgetFactor = 1
	out := Outcome{Played: true, Won: true, Contributing: []factor.Kind{factor.Streak, factor.Streak, factor.HotZone}}

	result := Update(factor.NeutralInfluence(), out, rates)
	if !approx(result.Influence[factor.Streak], 1+rates.SuccessDelta) {
		t.Errorf("streak = %f", result.Influence[factor.Streak])
	}
	if !approx(result.Influence[factor.HotZone], 1+rates.SuccessDelta) {
		t.Errorf("hot zone = %f", result.Influence[factor.HotZone])
	}
	if result.Influence[factor.Proximity] != factor.Neutral {
		t.Errorf("non-contributing factor moved: %f", result.Influence[factor.Proximity])
	}
	if len(result.Metrics.FactorsNudged) != 2 {
		t.Errorf("expected 2 nudged factors, got %v", result.Metrics.FactorsNudged)
	}
}

func TestUpdateLossScaledBySeverity(t *testing.T) {
	rates := DefaultLearningRates()
	rates.ForgetFactor = 1
	near, far := 1, 15

	nearRes := Update(factor.NeutralInfluence(), Outcome{Played: true, Contributing: []factor.Kind{factor.HitRate}, MissDistance: &near}, rates)
	farRes := Update(factor.NeutralInfluence(), Outcome{Played: true, Contributing: []factor.Kind{factor.HitRate}, MissDistance: &far}, rates)

	if !approx(nearRes.Influence[factor.HitRate], 1-rates.FailureDelta*rates.NearMissSeverity) {
		t.Errorf("near miss = %f", nearRes.Influence[factor.HitRate])
	}
	if !approx(farRes.Influence[factor.HitRate], 1-rates.FailureDelta*rates.FarMissSeverity) {
		t.Errorf("far miss = %f", farRes.Influence[factor.HitRate])
	}
	if farRes.Metrics.Severity != rates.FarMissSeverity {
		t.Errorf("severity = %f", farRes.Metrics.Severity)
	}
}

func TestUpdateClampsToBounds(t *testing.T) {
	rates := DefaultLearningRates()
	rates.ForgetFactor = 1
	old := factor.NeutralInfluence()
	old[factor.AIConfidence] = rates.MaxInfluence

	result := Update(old, Outcome{Played: true, Won: true, Contributing: []factor.Kind{factor.AIConfidence}}, rates)
	if result.Influence[factor.AIConfidence] != rates.MaxInfluence {
		t.Errorf("expected clamp to %f, got %f", rates.MaxInfluence, result.Influence[factor.AIConfidence])
	}

	old[factor.AIConfidence] = rates.MinInfluence
	result = Update(old, Outcome{Played: true, Contributing: []factor.Kind{factor.AIConfidence}}, rates)
	if result.Influence[factor.AIConfidence] != rates.MinInfluence {
		t.Errorf("expected clamp to %f, got %f", rates.MinInfluence, result.Influence[factor.AIConfidence])
	}
}

func TestUpdateDeterministic(t *testing.T) {
	old := factor.NeutralInfluence()
	old[factor.Proximity] = 1.3
	out := Outcome{Played: true, Contributing: []factor.Kind{factor.Proximity}}

	r1 := Update(old, out, DefaultLearningRates())
	r2 := Update(old, out, DefaultLearningRates())
	if r1.Influence != r2.Influence {
		t.Fatalf("non-deterministic: %v vs %v", r1.Influence, r2.Influence)
	}
}

func TestSeverityBands(t *testing.T) {
	rates := DefaultLearningRates()
	mid := 5
	if Severity(nil, rates) != 1 || Severity(&mid, rates) != 1 {
		t.Error("unknown and mid-range misses should have severity 1")
	}
}
