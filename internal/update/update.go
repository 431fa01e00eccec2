package update

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

// #region update-function
// Update is a pure function that computes the next influence map from the
// current one and a confirmed outcome. Every factor first decays toward
// neutral by the forget factor; contributing factors of a played
// recommendation are then nudged up on a win or down on a loss.
func Update(old factor.InfluenceMap, out Outcome, rates LearningRates) UpdateResult {
	next := old

	// 1. Forget pass
	for _, k := range factor.Kinds() {
		v := old.Get(k)
		next[k] = factor.Neutral + (v-factor.Neutral)*rates.ForgetFactor
	}

	// 2. Nudge pass
	severity := 0.0
	var nudged []factor.Kind
	nudges := make(map[factor.Kind]float64)
	if out.Played && len(out.Contributing) > 0 {
		var delta float64
		if out.Won {
			delta = rates.SuccessDelta
		} else {
			severity = Severity(out.MissDistance, rates)
			delta = -rates.FailureDelta * severity
		}
		for _, k := range out.Contributing {
			if !k.Valid() {
				continue
			}
			if _, seen := nudges[k]; seen {
				continue
			}
			next[k] += delta
			nudges[k] = delta
			nudged = append(nudged, k)
		}
	}

	next = next.Clamp(rates.MinInfluence, rates.MaxInfluence)

	// 3. Metrics
	var movement float64
	fm := make([]FactorMetric, 0, factor.Count)
	for _, k := range factor.Kinds() {
		before, after := old.Get(k), next[k]
		movement += math.Abs(after - before)
		fm = append(fm, FactorMetric{Factor: k, Before: before, After: after, Nudge: nudges[k]})
	}

	decision := Decision{Action: "no_op", Reason: "influence unchanged"}
	if movement > 0 {
		switch {
		case len(nudged) == 0:
			decision = Decision{Action: "commit", Reason: fmt.Sprintf("forget only, movement %.6f", movement)}
		case out.Won:
			decision = Decision{Action: "commit", Reason: fmt.Sprintf("won play, nudged %v up", nudged)}
		default:
			decision = Decision{Action: "commit", Reason: fmt.Sprintf("lost play (severity %.2f), nudged %v down", severity, nudged)}
		}
	}

	return UpdateResult{
		Influence: next,
		Decision:  decision,
		Metrics: Metrics{
			Severity:      severity,
			FactorsNudged: nudged,
			FactorMetrics: fm,
			TotalMovement: movement,
		},
	}
}

// #endregion update-function

// #region severity
// Severity scales the failure delta by how far the miss landed from the
// recommended zone. Unknown distance counts as a regular miss.
func Severity(distance *int, rates LearningRates) float64 {
	if distance == nil {
		return 1
	}
	switch {
	case *distance <= rates.NearMissDistance:
		return rates.NearMissSeverity
	case *distance > rates.FarMissDistance:
		return rates.FarMissSeverity
	default:
		return 1
	}
}

// #endregion severity
