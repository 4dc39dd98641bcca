// Package scoring ranks scan candidates with a composite of probability of
// profit, risk/reward and capital efficiency.
package scoring

import (
	"math"

	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/util"
)

// RiskRewardCap bounds the reported risk/reward ratio so a near-zero max
// loss cannot dominate the ranking.
const RiskRewardCap = 10.0

// Weights defines the contribution of each component to the composite
// score. Components are clipped to [0,1] before weighting.
type Weights struct {
	PoP            float64
	RiskReward     float64
	CostEfficiency float64
}

// DefaultWeights returns the standard component weights.
func DefaultWeights() Weights {
	return Weights{PoP: 0.5, RiskReward: 0.3, CostEfficiency: 0.2}
}

// Metrics are the payoff-engine outputs a candidate is scored on.
type Metrics struct {
	ProbabilityOfProfit float64
	MaxProfit           models.Bound
	MaxLoss             models.Bound
	CostBasis           float64
}

// RiskReward computes maxProfit / |maxLoss|, capped at RiskRewardCap.
// An unbounded profit reports the cap, an unbounded loss reports zero;
// both cases are flagged so callers can surface the truncation.
func RiskReward(maxProfit, maxLoss models.Bound) (ratio float64, capped bool) {
	if maxLoss.Unbounded {
		return 0, true
	}
	if maxProfit.Unbounded {
		return RiskRewardCap, true
	}
	loss := math.Abs(maxLoss.Value)
	if loss < 1e-9 {
		if maxProfit.Value > 0 {
			return RiskRewardCap, true
		}
		return 0, false
	}
	ratio = maxProfit.Value / loss
	if ratio < 0 {
		return 0, false
	}
	if ratio > RiskRewardCap {
		return RiskRewardCap, true
	}
	return ratio, false
}

// Score computes the weighted composite with the default weights.
func Score(m Metrics) float64 {
	return DefaultWeights().Score(m)
}

// Score computes 0.5*PoP + 0.3*riskReward + 0.2*costEfficiency, each
// component normalized into [0,1]. Unlimited downside never outranks a
// bounded-risk candidate with a comparable edge: an unbounded max loss
// zeroes both the risk/reward and efficiency components.
func (w Weights) Score(m Metrics) float64 {
	pop := util.Clamp01(m.ProbabilityOfProfit)

	var rrNorm float64
	switch {
	case m.MaxLoss.Unbounded:
		rrNorm = 0
	case m.MaxProfit.Unbounded:
		rrNorm = 1
	default:
		rr, _ := RiskReward(m.MaxProfit, m.MaxLoss)
		rrNorm = util.Clamp01(rr / (1 + rr))
	}

	return w.PoP*pop + w.RiskReward*rrNorm + w.CostEfficiency*w.efficiency(m)
}

// efficiency measures profit per unit of capital at risk, mapped into
// [0,1). Capital at risk is the bounded max loss, falling back to the net
// debit when the worst case is a wash.
func (w Weights) efficiency(m Metrics) float64 {
	if m.MaxLoss.Unbounded {
		return 0
	}
	if m.MaxProfit.Unbounded {
		return 1
	}
	profit := m.MaxProfit.Value
	if profit <= 0 {
		return 0
	}
	capital := math.Abs(m.MaxLoss.Value)
	if capital < 1e-9 {
		capital = math.Abs(m.CostBasis)
	}
	if capital < 1e-9 {
		return 1
	}
	return util.Clamp01(profit / (profit + capital))
}
