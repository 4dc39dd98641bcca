package payoff

import (
	"math"
	"time"

	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/pricing"
	"github.com/halpert/bigtuna/internal/util"
)

// probabilityOfProfit estimates the chance the strategy expires with a
// positive payoff under a zero-drift risk-neutral lognormal terminal price.
// The price axis is partitioned at the breakevens; the lognormal mass of
// every interval whose midpoint has positive payoff is summed, which
// handles disjoint profit regions such as an iron condor's plateau.
func (e *Engine) probabilityOfProfit(s *models.Strategy, breakevens []float64, asOf time.Time) float64 {
	vol, horizon := e.terminalDistribution(s, asOf)

	if len(breakevens) == 0 {
		if PayoffAt(s.Legs, s.SpotPrice) > 0 {
			return 1
		}
		return 0
	}

	prob := 0.0
	prev := 0.0
	prevCDF := 0.0
	for _, be := range breakevens {
		mid := (prev + be) / 2
		cdf := pricing.LognormalCDF(be, s.SpotPrice, vol, horizon)
		if PayoffAt(s.Legs, mid) > 0 {
			prob += cdf - prevCDF
		}
		prev = be
		prevCDF = cdf
	}
	// Open right tail beyond the last breakeven.
	tailMid := prev * 1.5
	if tailMid <= prev {
		tailMid = prev + 1
	}
	if PayoffAt(s.Legs, tailMid) > 0 {
		prob += 1 - prevCDF
	}
	return util.Clamp01(prob)
}

// terminalDistribution derives the lognormal parameters of the terminal
// price model: volatility is the absolute-vega-weighted average of the leg
// implied vols (unweighted when all vegas vanish) and the horizon is the
// shortest remaining option lifetime.
func (e *Engine) terminalDistribution(s *models.Strategy, asOf time.Time) (vol, horizon float64) {
	optIdx := s.OptionLegs()
	if len(optIdx) == 0 {
		return 0, 0
	}

	horizon = math.MaxFloat64
	for _, i := range optIdx {
		if t := s.Legs[i].TimeToExpiry(asOf); t < horizon {
			horizon = t
		}
	}

	var weighted, weightSum, unweighted float64
	for _, i := range optIdx {
		leg := &s.Legs[i]
		unweighted += leg.ImpliedVol
		res, err := pricing.Price(leg.Kind, s.SpotPrice, leg.Strike,
			leg.TimeToExpiry(asOf), leg.ImpliedVol, e.riskFreeRate)
		if err != nil {
			continue
		}
		w := math.Abs(res.Vega) * math.Abs(leg.Multiplier())
		weighted += w * leg.ImpliedVol
		weightSum += w
	}
	if weightSum > 1e-12 {
		vol = weighted / weightSum
	} else {
		vol = unweighted / float64(len(optIdx))
	}
	return vol, horizon
}
