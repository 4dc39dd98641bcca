// Package payoff evaluates the expiration risk/reward profile of a
// multi-leg strategy. The aggregate payoff is piecewise linear in the
// terminal price, so extremes and breakevens are computed exactly from the
// knot prices; the dense curve exists only for charting.
package payoff

import (
	"math"
	"sort"
	"time"

	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/pricing"
)

const (
	// defaultCurvePoints is the sample count for the visual payoff curve.
	defaultCurvePoints = 81
	// defaultSpanLow and defaultSpanHigh bound the curve grid as multiples
	// of spot, wide enough to show the asymptotic slope on both ends.
	defaultSpanLow  = 0.4
	defaultSpanHigh = 1.8

	// zeroEps treats payoff values this close to zero (in dollars) as an
	// exact breakeven hit.
	zeroEps = 1e-6
	// dedupeRelEps merges breakeven crossings closer together than this
	// relative distance; legs sharing a strike can otherwise produce
	// duplicate roots.
	dedupeRelEps = 1e-6
)

// Engine computes StrategyAnalysis results. It is stateless and safe for
// concurrent use.
type Engine struct {
	riskFreeRate float64
	curvePoints  int
	spanLow      float64
	spanHigh     float64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCurve overrides the payoff curve grid shape.
func WithCurve(points int, spanLow, spanHigh float64) Option {
	return func(e *Engine) {
		if points >= 2 {
			e.curvePoints = points
		}
		if spanLow > 0 && spanHigh > spanLow {
			e.spanLow = spanLow
			e.spanHigh = spanHigh
		}
	}
}

// NewEngine creates a payoff engine using the given risk-free rate for the
// model-priced greeks.
func NewEngine(riskFreeRate float64, opts ...Option) *Engine {
	e := &Engine{
		riskFreeRate: riskFreeRate,
		curvePoints:  defaultCurvePoints,
		spanLow:      defaultSpanLow,
		spanHigh:     defaultSpanHigh,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LegPayoffAt returns one leg's payoff in dollars at terminal price.
// Option payoffs include the premium paid (long) or received (short); the
// stock payoff is linear through the entry price.
func LegPayoffAt(leg *models.Leg, price float64) float64 {
	var perShare float64
	switch leg.Kind {
	case models.KindStock:
		perShare = price - leg.EntryPremium
	case models.KindCall:
		perShare = math.Max(0, price-leg.Strike) - leg.EntryPremium
	case models.KindPut:
		perShare = math.Max(0, leg.Strike-price) - leg.EntryPremium
	}
	return leg.Multiplier() * perShare
}

// PayoffAt returns the aggregate payoff in dollars of all legs at the given
// terminal price.
func PayoffAt(legs []models.Leg, price float64) float64 {
	total := 0.0
	for i := range legs {
		total += LegPayoffAt(&legs[i], price)
	}
	return total
}

// rightSlope is the payoff slope per dollar of terminal price on the
// rightmost linear segment, above every strike.
func rightSlope(legs []models.Leg) float64 {
	slope := 0.0
	for i := range legs {
		switch legs[i].Kind {
		case models.KindStock, models.KindCall:
			slope += legs[i].Multiplier()
		case models.KindPut:
			// flat above the strike
		}
	}
	return slope
}

// knotPrices returns the sorted, deduplicated prices at which the payoff
// can change slope. Price zero is always included: it is the true left
// evaluation point since the underlying cannot trade below it.
func knotPrices(legs []models.Leg) []float64 {
	ks := []float64{0}
	for i := range legs {
		if legs[i].IsOption() {
			ks = append(ks, legs[i].Strike)
		}
	}
	sort.Float64s(ks)
	out := ks[:1]
	for _, k := range ks[1:] {
		if k-out[len(out)-1] > dedupeRelEps*math.Max(1, k) {
			out = append(out, k)
		}
	}
	return out
}

// Evaluate computes the full analysis for a strategy on the default curve
// grid. Validation failures identify the offending leg.
func (e *Engine) Evaluate(s *models.Strategy) (*models.StrategyAnalysis, error) {
	return e.EvaluateOnGrid(s, nil)
}

// EvaluateOnGrid computes the full analysis, sampling the visual curve on
// the supplied price grid. A nil grid uses the default span around spot.
func (e *Engine) EvaluateOnGrid(s *models.Strategy, grid []float64) (*models.StrategyAnalysis, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	// Validate accepts a zero AsOf as "now"; evaluation must use the same
	// clock or time-to-expiry blows up against the zero time.
	asOf := s.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	ks := knotPrices(s.Legs)
	vals := make([]float64, len(ks))
	for i, k := range ks {
		vals[i] = PayoffAt(s.Legs, k)
	}
	slope := rightSlope(s.Legs)

	maxProfit, maxLoss := bounds(vals, slope)
	breakevens := findBreakevens(ks, vals, slope)

	greeks, err := e.aggregateGreeks(s, asOf)
	if err != nil {
		return nil, err
	}

	analysis := &models.StrategyAnalysis{
		Legs:                append(models.Legs(nil), s.Legs...),
		Curve:               e.curve(s, grid),
		MaxProfit:           maxProfit,
		MaxLoss:             maxLoss,
		Breakevens:          breakevens,
		ProbabilityOfProfit: e.probabilityOfProfit(s, breakevens, asOf),
		CostBasis:           s.CostBasis(),
		Greeks:              greeks,
	}
	return analysis, nil
}

// bounds derives the profit and loss extremes from the knot values and the
// rightmost slope. A piecewise-linear function attains its finite extremes
// only at knots; the right tail is the only direction that can escape, as
// the left end is pinned at price zero.
func bounds(vals []float64, slope float64) (maxProfit, maxLoss models.Bound) {
	hi, lo := vals[0], vals[0]
	for _, v := range vals[1:] {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	if slope > zeroEps {
		maxProfit = models.Unbounded()
	} else {
		maxProfit = models.Bounded(hi)
	}
	if slope < -zeroEps {
		maxLoss = models.Unbounded()
	} else {
		maxLoss = models.Bounded(lo)
	}
	return maxProfit, maxLoss
}

// findBreakevens walks the knots in order and interpolates the exact zero
// crossing of every segment that straddles zero, including the open right
// tail. A knot landing on zero counts once.
func findBreakevens(ks, vals []float64, slope float64) []float64 {
	var crossings []float64
	for i, v := range vals {
		if math.Abs(v) <= zeroEps {
			crossings = append(crossings, ks[i])
		}
	}
	for i := 0; i+1 < len(ks); i++ {
		v1, v2 := vals[i], vals[i+1]
		if math.Abs(v1) <= zeroEps || math.Abs(v2) <= zeroEps {
			continue
		}
		if v1*v2 < 0 {
			x := ks[i] + (0-v1)*(ks[i+1]-ks[i])/(v2-v1)
			crossings = append(crossings, x)
		}
	}
	// Right tail: the last segment extends to infinity with a constant slope.
	last := len(ks) - 1
	if math.Abs(vals[last]) > zeroEps && math.Abs(slope) > zeroEps && vals[last]*slope < 0 {
		crossings = append(crossings, ks[last]-vals[last]/slope)
	}

	sort.Float64s(crossings)
	out := crossings[:0]
	for _, x := range crossings {
		if len(out) == 0 || x-out[len(out)-1] > dedupeRelEps*math.Max(1, x) {
			out = append(out, x)
		}
	}
	return out
}

// aggregateGreeks sums the signed, quantity-scaled greeks of every leg.
// Option greeks come from the pricing model at the leg's own implied vol;
// a stock leg contributes only delta.
func (e *Engine) aggregateGreeks(s *models.Strategy, asOf time.Time) (models.Greeks, error) {
	var total models.Greeks
	for i := range s.Legs {
		leg := &s.Legs[i]
		if !leg.IsOption() {
			total.Delta += leg.Multiplier()
			continue
		}
		res, err := pricing.Price(leg.Kind, s.SpotPrice, leg.Strike,
			leg.TimeToExpiry(asOf), leg.ImpliedVol, e.riskFreeRate)
		if err != nil {
			return models.Greeks{}, err
		}
		total.Add(models.Greeks{
			Delta: res.Delta,
			Gamma: res.Gamma,
			Theta: res.Theta,
			Vega:  res.Vega,
		}, leg.Multiplier())
	}
	return total, nil
}

// curve samples the payoff for charting. The grid is dense sampling only;
// extremes and breakevens never depend on it.
func (e *Engine) curve(s *models.Strategy, grid []float64) []models.PayoffPoint {
	if grid == nil {
		low := e.spanLow * s.SpotPrice
		high := e.spanHigh * s.SpotPrice
		step := (high - low) / float64(e.curvePoints-1)
		grid = make([]float64, e.curvePoints)
		for i := range grid {
			grid[i] = low + step*float64(i)
		}
	}
	points := make([]models.PayoffPoint, len(grid))
	for i, p := range grid {
		points[i] = models.PayoffPoint{Price: p, PnL: PayoffAt(s.Legs, p)}
	}
	return points
}
