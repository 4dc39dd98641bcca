// Package scanner enumerates candidate strike assignments for a strategy
// template against a chain snapshot, evaluates each through the payoff
// engine and returns a ranked shortlist. Four-leg structures are pruned to
// a deterministic window around at-the-money so the evaluation count stays
// bounded and reproducible regardless of chain depth.
package scanner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/halpert/bigtuna/internal/catalog"
	"github.com/halpert/bigtuna/internal/chain"
	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/payoff"
	"github.com/halpert/bigtuna/internal/pricing"
	"github.com/halpert/bigtuna/internal/scoring"
)

// Config bounds the search and its resource usage.
type Config struct {
	TopN           int     // shortlist length
	BodyWindow     int     // strikes each side of ATM eligible as a 4-leg body
	MaxWingSteps   int     // strike steps a wing may sit beyond its body
	MaxEvaluations int     // hard evaluation budget per scan
	Parallelism    int     // concurrent candidate evaluations
	RiskFreeRate   float64 // rate for the model-price premium fallback
	DefaultIV      float64 // vol for quotes that carry none
}

// DefaultConfig returns the standard scan bounds.
func DefaultConfig() Config {
	return Config{
		TopN:           10,
		BodyWindow:     5,
		MaxWingSteps:   6,
		MaxEvaluations: 400,
		Parallelism:    4,
		RiskFreeRate:   0.05,
		DefaultIV:      0.25,
	}
}

// Request describes one scan invocation. Spot defaults to the snapshot's
// spot; TopN and MaxEvaluations default from the scanner config.
type Request struct {
	Template       string
	Snapshot       *chain.Snapshot
	Expiration     time.Time
	Spot           float64
	TopN           int
	MaxEvaluations int
}

// Scanner runs combination scans. It is stateless across invocations and
// safe for concurrent use.
type Scanner struct {
	engine  *payoff.Engine
	catalog *catalog.Catalog
	logger  *logrus.Logger
	cfg     Config
}

// New creates a scanner around a payoff engine and template catalog.
func New(engine *payoff.Engine, cat *catalog.Catalog, logger *logrus.Logger, cfg Config) *Scanner {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultConfig().TopN
	}
	if cfg.BodyWindow <= 0 {
		cfg.BodyWindow = DefaultConfig().BodyWindow
	}
	if cfg.MaxWingSteps <= 0 {
		cfg.MaxWingSteps = DefaultConfig().MaxWingSteps
	}
	if cfg.MaxEvaluations <= 0 {
		cfg.MaxEvaluations = DefaultConfig().MaxEvaluations
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{engine: engine, catalog: cat, logger: logger, cfg: cfg}
}

// Scan enumerates, evaluates and ranks candidates for the request.
// An expiration with no usable strikes yields an empty response with a
// zero total; that is not an error. A budget cutoff yields partial results
// with an accurate total.
func (s *Scanner) Scan(ctx context.Context, req Request) (*models.ScanResponse, error) {
	tmpl, err := s.catalog.Get(req.Template)
	if err != nil {
		return nil, err
	}
	if req.Snapshot == nil {
		return nil, fmt.Errorf("scan requires a chain snapshot")
	}

	spot := req.Spot
	if spot <= 0 {
		spot = req.Snapshot.Spot
	}
	if spot <= 0 {
		return nil, fmt.Errorf("scan requires a positive spot price")
	}

	budget := req.MaxEvaluations
	if budget <= 0 {
		budget = s.cfg.MaxEvaluations
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	strikes := req.Snapshot.Strikes()
	assignments := s.enumerate(tmpl, strikes, spot, budget)
	if len(assignments) == 0 {
		return &models.ScanResponse{Combinations: []models.ScanCombo{}, Total: 0}, nil
	}

	src := &chainPremiums{
		snapshot:  req.Snapshot,
		spot:      spot,
		tYears:    yearsUntil(req.Expiration),
		rate:      s.cfg.RiskFreeRate,
		defaultIV: s.cfg.DefaultIV,
	}

	combos := make([]*models.ScanCombo, len(assignments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, ks := range assignments {
		i, ks := i, ks
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			combo, err := s.evaluate(tmpl, spot, ks, req.Expiration, src)
			if err != nil {
				// A candidate that cannot be priced or evaluated still
				// counts against the total; it just produces no combo.
				s.logger.WithError(err).Debugf("skipping %s candidate %v", tmpl.Name, ks)
				return nil
			}
			combos[i] = combo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]models.ScanCombo, 0, len(combos))
	for _, c := range combos {
		if c != nil {
			ranked = append(ranked, *c)
		}
	}
	sortCombos(ranked)
	if len(ranked) > 0 {
		ranked[0].Optimal = true
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	s.logger.WithFields(logrus.Fields{
		"template":  tmpl.Name,
		"evaluated": len(assignments),
		"returned":  len(ranked),
	}).Info("scan complete")

	return &models.ScanResponse{Combinations: ranked, Total: len(assignments)}, nil
}

// evaluate prices and analyzes a single strike assignment.
func (s *Scanner) evaluate(tmpl *catalog.Template, spot float64, ks []float64,
	expiration time.Time, src catalog.PremiumSource) (*models.ScanCombo, error) {
	legs, err := tmpl.Instantiate(spot, ks, expiration, src)
	if err != nil {
		return nil, err
	}
	strategy := &models.Strategy{Legs: legs, SpotPrice: spot, AsOf: time.Now().UTC()}
	analysis, err := s.engine.Evaluate(strategy)
	if err != nil {
		return nil, err
	}

	rr, capped := scoring.RiskReward(analysis.MaxProfit, analysis.MaxLoss)
	score := scoring.Score(scoring.Metrics{
		ProbabilityOfProfit: analysis.ProbabilityOfProfit,
		MaxProfit:           analysis.MaxProfit,
		MaxLoss:             analysis.MaxLoss,
		CostBasis:           analysis.CostBasis,
	})

	return &models.ScanCombo{
		Legs:                analysis.Legs,
		MaxProfit:           analysis.MaxProfit,
		MaxLoss:             analysis.MaxLoss,
		Breakevens:          analysis.Breakevens,
		ProbabilityOfProfit: analysis.ProbabilityOfProfit,
		CostBasis:           analysis.CostBasis,
		RiskReward:          rr,
		RiskRewardCapped:    capped,
		Score:               score,
	}, nil
}

// enumerate produces the strike assignments for a template, honoring its
// ordering constraint and the evaluation budget. Assignments are generated
// in a fixed order so the total is reproducible.
func (s *Scanner) enumerate(tmpl *catalog.Template, strikes []float64, spot float64, budget int) [][]float64 {
	var out [][]float64
	add := func(ks []float64) bool {
		if !tmpl.Admits(spot, ks) {
			return true
		}
		out = append(out, ks)
		return len(out) < budget
	}

	switch tmpl.Structure {
	case catalog.StructureSingle:
		for _, k := range strikes {
			if !add([]float64{k}) {
				return out
			}
		}
	case catalog.StructurePair:
		for i := 0; i < len(strikes); i++ {
			for j := i + 1; j < len(strikes); j++ {
				if !add([]float64{strikes[i], strikes[j]}) {
					return out
				}
			}
		}
	case catalog.StructureButterfly:
		atm := nearestIndex(strikes, spot)
		for body := atm - s.cfg.BodyWindow; body <= atm+s.cfg.BodyWindow; body++ {
			if body < 0 || body >= len(strikes) {
				continue
			}
			for w := 1; w <= s.cfg.MaxWingSteps; w++ {
				lo, hi := body-w, body+w
				if lo < 0 || hi >= len(strikes) {
					break
				}
				if !add([]float64{strikes[lo], strikes[body], strikes[hi]}) {
					return out
				}
			}
		}
	case catalog.StructureCondor:
		atm := nearestIndex(strikes, spot)
		for lowBody := atm - s.cfg.BodyWindow; lowBody <= atm; lowBody++ {
			for highBody := atm; highBody <= atm+s.cfg.BodyWindow; highBody++ {
				if lowBody < 0 || highBody >= len(strikes) || lowBody >= highBody {
					continue
				}
				for w := 1; w <= s.cfg.MaxWingSteps; w++ {
					lo, hi := lowBody-w, highBody+w
					if lo < 0 || hi >= len(strikes) {
						break
					}
					if !add([]float64{strikes[lo], strikes[lowBody], strikes[highBody], strikes[hi]}) {
						return out
					}
				}
			}
		}
	}
	return out
}

// sortCombos orders by score descending with deterministic tie-breaks:
// higher probability of profit first, then the lower strike sum.
func sortCombos(combos []models.ScanCombo) {
	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].Score != combos[j].Score {
			return combos[i].Score > combos[j].Score
		}
		if combos[i].ProbabilityOfProfit != combos[j].ProbabilityOfProfit {
			return combos[i].ProbabilityOfProfit > combos[j].ProbabilityOfProfit
		}
		return strikeSum(combos[i].Legs) < strikeSum(combos[j].Legs)
	})
}

func strikeSum(legs models.Legs) float64 {
	total := 0.0
	for i := range legs {
		total += legs[i].Strike
	}
	return total
}

func nearestIndex(strikes []float64, spot float64) int {
	best, bestDiff := 0, math.MaxFloat64
	for i, k := range strikes {
		if diff := math.Abs(k - spot); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

func yearsUntil(expiration time.Time) float64 {
	years := time.Until(expiration).Hours() / 24 / 365
	if years < 0 {
		return 0
	}
	return years
}

// chainPremiums resolves entry premiums from the snapshot, preferring the
// quoted bid/ask midpoint, then the last trade, then the pricing model.
type chainPremiums struct {
	snapshot  *chain.Snapshot
	spot      float64
	tYears    float64
	rate      float64
	defaultIV float64
}

var _ catalog.PremiumSource = (*chainPremiums)(nil)

func (c *chainPremiums) Premium(kind models.LegKind, strike float64) (float64, float64, error) {
	right := chain.RightCall
	if kind == models.KindPut {
		right = chain.RightPut
	}

	iv := c.defaultIV
	if q := c.snapshot.QuoteAt(strike, right); q != nil {
		if q.ImpliedVol > 0 {
			iv = q.ImpliedVol
		}
		if mid := q.Mid(); mid > 0 {
			return mid, iv, nil
		}
	}

	res, err := pricing.Price(kind, c.spot, strike, c.tYears, iv, c.rate)
	if err != nil {
		return 0, 0, err
	}
	return res.FairValue, iv, nil
}
