package payoff

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/halpert/bigtuna/internal/models"
)

// The aggregate payoff is the sum of per-leg payoffs at every terminal
// price, for any mix of kinds, sides, strikes and quantities.
func TestProperty_PayoffAdditivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(1977)

	properties := gopter.NewProperties(parameters)

	legGen := gopter.CombineGens(
		gen.IntRange(0, 2),          // kind selector
		gen.Bool(),                  // long / short
		gen.IntRange(1, 5),          // quantity
		gen.Float64Range(50, 150),   // strike
		gen.Float64Range(0.01, 25),  // premium
	).Map(func(vs []interface{}) models.Leg {
		kinds := []models.LegKind{models.KindStock, models.KindCall, models.KindPut}
		side := models.SideLong
		if !vs[1].(bool) {
			side = models.SideShort
		}
		return models.Leg{
			Kind:         kinds[vs[0].(int)],
			Side:         side,
			Quantity:     vs[2].(int),
			Strike:       vs[3].(float64),
			Expiration:   time.Now().UTC().AddDate(0, 0, 30),
			EntryPremium: vs[4].(float64),
			ImpliedVol:   0.25,
		}
	})

	properties.Property("aggregate equals sum of legs", prop.ForAll(
		func(legs []models.Leg, price float64) bool {
			sum := 0.0
			for i := range legs {
				sum += LegPayoffAt(&legs[i], price)
			}
			return math.Abs(PayoffAt(legs, price)-sum) < 1e-6
		},
		gen.SliceOfN(4, legGen),
		gen.Float64Range(0, 300),
	))

	properties.TestingRun(t)
}

// Every reported breakeven really is a zero of the payoff, and the payoff
// extremes bound every knot sample.
func TestProperty_BreakevensAreZeros(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(2005)

	properties := gopter.NewProperties(parameters)
	engine := NewEngine(0.05)

	strikeGen := gen.Float64Range(60, 140)

	properties.Property("vertical spread breakevens satisfy payoff(x) ~ 0", prop.ForAll(
		func(k1, k2, p1, p2 float64) bool {
			lo, hi := math.Min(k1, k2), math.Max(k1, k2)
			if hi-lo < 1 {
				hi = lo + 1
			}
			s := testStrategy(100,
				models.Leg{Kind: models.KindCall, Side: models.SideLong, Quantity: 1, Strike: lo,
					Expiration: futureExpiry(30), EntryPremium: p1, ImpliedVol: 0.25},
				models.Leg{Kind: models.KindCall, Side: models.SideShort, Quantity: 1, Strike: hi,
					Expiration: futureExpiry(30), EntryPremium: p2, ImpliedVol: 0.25},
			)
			analysis, err := engine.Evaluate(s)
			if err != nil {
				return false
			}
			for _, be := range analysis.Breakevens {
				if math.Abs(PayoffAt(s.Legs, be)) > 1e-6 {
					return false
				}
			}
			return true
		},
		strikeGen, strikeGen,
		gen.Float64Range(0.01, 20),
		gen.Float64Range(0.01, 20),
	))

	properties.TestingRun(t)
}
