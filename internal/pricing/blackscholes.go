// Package pricing implements closed-form European option pricing and
// sensitivities. It is the fallback used when a quoted chain premium is not
// available; quoted mid prices are always preferred.
package pricing

import (
	"fmt"
	"math"

	"github.com/halpert/bigtuna/internal/models"
)

// Result holds the fair value and greeks for a single contract, per share.
// Theta is per calendar day and Vega is per volatility point.
type Result struct {
	FairValue float64
	Delta     float64
	Gamma     float64
	Theta     float64
	Vega      float64
}

// Price returns the Black-Scholes fair value and greeks of one option.
// spot and strike are in dollars, tYears in years, vol and rate as decimals.
// At tYears == 0 or vol == 0 the formulas are singular, so the result
// short-circuits to the deterministic intrinsic value with zero gamma,
// theta and vega.
func Price(kind models.LegKind, spot, strike, tYears, vol, rate float64) (Result, error) {
	if kind != models.KindCall && kind != models.KindPut {
		return Result{}, fmt.Errorf("pricing: unsupported leg kind %q", kind)
	}
	if spot <= 0 || strike <= 0 {
		return Result{}, fmt.Errorf("pricing: spot and strike must be > 0 (spot=%.4f strike=%.4f)", spot, strike)
	}
	if tYears < 0 {
		return Result{}, fmt.Errorf("pricing: time to expiry must be >= 0 (got %.6f)", tYears)
	}
	if vol < 0 {
		return Result{}, fmt.Errorf("pricing: volatility must be >= 0 (got %.6f)", vol)
	}

	if tYears == 0 || vol == 0 {
		return intrinsic(kind, spot, strike), nil
	}

	sqrtT := math.Sqrt(tYears)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*tYears) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	discount := math.Exp(-rate * tYears)
	pdfD1 := normPDF(d1)

	var r Result
	if kind == models.KindCall {
		r.FairValue = spot*normCDF(d1) - strike*discount*normCDF(d2)
		r.Delta = normCDF(d1)
		r.Theta = (-(spot*pdfD1*vol)/(2*sqrtT) - rate*strike*discount*normCDF(d2)) / 365
	} else {
		r.FairValue = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
		r.Delta = normCDF(d1) - 1
		r.Theta = (-(spot*pdfD1*vol)/(2*sqrtT) + rate*strike*discount*normCDF(-d2)) / 365
	}
	r.Gamma = pdfD1 / (spot * vol * sqrtT)
	r.Vega = spot * pdfD1 * sqrtT / 100
	return r, nil
}

// intrinsic is the degenerate value at expiry or zero volatility. Delta is
// 0 or +/-1 by moneyness; the remaining greeks vanish.
func intrinsic(kind models.LegKind, spot, strike float64) Result {
	var r Result
	if kind == models.KindCall {
		r.FairValue = math.Max(0, spot-strike)
		if spot > strike {
			r.Delta = 1
		}
	} else {
		r.FairValue = math.Max(0, strike-spot)
		if spot < strike {
			r.Delta = -1
		}
	}
	return r
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// LognormalCDF returns P(terminal <= price) for a zero-drift risk-neutral
// lognormal terminal price started at spot with the given volatility and
// horizon. Degenerate inputs collapse to a point mass at spot.
func LognormalCDF(price, spot, vol, tYears float64) float64 {
	if price <= 0 {
		return 0
	}
	if vol <= 0 || tYears <= 0 || spot <= 0 {
		if spot <= price {
			return 1
		}
		return 0
	}
	sd := vol * math.Sqrt(tYears)
	z := (math.Log(price/spot) + 0.5*sd*sd) / sd
	return normCDF(z)
}
