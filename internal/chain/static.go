package chain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/pricing"
	"github.com/halpert/bigtuna/internal/util"
)

// StaticProvider serves deterministic synthetic chains, used in paper mode
// and in tests. Premiums are Black-Scholes fair values at a flat vol with a
// fixed bid/ask spread, so scans against it are fully reproducible.
type StaticProvider struct {
	spot           float64
	flatVol        float64
	strikeInterval float64
	strikeSpan     float64 // fraction of spot covered each side of ATM
	spreadWidth    float64 // dollars between bid and ask
	expirations    []string
}

// Ensure StaticProvider implements Provider at compile time.
var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider creates a synthetic chain source around the given spot
// with the given flat implied volatility.
func NewStaticProvider(spot, flatVol float64, expirations []string) *StaticProvider {
	return &StaticProvider{
		spot:           spot,
		flatVol:        flatVol,
		strikeInterval: 5.0,
		strikeSpan:     0.30,
		spreadWidth:    0.10,
		expirations:    expirations,
	}
}

// WithStrikes overrides the strike grid shape.
func (p *StaticProvider) WithStrikes(interval, span float64) *StaticProvider {
	if interval > 0 {
		p.strikeInterval = interval
	}
	if span > 0 {
		p.strikeSpan = span
	}
	return p
}

// GetExpirations returns the configured expiration list.
func (p *StaticProvider) GetExpirations(_ context.Context, _ string) ([]string, error) {
	return append([]string(nil), p.expirations...), nil
}

// GetSpot returns the fixed underlying price.
func (p *StaticProvider) GetSpot(_ context.Context, _ string) (float64, error) {
	return p.spot, nil
}

// GetSnapshot builds the synthetic chain for one expiration. Strikes cover
// spot +/- strikeSpan on a regular grid; every quote carries the flat vol.
func (p *StaticProvider) GetSnapshot(_ context.Context, symbol, expiration string) (*Snapshot, error) {
	expDate, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration format: %w", err)
	}
	tYears := time.Until(expDate).Hours() / 24 / 365
	if tYears < 0 {
		tYears = 0
	}

	snap := &Snapshot{Symbol: symbol, Expiration: expiration, Spot: p.spot}

	low := util.RoundToTick(p.spot*(1-p.strikeSpan), p.strikeInterval)
	high := util.RoundToTick(p.spot*(1+p.strikeSpan), p.strikeInterval)
	for strike := low; strike <= high+StrikeMatchEpsilon; strike += p.strikeInterval {
		call, err := pricing.Price(models.KindCall, p.spot, strike, tYears, p.flatVol, 0)
		if err != nil {
			return nil, err
		}
		put, err := pricing.Price(models.KindPut, p.spot, strike, tYears, p.flatVol, 0)
		if err != nil {
			return nil, err
		}
		snap.Calls = append(snap.Calls, p.quote(strike, call.FairValue))
		snap.Puts = append(snap.Puts, p.quote(strike, put.FairValue))
	}
	snap.Normalize()
	return snap, nil
}

func (p *StaticProvider) quote(strike, fair float64) Quote {
	half := p.spreadWidth / 2
	bid := math.Max(0, util.RoundToTick(fair-half, 0.01))
	ask := util.RoundToTick(fair+half, 0.01)
	return Quote{
		Strike:       strike,
		Bid:          bid,
		Ask:          ask,
		Last:         util.RoundToTick(fair, 0.01),
		ImpliedVol:   p.flatVol,
		Volume:       1000,
		OpenInterest: 5000,
	}
}
