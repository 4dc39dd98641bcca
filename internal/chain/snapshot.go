// Package chain defines the option-chain snapshot consumed by the scanner
// and the providers that fetch it. The engine itself performs no I/O; a
// snapshot is always retrieved before evaluation starts.
package chain

import (
	"math"
	"sort"
)

// StrikeMatchEpsilon is the tolerance used when matching strike prices.
const StrikeMatchEpsilon = 1e-3

// Right identifies the option side of a quote.
type Right string

const (
	// RightCall marks a call quote.
	RightCall Right = "call"
	// RightPut marks a put quote.
	RightPut Right = "put"
)

// Quote is one strike entry of a chain snapshot.
type Quote struct {
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	ImpliedVol   float64 `json:"implied_volatility"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
}

// Mid returns the quote's usable premium: the bid/ask midpoint when both
// sides are positive, else the last trade, else zero. A zero return means
// the caller must fall back to a model price.
func (q *Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	if q.Last > 0 {
		return q.Last
	}
	return 0
}

// Snapshot is the full chain for one symbol and expiration, with calls and
// puts ordered by strike.
type Snapshot struct {
	Symbol     string  `json:"symbol"`
	Expiration string  `json:"expiration"`
	Spot       float64 `json:"spot"`
	Calls      []Quote `json:"calls"`
	Puts       []Quote `json:"puts"`
}

// Normalize sorts both sides by strike. Providers call this once after
// assembly so consumers can rely on the ordering.
func (s *Snapshot) Normalize() {
	sort.Slice(s.Calls, func(i, j int) bool { return s.Calls[i].Strike < s.Calls[j].Strike })
	sort.Slice(s.Puts, func(i, j int) bool { return s.Puts[i].Strike < s.Puts[j].Strike })
}

// Strikes returns the sorted union of all quoted strikes.
func (s *Snapshot) Strikes() []float64 {
	seen := make([]float64, 0, len(s.Calls)+len(s.Puts))
	for _, q := range s.Calls {
		seen = append(seen, q.Strike)
	}
	for _, q := range s.Puts {
		seen = append(seen, q.Strike)
	}
	sort.Float64s(seen)
	out := seen[:0]
	for _, k := range seen {
		if len(out) == 0 || k-out[len(out)-1] > StrikeMatchEpsilon {
			out = append(out, k)
		}
	}
	return out
}

// QuoteAt finds the quote for a strike on one side of the chain.
func (s *Snapshot) QuoteAt(strike float64, right Right) *Quote {
	side := s.Calls
	if right == RightPut {
		side = s.Puts
	}
	for i := range side {
		if math.Abs(side[i].Strike-strike) <= StrikeMatchEpsilon {
			return &side[i]
		}
	}
	return nil
}
