// Package models defines the value types shared by the payoff engine,
// the template catalog and the combination scanner: legs, strategies and
// their derived analysis results.
package models

import (
	"time"
)

// SharesPerContract is the standard option contract multiplier. A stock leg
// is also quoted in units of 100 shares so all legs share the same scale.
const SharesPerContract = 100.0

// LegKind identifies the instrument a leg is built on.
type LegKind string

const (
	// KindStock represents a position in the underlying itself.
	KindStock LegKind = "stock"
	// KindCall represents a call option contract.
	KindCall LegKind = "call"
	// KindPut represents a put option contract.
	KindPut LegKind = "put"
)

// Valid returns true if the LegKind is one of the defined constants.
func (k LegKind) Valid() bool {
	switch k {
	case KindStock, KindCall, KindPut:
		return true
	default:
		return false
	}
}

// LegSide identifies the direction of a leg.
type LegSide string

const (
	// SideLong is a bought position.
	SideLong LegSide = "long"
	// SideShort is a sold position.
	SideShort LegSide = "short"
)

// Valid returns true if the LegSide is one of the defined constants.
func (s LegSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// Sign returns +1 for long and -1 for short.
func (s LegSide) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Leg is a single stock or option position within a strategy.
// EntryPremium is per share; for a stock leg it is the entry price of the
// shares. Strike and Expiration are meaningful for option legs only.
type Leg struct {
	Kind         LegKind   `json:"kind"`
	Side         LegSide   `json:"side"`
	Quantity     int       `json:"quantity"`
	Strike       float64   `json:"strike,omitempty"`
	Expiration   time.Time `json:"expiration,omitempty"`
	EntryPremium float64   `json:"entry_premium"`
	ImpliedVol   float64   `json:"implied_volatility,omitempty"`
}

// IsOption returns true for call and put legs.
func (l *Leg) IsOption() bool {
	return l.Kind == KindCall || l.Kind == KindPut
}

// Multiplier returns the signed share multiplier for the leg:
// side sign x quantity x 100 shares.
func (l *Leg) Multiplier() float64 {
	return l.Side.Sign() * float64(l.Quantity) * SharesPerContract
}

// Validate checks the leg invariants against the evaluation date.
// asOf is truncated to the day so a same-day expiration is still valid.
func (l *Leg) Validate(asOf time.Time) error {
	if !l.Kind.Valid() {
		return &ValidationError{Reason: "kind must be stock, call or put"}
	}
	if !l.Side.Valid() {
		return &ValidationError{Reason: "side must be long or short"}
	}
	if l.Quantity < 1 {
		return &ValidationError{Reason: "quantity must be >= 1"}
	}
	if l.ImpliedVol < 0 {
		return &ValidationError{Reason: "implied volatility must be >= 0"}
	}
	if l.IsOption() {
		if l.Strike <= 0 {
			return &ValidationError{Reason: "option leg requires strike > 0"}
		}
		if l.Expiration.IsZero() {
			return &ValidationError{Reason: "option leg requires an expiration"}
		}
		day := asOf.UTC().Truncate(24 * time.Hour)
		exp := l.Expiration.UTC().Truncate(24 * time.Hour)
		if exp.Before(day) {
			return &ValidationError{Reason: "option leg expiration is in the past"}
		}
	}
	return nil
}

// TimeToExpiry returns the leg's remaining lifetime in years from asOf.
// Stock legs and already-expired legs return 0.
func (l *Leg) TimeToExpiry(asOf time.Time) float64 {
	if !l.IsOption() {
		return 0
	}
	years := l.Expiration.Sub(asOf).Hours() / 24 / 365
	if years < 0 {
		return 0
	}
	return years
}

// Strategy is an ordered, non-empty collection of legs evaluated against a
// single spot price observation. Nothing is mutated after construction.
type Strategy struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Legs      []Leg     `json:"legs"`
	SpotPrice float64   `json:"spot_price"`
	AsOf      time.Time `json:"as_of"`
}

// Validate checks the strategy and every leg, identifying the offending leg
// index on failure. Legs are never silently defaulted.
func (s *Strategy) Validate() error {
	if len(s.Legs) == 0 {
		return &ValidationError{LegIndex: -1, Reason: "strategy has no legs"}
	}
	if s.SpotPrice <= 0 {
		return &ValidationError{LegIndex: -1, Reason: "spot price must be > 0"}
	}
	asOf := s.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	for i := range s.Legs {
		if err := s.Legs[i].Validate(asOf); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.LegIndex = i
				return verr
			}
			return err
		}
	}
	return nil
}

// OptionLegs returns the indices of the option legs in order.
func (s *Strategy) OptionLegs() []int {
	idx := make([]int, 0, len(s.Legs))
	for i := range s.Legs {
		if s.Legs[i].IsOption() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CostBasis returns the signed net premium of the strategy in dollars:
// positive for a net debit, negative for a net credit.
func (s *Strategy) CostBasis() float64 {
	total := 0.0
	for i := range s.Legs {
		total += s.Legs[i].Multiplier() * s.Legs[i].EntryPremium
	}
	return total
}
