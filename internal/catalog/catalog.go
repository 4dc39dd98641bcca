// Package catalog holds the canonical leg-shape definitions for named
// option strategies. A template is a pure constraint table: it declares
// which legs a strategy has, which strikes are free variables for the
// scanner, and the ordering those strikes must satisfy.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/halpert/bigtuna/internal/models"
)

// Structure tells the scanner how to enumerate a template's free strikes.
type Structure string

const (
	// StructureSingle has one free strike.
	StructureSingle Structure = "single"
	// StructurePair has two free strikes in ascending order.
	StructurePair Structure = "pair"
	// StructureButterfly has a body strike and symmetric wings.
	StructureButterfly Structure = "butterfly"
	// StructureCondor has two body strikes and symmetric wings.
	StructureCondor Structure = "condor"
)

// LegSpec declares one leg of a template. Slot indexes the ascending free
// strike assignment; a stock leg uses slot -1 and enters at spot.
type LegSpec struct {
	Kind     models.LegKind
	Side     models.LegSide
	Quantity int
	Slot     int
}

// Template is a named strategy shape. Constraint validates an ascending
// candidate strike assignment against the spot price; a nil constraint
// accepts any ascending assignment.
type Template struct {
	Name        string
	Description string
	Legs        []LegSpec
	Slots       int
	Structure   Structure
	Constraint  func(spot float64, strikes []float64) bool
}

// PremiumSource resolves the entry premium and implied volatility for one
// option contract during instantiation.
type PremiumSource interface {
	Premium(kind models.LegKind, strike float64) (premium, iv float64, err error)
}

// Instantiate builds the concrete legs for a strike assignment. Option
// premiums come from the source; stock legs enter at spot.
func (t *Template) Instantiate(spot float64, strikes []float64, expiration time.Time, src PremiumSource) ([]models.Leg, error) {
	if len(strikes) != t.Slots {
		return nil, fmt.Errorf("template %s needs %d strikes, got %d", t.Name, t.Slots, len(strikes))
	}
	legs := make([]models.Leg, 0, len(t.Legs))
	for _, spec := range t.Legs {
		qty := spec.Quantity
		if qty == 0 {
			qty = 1
		}
		if spec.Kind == models.KindStock {
			legs = append(legs, models.Leg{
				Kind:         models.KindStock,
				Side:         spec.Side,
				Quantity:     qty,
				EntryPremium: spot,
			})
			continue
		}
		strike := strikes[spec.Slot]
		premium, iv, err := src.Premium(spec.Kind, strike)
		if err != nil {
			return nil, fmt.Errorf("template %s leg at strike %.2f: %w", t.Name, strike, err)
		}
		legs = append(legs, models.Leg{
			Kind:         spec.Kind,
			Side:         spec.Side,
			Quantity:     qty,
			Strike:       strike,
			Expiration:   expiration,
			EntryPremium: premium,
			ImpliedVol:   iv,
		})
	}
	return legs, nil
}

// Admits reports whether an ascending strike assignment satisfies the
// template's ordering constraint.
func (t *Template) Admits(spot float64, strikes []float64) bool {
	if len(strikes) != t.Slots {
		return false
	}
	for i := 1; i < len(strikes); i++ {
		if strikes[i] <= strikes[i-1] {
			return false
		}
	}
	if t.Constraint == nil {
		return true
	}
	return t.Constraint(spot, strikes)
}

// Catalog is the fixed set of known templates.
type Catalog struct {
	templates map[string]*Template
}

// NewCatalog builds the catalog with every canonical template registered.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]*Template)}
	for _, t := range builtinTemplates() {
		c.templates[t.Name] = t
	}
	return c
}

// ErrUnknownTemplate is returned by Get for an unregistered name.
var ErrUnknownTemplate = errors.New("unknown strategy template")

// Get returns the template registered under name.
func (c *Catalog) Get(name string) (*Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names returns the registered template names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinTemplates() []*Template {
	return []*Template{
		{
			Name:        "covered-call",
			Description: "Long 100 shares plus a short call at or above spot.",
			Legs: []LegSpec{
				{Kind: models.KindStock, Side: models.SideLong, Slot: -1},
				{Kind: models.KindCall, Side: models.SideShort, Slot: 0},
			},
			Slots:     1,
			Structure: StructureSingle,
			Constraint: func(spot float64, ks []float64) bool {
				return ks[0] >= spot
			},
		},
		{
			Name:        "bull-call-spread",
			Description: "Long call below a short call, same expiration.",
			Legs: []LegSpec{
				{Kind: models.KindCall, Side: models.SideLong, Slot: 0},
				{Kind: models.KindCall, Side: models.SideShort, Slot: 1},
			},
			Slots:     2,
			Structure: StructurePair,
		},
		{
			Name:        "bear-put-spread",
			Description: "Long put above a short put, same expiration.",
			Legs: []LegSpec{
				{Kind: models.KindPut, Side: models.SideShort, Slot: 0},
				{Kind: models.KindPut, Side: models.SideLong, Slot: 1},
			},
			Slots:     2,
			Structure: StructurePair,
		},
		{
			Name:        "straddle",
			Description: "Long call and long put at the same strike.",
			Legs: []LegSpec{
				{Kind: models.KindCall, Side: models.SideLong, Slot: 0},
				{Kind: models.KindPut, Side: models.SideLong, Slot: 0},
			},
			Slots:     1,
			Structure: StructureSingle,
		},
		{
			Name:        "strangle",
			Description: "Long put below spot and long call above spot.",
			Legs: []LegSpec{
				{Kind: models.KindPut, Side: models.SideLong, Slot: 0},
				{Kind: models.KindCall, Side: models.SideLong, Slot: 1},
			},
			Slots:     2,
			Structure: StructurePair,
			Constraint: func(spot float64, ks []float64) bool {
				return ks[0] < spot && ks[1] > spot
			},
		},
		{
			Name:        "collar",
			Description: "Long stock hedged with a long put and a short call.",
			Legs: []LegSpec{
				{Kind: models.KindStock, Side: models.SideLong, Slot: -1},
				{Kind: models.KindPut, Side: models.SideLong, Slot: 0},
				{Kind: models.KindCall, Side: models.SideShort, Slot: 1},
			},
			Slots:     2,
			Structure: StructurePair,
			Constraint: func(spot float64, ks []float64) bool {
				return ks[0] <= spot && ks[1] >= spot
			},
		},
		{
			Name:        "iron-condor",
			Description: "Short put spread below spot and short call spread above.",
			Legs: []LegSpec{
				{Kind: models.KindPut, Side: models.SideLong, Slot: 0},
				{Kind: models.KindPut, Side: models.SideShort, Slot: 1},
				{Kind: models.KindCall, Side: models.SideShort, Slot: 2},
				{Kind: models.KindCall, Side: models.SideLong, Slot: 3},
			},
			Slots:     4,
			Structure: StructureCondor,
			Constraint: func(spot float64, ks []float64) bool {
				return ks[1] < spot && ks[2] > spot
			},
		},
		{
			Name:        "butterfly",
			Description: "Long calls around a double-short body strike.",
			Legs: []LegSpec{
				{Kind: models.KindCall, Side: models.SideLong, Slot: 0},
				{Kind: models.KindCall, Side: models.SideShort, Quantity: 2, Slot: 1},
				{Kind: models.KindCall, Side: models.SideLong, Slot: 2},
			},
			Slots:     3,
			Structure: StructureButterfly,
		},
	}
}
