package catalog

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/halpert/bigtuna/internal/models"
)

// flatPremiums prices every contract at a fixed premium and vol.
type flatPremiums struct {
	premium float64
	err     error
}

func (f *flatPremiums) Premium(models.LegKind, float64) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.premium, 0.25, nil
}

func TestCatalog_Names(t *testing.T) {
	c := NewCatalog()
	names := c.Names()

	want := []string{
		"bear-put-spread", "bull-call-spread", "butterfly", "collar",
		"covered-call", "iron-condor", "straddle", "strangle",
	}
	if len(names) != len(want) {
		t.Fatalf("catalog has %d templates, expected %d: %v", len(names), len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, expected %q", i, names[i], name)
		}
	}
}

func TestCatalog_GetUnknown(t *testing.T) {
	c := NewCatalog()
	_, err := c.Get("jim-special")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestTemplate_Admits(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		template string
		spot     float64
		strikes  []float64
		want     bool
	}{
		{"covered-call", 100, []float64{105}, true},
		{"covered-call", 100, []float64{95}, false},
		{"bull-call-spread", 100, []float64{95, 105}, true},
		{"bull-call-spread", 100, []float64{105, 95}, false}, // not ascending
		{"bull-call-spread", 100, []float64{100, 100}, false},
		{"bull-call-spread", 100, []float64{100}, false}, // wrong arity
		{"strangle", 100, []float64{95, 105}, true},
		{"strangle", 100, []float64{101, 105}, false}, // put above spot
		{"collar", 100, []float64{95, 105}, true},
		{"collar", 100, []float64{100, 100}, false}, // equal strikes
		{"iron-condor", 100, []float64{85, 90, 110, 115}, true},
		{"iron-condor", 100, []float64{85, 90, 95, 115}, false}, // body below spot
		{"butterfly", 100, []float64{95, 100, 105}, true},
		{"butterfly", 100, []float64{95, 95, 105}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.template, tt.strikes), func(t *testing.T) {
			tmpl, err := c.Get(tt.template)
			if err != nil {
				t.Fatalf("Get(%q) failed: %v", tt.template, err)
			}
			if got := tmpl.Admits(tt.spot, tt.strikes); got != tt.want {
				t.Errorf("Admits(%v, %v) = %v, expected %v", tt.spot, tt.strikes, got, tt.want)
			}
		})
	}
}

func TestTemplate_Instantiate(t *testing.T) {
	c := NewCatalog()
	expiration := time.Now().UTC().AddDate(0, 0, 45)
	src := &flatPremiums{premium: 2.50}

	t.Run("iron condor builds four option legs", func(t *testing.T) {
		tmpl, err := c.Get("iron-condor")
		if err != nil {
			t.Fatal(err)
		}
		legs, err := tmpl.Instantiate(100, []float64{85, 90, 110, 115}, expiration, src)
		if err != nil {
			t.Fatalf("Instantiate failed: %v", err)
		}
		if len(legs) != 4 {
			t.Fatalf("got %d legs, expected 4", len(legs))
		}
		wantStrikes := []float64{85, 90, 110, 115}
		wantSides := []models.LegSide{models.SideLong, models.SideShort, models.SideShort, models.SideLong}
		for i, leg := range legs {
			if leg.Strike != wantStrikes[i] {
				t.Errorf("leg %d strike = %.1f, expected %.1f", i, leg.Strike, wantStrikes[i])
			}
			if leg.Side != wantSides[i] {
				t.Errorf("leg %d side = %s, expected %s", i, leg.Side, wantSides[i])
			}
			if leg.EntryPremium != 2.50 || leg.ImpliedVol != 0.25 {
				t.Errorf("leg %d premium/vol = %.2f/%.2f, expected 2.50/0.25",
					i, leg.EntryPremium, leg.ImpliedVol)
			}
			if !leg.Expiration.Equal(expiration) {
				t.Errorf("leg %d expiration mismatch", i)
			}
		}
	})

	t.Run("covered call stock leg enters at spot", func(t *testing.T) {
		tmpl, err := c.Get("covered-call")
		if err != nil {
			t.Fatal(err)
		}
		legs, err := tmpl.Instantiate(102.5, []float64{105}, expiration, src)
		if err != nil {
			t.Fatalf("Instantiate failed: %v", err)
		}
		if len(legs) != 2 {
			t.Fatalf("got %d legs, expected 2", len(legs))
		}
		if legs[0].Kind != models.KindStock || legs[0].EntryPremium != 102.5 {
			t.Errorf("stock leg = %+v, expected entry at spot", legs[0])
		}
		if legs[1].Kind != models.KindCall || legs[1].Side != models.SideShort {
			t.Errorf("call leg = %+v, expected short call", legs[1])
		}
	})

	t.Run("butterfly body is double quantity", func(t *testing.T) {
		tmpl, err := c.Get("butterfly")
		if err != nil {
			t.Fatal(err)
		}
		legs, err := tmpl.Instantiate(100, []float64{95, 100, 105}, expiration, src)
		if err != nil {
			t.Fatalf("Instantiate failed: %v", err)
		}
		if legs[1].Quantity != 2 {
			t.Errorf("body quantity = %d, expected 2", legs[1].Quantity)
		}
		if legs[0].Quantity != 1 || legs[2].Quantity != 1 {
			t.Errorf("wing quantities = %d/%d, expected 1/1", legs[0].Quantity, legs[2].Quantity)
		}
	})

	t.Run("wrong strike count", func(t *testing.T) {
		tmpl, err := c.Get("straddle")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tmpl.Instantiate(100, []float64{95, 105}, expiration, src); err == nil {
			t.Error("expected error for wrong strike count, got nil")
		}
	})

	t.Run("premium source error propagates", func(t *testing.T) {
		tmpl, err := c.Get("straddle")
		if err != nil {
			t.Fatal(err)
		}
		bad := &flatPremiums{err: fmt.Errorf("no quote")}
		if _, err := tmpl.Instantiate(100, []float64{100}, expiration, bad); err == nil {
			t.Error("expected premium error to propagate, got nil")
		}
	})
}
