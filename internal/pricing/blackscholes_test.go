package pricing

import (
	"math"
	"testing"

	"github.com/halpert/bigtuna/internal/models"
)

func TestPrice_KnownValues(t *testing.T) {
	tests := []struct {
		name      string
		kind      models.LegKind
		spot      float64
		strike    float64
		tYears    float64
		vol       float64
		rate      float64
		wantValue float64
		wantDelta float64
	}{
		{
			name:      "ATM call one year no rate",
			kind:      models.KindCall,
			spot:      100, strike: 100, tYears: 1, vol: 0.20, rate: 0,
			wantValue: 7.9656,
			wantDelta: 0.5398,
		},
		{
			name:      "ATM put one year no rate",
			kind:      models.KindPut,
			spot:      100, strike: 100, tYears: 1, vol: 0.20, rate: 0,
			wantValue: 7.9656,
			wantDelta: -0.4602,
		},
		{
			name:      "ATM call one year 5pct rate",
			kind:      models.KindCall,
			spot:      100, strike: 100, tYears: 1, vol: 0.20, rate: 0.05,
			wantValue: 10.4506,
			wantDelta: 0.6368,
		},
		{
			name:      "deep ITM call",
			kind:      models.KindCall,
			spot:      150, strike: 100, tYears: 0.25, vol: 0.20, rate: 0,
			wantValue: 50.0000,
			wantDelta: 1.0000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.kind, tt.spot, tt.strike, tt.tYears, tt.vol, tt.rate)
			if err != nil {
				t.Fatalf("Price returned error: %v", err)
			}
			if math.Abs(got.FairValue-tt.wantValue) > 1e-3 {
				t.Errorf("FairValue = %.4f, expected %.4f", got.FairValue, tt.wantValue)
			}
			if math.Abs(got.Delta-tt.wantDelta) > 1e-3 {
				t.Errorf("Delta = %.4f, expected %.4f", got.Delta, tt.wantDelta)
			}
		})
	}
}

func TestPrice_PutCallParity(t *testing.T) {
	// call - put = spot - strike*exp(-r*t)
	spot, strike, tYears, vol, rate := 104.5, 97.0, 0.37, 0.31, 0.04

	call, err := Price(models.KindCall, spot, strike, tYears, vol, rate)
	if err != nil {
		t.Fatalf("call pricing failed: %v", err)
	}
	put, err := Price(models.KindPut, spot, strike, tYears, vol, rate)
	if err != nil {
		t.Fatalf("put pricing failed: %v", err)
	}

	want := spot - strike*math.Exp(-rate*tYears)
	if got := call.FairValue - put.FairValue; math.Abs(got-want) > 1e-9 {
		t.Errorf("parity violated: call-put = %.10f, expected %.10f", got, want)
	}
	// Delta parity: callDelta - putDelta = 1.
	if got := call.Delta - put.Delta; math.Abs(got-1) > 1e-12 {
		t.Errorf("delta parity violated: %.12f", got)
	}
}

func TestPrice_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		kind   models.LegKind
		spot   float64
		strike float64
		tYears float64
		vol    float64
		want   Result
	}{
		{
			name: "expired ITM call",
			kind: models.KindCall, spot: 110, strike: 100, tYears: 0, vol: 0.2,
			want: Result{FairValue: 10, Delta: 1},
		},
		{
			name: "expired OTM call",
			kind: models.KindCall, spot: 90, strike: 100, tYears: 0, vol: 0.2,
			want: Result{FairValue: 0, Delta: 0},
		},
		{
			name: "zero vol ITM put",
			kind: models.KindPut, spot: 90, strike: 100, tYears: 0.5, vol: 0,
			want: Result{FairValue: 10, Delta: -1},
		},
		{
			name: "at the money at expiry",
			kind: models.KindPut, spot: 100, strike: 100, tYears: 0, vol: 0.2,
			want: Result{FairValue: 0, Delta: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.kind, tt.spot, tt.strike, tt.tYears, tt.vol, 0.05)
			if err != nil {
				t.Fatalf("Price returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, expected %+v", got, tt.want)
			}
		})
	}
}

func TestPrice_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		kind   models.LegKind
		spot   float64
		strike float64
		tYears float64
		vol    float64
	}{
		{name: "stock kind", kind: models.KindStock, spot: 100, strike: 100, tYears: 1, vol: 0.2},
		{name: "zero spot", kind: models.KindCall, spot: 0, strike: 100, tYears: 1, vol: 0.2},
		{name: "negative strike", kind: models.KindCall, spot: 100, strike: -5, tYears: 1, vol: 0.2},
		{name: "negative time", kind: models.KindCall, spot: 100, strike: 100, tYears: -0.1, vol: 0.2},
		{name: "negative vol", kind: models.KindPut, spot: 100, strike: 100, tYears: 1, vol: -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Price(tt.kind, tt.spot, tt.strike, tt.tYears, tt.vol, 0); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPrice_Greeks(t *testing.T) {
	got, err := Price(models.KindCall, 100, 100, 1, 0.20, 0)
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}

	// gamma = pdf(0.1) / (100 * 0.2) and vega = 100 * pdf(0.1) / 100.
	if math.Abs(got.Gamma-0.019848) > 1e-5 {
		t.Errorf("Gamma = %.6f, expected 0.019848", got.Gamma)
	}
	if math.Abs(got.Vega-0.396953) > 1e-5 {
		t.Errorf("Vega = %.6f, expected 0.396953", got.Vega)
	}
	if got.Theta >= 0 {
		t.Errorf("long option theta should be negative, got %.6f", got.Theta)
	}
}

func TestLognormalCDF(t *testing.T) {
	// At the starting spot the zero-drift distribution puts slightly more
	// than half the mass below, since the median sits under the mean.
	got := LognormalCDF(100, 100, 0.20, 1)
	if math.Abs(got-0.539828) > 1e-5 {
		t.Errorf("CDF at spot = %.6f, expected 0.539828", got)
	}

	if got := LognormalCDF(0, 100, 0.2, 1); got != 0 {
		t.Errorf("CDF at zero price = %v, expected 0", got)
	}
	if lo, hi := LognormalCDF(50, 100, 0.2, 1), LognormalCDF(200, 100, 0.2, 1); lo >= hi {
		t.Errorf("CDF not monotone: F(50)=%v >= F(200)=%v", lo, hi)
	}

	t.Run("degenerate point mass", func(t *testing.T) {
		if got := LognormalCDF(99, 100, 0, 1); got != 0 {
			t.Errorf("mass below spot should be 0, got %v", got)
		}
		if got := LognormalCDF(100, 100, 0, 1); got != 1 {
			t.Errorf("mass at spot should be 1, got %v", got)
		}
	})
}
