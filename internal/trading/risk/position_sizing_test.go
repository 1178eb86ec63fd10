package risk

import (
	"math"
	"testing"

	"github.com/Alias1177/Trader/models"
)

func TestBetaCDFBoundaries(t *testing.T) {
	if got := BetaCDF(0); got != 0 {
		t.Fatalf("BetaCDF(0) = %v, want 0", got)
	}
	if got := BetaCDF(1); got != 1 {
		t.Fatalf("BetaCDF(1) = %v, want 1", got)
	}
	if got := BetaCDF(-0.5); got != 0 {
		t.Fatalf("BetaCDF(-0.5) = %v, want 0", got)
	}
	if got := BetaCDF(1.5); got != 1 {
		t.Fatalf("BetaCDF(1.5) = %v, want 1", got)
	}
}

func TestBetaCDFMonotonic(t *testing.T) {
	prev := BetaCDF(0)
	for i := 1; i <= 1000; i++ {
		x := float64(i) / 1000
		cur := BetaCDF(x)
		if cur < prev {
			t.Fatalf("BetaCDF not monotonic at %v: %v < %v", x, cur, prev)
		}
		if cur < 0 || cur > 1 {
			t.Fatalf("BetaCDF(%v) = %v outside [0,1]", x, cur)
		}
		prev = cur
	}
}

func TestSizeFractionBounds(t *testing.T) {
	for i := 0; i <= 100; i++ {
		s := float64(i) / 100
		result := Size(s, 100000, 150)
		if result.PositionFraction < 0 || result.PositionFraction > MaxPositionFraction {
			t.Fatalf("fraction %v outside [0, %v] at strength %v", result.PositionFraction, MaxPositionFraction, s)
		}
	}
}

func TestSizeFractionMonotonic(t *testing.T) {
	prev := Size(0, 100000, 150).PositionFraction
	for i := 1; i <= 100; i++ {
		s := float64(i) / 100
		cur := Size(s, 100000, 150).PositionFraction
		if cur < prev {
			t.Fatalf("fraction not monotonic at strength %v: %v < %v", s, cur, prev)
		}
		prev = cur
	}
}

// Worked example: confidence 0.75, target $150, balance $100,000.
func TestSizeWorkedExample(t *testing.T) {
	result := Size(0.75, 100000, 150)

	if math.Abs(result.BetaCDFValue-0.9954) > 1e-3 {
		t.Fatalf("BetaCDFValue = %v, want ≈0.9954", result.BetaCDFValue)
	}
	if math.Abs(result.PositionFraction-0.0996) > 1e-3 {
		t.Fatalf("PositionFraction = %v, want ≈0.0996", result.PositionFraction)
	}
	if result.Shares != 66 {
		t.Fatalf("Shares = %v, want 66", result.Shares)
	}
}

func TestSizeZeroShares(t *testing.T) {
	tests := []struct {
		name     string
		strength float64
		balance  float64
		price    float64
	}{
		{"tiny signal", 0.01, 100000, 200},
		{"zero signal", 0, 100000, 150},
		{"zero balance", 0.9, 0, 150},
		{"price exceeds allocation", 0.5, 1000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Size(tt.strength, tt.balance, tt.price)
			if result.Shares > 0 {
				t.Fatalf("Shares = %v, want <= 0", result.Shares)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.TradeCandidate
		wantErr   bool
	}{
		{
			name:      "valid buy",
			candidate: models.TradeCandidate{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: 150, Confidence: 0.7},
		},
		{
			name:      "empty symbol",
			candidate: models.TradeCandidate{Action: models.ActionBuy, PriceTarget: 150, Confidence: 0.7},
			wantErr:   true,
		},
		{
			name:      "non-positive price",
			candidate: models.TradeCandidate{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: 0, Confidence: 0.7},
			wantErr:   true,
		},
		{
			name:      "confidence out of range",
			candidate: models.TradeCandidate{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: 150, Confidence: 1.4},
			wantErr:   true,
		},
		{
			name:      "unknown action",
			candidate: models.TradeCandidate{Symbol: "AAPL", Action: "HOLD", PriceTarget: 150, Confidence: 0.7},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.candidate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
