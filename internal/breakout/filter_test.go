package breakout

import (
	"math"
	"testing"

	"github.com/Alias1177/Trader/models"
)

func TestCombineWeightedAverage(t *testing.T) {
	f := New(DefaultWeights(), DefaultThreshold)

	components := map[string]float64{
		"volume_surge": 0.8,
		"momentum":     0.2,
		"volatility":   0.3,
		"sentiment":    0.5,
		"technical":    0.4,
	}

	got := f.combine(components)
	want := 0.445
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("combine = %v, want %v", got, want)
	}
}

func TestCombineZeroWeights(t *testing.T) {
	f := New(Weights{}, DefaultThreshold)
	if got := f.combine(map[string]float64{"momentum": 1.0}); got != neutralScore {
		t.Fatalf("combine with zero weights = %v, want neutral %v", got, neutralScore)
	}
}

func TestScoreMissingIndicatorsIsNeutral(t *testing.T) {
	f := New(DefaultWeights(), DefaultThreshold)

	c := models.TradeCandidate{Symbol: "AAPL", Action: models.ActionBuy}
	market := models.MarketData{Sentiment: 0.5, Indicators: map[string]models.SymbolIndicators{}}

	score := f.Score(c, market)
	if math.Abs(score.Probability-0.5) > 1e-9 {
		t.Fatalf("Probability = %v, want neutral 0.5", score.Probability)
	}
	if score.ShouldFilter {
		t.Fatal("neutral candidate must not be filtered at the default threshold")
	}
	for name, v := range score.Components {
		if math.Abs(v-neutralScore) > 1e-9 {
			t.Fatalf("component %q = %v, want neutral", name, v)
		}
	}
}

func TestScoreDirectionMirroring(t *testing.T) {
	market := models.MarketData{
		Sentiment: 0.9,
		Indicators: map[string]models.SymbolIndicators{
			"NVDA": {
				CurrentVolume:        1_000_000,
				AvgVolume:            1_000_000,
				RecentPrices:         []float64{100, 101, 102, 103, 104, 105},
				Volatility:           0.02,
				HistoricalVolatility: 0.02,
			},
		},
	}
	f := New(DefaultWeights(), DefaultThreshold)

	buy := f.Score(models.TradeCandidate{Symbol: "NVDA", Action: models.ActionBuy}, market)
	sell := f.Score(models.TradeCandidate{Symbol: "NVDA", Action: models.ActionSell}, market)

	if buy.Probability <= sell.Probability {
		t.Fatalf("BUY (%v) should outscore SELL (%v) in a rising market", buy.Probability, sell.Probability)
	}
	if buy.ShouldFilter {
		t.Fatalf("strong BUY setup filtered: %+v", buy)
	}
	if !sell.ShouldFilter {
		t.Fatalf("counter-trend SELL passed: %+v", sell)
	}
}

func TestScoreDeterministic(t *testing.T) {
	market := models.MarketData{
		Sentiment: 0.62,
		Indicators: map[string]models.SymbolIndicators{
			"MSFT": {
				CurrentVolume:        900_000,
				AvgVolume:            750_000,
				RecentPrices:         []float64{410.2, 408.8, 411.5, 413.1},
				Volatility:           0.015,
				HistoricalVolatility: 0.018,
			},
		},
	}
	c := models.TradeCandidate{Symbol: "MSFT", Action: models.ActionBuy}
	f := New(DefaultWeights(), DefaultThreshold)

	first := f.Score(c, market)
	for i := 0; i < 5; i++ {
		again := f.Score(c, market)
		if again.Probability != first.Probability || again.ShouldFilter != first.ShouldFilter {
			t.Fatalf("score not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestFilterTrades(t *testing.T) {
	market := models.MarketData{
		Sentiment: 0.9,
		Indicators: map[string]models.SymbolIndicators{
			"NVDA": {
				CurrentVolume:        1_000_000,
				AvgVolume:            1_000_000,
				RecentPrices:         []float64{100, 101, 102, 103, 104, 105},
				Volatility:           0.02,
				HistoricalVolatility: 0.02,
			},
		},
	}
	candidates := []models.TradeCandidate{
		{Symbol: "NVDA", Action: models.ActionBuy},
		{Symbol: "NVDA", Action: models.ActionSell},
		{Symbol: "UNKNOWN", Action: models.ActionBuy}, // neutral fallback, passes
	}

	f := New(DefaultWeights(), DefaultThreshold)
	passed, filtered := f.FilterTrades(candidates, market)

	if filtered != 1 {
		t.Fatalf("filtered = %d, want 1", filtered)
	}
	if len(passed) != 2 {
		t.Fatalf("passed = %d candidates, want 2", len(passed))
	}
	if passed[0].Symbol != "NVDA" || passed[0].Action != models.ActionBuy {
		t.Fatalf("unexpected first survivor: %+v", passed[0])
	}
}

func TestSubScoreEdgeCases(t *testing.T) {
	if got := volumeSurgeScore(models.SymbolIndicators{}); got != neutralScore {
		t.Fatalf("volumeSurgeScore on empty = %v, want neutral", got)
	}
	if got := momentumScore(models.ActionBuy, models.SymbolIndicators{RecentPrices: []float64{100}}); got != neutralScore {
		t.Fatalf("momentumScore with one price = %v, want neutral", got)
	}
	if got := volatilityScore(models.SymbolIndicators{Volatility: 0.02}); got != neutralScore {
		t.Fatalf("volatilityScore without history = %v, want neutral", got)
	}
	if got := sentimentScore(models.ActionBuy, math.NaN()); got != neutralScore {
		t.Fatalf("sentimentScore on NaN = %v, want neutral", got)
	}
	if got := sentimentScore(models.ActionSell, 0.9); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("sentimentScore mirrored = %v, want 0.1", got)
	}
	if got := technicalScore(models.ActionBuy, models.SymbolIndicators{RecentPrices: []float64{5, 5, 5, 5}}); got != neutralScore {
		t.Fatalf("technicalScore on flat prices = %v, want neutral", got)
	}
}
