package breakout

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/models"
)

// DefaultThreshold is the hard conviction cutoff: candidates scoring
// below it are removed from the plan entirely, not down-sized.
const DefaultThreshold = 0.4

// neutralScore is used for any sub-score whose indicator data is missing
const neutralScore = 0.5

// Weights combines the five sub-scores into the breakout probability.
// The values are configuration, not a fitted model; they can be
// overridden per filter instance.
type Weights struct {
	VolumeSurge float64
	Momentum    float64
	Volatility  float64
	Sentiment   float64
	Technical   float64
}

// DefaultWeights returns the standard sub-score weighting
func DefaultWeights() Weights {
	return Weights{
		VolumeSurge: 0.25,
		Momentum:    0.25,
		Volatility:  0.20,
		Sentiment:   0.15,
		Technical:   0.15,
	}
}

// Score is the per-candidate filter verdict
type Score struct {
	Probability  float64            `json:"probability"`
	ShouldFilter bool               `json:"should_filter"`
	Components   map[string]float64 `json:"components"`
}

// Filter scores candidates against market indicators and removes those
// below the conviction threshold.
type Filter struct {
	weights   Weights
	threshold float64
	logger    zerolog.Logger
}

// New creates a breakout filter with the given weights and threshold
func New(weights Weights, threshold float64) *Filter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Filter{
		weights:   weights,
		threshold: threshold,
		logger:    log.With().Str("component", "breakout_filter").Logger(),
	}
}

// Score computes the breakout probability for one candidate. Missing or
// partial indicator data falls back to neutral sub-scores instead of
// failing the candidate. Deterministic for identical inputs.
func (f *Filter) Score(c models.TradeCandidate, market models.MarketData) Score {
	ind, ok := market.Indicators[c.Symbol]

	components := map[string]float64{
		"volume_surge": neutralScore,
		"momentum":     neutralScore,
		"volatility":   neutralScore,
		"sentiment":    sentimentScore(c.Action, market.Sentiment),
		"technical":    neutralScore,
	}

	if ok {
		components["volume_surge"] = volumeSurgeScore(ind)
		components["momentum"] = momentumScore(c.Action, ind)
		components["volatility"] = volatilityScore(ind)
		components["technical"] = technicalScore(c.Action, ind)
	}

	probability := f.combine(components)

	return Score{
		Probability:  probability,
		ShouldFilter: probability < f.threshold,
		Components:   components,
	}
}

// combine folds the sub-scores into the breakout probability via the
// fixed weighted average.
func (f *Filter) combine(components map[string]float64) float64 {
	w := f.weights
	total := w.VolumeSurge + w.Momentum + w.Volatility + w.Sentiment + w.Technical
	if total <= 0 {
		return neutralScore
	}
	return (components["volume_surge"]*w.VolumeSurge +
		components["momentum"]*w.Momentum +
		components["volatility"]*w.Volatility +
		components["sentiment"]*w.Sentiment +
		components["technical"]*w.Technical) / total
}

// FilterTrades applies the per-candidate score to a batch and reports how
// many candidates were removed. Filter rejections are normal outcomes,
// logged at informational level.
func (f *Filter) FilterTrades(candidates []models.TradeCandidate, market models.MarketData) ([]models.TradeCandidate, int) {
	passed := make([]models.TradeCandidate, 0, len(candidates))
	filtered := 0

	for _, c := range candidates {
		score := f.Score(c, market)
		if score.ShouldFilter {
			filtered++
			f.logger.Info().
				Str("symbol", c.Symbol).
				Float64("probability", score.Probability).
				Float64("threshold", f.threshold).
				Msg("Candidate filtered out by breakout score")
			continue
		}
		passed = append(passed, c)
	}

	return passed, filtered
}

// volumeSurgeScore compares current volume to average volume. Average
// volume maps to neutral; twice the average or more saturates at 1.
func volumeSurgeScore(ind models.SymbolIndicators) float64 {
	if ind.AvgVolume <= 0 || ind.CurrentVolume <= 0 {
		return neutralScore
	}
	return clamp(ind.CurrentVolume / (2 * ind.AvgVolume))
}

// momentumScore measures the recent price trend in the trade's direction.
// A ±5% move over the recent window maps to the full score range.
func momentumScore(action models.TradeAction, ind models.SymbolIndicators) float64 {
	n := len(ind.RecentPrices)
	if n < 2 {
		return neutralScore
	}
	first := ind.RecentPrices[0]
	last := ind.RecentPrices[n-1]
	if first <= 0 {
		return neutralScore
	}
	change := (last - first) / first
	if action == models.ActionSell {
		change = -change
	}
	return clamp(0.5 + change/0.10)
}

// volatilityScore compares current to historical volatility. Equal
// volatility is neutral; a ratio of 2 or more saturates at 1.
func volatilityScore(ind models.SymbolIndicators) float64 {
	if ind.HistoricalVolatility <= 0 || ind.Volatility <= 0 {
		return neutralScore
	}
	return clamp(ind.Volatility / (2 * ind.HistoricalVolatility))
}

// sentimentScore passes the plan-wide sentiment through for longs and
// mirrors it for shorts.
func sentimentScore(action models.TradeAction, sentiment float64) float64 {
	if math.IsNaN(sentiment) {
		return neutralScore
	}
	s := clamp(sentiment)
	if action == models.ActionSell {
		return 1 - s
	}
	return s
}

// technicalScore is a derived composite: the fraction of recent candles
// moving in the trade's direction, damped toward neutral for short windows.
func technicalScore(action models.TradeAction, ind models.SymbolIndicators) float64 {
	prices := ind.RecentPrices
	if len(prices) < 3 {
		return neutralScore
	}
	up := 0
	moves := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] == prices[i-1] {
			continue
		}
		moves++
		if prices[i] > prices[i-1] {
			up++
		}
	}
	if moves == 0 {
		return neutralScore
	}
	ratio := float64(up) / float64(moves)
	if action == models.ActionSell {
		ratio = 1 - ratio
	}
	// Damp toward neutral when only a handful of moves are observable
	weight := math.Min(float64(moves)/10.0, 1.0)
	return neutralScore + (ratio-neutralScore)*weight
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
