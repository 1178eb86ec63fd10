package risk

import (
	"math"

	"github.com/Alias1177/Trader/models"
)

// MaxPositionFraction caps any single position at 10% of account equity
const MaxPositionFraction = 0.10

// SizingResult holds position sizing calculation results
type SizingResult struct {
	PositionFraction float64 `json:"position_fraction"`
	BetaCDFValue     float64 `json:"beta_cdf_value"`
	Shares           int64   `json:"shares"`
}

// BetaCDF evaluates the cumulative distribution function of Beta(2,5) at x.
// For these integer shape parameters the regularized incomplete beta
// reduces to the closed form 1 - 6(1-x)^5 + 5(1-x)^6, exact at 0 and 1.
// Beta(2,5) is concave-then-convex over [0,1]: weak signals receive
// disproportionately small allocations and the curve saturates near the
// cap as the signal approaches 1.
func BetaCDF(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	q := 1 - x
	q5 := q * q * q * q * q
	return 1 - 6*q5 + 5*q5*q
}

// Size converts signal strength into a capped fraction of account equity
// and the resulting whole-share count at the target price. A result with
// Shares <= 0 means the position has no economic meaning and the caller
// must drop the candidate rather than shrink it.
func Size(signalStrength, accountBalance, targetPrice float64) SizingResult {
	cdf := BetaCDF(signalStrength)
	fraction := MaxPositionFraction * cdf

	shares := int64(0)
	if targetPrice > 0 && accountBalance > 0 {
		shares = int64(math.Floor(accountBalance * fraction / targetPrice))
	}

	return SizingResult{
		PositionFraction: fraction,
		BetaCDFValue:     cdf,
		Shares:           shares,
	}
}

// Validate checks a candidate for economically meaningless inputs before
// sizing is attempted.
func Validate(c models.TradeCandidate) error {
	if c.Symbol == "" {
		return &models.ValidationError{Symbol: c.Symbol, Reason: "empty symbol"}
	}
	if c.PriceTarget <= 0 {
		return &models.ValidationError{Symbol: c.Symbol, Reason: "non-positive target price"}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return &models.ValidationError{Symbol: c.Symbol, Reason: "confidence outside [0,1]"}
	}
	if c.Action != models.ActionBuy && c.Action != models.ActionSell {
		return &models.ValidationError{Symbol: c.Symbol, Reason: "unknown action"}
	}
	return nil
}
