package exits

import (
	"fmt"
	"math"

	"github.com/Alias1177/Trader/models"
)

// Fixed exit policy parameters. Stop and primary take-profit are measured
// from the entry price; the ladder releases the position in three rungs.
const (
	StopLossPct      = 0.06
	PrimaryProfitPct = 0.10
)

// fractionTolerance bounds floating-point error when checking that the
// ladder's exit fractions sum to exactly 1.0.
const fractionTolerance = 1e-9

var ladderRungs = []struct {
	MovePct      float64
	ExitFraction float64
}{
	{0.10, 0.50},
	{0.15, 0.30},
	{0.20, 0.20},
}

// Build derives the exit plan for one trade: a stop-loss, and a batched
// ladder of partial take-profit triggers whose fractions sum to 1.0.
// Prices are mirrored below entry for SELL trades.
func Build(trade models.TradeCandidate) (*models.ExitPlan, error) {
	entry := trade.PriceTarget
	if entry <= 0 {
		return nil, &models.ValidationError{Symbol: trade.Symbol, Reason: "non-positive entry price"}
	}

	plan := &models.ExitPlan{EntryPrice: entry}

	switch trade.Action {
	case models.ActionBuy:
		plan.StopLoss = entry * (1 - StopLossPct)
		for _, rung := range ladderRungs {
			plan.TakeProfits = append(plan.TakeProfits, models.TakeProfitLevel{
				Price:        entry * (1 + rung.MovePct),
				ExitFraction: rung.ExitFraction,
			})
		}
	case models.ActionSell:
		plan.StopLoss = entry * (1 + StopLossPct)
		for _, rung := range ladderRungs {
			plan.TakeProfits = append(plan.TakeProfits, models.TakeProfitLevel{
				Price:        entry * (1 - rung.MovePct),
				ExitFraction: rung.ExitFraction,
			})
		}
	default:
		return nil, &models.ValidationError{Symbol: trade.Symbol, Reason: "unknown action"}
	}

	if err := validate(plan, trade.Action); err != nil {
		return nil, err
	}
	return plan, nil
}

// validate enforces the plan invariants: exit fractions sum to 1.0 and
// trigger prices are strictly increasing in the direction of profit.
func validate(plan *models.ExitPlan, action models.TradeAction) error {
	sum := 0.0
	for _, tp := range plan.TakeProfits {
		sum += tp.ExitFraction
	}
	if math.Abs(sum-1.0) > fractionTolerance {
		return fmt.Errorf("exit fractions sum to %.12f, want 1.0", sum)
	}

	for i := 1; i < len(plan.TakeProfits); i++ {
		prev, cur := plan.TakeProfits[i-1].Price, plan.TakeProfits[i].Price
		if action == models.ActionBuy && cur <= prev {
			return fmt.Errorf("take-profit prices not strictly increasing: %.4f after %.4f", cur, prev)
		}
		if action == models.ActionSell && cur >= prev {
			return fmt.Errorf("take-profit prices not strictly decreasing: %.4f after %.4f", cur, prev)
		}
	}

	if len(plan.TakeProfits) > 0 {
		first := plan.TakeProfits[0].Price
		if action == models.ActionBuy && !(plan.StopLoss < plan.EntryPrice && plan.EntryPrice < first) {
			return fmt.Errorf("expected stop %.4f < entry %.4f < first take %.4f", plan.StopLoss, plan.EntryPrice, first)
		}
		if action == models.ActionSell && !(plan.StopLoss > plan.EntryPrice && plan.EntryPrice > first) {
			return fmt.Errorf("expected stop %.4f > entry %.4f > first take %.4f", plan.StopLoss, plan.EntryPrice, first)
		}
	}
	return nil
}

// TriggerResult reports which exit levels a market price has crossed
type TriggerResult struct {
	ShouldExit     bool  `json:"should_exit"`
	TriggeredStop  bool  `json:"triggered_stop"`
	TriggeredTakes []int `json:"triggered_takes,omitempty"` // ladder indices consumed this check
	ExitQuantity   int64 `json:"exit_quantity"`
}

// CheckTriggers evaluates whether the current price crosses the stop-loss
// or any unconsumed take-profit level. originalQty is the position's
// quantity at entry, on every call: each rung releases its fraction of
// the original position, and a stop exits whatever the consumed rungs
// have not already released. Consumed levels are marked on the plan and
// never retrigger.
func CheckTriggers(plan *models.ExitPlan, action models.TradeAction, currentPrice float64, originalQty int64) TriggerResult {
	var result TriggerResult

	released := 0.0
	for _, tp := range plan.TakeProfits {
		if tp.Consumed {
			released += tp.ExitFraction
		}
	}
	remaining := originalQty - int64(math.Round(float64(originalQty)*released))
	if remaining < 0 {
		remaining = 0
	}

	stopHit := false
	switch action {
	case models.ActionBuy:
		stopHit = currentPrice <= plan.StopLoss
	case models.ActionSell:
		stopHit = currentPrice >= plan.StopLoss
	}
	if stopHit {
		result.ShouldExit = remaining > 0
		result.TriggeredStop = true
		result.ExitQuantity = remaining
		return result
	}

	for i := range plan.TakeProfits {
		tp := &plan.TakeProfits[i]
		if tp.Consumed {
			continue
		}
		crossed := false
		switch action {
		case models.ActionBuy:
			crossed = currentPrice >= tp.Price
		case models.ActionSell:
			crossed = currentPrice <= tp.Price
		}
		if !crossed {
			continue
		}
		tp.Consumed = true
		result.TriggeredTakes = append(result.TriggeredTakes, i)
		result.ExitQuantity += int64(math.Round(float64(originalQty) * tp.ExitFraction))
	}

	if result.ExitQuantity > remaining {
		result.ExitQuantity = remaining
	}
	result.ShouldExit = result.ExitQuantity > 0
	return result
}
