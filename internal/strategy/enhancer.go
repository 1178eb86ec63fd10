package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/internal/breakout"
	"github.com/Alias1177/Trader/internal/exits"
	"github.com/Alias1177/Trader/internal/metrics"
	"github.com/Alias1177/Trader/internal/signal"
	"github.com/Alias1177/Trader/internal/trading/risk"
	"github.com/Alias1177/Trader/models"
)

// Relative contributions of the two plan-level averages to the composite
// strategy confidence.
const (
	signalConfidenceWeight   = 0.6
	breakoutConfidenceWeight = 0.4
)

// Enhancer runs the strategy-enhancement pipeline over a trade plan:
// normalize signal, size the position, filter by breakout probability and
// attach an exit plan to survivors.
type Enhancer struct {
	filter *breakout.Filter
	logger zerolog.Logger
}

// New creates a strategy enhancer using the given breakout filter
func New(filter *breakout.Filter) *Enhancer {
	return &Enhancer{
		filter: filter,
		logger: log.With().Str("component", "strategy_enhancer").Logger(),
	}
}

// Enhance converts raw candidates into execution-ready trades. Sizing
// always precedes filtering, filtering always precedes exit attachment;
// a filtered-out candidate never receives an exit plan. Per-candidate
// failures are isolated and never abort the batch.
func (e *Enhancer) Enhance(plan *models.TradePlan, market models.MarketData, state models.AgentState) (*models.EnhancedPlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("nil trade plan")
	}

	out := &models.EnhancedPlan{
		Strategy:  plan.Strategy,
		CreatedAt: time.Now(),
	}
	out.Metrics.OriginalTradeCount = len(plan.Trades)

	var signalSum, breakoutSum float64
	scored := 0
	breakoutScored := 0

	for _, candidate := range plan.Trades {
		if err := risk.Validate(candidate); err != nil {
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				e.logger.Warn().Str("symbol", ve.Symbol).Str("reason", ve.Reason).Msg("Dropping malformed candidate")
			}
			continue
		}

		strength := signal.Strength(candidate.Confidence)
		sizing := risk.Size(strength, state.AccountBalance, candidate.PriceTarget)
		signalSum += strength
		scored++

		if sizing.Shares <= 0 {
			// A zero-share order has no economic meaning; drop, don't shrink.
			e.logger.Warn().
				Str("symbol", candidate.Symbol).
				Float64("fraction", sizing.PositionFraction).
				Msg("Dropping candidate with non-positive share count")
			continue
		}

		score := e.filter.Score(candidate, market)
		breakoutSum += score.Probability
		breakoutScored++
		if score.ShouldFilter {
			out.Metrics.FilteredTradeCount++
			metrics.TradeFiltered()
			e.logger.Info().
				Str("symbol", candidate.Symbol).
				Float64("probability", score.Probability).
				Msg("Candidate removed by breakout filter")
			continue
		}

		exitPlan, err := exits.Build(candidate)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", candidate.Symbol).Msg("Dropping candidate without valid exit plan")
			continue
		}

		out.Trades = append(out.Trades, models.EnhancedTrade{
			TradeCandidate:      candidate,
			SignalStrength:      strength,
			PositionPercentage:  sizing.PositionFraction,
			BetaCDFValue:        sizing.BetaCDFValue,
			EnhancedQuantity:    sizing.Shares,
			OriginalQuantity:    candidate.Quantity,
			BreakoutProbability: score.Probability,
			FilterPassed:        true,
			RiskAdjusted:        sizing.Shares != candidate.Quantity,
			ExitPlan:            exitPlan,
		})
	}

	// Each average runs over the candidates that actually produced that
	// score: zero-share drops never reach the filter and must not dilute
	// the breakout average.
	if scored > 0 {
		out.Metrics.AverageSignalStrength = signalSum / float64(scored)
	}
	if breakoutScored > 0 {
		out.Metrics.AverageBreakoutProbability = breakoutSum / float64(breakoutScored)
	}
	if scored > 0 {
		out.Metrics.StrategyConfidence = signalConfidenceWeight*out.Metrics.AverageSignalStrength +
			breakoutConfidenceWeight*out.Metrics.AverageBreakoutProbability
	}

	e.logger.Info().
		Int("original", out.Metrics.OriginalTradeCount).
		Int("surviving", len(out.Trades)).
		Int("filtered", out.Metrics.FilteredTradeCount).
		Float64("strategy_confidence", out.Metrics.StrategyConfidence).
		Msg("Plan enhancement complete")

	return out, nil
}

// Execute submits each surviving trade in plan order; sequential on
// purpose, both to respect broker rate limits and to keep executed
// quantity bookkeeping simple. A single failure never aborts the batch.
func (e *Enhancer) Execute(ctx context.Context, plan *models.EnhancedPlan, client models.ExecutionClient, state models.AgentState) (*models.ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("nil enhanced plan")
	}

	result := &models.ExecutionResult{}
	for _, trade := range plan.Trades {
		outcome := models.TradeOutcome{Trade: trade, ExecutedAt: time.Now()}

		order, err := client.Execute(ctx, trade)
		if err != nil {
			outcome.Status = "failed"
			outcome.Error = err.Error()
			result.FailedCount++
			metrics.TradeFailed()
			e.logger.Error().Err(err).Str("symbol", trade.Symbol).Msg("Trade execution failed")
			result.Outcomes = append(result.Outcomes, outcome)
			if models.IsCritical(err) {
				// The remainder of the batch cannot succeed either;
				// surface the critical error to the workflow.
				return result, err
			}
			continue
		}

		outcome.Status = order.Status
		outcome.OrderID = order.OrderID
		outcome.FilledPrice = order.FilledPrice
		outcome.ExecutedQuantity = order.ExecutedQuantity
		if order.Status == "executed" {
			result.ExecutedCount++
			metrics.TradeExecuted(string(trade.Action))
		} else {
			result.FailedCount++
			metrics.TradeFailed()
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	e.logger.Info().
		Int("executed", result.ExecutedCount).
		Int("failed", result.FailedCount).
		Msg("Plan execution complete")

	return result, nil
}

// Validate performs pre-flight sanity checks before committing to a run
func (e *Enhancer) Validate(plan *models.TradePlan, market models.MarketData, state models.AgentState) models.ValidationReport {
	var report models.ValidationReport

	if plan == nil || len(plan.Trades) == 0 {
		report.Errors = append(report.Errors, "trade plan is empty")
	}
	if state.AccountBalance <= 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("account balance %.2f is not positive", state.AccountBalance))
	}

	if plan != nil {
		missing := 0
		for _, c := range plan.Trades {
			if _, ok := market.Indicators[c.Symbol]; !ok {
				missing++
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("no market indicators for %s, filter will use neutral scores", c.Symbol))
			}
		}
		if len(plan.Trades) > 0 && missing == len(plan.Trades) {
			report.Errors = append(report.Errors, "no indicator coverage for any candidate")
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}
