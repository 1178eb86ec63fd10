package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Alias1177/Trader/internal/breakout"
	"github.com/Alias1177/Trader/models"
)

func testMarket() models.MarketData {
	rising := models.SymbolIndicators{
		CurrentVolume:        1_000_000,
		AvgVolume:            1_000_000,
		RecentPrices:         []float64{100, 101, 102, 103, 104, 105},
		Volatility:           0.02,
		HistoricalVolatility: 0.02,
	}
	return models.MarketData{
		Sentiment: 0.9,
		Indicators: map[string]models.SymbolIndicators{
			"AAPL": rising,
			"MSFT": rising,
			"NVDA": rising,
		},
	}
}

func testState() models.AgentState {
	return models.AgentState{AccountBalance: 100000}
}

func newTestEnhancer() *Enhancer {
	return New(breakout.New(breakout.DefaultWeights(), breakout.DefaultThreshold))
}

func TestEnhancePipeline(t *testing.T) {
	plan := &models.TradePlan{
		Strategy: "breakout",
		Trades: []models.TradeCandidate{
			// Strong long with the trend: survives with an exit plan
			{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 10, PriceTarget: 50, Confidence: 0.9},
			// Counter-trend short: sized fine but removed by the filter
			{Symbol: "MSFT", Action: models.ActionSell, Quantity: 10, PriceTarget: 100, Confidence: 0.8},
			// Near-zero conviction: beta curve sizes it to zero shares
			{Symbol: "NVDA", Action: models.ActionBuy, Quantity: 10, PriceTarget: 200, Confidence: 0.01},
		},
	}

	e := newTestEnhancer()
	out, err := e.Enhance(plan, testMarket(), testState())
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}

	if out.Metrics.OriginalTradeCount != 3 {
		t.Fatalf("OriginalTradeCount = %d, want 3", out.Metrics.OriginalTradeCount)
	}
	if out.Metrics.FilteredTradeCount != 1 {
		t.Fatalf("FilteredTradeCount = %d, want 1 (only the breakout rejection)", out.Metrics.FilteredTradeCount)
	}
	if len(out.Trades) != 1 {
		t.Fatalf("surviving trades = %d, want 1", len(out.Trades))
	}

	trade := out.Trades[0]
	if trade.Symbol != "AAPL" {
		t.Fatalf("survivor = %s, want AAPL", trade.Symbol)
	}
	if !trade.FilterPassed {
		t.Fatal("survivor must be marked FilterPassed")
	}
	// Beta(2,5) CDF at 0.9 is ~0.99995, so the position takes nearly the
	// full 10% cap: floor(100000 * 0.0999945 / 50) = 199 shares.
	if trade.EnhancedQuantity != 199 {
		t.Fatalf("EnhancedQuantity = %d, want 199", trade.EnhancedQuantity)
	}
	if trade.OriginalQuantity != 10 || !trade.RiskAdjusted {
		t.Fatalf("quantity bookkeeping wrong: %+v", trade)
	}
	if trade.ExitPlan == nil {
		t.Fatal("survivor missing exit plan")
	}
	if math.Abs(trade.ExitPlan.StopLoss-47) > 1e-9 {
		t.Fatalf("StopLoss = %v, want 47 (6%% below entry 50)", trade.ExitPlan.StopLoss)
	}

	// The signal average covers every validated candidate, not just survivors
	wantSignal := (0.9 + 0.8 + 0.01) / 3
	if math.Abs(out.Metrics.AverageSignalStrength-wantSignal) > 1e-9 {
		t.Fatalf("AverageSignalStrength = %v, want %v", out.Metrics.AverageSignalStrength, wantSignal)
	}
	// The breakout average covers only the candidates the filter scored:
	// the zero-share drop never reached it and must not dilute the mean.
	market := testMarket()
	f := breakout.New(breakout.DefaultWeights(), breakout.DefaultThreshold)
	wantBreakout := (f.Score(plan.Trades[0], market).Probability +
		f.Score(plan.Trades[1], market).Probability) / 2
	if math.Abs(out.Metrics.AverageBreakoutProbability-wantBreakout) > 1e-9 {
		t.Fatalf("AverageBreakoutProbability = %v, want %v over two scored candidates",
			out.Metrics.AverageBreakoutProbability, wantBreakout)
	}
	if out.Metrics.StrategyConfidence <= 0 || out.Metrics.StrategyConfidence > 1 {
		t.Fatalf("StrategyConfidence = %v, want in (0, 1]", out.Metrics.StrategyConfidence)
	}
}

func TestEnhanceDropsMalformedCandidates(t *testing.T) {
	plan := &models.TradePlan{
		Trades: []models.TradeCandidate{
			{Symbol: "", Action: models.ActionBuy, PriceTarget: 100, Confidence: 0.9},
			{Symbol: "AAPL", Action: "HOLD", PriceTarget: 100, Confidence: 0.9},
			{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: -5, Confidence: 0.9},
			{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: 100, Confidence: 1.5},
		},
	}

	e := newTestEnhancer()
	out, err := e.Enhance(plan, testMarket(), testState())
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(out.Trades) != 0 {
		t.Fatalf("malformed candidates survived: %d", len(out.Trades))
	}
	if out.Metrics.OriginalTradeCount != 4 {
		t.Fatalf("OriginalTradeCount = %d, want 4", out.Metrics.OriginalTradeCount)
	}
	if out.Metrics.AverageSignalStrength != 0 {
		t.Fatalf("averages over zero scored candidates should stay zero, got %v", out.Metrics.AverageSignalStrength)
	}
}

func TestEnhanceNilPlan(t *testing.T) {
	e := newTestEnhancer()
	if _, err := e.Enhance(nil, testMarket(), testState()); err == nil {
		t.Fatal("expected error for nil plan")
	}
}

// fakeExecution scripts per-symbol order outcomes
type fakeExecution struct {
	results map[string]*models.OrderResult
	errs    map[string]error
	calls   []string
}

func (f *fakeExecution) Execute(_ context.Context, trade models.EnhancedTrade) (*models.OrderResult, error) {
	f.calls = append(f.calls, trade.Symbol)
	if err := f.errs[trade.Symbol]; err != nil {
		return nil, err
	}
	if r := f.results[trade.Symbol]; r != nil {
		return r, nil
	}
	return &models.OrderResult{Status: "executed", OrderID: "order-" + trade.Symbol, ExecutedQuantity: trade.EnhancedQuantity}, nil
}

func (f *fakeExecution) GetAccountDetails(context.Context) (*models.AccountDetails, error) {
	return &models.AccountDetails{Balance: 100000}, nil
}

func (f *fakeExecution) CancelAllOrders(context.Context) error { return nil }

func enhancedPlan(symbols ...string) *models.EnhancedPlan {
	plan := &models.EnhancedPlan{Strategy: "breakout"}
	for _, s := range symbols {
		plan.Trades = append(plan.Trades, models.EnhancedTrade{
			TradeCandidate:   models.TradeCandidate{Symbol: s, Action: models.ActionBuy, PriceTarget: 100},
			EnhancedQuantity: 10,
			FilterPassed:     true,
		})
	}
	return plan
}

func TestExecuteFailureIsolation(t *testing.T) {
	client := &fakeExecution{errs: map[string]error{"MSFT": errors.New("insufficient buying power")}}

	e := newTestEnhancer()
	result, err := e.Execute(context.Background(), enhancedPlan("AAPL", "MSFT", "NVDA"), client, testState())
	if err != nil {
		t.Fatalf("non-critical failure must not abort the batch: %v", err)
	}

	if result.ExecutedCount != 2 || result.FailedCount != 1 {
		t.Fatalf("executed=%d failed=%d, want 2/1", result.ExecutedCount, result.FailedCount)
	}
	if len(client.calls) != 3 {
		t.Fatalf("calls = %v, want all three submitted", client.calls)
	}
	if result.Outcomes[1].Status != "failed" || result.Outcomes[1].Error == "" {
		t.Fatalf("failed outcome not recorded: %+v", result.Outcomes[1])
	}
}

func TestExecuteCriticalAborts(t *testing.T) {
	client := &fakeExecution{errs: map[string]error{"AAPL": fmt.Errorf("broker: invalid credentials")}}

	e := newTestEnhancer()
	result, err := e.Execute(context.Background(), enhancedPlan("AAPL", "MSFT"), client, testState())
	if err == nil {
		t.Fatal("critical error must surface")
	}
	if !models.IsCritical(err) {
		t.Fatalf("surfaced error not critical: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("calls = %v, remainder must not be submitted", client.calls)
	}
	if result == nil || result.FailedCount != 1 {
		t.Fatalf("partial result missing: %+v", result)
	}
}

func TestExecutePreservesPlanOrder(t *testing.T) {
	client := &fakeExecution{}

	e := newTestEnhancer()
	if _, err := e.Execute(context.Background(), enhancedPlan("NVDA", "AAPL", "MSFT"), client, testState()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"NVDA", "AAPL", "MSFT"}
	for i, s := range want {
		if client.calls[i] != s {
			t.Fatalf("calls = %v, want %v", client.calls, want)
		}
	}
}

func TestValidateReport(t *testing.T) {
	e := newTestEnhancer()

	report := e.Validate(nil, testMarket(), testState())
	if report.Valid {
		t.Fatal("nil plan must not validate")
	}

	plan := &models.TradePlan{Trades: []models.TradeCandidate{
		{Symbol: "AAPL", Action: models.ActionBuy, PriceTarget: 50, Confidence: 0.9},
		{Symbol: "UNCOVERED", Action: models.ActionBuy, PriceTarget: 50, Confidence: 0.9},
	}}

	report = e.Validate(plan, testMarket(), testState())
	if !report.Valid {
		t.Fatalf("plan with partial coverage should validate, errors: %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one for the uncovered symbol", report.Warnings)
	}

	report = e.Validate(plan, models.MarketData{Indicators: map[string]models.SymbolIndicators{}}, testState())
	if report.Valid {
		t.Fatal("zero indicator coverage must fail validation")
	}

	report = e.Validate(plan, testMarket(), models.AgentState{AccountBalance: 0})
	if report.Valid {
		t.Fatal("non-positive balance must fail validation")
	}
}
