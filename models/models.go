package models

import (
	"time"
)

// TradeAction is the direction of a trade
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// TradeCandidate represents a raw trade idea produced by the planning service.
// It is immutable once received; enhancement never modifies it in place.
type TradeCandidate struct {
	Symbol      string      `json:"symbol"`
	Action      TradeAction `json:"action"`
	Quantity    int64       `json:"quantity"`
	PriceTarget float64     `json:"price_target"`
	StopLoss    float64     `json:"stop_loss"`
	TakeProfit  float64     `json:"take_profit"`
	Confidence  float64     `json:"confidence"` // 0-1 score from the planner
	Reasoning   string      `json:"reasoning"`
}

// TradePlan is the set of candidates produced for one trading day
type TradePlan struct {
	Strategy  string           `json:"strategy"`
	CreatedAt time.Time        `json:"created_at"`
	Trades    []TradeCandidate `json:"trades"`
}

// SymbolIndicators holds per-symbol market indicators used by the breakout filter
type SymbolIndicators struct {
	CurrentVolume        float64   `json:"current_volume"`
	AvgVolume            float64   `json:"avg_volume"`
	RecentPrices         []float64 `json:"recent_prices"` // oldest first
	Volatility           float64   `json:"volatility"`
	HistoricalVolatility float64   `json:"historical_volatility"`
}

// MarketData is the indicator snapshot for one planning cycle
type MarketData struct {
	Sentiment  float64                     `json:"market_sentiment"` // 0-1, plan-wide
	Indicators map[string]SymbolIndicators `json:"indicators"`
	FetchedAt  time.Time                   `json:"fetched_at"`
}

// TakeProfitLevel is one rung of the partial-exit ladder
type TakeProfitLevel struct {
	Price        float64 `json:"price"`
	ExitFraction float64 `json:"exit_fraction"` // fraction of the position released
	Consumed     bool    `json:"consumed"`      // set once triggered, never retriggers
}

// ExitPlan holds the stop-loss and the take-profit ladder for one position
type ExitPlan struct {
	EntryPrice  float64           `json:"entry_price"`
	StopLoss    float64           `json:"stop_loss"`
	TakeProfits []TakeProfitLevel `json:"take_profits"` // ordered in the direction of profit
}

// EnhancedTrade wraps a candidate with sizing, filtering and exit data
type EnhancedTrade struct {
	TradeCandidate
	SignalStrength      float64   `json:"signal_strength"`
	PositionPercentage  float64   `json:"position_percentage"` // fraction of equity, 0-0.10
	BetaCDFValue        float64   `json:"beta_cdf_value"`
	EnhancedQuantity    int64     `json:"enhanced_quantity"`
	OriginalQuantity    int64     `json:"original_quantity"`
	BreakoutProbability float64   `json:"breakout_probability"`
	FilterPassed        bool      `json:"filter_passed"`
	RiskAdjusted        bool      `json:"risk_adjusted"` // sizing changed the original quantity
	ExitPlan            *ExitPlan `json:"exit_plan,omitempty"`
}

// PlanMetrics aggregates plan-level quality measures
type PlanMetrics struct {
	OriginalTradeCount         int     `json:"original_trade_count"`
	FilteredTradeCount         int     `json:"filtered_trade_count"`
	AverageSignalStrength      float64 `json:"average_signal_strength"`
	AverageBreakoutProbability float64 `json:"average_breakout_probability"`
	StrategyConfidence         float64 `json:"strategy_confidence"`
}

// EnhancedPlan is the execution-ready output of the strategy enhancer
type EnhancedPlan struct {
	Strategy  string          `json:"strategy"`
	CreatedAt time.Time       `json:"created_at"`
	Trades    []EnhancedTrade `json:"trades"` // survivors only, in original plan order
	Metrics   PlanMetrics     `json:"metrics"`
}

// OrderResult is what the execution collaborator returns for one order
type OrderResult struct {
	Status           string  `json:"status"` // executed, failed
	OrderID          string  `json:"order_id"`
	FilledPrice      float64 `json:"filled_price,omitempty"`
	ExecutedQuantity int64   `json:"executed_quantity"`
}

// AccountDetails is a snapshot of the trading account
type AccountDetails struct {
	Balance     float64 `json:"balance"`
	BuyingPower float64 `json:"buying_power"`
}

// TradeOutcome records the result of submitting one enhanced trade
type TradeOutcome struct {
	Trade            EnhancedTrade `json:"trade"`
	Status           string        `json:"status"` // executed, failed
	OrderID          string        `json:"order_id,omitempty"`
	FilledPrice      float64       `json:"filled_price,omitempty"`
	ExecutedQuantity int64         `json:"executed_quantity"`
	Error            string        `json:"error,omitempty"`
	ExecutedAt       time.Time     `json:"executed_at"`
}

// ExecutionResult is the per-batch outcome of executing an enhanced plan
type ExecutionResult struct {
	Outcomes      []TradeOutcome `json:"outcomes"`
	ExecutedCount int            `json:"executed_count"`
	FailedCount   int            `json:"failed_count"`
}

// Position is an open position carried in agent state
type Position struct {
	Symbol     string      `json:"symbol"`
	Action     TradeAction `json:"action"`
	Quantity   int64       `json:"quantity"`
	EntryPrice float64     `json:"entry_price"`
	OpenedAt   time.Time   `json:"opened_at"`
}

// TradeRecord is one executed trade kept in the agent's history
type TradeRecord struct {
	OrderID     string      `json:"order_id"`
	Symbol      string      `json:"symbol"`
	Action      TradeAction `json:"action"`
	Quantity    int64       `json:"quantity"`
	FilledPrice float64     `json:"filled_price"`
	Status      string      `json:"status"`
	ExecutedAt  time.Time   `json:"executed_at"`
}

// AgentState is the single persisted record of the agent across cycles.
// All mutations go through the state manager; nothing else writes fields.
type AgentState struct {
	IsPaused        bool          `json:"is_paused"`
	PauseReason     string        `json:"pause_reason,omitempty"`
	PauseToken      string        `json:"pause_token,omitempty"`
	LastRun         time.Time     `json:"last_run"`
	CurrentStrategy string        `json:"current_strategy"`
	AccountBalance  float64       `json:"account_balance"`
	OpenPositions   []Position    `json:"open_positions"`
	TradeHistory    []TradeRecord `json:"trade_history"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ValidationReport is the result of pre-flight plan validation
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
