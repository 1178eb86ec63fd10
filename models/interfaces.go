package models

import "context"

// Planner produces and refines the daily trade plan. Backed by a metered
// decision service; every call may fail and aborts the cycle when it does.
type Planner interface {
	CraftPlan(ctx context.Context, market MarketData, state AgentState) (*TradePlan, error)
	RefinePredictions(ctx context.Context, plan *TradePlan, market MarketData, state AgentState) (*TradePlan, error)
}

// MarketDataClient fetches the indicator snapshot for a set of symbols
type MarketDataClient interface {
	GetMarketData(ctx context.Context, symbols []string) (*MarketData, error)
}

// ExecutionClient routes orders to the broker
type ExecutionClient interface {
	Execute(ctx context.Context, trade EnhancedTrade) (*OrderResult, error)
	GetAccountDetails(ctx context.Context) (*AccountDetails, error)
	CancelAllOrders(ctx context.Context) error
}

// StateStore persists agent state. GetAgentState returns (nil, nil) when
// no state has been stored yet.
type StateStore interface {
	GetAgentState(ctx context.Context) (*AgentState, error)
	StoreAgentState(ctx context.Context, state AgentState) error
}

// TradeStore records executed trades together with the plan and the
// decision rationale chain for the cycle.
type TradeStore interface {
	StoreTrades(ctx context.Context, outcomes []TradeOutcome, plan *EnhancedPlan, thoughts []string) error
}

// Notifier delivers operational alerts. Send failures are logged by the
// caller and never abort a cycle.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
