// Package metrics exposes Prometheus metrics for the trading agent:
//   - agent_cycles_total{result}        – daily cycles by outcome (completed|skipped|failed)
//   - agent_trades_total{action}        – trades executed, by side
//   - agent_trades_failed_total         – trade submissions that failed
//   - agent_trades_filtered_total       – candidates removed by the breakout filter
//   - agent_equity_usd                  – account balance snapshot (gauge)
//   - agent_state                       – numeric workflow state indicator (gauge)
//   - agent_decision_requests_today     – metered decision-service calls today (gauge)
//   - agent_decision_cost_usd_today     – estimated decision-service spend today (gauge)
//
// Registered in init() and served at /metrics by cmd/main.go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_cycles_total",
			Help: "Daily workflow cycles by outcome",
		},
		[]string{"result"},
	)

	trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_trades_total",
			Help: "Trades executed, by side",
		},
		[]string{"action"},
	)

	tradesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_trades_failed_total",
			Help: "Trade submissions that failed",
		},
	)

	tradesFiltered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_trades_filtered_total",
			Help: "Candidates removed by the breakout filter",
		},
	)

	equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_equity_usd",
			Help: "Account balance in USD",
		},
	)

	workflowState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_state",
			Help: "Current workflow state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	decisionRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_decision_requests_today",
			Help: "Metered decision-service requests made today",
		},
	)

	decisionCost = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_decision_cost_usd_today",
			Help: "Estimated decision-service spend today in USD",
		},
	)
)

func init() {
	prometheus.MustRegister(
		cycles,
		trades,
		tradesFailed,
		tradesFiltered,
		equity,
		workflowState,
		decisionRequests,
		decisionCost,
	)
}

// CycleCompleted counts one finished cycle
func CycleCompleted() { cycles.WithLabelValues("completed").Inc() }

// CycleSkipped counts a cycle skipped by pause or trading window
func CycleSkipped() { cycles.WithLabelValues("skipped").Inc() }

// CycleFailed counts a cycle aborted by an error
func CycleFailed() { cycles.WithLabelValues("failed").Inc() }

// TradeExecuted counts one filled trade by side
func TradeExecuted(action string) { trades.WithLabelValues(action).Inc() }

// TradeFailed counts one failed trade submission
func TradeFailed() { tradesFailed.Inc() }

// TradeFiltered counts one candidate removed by the breakout filter
func TradeFiltered() { tradesFiltered.Inc() }

// SetEquity records the current account balance
func SetEquity(balance float64) { equity.Set(balance) }

// SetWorkflowState flips the state gauge to the named state
func SetWorkflowState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1.0
		}
		workflowState.WithLabelValues(s).Set(v)
	}
}

// SetDecisionUsage records today's metered request count and cost estimate
func SetDecisionUsage(requests int, cost float64) {
	decisionRequests.Set(float64(requests))
	decisionCost.Set(cost)
}
