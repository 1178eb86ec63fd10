package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/internal/locks"
	"github.com/Alias1177/Trader/internal/metrics"
	"github.com/Alias1177/Trader/internal/state"
	"github.com/Alias1177/Trader/internal/strategy"
	"github.com/Alias1177/Trader/models"
)

// State names the stages of the daily trading cycle
type State string

const (
	StateIdle                 State = "IDLE"
	StatePlanning             State = "PLANNING"
	StateFiltering            State = "FILTERING"
	StateWaitingForMarketOpen State = "WAITING_FOR_MARKET_OPEN"
	StateExecuting            State = "EXECUTING"
	StateRecording            State = "RECORDING"
	StatePaused               State = "PAUSED"
	StateShuttingDown         State = "SHUTTING_DOWN"
)

var allStates = []string{
	string(StateIdle), string(StatePlanning), string(StateFiltering),
	string(StateWaitingForMarketOpen), string(StateExecuting),
	string(StateRecording), string(StatePaused), string(StateShuttingDown),
}

// Lock keys for the control operations
const (
	lockPause    = "agent-pause"
	lockResume   = "agent-resume"
	lockShutdown = "agent-shutdown"
)

// Config holds the workflow's scheduling knobs
type Config struct {
	Window             models.TradingWindow
	WatchSymbols       []string
	MarketPollInterval time.Duration // how often to re-check the market-open predicate
}

// Deps are the collaborators the workflow drives. Each is a narrow
// capability interface; the workflow never hands itself to a service.
type Deps struct {
	Planner    models.Planner
	MarketData models.MarketDataClient
	Execution  models.ExecutionClient
	Trades     models.TradeStore
	Notifier   models.Notifier // optional
	Enhancer   *strategy.Enhancer
	State      *state.Manager
	Locks      *locks.Manager
}

// Workflow drives the daily cycle:
// Idle → Planning → Filtering → WaitingForMarketOpen → Executing → Recording → Idle,
// with Paused reachable from any point and ShuttingDown terminal. A single
// logical worker runs cycles; steps within one cycle are strictly
// sequential.
type Workflow struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	current State

	clock  func() time.Time // injectable for tests
	logger zerolog.Logger
}

// New creates a workflow state machine
func New(cfg Config, deps Deps) *Workflow {
	if cfg.MarketPollInterval <= 0 {
		cfg.MarketPollInterval = 30 * time.Second
	}
	return &Workflow{
		cfg:     cfg,
		deps:    deps,
		current: StateIdle,
		clock:   time.Now,
		logger:  log.With().Str("component", "workflow").Logger(),
	}
}

// Current returns the workflow's current state
func (w *Workflow) Current() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	prev := w.current
	w.current = s
	w.mu.Unlock()

	metrics.SetWorkflowState(string(s), allStates)
	w.logger.Info().Str("from", string(prev)).Str("to", string(s)).Msg("State transition")
}

// RunCycle runs one full daily cycle. A paused agent or a time outside
// the trading window skips the cycle entirely; it is not queued. Critical
// errors force the agent into Paused and trigger an alert; all other
// errors end the cycle with what succeeded already recorded.
func (w *Workflow) RunCycle(ctx context.Context) error {
	st := w.deps.State.Get()
	if st.IsPaused {
		w.logger.Info().Str("reason", st.PauseReason).Msg("Agent paused, skipping cycle")
		metrics.CycleSkipped()
		return nil
	}

	now := w.clock()
	if !w.cfg.Window.InWindow(now) {
		w.logger.Info().Time("now", now).Msg("Outside trading window, skipping cycle")
		metrics.CycleSkipped()
		return nil
	}

	cycle := &cycleRun{id: uuid.NewString()}
	err := w.runCycle(ctx, st, cycle)
	if err != nil {
		metrics.CycleFailed()
		if models.IsCritical(err) {
			w.handleCritical(ctx, err)
			return err
		}
		w.logger.Error().Err(err).Str("cycle_id", cycle.id).Msg("Cycle failed")
		w.setState(StateIdle)
		return err
	}

	metrics.CycleCompleted()
	return nil
}

// cycleRun carries the per-cycle artifacts, including the ordered chain
// of human-readable decision rationale recorded with the trades.
type cycleRun struct {
	id       string
	thoughts []string
}

func (c *cycleRun) think(format string, args ...interface{}) {
	c.thoughts = append(c.thoughts, fmt.Sprintf(format, args...))
}

func (w *Workflow) runCycle(ctx context.Context, st models.AgentState, cycle *cycleRun) error {
	// Planning: craft the initial plan, then refine its predictions
	w.setState(StatePlanning)

	market, err := w.deps.MarketData.GetMarketData(ctx, w.cfg.WatchSymbols)
	if err != nil {
		return fmt.Errorf("fetching market data: %w", err)
	}
	cycle.think("Fetched market data for %d symbols, sentiment %.2f", len(market.Indicators), market.Sentiment)

	plan, err := w.deps.Planner.CraftPlan(ctx, *market, st)
	if err != nil {
		return fmt.Errorf("crafting plan: %w", err)
	}
	cycle.think("Planner proposed %d candidates under strategy %q", len(plan.Trades), plan.Strategy)

	plan, err = w.deps.Planner.RefinePredictions(ctx, plan, *market, st)
	if err != nil {
		return fmt.Errorf("refining predictions: %w", err)
	}
	cycle.think("Predictions refined across %d candidates", len(plan.Trades))

	// Filtering: validate, then run the enhancement pipeline
	w.setState(StateFiltering)

	report := w.deps.Enhancer.Validate(plan, *market, st)
	for _, warning := range report.Warnings {
		w.logger.Warn().Str("cycle_id", cycle.id).Msg(warning)
	}
	if !report.Valid {
		return fmt.Errorf("plan validation failed: %v", report.Errors)
	}

	enhanced, err := w.deps.Enhancer.Enhance(plan, *market, st)
	if err != nil {
		return fmt.Errorf("enhancing plan: %w", err)
	}
	cycle.think("Enhanced plan: %d of %d candidates survive, strategy confidence %.2f",
		len(enhanced.Trades), enhanced.Metrics.OriginalTradeCount, enhanced.Metrics.StrategyConfidence)

	if w.deps.Notifier != nil {
		summary := fmt.Sprintf("Plan dispatched: %d trades, confidence %.2f",
			len(enhanced.Trades), enhanced.Metrics.StrategyConfidence)
		if err := w.deps.Notifier.Notify(ctx, summary); err != nil {
			w.logger.Warn().Err(err).Msg("Plan dispatch notification failed")
		}
	}

	// Executing: block until the market-open predicate holds
	w.setState(StateWaitingForMarketOpen)
	if err := w.waitForMarketOpen(ctx); err != nil {
		return err
	}

	w.setState(StateExecuting)
	result, err := w.deps.Enhancer.Execute(ctx, enhanced, w.deps.Execution, st)
	if result != nil {
		cycle.think("Executed %d trades, %d failures", result.ExecutedCount, result.FailedCount)
	}
	if err != nil {
		// Record what succeeded before surfacing the error
		w.setState(StateRecording)
		w.record(ctx, st, enhanced, result, cycle)
		return err
	}

	// Recording: persist executed trades and the thought chain
	w.setState(StateRecording)
	w.record(ctx, st, enhanced, result, cycle)

	w.setState(StateIdle)
	return nil
}

// record persists the cycle outcome. State persists first; trade-record
// failures are logged and never block the cycle.
func (w *Workflow) record(ctx context.Context, st models.AgentState, plan *models.EnhancedPlan, result *models.ExecutionResult, cycle *cycleRun) {
	balance := st.AccountBalance
	if details, err := w.deps.Execution.GetAccountDetails(ctx); err == nil {
		balance = details.Balance
	} else {
		w.logger.Warn().Err(err).Msg("Account refresh failed, keeping last known balance")
	}

	var outcomes []models.TradeOutcome
	if result != nil {
		outcomes = result.Outcomes
	}

	err := w.deps.State.Update(ctx, func(s *models.AgentState) {
		s.LastRun = w.clock()
		s.AccountBalance = balance
		s.CurrentStrategy = plan.Strategy
		for _, o := range outcomes {
			if o.Status != "executed" {
				continue
			}
			s.TradeHistory = append(s.TradeHistory, models.TradeRecord{
				OrderID:     o.OrderID,
				Symbol:      o.Trade.Symbol,
				Action:      o.Trade.Action,
				Quantity:    o.ExecutedQuantity,
				FilledPrice: o.FilledPrice,
				Status:      o.Status,
				ExecutedAt:  o.ExecutedAt,
			})
			s.OpenPositions = append(s.OpenPositions, models.Position{
				Symbol:     o.Trade.Symbol,
				Action:     o.Trade.Action,
				Quantity:   o.ExecutedQuantity,
				EntryPrice: o.FilledPrice,
				OpenedAt:   o.ExecutedAt,
			})
		}
	})
	if err != nil {
		w.logger.Error().Err(err).Msg("State persistence failed on every provider")
	}
	metrics.SetEquity(balance)

	if w.deps.Trades != nil {
		if err := w.deps.Trades.StoreTrades(ctx, outcomes, plan, cycle.thoughts); err != nil {
			w.logger.Error().Err(err).Str("cycle_id", cycle.id).Msg("Trade record persistence failed")
		}
	}
}

// waitForMarketOpen polls the market-open predicate. No hard timeout: a
// market that never opens within the cycle's context stalls the cycle
// until the context errors.
func (w *Workflow) waitForMarketOpen(ctx context.Context) error {
	if w.cfg.Window.MarketOpen(w.clock()) {
		return nil
	}
	w.logger.Info().Msg("Waiting for market open")

	ticker := time.NewTicker(w.cfg.MarketPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.cfg.Window.MarketOpen(w.clock()) {
				return nil
			}
		}
	}
}

// Pause sets the paused flag. The next cycle boundary observes it and
// skips planning entirely; an in-flight cycle runs to completion.
func (w *Workflow) Pause(ctx context.Context, reason string) error {
	return w.deps.Locks.WithLock(lockPause, func() error {
		err := w.deps.State.Update(ctx, func(s *models.AgentState) {
			s.IsPaused = true
			s.PauseReason = reason
			s.PauseToken = uuid.NewString()
		})
		if err != nil {
			return err
		}
		w.setState(StatePaused)
		w.logger.Warn().Str("reason", reason).Msg("Agent paused")
		return nil
	})
}

// Resume clears the paused flag
func (w *Workflow) Resume(ctx context.Context) error {
	return w.deps.Locks.WithLock(lockResume, func() error {
		err := w.deps.State.Update(ctx, func(s *models.AgentState) {
			s.IsPaused = false
			s.PauseReason = ""
			s.PauseToken = ""
		})
		if err != nil {
			return err
		}
		w.setState(StateIdle)
		w.logger.Info().Msg("Agent resumed")
		return nil
	})
}

// Shutdown cancels outstanding broker orders and persists final state
func (w *Workflow) Shutdown(ctx context.Context) error {
	return w.deps.Locks.WithLock(lockShutdown, func() error {
		w.setState(StateShuttingDown)

		if err := w.deps.Execution.CancelAllOrders(ctx); err != nil {
			w.logger.Error().Err(err).Msg("Order cancellation during shutdown failed")
		}

		return w.deps.State.Update(ctx, func(s *models.AgentState) {
			s.LastRun = w.clock()
		})
	})
}

// handleCritical forces the agent into Paused and raises an alert
func (w *Workflow) handleCritical(ctx context.Context, cause error) {
	w.logger.Error().Err(cause).Msg("Critical error, pausing agent")

	if err := w.Pause(ctx, cause.Error()); err != nil {
		w.logger.Error().Err(err).Msg("Pause after critical error failed")
		w.setState(StatePaused)
	}

	if w.deps.Notifier != nil {
		alert := fmt.Sprintf("CRITICAL: agent paused: %v", cause)
		if err := w.deps.Notifier.Notify(ctx, alert); err != nil {
			w.logger.Error().Err(err).Msg("Critical alert notification failed")
		}
	}
}
