package governor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/Trader/internal/metrics"
	"github.com/Alias1177/Trader/models"
)

// warnRatio is the usage fraction at which a one-shot warning is emitted
const warnRatio = 0.8

// Config holds the caps and pricing for the metered decision service
type Config struct {
	DailyRequestLimit   int
	DailyCostLimit      float64       // USD
	MinRequestInterval  time.Duration // minimum gap between calls
	PromptCostPer1K     float64       // USD per 1000 prompt tokens
	CompletionCostPer1K float64       // USD per 1000 completion tokens
}

// Governor throttles and caps calls to the metered decision service.
// Daily counters reset when the wall-clock date rolls over, detected by
// comparing the current time to the last request time, never mid-day.
type Governor struct {
	mu          sync.Mutex
	cfg         Config
	limiter     *rate.Limiter
	day        time.Time // midnight of the day the counters belong to
	requests   int
	cost       float64
	warnedReqs bool
	warnedCost bool

	now    func() time.Time // injectable clock
	logger zerolog.Logger
}

// New creates a governor with the given caps
func New(cfg Config) *Governor {
	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Governor{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		now:     time.Now,
		logger:  log.With().Str("component", "cost_governor").Logger(),
	}
}

// CheckAndThrottle must be called before every metered call. It fails
// with a CostLimitError when either daily cap would be exceeded, and
// otherwise suspends the caller until the minimum inter-request interval
// has elapsed.
func (g *Governor) CheckAndThrottle(ctx context.Context) error {
	g.mu.Lock()
	g.rolloverLocked(g.now())

	if g.cfg.DailyRequestLimit > 0 && g.requests+1 > g.cfg.DailyRequestLimit {
		used, limit := float64(g.requests), float64(g.cfg.DailyRequestLimit)
		g.mu.Unlock()
		return &models.CostLimitError{Kind: "request", Used: used, Limit: limit}
	}
	if g.cfg.DailyCostLimit > 0 && g.cost >= g.cfg.DailyCostLimit {
		used, limit := g.cost, g.cfg.DailyCostLimit
		g.mu.Unlock()
		return &models.CostLimitError{Kind: "cost", Used: used, Limit: limit}
	}
	g.mu.Unlock()

	// Suspends until the inter-request interval has passed
	return g.limiter.Wait(ctx)
}

// TrackUsage records a successful metered call. It updates the running
// request count and cost estimate and emits a warning once either counter
// crosses 80% of its cap.
func (g *Governor) TrackUsage(promptTokens, completionTokens int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked(g.now())

	g.requests++
	g.cost += float64(promptTokens)/1000*g.cfg.PromptCostPer1K +
		float64(completionTokens)/1000*g.cfg.CompletionCostPer1K
	metrics.SetDecisionUsage(g.requests, g.cost)

	if g.cfg.DailyRequestLimit > 0 && !g.warnedReqs &&
		float64(g.requests) >= warnRatio*float64(g.cfg.DailyRequestLimit) {
		g.warnedReqs = true
		g.logger.Warn().
			Int("requests", g.requests).
			Int("limit", g.cfg.DailyRequestLimit).
			Msg("Daily request usage above 80% of cap")
	}
	if g.cfg.DailyCostLimit > 0 && !g.warnedCost && g.cost >= warnRatio*g.cfg.DailyCostLimit {
		g.warnedCost = true
		g.logger.Warn().
			Float64("cost", g.cost).
			Float64("limit", g.cfg.DailyCostLimit).
			Msg("Daily cost usage above 80% of cap")
	}
}

// Usage returns the current day's request count and accumulated cost
func (g *Governor) Usage() (requests int, cost float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked(g.now())
	return g.requests, g.cost
}

// rolloverLocked resets the daily counters when the calendar day has
// changed since the counters were started. Callers hold g.mu.
func (g *Governor) rolloverLocked(now time.Time) {
	day := midnight(now)
	if g.day.IsZero() {
		g.day = day
		return
	}
	if day.Equal(g.day) {
		return
	}
	g.logger.Info().
		Int("requests", g.requests).
		Float64("cost", g.cost).
		Time("previous_day", g.day).
		Msg("Day rollover, resetting usage counters")
	g.day = day
	g.requests = 0
	g.cost = 0
	g.warnedReqs = false
	g.warnedCost = false
	metrics.SetDecisionUsage(0, 0)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
