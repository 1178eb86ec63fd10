package workflow

import (
	"context"
	"time"
)

// RunnerConfig holds the background scheduling intervals
type RunnerConfig struct {
	CycleInterval  time.Duration // fixed calendar schedule for new cycles
	ResyncInterval time.Duration // periodic re-read of persisted state
}

// Run drives the agent until ctx is cancelled: a scheduled trigger starts
// a new cycle on a fixed interval and a resync task re-reads persisted
// state so out-of-process pause/resume is observed at cycle boundaries.
// Both share AgentState with the main cycle only through the state
// manager.
func (w *Workflow) Run(ctx context.Context, cfg RunnerConfig) {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = time.Hour
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = 5 * time.Minute
	}

	cycleTicker := time.NewTicker(cfg.CycleInterval)
	defer cycleTicker.Stop()
	resyncTicker := time.NewTicker(cfg.ResyncInterval)
	defer resyncTicker.Stop()

	w.logger.Info().
		Dur("cycle_interval", cfg.CycleInterval).
		Dur("resync_interval", cfg.ResyncInterval).
		Msg("Agent loop started")

	// First cycle attempt at startup; the trading-window predicate
	// decides whether it actually runs.
	if err := w.RunCycle(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Startup cycle failed")
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Agent loop stopping")
			return
		case <-cycleTicker.C:
			if err := w.RunCycle(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Cycle failed")
			}
		case <-resyncTicker.C:
			if err := w.deps.State.Resync(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("State resync failed")
			}
		}
	}
}
