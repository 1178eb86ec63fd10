package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/config"
	openaiClient "github.com/Alias1177/Trader/internal/api/openai"
	"github.com/Alias1177/Trader/internal/api/twelvedata"
	"github.com/Alias1177/Trader/internal/breakout"
	"github.com/Alias1177/Trader/internal/broker"
	"github.com/Alias1177/Trader/internal/database"
	"github.com/Alias1177/Trader/internal/governor"
	"github.com/Alias1177/Trader/internal/locks"
	"github.com/Alias1177/Trader/internal/notify"
	"github.com/Alias1177/Trader/internal/state"
	"github.com/Alias1177/Trader/internal/strategy"
	"github.com/Alias1177/Trader/internal/workflow"
	"github.com/Alias1177/Trader/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	loc, err := time.LoadLocation(cfg.MarketTimezone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.MarketTimezone).Msg("Unknown timezone, using UTC")
		loc = time.UTC
	}

	gov := governor.New(governor.Config{
		DailyRequestLimit:   cfg.DailyRequestLimit,
		DailyCostLimit:      cfg.DailyCostLimit,
		MinRequestInterval:  time.Duration(cfg.MinRequestInterval) * time.Second,
		PromptCostPer1K:     cfg.PromptCostPer1K,
		CompletionCostPer1K: cfg.CompletionCostPer1K,
	})

	planner := openaiClient.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, gov)

	marketData := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		Interval:       cfg.Interval,
		CandleCount:    cfg.CandleCount,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	// The primary persistence collaborator is optional: without a
	// database the state manager works off the local file alone.
	var store models.StateStore
	var tradeStore models.TradeStore
	if cfg.DBHost != "" {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Error().Err(err).Msg("Database unavailable, continuing on local state file")
		} else {
			defer db.Close()
			store = db
			tradeStore = db
		}
	}

	var notifier models.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("Telegram notifier unavailable")
		} else {
			notifier = tg
		}
	}

	states := state.NewManager(store, cfg.StateFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states.Load(ctx)

	filter := breakout.New(breakout.Weights{
		VolumeSurge: cfg.WeightVolumeSurge,
		Momentum:    cfg.WeightMomentum,
		Volatility:  cfg.WeightVolatility,
		Sentiment:   cfg.WeightSentiment,
		Technical:   cfg.WeightTechnicalStrength,
	}, cfg.BreakoutThreshold)

	wf := workflow.New(workflow.Config{
		Window: models.TradingWindow{
			OpenHour:  cfg.TradingOpenHour,
			CloseHour: cfg.TradingCloseHour,
			Location:  loc,
		},
		WatchSymbols:       cfg.WatchSymbols,
		MarketPollInterval: time.Duration(cfg.MarketPollSec) * time.Second,
	}, workflow.Deps{
		Planner:    planner,
		MarketData: marketData,
		Execution:  broker.NewPaper(states.Get().AccountBalance),
		Trades:     tradeStore,
		Notifier:   notifier,
		Enhancer:   strategy.New(filter),
		State:      states,
		Locks:      locks.NewManager(),
	})

	// Prometheus endpoint
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics endpoint listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		log.Info().Str("signal", s.String()).Msg("Shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := wf.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
		cancel()
	}()

	wf.Run(ctx, workflow.RunnerConfig{
		CycleInterval:  time.Duration(cfg.CycleIntervalMin) * time.Minute,
		ResyncInterval: time.Duration(cfg.ResyncIntervalMin) * time.Minute,
	})
}
