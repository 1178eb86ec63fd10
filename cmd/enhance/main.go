// Command enhance runs the strategy-enhancement pipeline over a trade
// plan from a JSON file and prints the execution-ready result, without
// executing anything. Operator tool for inspecting what the agent would
// do with a given plan.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/config"
	"github.com/Alias1177/Trader/internal/api/twelvedata"
	"github.com/Alias1177/Trader/internal/breakout"
	"github.com/Alias1177/Trader/internal/state"
	"github.com/Alias1177/Trader/internal/strategy"
	"github.com/Alias1177/Trader/models"
)

func main() {
	planPath := flag.String("plan", "", "path to a trade plan JSON file")
	flag.Parse()

	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "usage: enhance -plan plan.json")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	data, err := os.ReadFile(*planPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Plan file unreadable")
	}
	var plan models.TradePlan
	if err := json.Unmarshal(data, &plan); err != nil {
		log.Fatal().Err(err).Msg("Plan file is not valid JSON")
	}

	symbols := make([]string, 0, len(plan.Trades))
	for _, t := range plan.Trades {
		symbols = append(symbols, t.Symbol)
	}

	marketData := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		Interval:       cfg.Interval,
		CandleCount:    cfg.CandleCount,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	ctx := context.Background()
	market, err := marketData.GetMarketData(ctx, symbols)
	if err != nil {
		log.Fatal().Err(err).Msg("Market data fetch failed")
	}

	states := state.NewManager(nil, cfg.StateFile)
	states.Load(ctx)

	filter := breakout.New(breakout.Weights{
		VolumeSurge: cfg.WeightVolumeSurge,
		Momentum:    cfg.WeightMomentum,
		Volatility:  cfg.WeightVolatility,
		Sentiment:   cfg.WeightSentiment,
		Technical:   cfg.WeightTechnicalStrength,
	}, cfg.BreakoutThreshold)

	enhanced, err := strategy.New(filter).Enhance(&plan, *market, states.Get())
	if err != nil {
		log.Fatal().Err(err).Msg("Enhancement failed")
	}

	out, err := json.MarshalIndent(enhanced, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Encoding result failed")
	}
	fmt.Println(string(out))
}
