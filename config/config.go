package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey   string
	OpenAIAPIKey   string
	OpenAIModel    string
	TelegramToken  string
	TelegramChatID int64

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	WatchSymbols []string
	Interval     string
	CandleCount  int

	BreakoutThreshold       float64
	WeightVolumeSurge       float64
	WeightMomentum          float64
	WeightVolatility        float64
	WeightSentiment         float64
	WeightTechnicalStrength float64

	DailyRequestLimit   int
	DailyCostLimit      float64 // USD
	MinRequestInterval  int     // seconds between metered calls
	PromptCostPer1K     float64
	CompletionCostPer1K float64

	TradingOpenHour  int
	TradingCloseHour int
	MarketTimezone   string

	CycleIntervalMin  int
	ResyncIntervalMin int
	MarketPollSec     int

	StateFile    string
	MetricsAddr  string
	PaperBalance float64

	LogLevel       string
	RequestTimeout int // seconds
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	cfg.DBHost = getEnvWithDefault("DB_HOST", "")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "trader")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.WatchSymbols = splitSymbols(getEnvWithDefault("WATCH_SYMBOLS", "AAPL,MSFT,NVDA,AMZN,GOOG"))
	cfg.Interval = getEnvWithDefault("INTERVAL", "1day")
	cfg.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", 40)

	cfg.BreakoutThreshold = getEnvFloatWithDefault("BREAKOUT_THRESHOLD", 0.4)
	cfg.WeightVolumeSurge = getEnvFloatWithDefault("BREAKOUT_WEIGHT_VOLUME", 0.25)
	cfg.WeightMomentum = getEnvFloatWithDefault("BREAKOUT_WEIGHT_MOMENTUM", 0.25)
	cfg.WeightVolatility = getEnvFloatWithDefault("BREAKOUT_WEIGHT_VOLATILITY", 0.20)
	cfg.WeightSentiment = getEnvFloatWithDefault("BREAKOUT_WEIGHT_SENTIMENT", 0.15)
	cfg.WeightTechnicalStrength = getEnvFloatWithDefault("BREAKOUT_WEIGHT_TECHNICAL", 0.15)

	cfg.DailyRequestLimit = getEnvIntWithDefault("DAILY_REQUEST_LIMIT", 100)
	cfg.DailyCostLimit = getEnvFloatWithDefault("DAILY_COST_LIMIT", 10.0)
	cfg.MinRequestInterval = getEnvIntWithDefault("MIN_REQUEST_INTERVAL", 2)
	cfg.PromptCostPer1K = getEnvFloatWithDefault("PROMPT_COST_PER_1K", 0.03)
	cfg.CompletionCostPer1K = getEnvFloatWithDefault("COMPLETION_COST_PER_1K", 0.06)

	cfg.TradingOpenHour = getEnvIntWithDefault("TRADING_OPEN_HOUR", 9)
	cfg.TradingCloseHour = getEnvIntWithDefault("TRADING_CLOSE_HOUR", 16)
	cfg.MarketTimezone = getEnvWithDefault("MARKET_TIMEZONE", "America/New_York")

	cfg.CycleIntervalMin = getEnvIntWithDefault("CYCLE_INTERVAL_MIN", 60)
	cfg.ResyncIntervalMin = getEnvIntWithDefault("RESYNC_INTERVAL_MIN", 5)
	cfg.MarketPollSec = getEnvIntWithDefault("MARKET_POLL_SEC", 30)

	cfg.StateFile = getEnvWithDefault("STATE_FILE", "data/agent_state.json")
	cfg.MetricsAddr = getEnvWithDefault("METRICS_ADDR", ":9090")
	cfg.PaperBalance = getEnvFloatWithDefault("PAPER_BALANCE", 100000)

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)

	return &cfg, nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
