package twelvedata

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/Trader/internal/platform/http"
	"github.com/Alias1177/Trader/models"
)

// benchmarkSymbol drives the plan-wide sentiment score. SPY tracks the
// broad US market; its recent drift is mapped onto 0..1.
const benchmarkSymbol = "SPY"

// recentWindow is the number of trailing candles treated as "recent" for
// current volume and short-horizon volatility.
const recentWindow = 10

// Client fetches market indicator snapshots from the Twelve Data API
type Client struct {
	apiKey     string
	baseURL    string
	interval   string
	candles    int
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Twelve Data client
type ClientOptions struct {
	APIKey          string
	Interval        string
	CandleCount     int
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Twelve Data API client
func NewClient(opts ClientOptions) *Client {
	if opts.Interval == "" {
		opts.Interval = "1day"
	}
	if opts.CandleCount == 0 {
		opts.CandleCount = 40
	}

	return &Client{
		apiKey:   opts.APIKey,
		baseURL:  "https://api.twelvedata.com",
		interval: opts.Interval,
		candles:  opts.CandleCount,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         opts.RequestTimeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetryTimeout: opts.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// timeSeriesResponse mirrors the Twelve Data time_series payload
type timeSeriesResponse struct {
	Values []struct {
		Datetime string  `json:"datetime"`
		Close    float64 `json:"close,string"`
		Volume   int64   `json:"volume,string,omitempty"`
	} `json:"values"`
	Status string `json:"status"`
}

// GetMarketData builds the indicator snapshot for the given symbols.
// Symbols that fail to fetch are omitted from the snapshot; the breakout
// filter treats missing symbols with neutral sub-scores.
func (c *Client) GetMarketData(ctx context.Context, symbols []string) (*models.MarketData, error) {
	md := &models.MarketData{
		Sentiment:  0.5,
		Indicators: make(map[string]models.SymbolIndicators, len(symbols)),
		FetchedAt:  time.Now(),
	}

	for _, symbol := range symbols {
		ind, err := c.fetchIndicators(ctx, symbol)
		if err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Indicator fetch failed, symbol omitted")
			continue
		}
		md.Indicators[symbol] = *ind
	}

	if len(md.Indicators) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("no market data for any of %d symbols", len(symbols))
	}

	if sentiment, err := c.fetchSentiment(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Sentiment fetch failed, keeping neutral")
	} else {
		md.Sentiment = sentiment
	}

	return md, nil
}

// fetchIndicators derives per-symbol indicators from a candle series
func (c *Client) fetchIndicators(ctx context.Context, symbol string) (*models.SymbolIndicators, error) {
	closes, volumes, err := c.fetchSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(closes) < 2 {
		return nil, fmt.Errorf("insufficient candles for %s", symbol)
	}

	recent := recentWindow
	if recent > len(closes) {
		recent = len(closes)
	}

	var volSum float64
	for _, v := range volumes {
		volSum += v
	}

	return &models.SymbolIndicators{
		CurrentVolume:        volumes[len(volumes)-1],
		AvgVolume:            volSum / float64(len(volumes)),
		RecentPrices:         closes[len(closes)-recent:],
		Volatility:           returnStdDev(closes[len(closes)-recent:]),
		HistoricalVolatility: returnStdDev(closes),
	}, nil
}

// fetchSentiment maps the benchmark's recent drift onto 0..1, with a
// ±5% move saturating the scale.
func (c *Client) fetchSentiment(ctx context.Context) (float64, error) {
	closes, _, err := c.fetchSeries(ctx, benchmarkSymbol)
	if err != nil {
		return 0, err
	}
	if len(closes) < 2 || closes[0] <= 0 {
		return 0, fmt.Errorf("insufficient benchmark data")
	}
	change := (closes[len(closes)-1] - closes[0]) / closes[0]
	s := 0.5 + change/0.10
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s, nil
}

// fetchSeries returns closes and volumes ordered oldest first
func (c *Client) fetchSeries(ctx context.Context, symbol string) ([]float64, []float64, error) {
	endpoint := fmt.Sprintf(
		"%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.interval, c.candles, c.apiKey,
	)

	c.logger.Debug().Str("symbol", symbol).Msg("Fetching candle series")

	var data timeSeriesResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return nil, nil, err
	}
	if data.Status == "error" || len(data.Values) == 0 {
		return nil, nil, fmt.Errorf("empty series for %s", symbol)
	}

	// API returns newest first; sort oldest first for calculations
	sort.Slice(data.Values, func(i, j int) bool {
		return data.Values[i].Datetime < data.Values[j].Datetime
	})

	closes := make([]float64, 0, len(data.Values))
	volumes := make([]float64, 0, len(data.Values))
	for _, v := range data.Values {
		closes = append(closes, v.Close)
		volumes = append(volumes, float64(v.Volume))
	}
	return closes, volumes, nil
}

// returnStdDev is the standard deviation of simple returns over a series
func returnStdDev(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}
