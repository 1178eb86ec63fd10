package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/Alias1177/Trader/internal/governor"
	"github.com/Alias1177/Trader/models"
)

// Client wraps the OpenAI API as the planning collaborator. Every call is
// gated by the cost governor before it is made and accounted after it
// succeeds.
type Client struct {
	client   *openai.Client
	governor *governor.Governor
	model    string
	logger   zerolog.Logger
}

// NewClient creates a new planning client
func NewClient(apiKey, model string, gov *governor.Governor) *Client {
	if model == "" {
		model = openai.GPT4
	}
	return &Client{
		client:   openai.NewClient(apiKey),
		governor: gov,
		model:    model,
		logger:   log.With().Str("component", "openai_planner").Logger(),
	}
}

// CraftPlan asks the decision service for an initial daily trade plan
func (c *Client) CraftPlan(ctx context.Context, market models.MarketData, state models.AgentState) (*models.TradePlan, error) {
	prompt := formatPlanPrompt(market, state)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("crafting plan: %w", err)
	}

	plan, err := parsePlan(content)
	if err != nil {
		return nil, fmt.Errorf("parsing crafted plan: %w", err)
	}
	plan.CreatedAt = time.Now()
	if plan.Strategy == "" {
		plan.Strategy = state.CurrentStrategy
	}

	c.logger.Info().Int("candidates", len(plan.Trades)).Msg("Initial plan crafted")
	return plan, nil
}

// RefinePredictions asks the decision service to re-score an existing
// plan's confidences against the market snapshot.
func (c *Client) RefinePredictions(ctx context.Context, plan *models.TradePlan, market models.MarketData, state models.AgentState) (*models.TradePlan, error) {
	prompt := formatRefinePrompt(plan, market)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("refining predictions: %w", err)
	}

	refined, err := parsePlan(content)
	if err != nil {
		return nil, fmt.Errorf("parsing refined plan: %w", err)
	}
	refined.CreatedAt = plan.CreatedAt
	if refined.Strategy == "" {
		refined.Strategy = plan.Strategy
	}

	c.logger.Info().Int("candidates", len(refined.Trades)).Msg("Plan predictions refined")
	return refined, nil
}

// complete sends one governed chat completion and tracks its usage
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if err := c.governor.CheckAndThrottle(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", err
	}

	c.governor.TrackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// formatPlanPrompt builds the initial planning prompt
func formatPlanPrompt(market models.MarketData, state models.AgentState) string {
	var sb strings.Builder
	sb.WriteString("You are a trading strategist. Propose trades for today given this market snapshot.\n\n")
	sb.WriteString(fmt.Sprintf("Account balance: %.2f USD\n", state.AccountBalance))
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", state.CurrentStrategy))
	sb.WriteString(fmt.Sprintf("Market sentiment (0-1): %.2f\n\n", market.Sentiment))

	for symbol, ind := range market.Indicators {
		last := 0.0
		if n := len(ind.RecentPrices); n > 0 {
			last = ind.RecentPrices[n-1]
		}
		sb.WriteString(fmt.Sprintf("%s: last=%.2f vol=%.0f avg_vol=%.0f volatility=%.4f hist_volatility=%.4f\n",
			symbol, last, ind.CurrentVolume, ind.AvgVolume, ind.Volatility, ind.HistoricalVolatility))
	}

	sb.WriteString(`
Answer with JSON only, in this shape:
{"strategy":"<name>","trades":[{"symbol":"AAPL","action":"BUY","quantity":10,"price_target":150.0,"stop_loss":141.0,"take_profit":165.0,"confidence":0.7,"reasoning":"<1-2 sentences>"}]}
`)
	return sb.String()
}

// formatRefinePrompt builds the prediction-refinement prompt
func formatRefinePrompt(plan *models.TradePlan, market models.MarketData) string {
	var sb strings.Builder
	sb.WriteString("Re-score the confidence of each trade below against the market snapshot.\n")
	sb.WriteString("Keep the same trades; adjust only confidence and reasoning.\n\n")

	for _, t := range plan.Trades {
		sb.WriteString(fmt.Sprintf("%s %s qty=%d target=%.2f confidence=%.2f\n",
			t.Action, t.Symbol, t.Quantity, t.PriceTarget, t.Confidence))
	}
	sb.WriteString(fmt.Sprintf("\nMarket sentiment (0-1): %.2f\n", market.Sentiment))
	sb.WriteString("\nAnswer with the full plan as JSON only, same shape as before.\n")
	return sb.String()
}

// parsePlan extracts the JSON plan from a completion, tolerating prose
// around the JSON object.
func parsePlan(content string) (*models.TradePlan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion")
	}

	var plan models.TradePlan
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
