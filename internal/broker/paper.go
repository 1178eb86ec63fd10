package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/models"
)

// Paper is an in-process execution client for unattended dry runs and
// tests. Orders fill immediately at the target price; balance and
// positions are tracked so the next cycle sizes against realistic equity.
type Paper struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]models.Position
	logger    zerolog.Logger
}

// NewPaper creates a paper broker with the given starting balance
func NewPaper(balance float64) *Paper {
	return &Paper{
		balance:   balance,
		positions: make(map[string]models.Position),
		logger:    log.With().Str("component", "paper_broker").Logger(),
	}
}

// Execute fills the trade at its target price
func (p *Paper) Execute(ctx context.Context, trade models.EnhancedTrade) (*models.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	notional := float64(trade.EnhancedQuantity) * trade.PriceTarget

	switch trade.Action {
	case models.ActionBuy:
		if notional > p.balance {
			return nil, fmt.Errorf("insufficient balance: need %.2f, have %.2f", notional, p.balance)
		}
		p.balance -= notional
	case models.ActionSell:
		p.balance += notional
	default:
		return nil, &models.ValidationError{Symbol: trade.Symbol, Reason: "unknown action"}
	}

	orderID := uuid.NewString()
	pos := p.positions[trade.Symbol]
	pos.Symbol = trade.Symbol
	pos.Action = trade.Action
	pos.Quantity += trade.EnhancedQuantity
	pos.EntryPrice = trade.PriceTarget
	p.positions[trade.Symbol] = pos

	p.logger.Info().
		Str("order_id", orderID).
		Str("symbol", trade.Symbol).
		Str("action", string(trade.Action)).
		Int64("quantity", trade.EnhancedQuantity).
		Float64("price", trade.PriceTarget).
		Msg("Paper order filled")

	return &models.OrderResult{
		Status:           "executed",
		OrderID:          orderID,
		FilledPrice:      trade.PriceTarget,
		ExecutedQuantity: trade.EnhancedQuantity,
	}, nil
}

// GetAccountDetails returns the simulated account snapshot
func (p *Paper) GetAccountDetails(ctx context.Context) (*models.AccountDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &models.AccountDetails{
		Balance:     p.balance,
		BuyingPower: p.balance,
	}, nil
}

// CancelAllOrders is a no-op for the paper broker; fills are immediate
func (p *Paper) CancelAllOrders(ctx context.Context) error {
	p.logger.Info().Msg("Cancel-all requested, no resting paper orders")
	return nil
}

// Positions returns a snapshot of the open paper positions
func (p *Paper) Positions() []models.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out
}
