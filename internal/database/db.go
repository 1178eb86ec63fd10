package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alias1177/Trader/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS agent_state (
			id INT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS executed_trades (
			id BIGSERIAL PRIMARY KEY,
			order_id TEXT,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			filled_price DOUBLE PRECISION,
			status TEXT NOT NULL,
			error TEXT,
			plan_strategy TEXT,
			executed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS thought_chains (
			id BIGSERIAL PRIMARY KEY,
			cycle_at TIMESTAMP NOT NULL,
			position INT NOT NULL,
			thought TEXT NOT NULL
		)
	`)
	return err
}

// GetAgentState loads the persisted agent state. Returns (nil, nil) when
// no state row exists yet.
func (db *DB) GetAgentState(ctx context.Context) (*models.AgentState, error) {
	var payload []byte
	err := db.QueryRowContext(ctx, `
		SELECT payload FROM agent_state WHERE id = 1
	`).Scan(&payload)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var state models.AgentState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("parsing stored state: %w", err)
	}
	return &state, nil
}

// StoreAgentState upserts the single agent state row
func (db *DB) StoreAgentState(ctx context.Context, state models.AgentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO agent_state (id, payload, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, payload, time.Now())

	return err
}

// StoreTrades records the cycle's executed trades and its thought chain
func (db *DB) StoreTrades(ctx context.Context, outcomes []models.TradeOutcome, plan *models.EnhancedPlan, thoughts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	strategy := ""
	if plan != nil {
		strategy = plan.Strategy
	}

	for _, o := range outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO executed_trades (
				order_id, symbol, action, quantity, filled_price, status, error, plan_strategy, executed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			o.OrderID, o.Trade.Symbol, string(o.Trade.Action), o.ExecutedQuantity,
			o.FilledPrice, o.Status, o.Error, strategy, o.ExecutedAt)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	for i, thought := range thoughts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO thought_chains (cycle_at, position, thought)
			VALUES ($1, $2, $3)
		`, now, i, thought)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
