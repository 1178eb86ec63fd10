package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/models"
)

// DefaultBalance is the documented default account balance used when no
// persisted state can be recovered from any provider.
const DefaultBalance = 100000.0

// Manager owns the agent state. All reads go through Get and all
// mutations through Update, which serializes access and persists after
// every change (persistence-first semantics). Reads and writes try the
// primary store first and fall back to a local durable file.
type Manager struct {
	mu       sync.Mutex
	state    models.AgentState
	store    models.StateStore // may be nil when running without a database
	filePath string
	logger   zerolog.Logger
}

// NewManager creates a state manager backed by store with a local file
// fallback at filePath.
func NewManager(store models.StateStore, filePath string) *Manager {
	return &Manager{
		state:    defaultState(),
		store:    store,
		filePath: filePath,
		logger:   log.With().Str("component", "state_manager").Logger(),
	}
}

// Load recovers state on process start. Providers are tried in order:
// primary store, local file, documented defaults. Load never fails; the
// worst case is a fresh default state.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		st, err := m.store.GetAgentState(ctx)
		if err == nil && st != nil {
			m.state = *st
			m.logger.Info().Time("updated_at", st.UpdatedAt).Msg("Agent state restored from store")
			return
		}
		if err != nil {
			m.logger.Warn().Err(err).Msg("Store read failed, trying local file")
		}
	}

	if st, err := m.readFile(); err == nil {
		m.state = *st
		m.logger.Info().Str("path", m.filePath).Msg("Agent state restored from local file")
		return
	} else if !os.IsNotExist(err) {
		m.logger.Warn().Err(err).Msg("Local state file unreadable")
	}

	m.state = defaultState()
	m.logger.Info().Msg("No persisted state recovered, using defaults")
}

// Get returns a copy of the current agent state
func (m *Manager) Get() models.AgentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// Update applies fn to the state under the manager's lock and then
// persists the result. A PersistenceError is returned only when every
// provider in the chain fails; the in-memory mutation still stands.
func (m *Manager) Update(ctx context.Context, fn func(*models.AgentState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(&m.state)
	m.state.UpdatedAt = time.Now()
	return m.persistLocked(ctx)
}

// Resync re-reads persisted state from the primary store so that changes
// made out-of-process (e.g. a pause issued against the database) are
// observed at the next cycle boundary.
func (m *Manager) Resync(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	st, err := m.store.GetAgentState(ctx)
	if err != nil {
		return &models.PersistenceError{Op: "resync", Err: err}
	}
	if st == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st.UpdatedAt.After(m.state.UpdatedAt) {
		m.state = *st
		m.logger.Info().Time("updated_at", st.UpdatedAt).Msg("Agent state resynced from store")
	}
	return nil
}

// persistLocked writes the state through the fallback chain. Callers
// hold m.mu.
func (m *Manager) persistLocked(ctx context.Context) error {
	var storeErr error
	if m.store != nil {
		storeErr = m.store.StoreAgentState(ctx, m.state)
		if storeErr != nil {
			m.logger.Warn().Err(storeErr).Msg("Store write failed, falling back to local file")
		}
	}

	fileErr := m.writeFile()
	if fileErr != nil {
		m.logger.Error().Err(fileErr).Str("path", m.filePath).Msg("Local state file write failed")
	}

	if m.store != nil && storeErr == nil {
		return nil
	}
	if fileErr == nil {
		return nil
	}
	if storeErr != nil {
		return &models.PersistenceError{Op: "store_agent_state", Err: storeErr}
	}
	return &models.PersistenceError{Op: "store_agent_state", Err: fileErr}
}

func (m *Manager) readFile() (*models.AgentState, error) {
	if m.filePath == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return nil, err
	}
	var st models.AgentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &st, nil
}

// writeFile persists atomically: write a temp file, then rename over the
// target, so a crash mid-write never corrupts the recovery file.
func (m *Manager) writeFile() error {
	if m.filePath == "" {
		return fmt.Errorf("no state file configured")
	}
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.filePath)
}

func defaultState() models.AgentState {
	return models.AgentState{
		IsPaused:        false,
		CurrentStrategy: "default",
		AccountBalance:  DefaultBalance,
		UpdatedAt:       time.Now(),
	}
}

func cloneState(st models.AgentState) models.AgentState {
	out := st
	out.OpenPositions = append([]models.Position(nil), st.OpenPositions...)
	out.TradeHistory = append([]models.TradeRecord(nil), st.TradeHistory...)
	return out
}
