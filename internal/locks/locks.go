package locks

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Trader/models"
)

// Manager prevents two critical operations sharing the same key from
// running concurrently. A busy key fails immediately; callers never queue.
type Manager struct {
	mu     sync.Mutex
	held   map[string]time.Time
	logger zerolog.Logger
}

// NewManager creates an operation lock manager
func NewManager() *Manager {
	return &Manager{
		held:   make(map[string]time.Time),
		logger: log.With().Str("component", "lock_manager").Logger(),
	}
}

// WithLock runs op while holding the named lock. If an operation is
// already registered under key it returns a ConcurrencyError without
// running op. The lock is released unconditionally when op returns.
func (m *Manager) WithLock(key string, op func() error) error {
	m.mu.Lock()
	if since, busy := m.held[key]; busy {
		m.mu.Unlock()
		m.logger.Warn().
			Str("key", key).
			Time("held_since", since).
			Msg("Operation already in flight")
		return &models.ConcurrencyError{Key: key}
	}
	m.held[key] = time.Now()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}()

	return op()
}

// Held reports whether an operation is currently registered under key
func (m *Manager) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.held[key]
	return busy
}
