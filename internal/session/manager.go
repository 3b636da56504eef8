package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigdipper/sales-assistant/internal/observability"
)

// Manager is a registry of live sessions keyed by id. Sessions themselves
// are single-owner; the manager only guards the registry map, which the
// HTTP surface touches from concurrent requests.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Memory
	recentLimit int
	idleExpiry  time.Duration
	store       *TurnStore // optional; nil disables persistence
	logger      *observability.Logger
}

// NewManager creates a session manager. store may be nil.
func NewManager(recentLimit int, idleExpiry time.Duration, store *TurnStore, logger *observability.Logger) *Manager {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Manager{
		sessions:    make(map[string]*Memory),
		recentLimit: recentLimit,
		idleExpiry:  idleExpiry,
		store:       store,
		logger:      logger,
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() *Memory {
	id := uuid.NewString()
	sess := NewMemory(id, m.recentLimit)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.CreateSession(id); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to persist session")
		}
	}

	m.logger.Debug().Str("session_id", id).Msg("session created")
	return sess
}

// Get returns the session for id, creating it when id names a session this
// process has not seen. An empty id always creates a fresh session.
func (m *Manager) Get(id string) *Memory {
	if id == "" {
		return m.Create()
	}

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		sess = NewMemory(id, m.recentLimit)
		m.sessions[id] = sess
	}
	m.mu.Unlock()

	return sess
}

// Lookup returns the live session for id without creating one.
func (m *Manager) Lookup(id string) (*Memory, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	return sess, ok
}

// History returns the transcript for a session. The persisted store wins
// when configured since it survives restarts; otherwise the live
// in-memory transcript is used.
func (m *Manager) History(ctx context.Context, id string) ([]Turn, error) {
	if m.store != nil {
		return m.store.Turns(ctx, id)
	}

	sess, ok := m.Lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Transcript(), nil
}

// Clear removes a session and its persisted transcript.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.DeleteSession(id); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to delete persisted session")
		}
	}
}

// PersistTurn records a turn in the transcript store, when configured.
func (m *Manager) PersistTurn(sessionID string, turn Turn) {
	if m.store == nil {
		return
	}
	if err := m.store.AppendTurn(sessionID, turn); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to persist turn")
	}
}

// Sweep drops sessions idle past the expiry window and returns how many
// were removed. Persisted transcripts are kept for audit.
func (m *Manager) Sweep() int {
	if m.idleExpiry <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-m.idleExpiry)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
