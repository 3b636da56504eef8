// Package session holds per-conversation state: the transcript and the
// bounded list of recently discussed products.
package session

import (
	"sync"
	"time"

	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/extract"
)

// DefaultRecentLimit bounds the most-recently-used product list.
const DefaultRecentLimit = 5

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Turns are append-only and never
// mutated after creation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Memory is the mutable state of one conversation session. The HTTP
// surface can drive the same session from concurrent requests, so Memory
// guards its own state; interleaved turns only affect ordering.
type Memory struct {
	ID          string
	recentLimit int

	mu         sync.Mutex
	transcript []Turn
	byCode     map[string]catalog.Record
	byID       map[int]catalog.Record
	recent     []string // normalized codes, most recent first
	lastActive time.Time
}

// NewMemory creates an empty session memory.
func NewMemory(id string, recentLimit int) *Memory {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Memory{
		ID:          id,
		recentLimit: recentLimit,
		byCode:      make(map[string]catalog.Record),
		byID:        make(map[int]catalog.Record),
		lastActive:  time.Now(),
	}
}

// Remember caches a resolved record and moves its code to the front of the
// recent list, evicting the oldest entry past capacity. Cache updates are
// unconditional: records are immutable once fetched, so last write wins.
func (m *Memory) Remember(rec catalog.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastActive = time.Now()

	code := extract.NormalizeCode(rec.Code)
	if code != "" {
		m.byCode[code] = rec
	}
	if rec.ID != 0 {
		m.byID[rec.ID] = rec
	}

	if code == "" {
		return
	}

	next := make([]string, 0, len(m.recent)+1)
	next = append(next, code)
	for _, c := range m.recent {
		if c != code {
			next = append(next, c)
		}
	}
	if len(next) > m.recentLimit {
		next = next[:m.recentLimit]
	}
	m.recent = next
}

// LookupCode returns the cached record for a normalized code.
func (m *Memory) LookupCode(code string) (catalog.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byCode[extract.NormalizeCode(code)]
	return rec, ok
}

// LookupID returns the cached record for a product id.
func (m *Memory) LookupID(id int) (catalog.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	return rec, ok
}

// RecallRecent returns the cached records for every code on the recent
// list, in most-recent-first order. Codes whose cache entry is gone are
// skipped silently.
func (m *Memory) RecallRecent() []catalog.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []catalog.Record
	for _, code := range m.recent {
		if rec, ok := m.byCode[code]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// RecentCodes returns the recent list, most recent first.
func (m *Memory) RecentCodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.recent))
	copy(out, m.recent)
	return out
}

// AppendTurn appends a turn to the transcript.
func (m *Memory) AppendTurn(role, content string) Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn := Turn{Role: role, Content: content, CreatedAt: time.Now()}
	m.transcript = append(m.transcript, turn)
	m.lastActive = time.Now()
	return turn
}

// Transcript returns a copy of the conversation so far.
func (m *Memory) Transcript() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// LastActive reports when the session was last touched.
func (m *Memory) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}
