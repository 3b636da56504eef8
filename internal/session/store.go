package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound indicates the store has no such session.
var ErrSessionNotFound = errors.New("session not found")

// DB is the database connection subset the store uses.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TurnStore persists sessions and their transcripts append-only, so a
// conversation survives a process restart and can be audited later.
type TurnStore struct {
	db DB
}

// NewTurnStore creates a transcript store on an open database.
func NewTurnStore(db DB) *TurnStore {
	return &TurnStore{db: db}
}

// Migrate creates the store schema if missing.
func (s *TurnStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate turn store: %w", err)
		}
	}
	return nil
}

// CreateSession registers a session.
func (s *TurnStore) CreateSession(id string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		id, time.Now(),
	)
	return err
}

// AppendTurn records one turn. Turns are never updated or reordered.
func (s *TurnStore) AppendTurn(sessionID string, turn Turn) error {
	if err := s.CreateSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Role, turn.Content, turn.CreatedAt,
	)
	return err
}

// Turns returns a session's transcript in insertion order.
func (s *TurnStore) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// ListSessions returns known session ids with their turn counts, most
// recently created first.
func (s *TurnStore) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, COUNT(t.id)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id, s.created_at
		ORDER BY s.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its transcript.
func (s *TurnStore) DeleteSession(id string) error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// SessionInfo summarizes a persisted session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	TurnCount int       `json:"turnCount"`
}
