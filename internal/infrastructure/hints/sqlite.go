// Package hints persists the per-session category hint that steers product
// vs service mode ("lastQueryCategory" in the web client).
package hints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/findalleasy/vitrin/internal/domain"
	_ "modernc.org/sqlite"
)

// HintKey is the key the web client stores the hint under
const HintKey = "lastQueryCategory"

// Store is a sqlite-backed domain.HintStore
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (and creates when missing) the hint database at path.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" a single database
	conn.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	s := &Store{conn: conn, now: time.Now}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS hints (
  session_id TEXT NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_hints_updated_at ON hints(updated_at);
`
	_, err := s.conn.Exec(schema)
	return err
}

// Get returns the category hint of a session. A blank session has no hint.
func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", domain.ErrHintNotFound
	}

	var value string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM hints WHERE session_id = ? AND key = ?`,
		sessionID, HintKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrHintNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read hint: %w", err)
	}
	return value, nil
}

// Set stores the category hint of a session. An empty category deletes it.
// Hints are never shared, so a blank session is rejected.
func (s *Store) Set(ctx context.Context, sessionID, category string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return s.Delete(ctx, sessionID)
	}

	_, err := s.conn.ExecContext(ctx, `
INSERT INTO hints (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, HintKey, category, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write hint: %w", err)
	}
	return nil
}

// Delete removes the category hint of a session
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM hints WHERE session_id = ? AND key = ?`,
		sessionID, HintKey,
	)
	if err != nil {
		return fmt.Errorf("delete hint: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes hints not updated since the cutoff and returns how many went
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM hints WHERE updated_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge hints: %w", err)
	}
	return res.RowsAffected()
}

