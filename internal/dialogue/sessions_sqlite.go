package dialogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/setlog/internal/training"
	_ "modernc.org/sqlite"
)

// SQLiteSessionStore persists open drafts so a dialogue can resume after
// the process restarts.
type SQLiteSessionStore struct {
	db *sql.DB
}

// Compile-time check: *SQLiteSessionStore satisfies SessionStore.
var _ SessionStore = (*SQLiteSessionStore)(nil)

// OpenSQLiteSessionStore opens (or creates) the draft database at path.
func OpenSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sessions dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sessions db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS drafts (
		session_id TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating drafts table: %w", err)
	}

	return &SQLiteSessionStore{db: db}, nil
}

// Load returns the session's draft, or nil when there is none.
func (s *SQLiteSessionStore) Load(ctx context.Context, sessionID string) (*training.Draft, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM drafts WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft %s: %w", sessionID, err)
	}

	var d training.Draft
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, fmt.Errorf("decoding draft %s: %w", sessionID, err)
	}
	return &d, nil
}

// Save upserts the draft.
func (s *SQLiteSessionStore) Save(ctx context.Context, sessionID, userID string, d *training.Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft %s: %w", sessionID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (session_id, user_id, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id, payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, userID, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving draft %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes the session's draft. Deleting a missing draft is a no-op.
func (s *SQLiteSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting draft %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
