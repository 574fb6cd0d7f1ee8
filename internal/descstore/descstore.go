// Package descstore keeps the per-chat dataset description written
// after a visualization run and read back by the description request.
// Last write wins.
package descstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a sqlite-backed chat_id -> description table.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS descriptions (
	chat_id    TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// Open opens (and creates, if needed) the store at path. ":memory:"
// gives an ephemeral store for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("descstore: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("descstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the description for a chat, replacing any previous one.
func (s *Store) Put(ctx context.Context, chatID, description string) error {
	if chatID == "" {
		return fmt.Errorf("descstore: empty chat id")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO descriptions (chat_id, body, updated_at) VALUES (?, ?, ?)",
		chatID, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("descstore: put %s: %w", chatID, err)
	}
	return nil
}

// Get returns the stored description, "" when the chat has none. A
// missing entry is not an error; the description request degrades to
// an image-only explanation.
func (s *Store) Get(ctx context.Context, chatID string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM descriptions WHERE chat_id = ?", chatID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("descstore: get %s: %w", chatID, err)
	}
	return body, nil
}
