package messages

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the live, operator-editable message table.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the message database at the given path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Set inserts or updates the live text for a key.
func (s *Store) Set(ctx context.Context, key, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (key, text, active) VALUES (?, ?, 1)
		 ON CONFLICT(key) DO UPDATE SET text = excluded.text, active = 1`,
		key, text)
	if err != nil {
		return fmt.Errorf("set message %q: %w", key, err)
	}
	return nil
}

// Deactivate hides a live override so the fallback text takes over.
func (s *Store) Deactivate(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET active = 0 WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deactivate message %q: %w", key, err)
	}
	return nil
}

// Get returns the active live text for a key, if any.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM messages WHERE key = ? AND active = 1`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get message %q: %w", key, err)
	}
	return text, true, nil
}

// All returns every active live override.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, text FROM messages WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, text string
		if err := rows.Scan(&key, &text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out[key] = text
	}
	return out, rows.Err()
}
