package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brutusburger/brutabot/internal/textnorm"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for catalog items and triggers.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// against an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddItem inserts a new item and returns its id.
func (s *Store) AddItem(ctx context.Context, it Item) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (name, description, price, category, available) VALUES (?, ?, ?, ?, ?)`,
		it.Name, it.Description, it.Price, string(it.Category), boolInt(it.Available))
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert item id: %w", err)
	}
	return id, nil
}

// GetItem returns the item with the given id, or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id int64) (Item, error) {
	var it Item
	var avail int
	var cat string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, category, available FROM items WHERE id = ?`, id).
		Scan(&it.ID, &it.Name, &it.Description, &it.Price, &cat, &avail)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	it.Category = Category(cat)
	it.Available = avail != 0
	return it, nil
}

// Items returns all items ordered by id.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, price, category, available FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var avail int
		var cat string
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &cat, &avail); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Category = Category(cat)
		it.Available = avail != 0
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetAvailable flips an item's availability without removing its triggers.
func (s *Store) SetAvailable(ctx context.Context, id int64, available bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET available = ? WHERE id = ?`, boolInt(available), id)
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveItem deletes an item. Its triggers go with it via ON DELETE CASCADE.
func (s *Store) RemoveItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTrigger maps a phrase onto an item. The phrase is normalized before
// storage so inserts and lookups agree on the canonical form. Re-adding
// an existing phrase repoints it at the new item.
func (s *Store) AddTrigger(ctx context.Context, phrase string, itemID int64) error {
	normalized := textnorm.Normalize(phrase)
	if normalized == "" {
		return fmt.Errorf("add trigger: empty phrase after normalization")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (phrase, item_id) VALUES (?, ?)
		 ON CONFLICT(phrase) DO UPDATE SET item_id = excluded.item_id`,
		normalized, itemID)
	if err != nil {
		return fmt.Errorf("add trigger %q: %w", normalized, err)
	}
	return nil
}

// RemoveTrigger deletes a single phrase mapping.
func (s *Store) RemoveTrigger(ctx context.Context, phrase string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM triggers WHERE phrase = ?`, textnorm.Normalize(phrase))
	if err != nil {
		return fmt.Errorf("remove trigger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove trigger: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Triggers returns the full phrase-to-item mapping, skipping triggers
// whose item is currently unavailable.
func (s *Store) Triggers(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.phrase, t.item_id FROM triggers t
		 JOIN items i ON i.id = t.item_id
		 WHERE i.available = 1`)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()

	triggers := make(map[string]int64)
	for rows.Next() {
		var phrase string
		var id int64
		if err := rows.Scan(&phrase, &id); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		triggers[phrase] = id
	}
	return triggers, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
