// Package orders persists finalized orders and remembers customers
// between conversations.
package orders

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brutusburger/brutabot/internal/session"
)

//go:embed schema.sql
var schemaSQL string

// Order statuses.
const (
	StatusPlaced         = "placed"
	StatusOutForDelivery = "out_for_delivery"
)

// ErrNotFound is returned when an order or customer does not exist.
var ErrNotFound = errors.New("orders: not found")

// Customer is a known contact with their last confirmed address.
type Customer struct {
	ID       string
	Name     string
	Address  string
	Lat, Lng *float64
}

// Store provides durable storage for orders and customers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNow injects the time source used for timestamps.
func WithNow(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Open creates or opens the order database at the given path.
func Open(path string, opts ...StoreOption) (*Store, error) {
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
		"PRAGMA foreign_keys = ON",
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

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PersistOrder writes a finalized session as an order and returns the
// new order id. The customer record is upserted with the confirmed
// name and address so the next order can reuse them.
func (s *Store) PersistOrder(ctx context.Context, snap session.Session) (string, error) {
	orderID := uuid.NewString()
	now := s.now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	var changeFor any
	if snap.ChangeFor != nil {
		changeFor = *snap.ChangeFor
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, created_at, total, delivery, fee, address, payment, change_for, observation, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderID, snap.CustomerID, now, snap.Total, boolInt(snap.Delivery && !snap.Pickup),
		snap.DeliveryFee, snap.Address, snap.PaymentMethod, changeFor, snap.Observation, StatusPlaced)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for i, it := range snap.Cart {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, catalog_id, name, quantity, unit_price, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, i, it.CatalogID, it.Name, it.Quantity, it.UnitPrice, it.Note)
		if err != nil {
			return "", fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	var lat, lng any
	if snap.Lat != nil && snap.Lng != nil {
		lat, lng = *snap.Lat, *snap.Lng
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO customers (id, name, address, lat, lng, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = CASE WHEN excluded.name != '' THEN excluded.name ELSE customers.name END,
		   address = CASE WHEN excluded.address != '' THEN excluded.address ELSE customers.address END,
		   lat = COALESCE(excluded.lat, customers.lat),
		   lng = COALESCE(excluded.lng, customers.lng),
		   updated_at = excluded.updated_at`,
		snap.CustomerID, snap.CustomerName, snap.Address, lat, lng, now)
	if err != nil {
		return "", fmt.Errorf("upsert customer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit order: %w", err)
	}
	return orderID, nil
}

// SetStatus updates an order's status.
func (s *Store) SetStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCustomer returns a known customer, or ErrNotFound.
func (s *Store) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var c Customer
	var lat, lng sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, lat, lng FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Address, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	if lat.Valid && lng.Valid {
		c.Lat, c.Lng = &lat.Float64, &lng.Float64
	}
	return c, nil
}

// SavedAddress returns the customer's last confirmed delivery address,
// if one is on file.
func (s *Store) SavedAddress(ctx context.Context, customerID string) (Customer, bool, error) {
	c, err := s.GetCustomer(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, err
	}
	if c.Address == "" {
		return Customer{}, false, nil
	}
	return c, true, nil
}

// OrderCount reports how many orders a customer has placed.
func (s *Store) OrderCount(ctx context.Context, customerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
