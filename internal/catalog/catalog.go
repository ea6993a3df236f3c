// Package catalog holds the menu: priced items and the normalized trigger
// phrases that map customer text onto them.
//
// The durable copy lives in SQLite (see Store). The resolver never talks
// to SQLite directly - it goes through Cache, a read-through snapshot of
// the trigger table that refreshes on a short TTL so menu edits show up
// without a restart.
package catalog

import "errors"

// Category classifies items for cart grouping and resolution rules.
// Beverages get a dedicated matching pass; additions are priced extras
// that appear as their own cart lines.
type Category string

const (
	CategoryFood     Category = "food"
	CategoryBeverage Category = "beverage"
	CategorySide     Category = "side"
	CategoryAddition Category = "addition"
)

// Item is a sellable menu entry.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Category    Category
	Available   bool
}

// ErrNotFound is returned when an item or trigger does not exist.
var ErrNotFound = errors.New("catalog: not found")
