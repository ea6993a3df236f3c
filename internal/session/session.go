// Package session holds per-customer conversation state: the checkout
// state machine position, the cart, collected delivery details, and the
// message history. A Store owns every session and is the only way to
// mutate one; each mutation publishes a typed event on a synchronous
// in-process bus so dashboards and the follow-up scheduler observe
// changes in mutation order.
package session

import (
	"math"
	"time"

	"github.com/brutusburger/brutabot/internal/catalog"
)

// State is the checkout state machine position for one customer.
type State string

const (
	StateInitial            State = "initial"
	StateBeverageMenu       State = "beverage_menu"
	StateBeverageQuantity   State = "beverage_quantity"
	StateDeliveryOrPickup   State = "delivery_or_pickup"
	StateAddressCollection  State = "address_collection"
	StateAdditionalQuantity State = "additional_quantity"
	StateNameCollection     State = "name_collection"
	StateOrderConfirmation  State = "order_confirmation"
	StatePaymentSelection   State = "payment_selection"
	StateChangeAmount       State = "change_amount"
	StateFinalized          State = "finalized"
	StateSupport            State = "support"
	StateOutForDelivery     State = "out_for_delivery"
)

// Terminal reports whether the conversation has left the ordering flow.
// Terminal states suppress follow-up nudges.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateSupport || s == StateOutForDelivery
}

// Sensitive reports whether the state expects a structured answer
// (a menu number, an address, a quantity). Free-text item resolution and
// global shortcuts are bypassed in sensitive states so an answer like
// "1" is never misread as an order.
func (s State) Sensitive() bool {
	switch s {
	case StateBeverageMenu, StateBeverageQuantity, StateDeliveryOrPickup,
		StateAddressCollection, StateAdditionalQuantity, StateNameCollection,
		StateOrderConfirmation, StatePaymentSelection, StateChangeAmount:
		return true
	}
	return false
}

// CartItem is one line of the cart. Additions appear as their own lines;
// preparation notes ("sem cebola") ride on the line they modify.
type CartItem struct {
	CatalogID int64
	Name      string
	Quantity  int
	UnitPrice float64
	Category  catalog.Category
	Note      string
}

// LineTotal is the quantity-weighted price for this line.
func (c CartItem) LineTotal() float64 {
	return round2(float64(c.Quantity) * c.UnitPrice)
}

// Direction tags a message record as inbound or outbound.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// MessageRecord is one exchanged message, kept for the operator view.
type MessageRecord struct {
	Direction Direction
	Text      string
	At        time.Time
}

// FollowupHandle cancels a pending follow-up nudge. Declared here so the
// scheduler can park its handle on the session without this package
// depending on it.
type FollowupHandle interface {
	Cancel()
}

// Session is the full conversation state for one customer.
//
// A Session value obtained from Store.Get or an Event is a snapshot:
// the cart and history slices are copies and the follow-up handle is
// stripped. Mutations go through Store.Mutate.
type Session struct {
	CustomerID string
	State      State
	Cart       []CartItem
	Total      float64

	// Delivery details.
	Delivery    bool
	Pickup      bool
	Address     string
	Lat, Lng    *float64
	DeliveryFee float64
	DistanceKm  float64

	// Address collection sub-positions: a saved address was offered for
	// reuse, or a freshly quoted address awaits a yes/no.
	SavedAddressOffered    bool
	AwaitingAddressConfirm bool

	// Checkout details.
	PaymentMethod string
	ChangeFor     *float64
	Observation   string
	CustomerName  string

	// Order persistence is idempotent per session: once set, finalize
	// paths skip the write and reuse OrderID.
	OrderPersisted bool
	OrderID        string

	// PendingItemID carries the item awaiting a quantity answer while in
	// beverage_quantity or additional_quantity.
	PendingItemID int64

	FollowupSent bool
	Followup     FollowupHandle

	History   []MessageRecord
	StartedAt time.Time
	UpdatedAt time.Time
}

// CartCount returns the number of units across all cart lines.
func (s *Session) CartCount() int {
	n := 0
	for _, it := range s.Cart {
		n += it.Quantity
	}
	return n
}

// ItemsTotal sums the cart lines without the delivery fee.
func (s *Session) ItemsTotal() float64 {
	sum := 0.0
	for _, it := range s.Cart {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return round2(sum)
}

// snapshot returns a deep copy safe to hand to subscribers. The
// follow-up handle never leaves the store.
func (s *Session) snapshot() Session {
	out := *s
	out.Followup = nil
	out.Cart = append([]CartItem(nil), s.Cart...)
	out.History = append([]MessageRecord(nil), s.History...)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
