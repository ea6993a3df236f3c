package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/messages"
	"github.com/brutusburger/brutabot/internal/orders"
	"github.com/brutusburger/brutabot/internal/pricing"
	"github.com/brutusburger/brutabot/internal/resolver"
	"github.com/brutusburger/brutabot/internal/session"
)

// Errors returned by operator-facing operations.
var (
	ErrNoSession    = errors.New("flow: no session for customer")
	ErrNotFinalized = errors.New("flow: order is not finalized")
)

// dispatchSensitive routes a message to the handler for the current
// sensitive state.
func (m *Machine) dispatchSensitive(ctx context.Context, customerID string, snap session.Session, text, norm string) {
	switch snap.State {
	case session.StateBeverageMenu:
		m.handleBeverageMenu(ctx, customerID, norm)
	case session.StateBeverageQuantity:
		m.handleQuantityAnswer(ctx, customerID, snap, norm)
	case session.StateAdditionalQuantity:
		m.handleAdditionsState(ctx, customerID, snap, norm)
	case session.StateDeliveryOrPickup:
		m.handleDeliveryOrPickup(ctx, customerID, norm)
	case session.StateAddressCollection:
		m.handleAddress(ctx, customerID, snap, text, norm)
	case session.StateOrderConfirmation:
		m.handleObservation(ctx, customerID, text, norm)
	case session.StateNameCollection:
		m.handleName(ctx, customerID, text)
	case session.StatePaymentSelection:
		m.handlePayment(ctx, customerID, snap, norm)
	case session.StateChangeAmount:
		m.handleChange(ctx, customerID, snap, text, norm)
	}
}

// startCheckout begins finalization from a loose state.
func (m *Machine) startCheckout(ctx context.Context, customerID string) {
	snap, ok := m.sessions.Get(customerID)
	if !ok || len(snap.Cart) == 0 {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyCartEmpty))
		return
	}
	if snap.State == session.StateFinalized || snap.State == session.StateOutForDelivery {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAlreadyFinalized))
		return
	}
	m.restoreCustomerName(ctx, customerID)
	if m.pickupEnabled {
		m.sessions.SetState(customerID, session.StateDeliveryOrPickup)
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyDeliveryOrPickup))
		return
	}
	m.beginDelivery(ctx, customerID)
}

// restoreCustomerName carries the name from the customer record into
// the session, so a returning customer is not asked for it again.
func (m *Machine) restoreCustomerName(ctx context.Context, customerID string) {
	snap, _ := m.sessions.Get(customerID)
	if snap.CustomerName != "" {
		return
	}
	cust, err := m.archive.GetCustomer(ctx, customerID)
	if err != nil {
		if !errors.Is(err, orders.ErrNotFound) {
			m.logger.Error("customer lookup failed", "customer", customerID, "error", err)
		}
		return
	}
	if cust.Name == "" {
		return
	}
	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.CustomerName = cust.Name
	})
}

// beginDelivery enters address collection, offering the saved address
// first when the customer has one on file.
func (m *Machine) beginDelivery(ctx context.Context, customerID string) {
	cust, found, err := m.archive.SavedAddress(ctx, customerID)
	if err != nil {
		m.logger.Error("saved address lookup failed", "customer", customerID, "error", err)
		found = false
	}

	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateAddressCollection
		s.Delivery = true
		s.Pickup = false
		s.AwaitingAddressConfirm = false
		s.SavedAddressOffered = found
		if found {
			s.Address = cust.Address
			s.Lat, s.Lng = cust.Lat, cust.Lng
		}
	})

	if found {
		m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeySavedAddress, cust.Address))
		return
	}
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAskAddress))
}

func (m *Machine) handleDeliveryOrPickup(ctx context.Context, customerID, norm string) {
	switch norm {
	case "1", "entrega":
		m.beginDelivery(ctx, customerID)
	case "2", "retirada":
		snap := m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.State = session.StateOrderConfirmation
			s.Pickup = true
			s.Delivery = false
			s.DeliveryFee = 0
		})
		m.reply(ctx, customerID, session.CartView(snap)+"\n\n"+m.msgs.Text(ctx, messages.KeyObservation))
	default:
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyInvalidOption))
	}
}

// handleAddress covers three sub-positions of address collection: the
// saved-address offer, the fresh-quote confirmation, and a new address
// (typed or shared as a location via HandleLocation).
func (m *Machine) handleAddress(ctx context.Context, customerID string, snap session.Session, text, norm string) {
	switch {
	case backTokens[norm]:
		m.sessions.SetState(customerID, session.StateInitial)
		cur, _ := m.sessions.Get(customerID)
		m.reply(ctx, customerID, session.CartView(cur))
		return

	case snap.SavedAddressOffered && affirmatives[norm]:
		quote := m.quoteSaved(ctx, snap)
		m.applyQuote(ctx, customerID, quote, true)
		return

	case snap.AwaitingAddressConfirm && affirmatives[norm]:
		m.proceedAfterAddress(ctx, customerID)
		return

	case (snap.SavedAddressOffered || snap.AwaitingAddressConfirm) && negatives[norm]:
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.SavedAddressOffered = false
			s.AwaitingAddressConfirm = false
			s.Address = ""
			s.Lat, s.Lng = nil, nil
			s.DeliveryFee = 0
			s.DistanceKm = 0
		})
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAskAddress))
		return
	}

	quote := m.quoter.QuoteAddress(ctx, text)
	m.applyQuote(ctx, customerID, quote, false)
}

// quoteSaved prices the saved address, preferring its coordinates over
// a re-geocode of the text.
func (m *Machine) quoteSaved(ctx context.Context, snap session.Session) pricing.Quote {
	if snap.Lat != nil && snap.Lng != nil {
		quote := m.quoter.QuoteCoords(ctx, pricing.Coord{Lat: *snap.Lat, Lng: *snap.Lng})
		quote.Label = snap.Address
		return quote
	}
	return m.quoter.QuoteAddress(ctx, snap.Address)
}

// applyQuote reacts to a pricing quote: not found asks again, out of
// area apologizes, and a priced quote is stored and offered for
// confirmation. savedAccepted is true only when the customer said yes
// to their saved address, which skips the extra confirmation round; a
// new address typed over a pending offer still gets one.
func (m *Machine) applyQuote(ctx context.Context, customerID string, quote pricing.Quote, savedAccepted bool) {
	if !quote.Found {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAddressNotFound))
		return
	}
	if !quote.InArea {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyOutOfArea))
		return
	}

	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		if quote.Label != "" {
			s.Address = quote.Label
		}
		lat, lng := quote.Coord.Lat, quote.Coord.Lng
		s.Lat, s.Lng = &lat, &lng
		s.DeliveryFee = quote.Fee
		s.DistanceKm = quote.DistanceKm
		s.SavedAddressOffered = false
		s.AwaitingAddressConfirm = !savedAccepted
	})

	if savedAccepted {
		m.proceedAfterAddress(ctx, customerID)
		return
	}
	m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyAddressQuote, quote.Label, quote.Fee))
}

// proceedAfterAddress locks the address in and asks for observations.
func (m *Machine) proceedAfterAddress(ctx context.Context, customerID string) {
	snap := m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateOrderConfirmation
		s.AwaitingAddressConfirm = false
		s.SavedAddressOffered = false
	})
	m.reply(ctx, customerID, session.CartView(snap)+"\n\n"+m.msgs.Text(ctx, messages.KeyObservation))
}

func (m *Machine) handleObservation(ctx context.Context, customerID, text, norm string) {
	if !negatives[norm] {
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.Observation = strings.TrimSpace(text)
		})
	}
	m.askNameOrPayment(ctx, customerID)
}

func (m *Machine) handleName(ctx context.Context, customerID, text string) {
	name := strings.TrimSpace(text)
	if name == "" {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAskName))
		return
	}
	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.CustomerName = name
	})
	m.askNameOrPayment(ctx, customerID)
}

// askNameOrPayment moves checkout forward once the address (or pickup)
// is settled: collect the name if unknown, then payment for delivery,
// or straight to finalization for pickup.
func (m *Machine) askNameOrPayment(ctx context.Context, customerID string) {
	snap, _ := m.sessions.Get(customerID)
	if snap.CustomerName == "" {
		m.sessions.SetState(customerID, session.StateNameCollection)
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAskName))
		return
	}
	if snap.Pickup {
		m.finalizeOrder(ctx, customerID)
		return
	}
	m.sessions.SetState(customerID, session.StatePaymentSelection)
	m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyPaymentMenu, snap.Total))
}

func (m *Machine) handlePayment(ctx context.Context, customerID string, snap session.Session, norm string) {
	if backTokens[norm] {
		m.sessions.SetState(customerID, session.StateInitial)
		cur, _ := m.sessions.Get(customerID)
		m.reply(ctx, customerID, session.CartView(cur))
		return
	}
	switch norm {
	case "1", "dinheiro":
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.PaymentMethod = "dinheiro"
			s.State = session.StateChangeAmount
		})
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAskChange))
	case "2", "pix":
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.PaymentMethod = "pix"
		})
		m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyPix, m.pixKey))
		m.finalizeOrder(ctx, customerID)
	case "3", "cartao":
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.PaymentMethod = "cartao"
		})
		m.finalizeOrder(ctx, customerID)
	default:
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyInvalidOption))
	}
}

func (m *Machine) handleChange(ctx context.Context, customerID string, snap session.Session, text, norm string) {
	if negatives[norm] {
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.ChangeFor = nil
		})
		m.finalizeOrder(ctx, customerID)
		return
	}

	value, ok := parseMoney(text)
	if !ok {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyChangeInvalid))
		return
	}
	if value < snap.Total {
		m.sessions.SetState(customerID, session.StatePaymentSelection)
		m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyChangeTooSmall, snap.Total))
		m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyPaymentMenu, snap.Total))
		return
	}

	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.ChangeFor = &value
	})
	m.finalizeOrder(ctx, customerID)
}

// finalizeOrder persists the order exactly once, notifies the operator,
// and parks the session in the finalized state. A persistence failure
// is logged but never blocks the customer: the operator still gets the
// order sheet.
func (m *Machine) finalizeOrder(ctx context.Context, customerID string) {
	snap, _ := m.sessions.Get(customerID)
	if snap.OrderPersisted {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAlreadyFinalized))
		return
	}

	orderID, err := m.archive.PersistOrder(ctx, snap)
	if err != nil {
		m.logger.Error("failed to persist order", "customer", customerID, "error", err)
	}

	final := m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateFinalized
		s.OrderPersisted = err == nil
		s.OrderID = orderID
	})
	m.nudger.Cancel(customerID)

	key := messages.KeyOrderPlaced
	if final.Pickup {
		key = messages.KeyPickupPlaced
	}
	m.reply(ctx, customerID, m.msgs.Text(ctx, key))
	m.notifySupport(ctx, session.AdminSummary(final))
}

// showBeverageMenu lists beverages by number and waits for a pick.
func (m *Machine) showBeverageMenu(ctx context.Context, customerID string) {
	list, err := m.menuByCategory(ctx, catalog.CategoryBeverage)
	if err != nil || len(list) == 0 {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyUnknown))
		return
	}
	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateBeverageMenu
		s.PendingItemID = 0
	})
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyBeverageMenuHeader)+"\n\n"+renderNumbered(list))
}

func (m *Machine) handleBeverageMenu(ctx context.Context, customerID, norm string) {
	if backTokens[norm] {
		m.sessions.SetState(customerID, session.StateInitial)
		cur, _ := m.sessions.Get(customerID)
		m.reply(ctx, customerID, session.CartView(cur))
		return
	}
	item, ok := m.pickFromMenu(ctx, catalog.CategoryBeverage, norm)
	if !ok {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyInvalidOption))
		return
	}
	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateBeverageQuantity
		s.PendingItemID = item.ID
	})
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyBeverageQuantity))
}

// handleQuantityAnswer finishes a beverage pick.
func (m *Machine) handleQuantityAnswer(ctx context.Context, customerID string, snap session.Session, norm string) {
	qty, ok := resolver.ParseQuantity(norm)
	if !ok || qty < 1 {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyInvalidOption))
		return
	}
	item, ok := m.catalog.Item(ctx, snap.PendingItemID)
	if !ok {
		m.sessions.SetState(customerID, session.StateInitial)
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyUnknown))
		return
	}
	m.sessions.AddItem(customerID, session.CartItem{
		CatalogID: item.ID, Name: item.Name, Quantity: qty,
		UnitPrice: item.Price, Category: item.Category,
	})
	after := m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateInitial
		s.PendingItemID = 0
	})
	m.reply(ctx, customerID, session.CartView(after))
}

// showAdditionsMenu lists priced extras; the additions state then reads
// a pick followed by a quantity.
func (m *Machine) showAdditionsMenu(ctx context.Context, customerID string) {
	list, err := m.menuByCategory(ctx, catalog.CategoryAddition)
	if err != nil || len(list) == 0 {
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyUnknown))
		return
	}
	m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
		s.State = session.StateAdditionalQuantity
		s.PendingItemID = 0
	})
	m.reply(ctx, customerID, "*ADICIONAIS:*\nResponda com o número do adicional, ou *v* para voltar.\n\n"+renderNumbered(list))
}

// handleAdditionsState reads the item pick first, then the quantity,
// using PendingItemID to track which answer is expected.
func (m *Machine) handleAdditionsState(ctx context.Context, customerID string, snap session.Session, norm string) {
	if backTokens[norm] {
		m.sessions.SetState(customerID, session.StateInitial)
		cur, _ := m.sessions.Get(customerID)
		m.reply(ctx, customerID, session.CartView(cur))
		return
	}

	if snap.PendingItemID == 0 {
		item, ok := m.pickFromMenu(ctx, catalog.CategoryAddition, norm)
		if !ok {
			m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyInvalidOption))
			return
		}
		m.sessions.Mutate(customerID, session.EventStateChange, func(s *session.Session) {
			s.PendingItemID = item.ID
		})
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAdditionalQuantity))
		return
	}

	m.handleQuantityAnswer(ctx, customerID, snap, norm)
}

func (m *Machine) menuByCategory(ctx context.Context, cat catalog.Category) ([]catalog.Item, error) {
	items, err := m.menu.Items(ctx)
	if err != nil {
		m.logger.Error("menu listing failed", "error", err)
		return nil, err
	}
	var out []catalog.Item
	for _, it := range items {
		if it.Category == cat && it.Available {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Machine) pickFromMenu(ctx context.Context, cat catalog.Category, norm string) (catalog.Item, bool) {
	idx, err := strconv.Atoi(norm)
	if err != nil {
		return catalog.Item{}, false
	}
	list, lerr := m.menuByCategory(ctx, cat)
	if lerr != nil || idx < 1 || idx > len(list) {
		return catalog.Item{}, false
	}
	return list[idx-1], true
}

func renderNumbered(items []catalog.Item) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "*%d* - %s - R$ %.2f\n", i+1, it.Name, it.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseMoney reads a currency amount from free text: "50", "R$ 50,00".
func parseMoney(text string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "r$")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
