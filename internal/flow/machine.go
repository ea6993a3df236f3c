// Package flow is the conversation engine: it receives inbound customer
// messages, runs them through global shortcuts, free-text item
// resolution, and the per-state checkout handlers, and emits replies
// through a narrow transport port.
//
// States split into two groups. Loose states (initial, finalized,
// support, out_for_delivery) accept shortcuts and free-text orders.
// Sensitive states expect a structured answer - a menu number, an
// address, a quantity - and bypass both shortcuts and item resolution
// so a reply like "1" is never misread as an order for item one. The
// only global escape inside a sensitive state is "reiniciar".
package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/followup"
	"github.com/brutusburger/brutabot/internal/messages"
	"github.com/brutusburger/brutabot/internal/orders"
	"github.com/brutusburger/brutabot/internal/pricing"
	"github.com/brutusburger/brutabot/internal/resolver"
	"github.com/brutusburger/brutabot/internal/session"
	"github.com/brutusburger/brutabot/internal/textnorm"
)

// Transport delivers outbound messages to the customer.
type Transport interface {
	Reply(ctx context.Context, customerID, text string) error
	// SendMenu delivers the menu in whatever form the channel supports
	// (images on WhatsApp, a text listing on the CLI).
	SendMenu(ctx context.Context, customerID string) error
}

// Notifier reaches the operator channel. May be nil.
type Notifier interface {
	NotifySupport(ctx context.Context, text string) error
}

// Archive persists finalized orders, satisfied by *orders.Store.
type Archive interface {
	PersistOrder(ctx context.Context, snap session.Session) (string, error)
	SavedAddress(ctx context.Context, customerID string) (orders.Customer, bool, error)
	GetCustomer(ctx context.Context, customerID string) (orders.Customer, error)
	SetStatus(ctx context.Context, orderID, status string) error
}

// MenuSource lists the catalog for numbered menus, satisfied by
// *catalog.Store.
type MenuSource interface {
	Items(ctx context.Context) ([]catalog.Item, error)
}

// Deps are the collaborators a Machine needs.
type Deps struct {
	Sessions  *session.Store
	Resolver  *resolver.Engine
	Catalog   resolver.Catalog
	Menu      MenuSource
	Quoter    *pricing.Quoter
	Archive   Archive
	Messages  *messages.Table
	Transport Transport
	Notifier  Notifier
	Scheduler followup.Scheduler
}

// Machine is the conversation engine for all customers.
type Machine struct {
	sessions  *session.Store
	resolver  *resolver.Engine
	catalog   resolver.Catalog
	menu      MenuSource
	quoter    *pricing.Quoter
	archive   Archive
	msgs      *messages.Table
	transport Transport
	notifier  Notifier
	nudger    *followup.Nudger

	pixKey        string
	pickupEnabled bool
	followupDelay time.Duration
	logger        *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithPixKey sets the pix key quoted to customers.
func WithPixKey(key string) Option {
	return func(m *Machine) { m.pixKey = key }
}

// WithPickup enables the delivery-or-pickup question at checkout.
func WithPickup(enabled bool) Option {
	return func(m *Machine) { m.pickupEnabled = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithFollowupDelay overrides the idle delay before the nudge.
func WithFollowupDelay(d time.Duration) Option {
	return func(m *Machine) { m.followupDelay = d }
}

// New wires a Machine and its follow-up nudger.
func New(deps Deps, opts ...Option) *Machine {
	m := &Machine{
		sessions:      deps.Sessions,
		resolver:      deps.Resolver,
		catalog:       deps.Catalog,
		menu:          deps.Menu,
		quoter:        deps.Quoter,
		archive:       deps.Archive,
		msgs:          deps.Messages,
		transport:     deps.Transport,
		notifier:      deps.Notifier,
		logger:        slog.Default(),
		followupDelay: followup.DefaultDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.nudger = followup.New(deps.Sessions, deps.Scheduler,
		func(customerID string) { m.sendNudge(customerID) },
		followup.WithDelay(m.followupDelay),
		followup.WithLogger(m.logger))
	return m
}

// HandleMessage processes one inbound text message.
func (m *Machine) HandleMessage(ctx context.Context, customerID, text string) {
	snap := m.sessions.RecordInbound(customerID, text)
	defer m.nudger.Touch(customerID)

	norm := textnorm.Normalize(text)
	m.logger.Debug("inbound message", "customer", customerID, "state", snap.State)

	if snap.State.Sensitive() {
		if norm == "reiniciar" {
			m.restart(ctx, customerID)
			return
		}
		m.dispatchSensitive(ctx, customerID, snap, text, norm)
		return
	}

	// "..." re-shows the cart. Raw punctuation, checked before
	// normalization strips it.
	if strings.TrimSpace(text) == "..." {
		m.reply(ctx, customerID, session.CartView(snap))
		return
	}
	if m.handleShortcut(ctx, customerID, snap, norm) {
		return
	}
	m.dispatchLoose(ctx, customerID, snap, text, norm)
}

// HandleLocation processes a shared location. Outside address
// collection a location carries no meaning and is ignored.
func (m *Machine) HandleLocation(ctx context.Context, customerID string, lat, lng float64) {
	snap := m.sessions.RecordInbound(customerID, "[localização]")
	defer m.nudger.Touch(customerID)

	if snap.State != session.StateAddressCollection {
		m.logger.Debug("location outside address collection ignored",
			"customer", customerID, "state", snap.State)
		return
	}
	quote := m.quoter.QuoteCoords(ctx, pricing.Coord{Lat: lat, Lng: lng})
	m.applyQuote(ctx, customerID, quote, false)
}

// MarkOutForDelivery moves a finalized order out the door. Called by the
// operator tooling, not the customer.
func (m *Machine) MarkOutForDelivery(ctx context.Context, customerID string) error {
	snap, ok := m.sessions.Get(customerID)
	if !ok {
		return ErrNoSession
	}
	if snap.State != session.StateFinalized {
		return ErrNotFinalized
	}
	if snap.OrderID != "" {
		if err := m.archive.SetStatus(ctx, snap.OrderID, orders.StatusOutForDelivery); err != nil {
			m.logger.Error("failed to update order status", "order", snap.OrderID, "error", err)
		}
	}
	m.sessions.SetState(customerID, session.StateOutForDelivery)
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyOutForDelivery))
	return nil
}

// handleShortcut processes global commands available in loose states.
// Returns true when the message was consumed.
func (m *Machine) handleShortcut(ctx context.Context, customerID string, snap session.Session, norm string) bool {
	switch norm {
	case "c", "cancelar":
		if len(snap.Cart) == 0 {
			m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyCartEmpty))
			return true
		}
		after := m.sessions.RemoveLast(customerID)
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyCanceled)+"\n\n"+session.CartView(after))
	case "b", "bebida", "bebidas":
		m.showBeverageMenu(ctx, customerID)
	case "adicional", "adicionais":
		m.showAdditionsMenu(ctx, customerID)
	case "reiniciar", "novo", "pedir":
		m.restart(ctx, customerID)
	case "pix", "chave":
		m.reply(ctx, customerID, m.msgs.Textf(ctx, messages.KeyPix, m.pixKey))
	case "cardapio", "menu":
		if err := m.transport.SendMenu(ctx, customerID); err != nil {
			m.logger.Error("failed to send menu", "customer", customerID, "error", err)
		}
	case "ajuda", "help", "atendente":
		m.enterSupport(ctx, customerID)
	case "comandos":
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyHelp))
	case "f", "finalizar":
		m.startCheckout(ctx, customerID)
	default:
		return false
	}
	return true
}

// dispatchLoose handles free text in the loose states.
func (m *Machine) dispatchLoose(ctx context.Context, customerID string, snap session.Session, text, norm string) {
	switch snap.State {
	case session.StateInitial:
		if greetings[norm] {
			m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyGreeting))
			return
		}
		adds := m.resolver.ResolveText(ctx, text)
		if len(adds) == 0 {
			m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyUnknown))
			return
		}
		var after session.Session
		for _, add := range adds {
			after = m.sessions.AddItem(customerID, cartItemFromAdd(add))
		}
		m.reply(ctx, customerID, session.CartView(after)+"\n\nDigite *f* para finalizar ou continue pedindo!")
	case session.StateFinalized:
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyAlreadyFinalized))
	case session.StateOutForDelivery:
		m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyOutForDelivery))
	case session.StateSupport:
		// A human owns this conversation now; stay quiet.
	}
}

func (m *Machine) enterSupport(ctx context.Context, customerID string) {
	m.sessions.SetState(customerID, session.StateSupport)
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeySupport))
	m.notifySupport(ctx, "Cliente "+customerID+" pediu atendimento humano.")
}

func (m *Machine) restart(ctx context.Context, customerID string) {
	m.sessions.Reset(customerID)
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyRestarted))
}

func (m *Machine) sendNudge(customerID string) {
	ctx := context.Background()
	m.reply(ctx, customerID, m.msgs.Text(ctx, messages.KeyFollowup))
}

func (m *Machine) reply(ctx context.Context, customerID, text string) {
	if err := m.transport.Reply(ctx, customerID, text); err != nil {
		m.logger.Error("failed to deliver reply", "customer", customerID, "error", err)
		return
	}
	m.sessions.RecordOutbound(customerID, text)
}

func (m *Machine) notifySupport(ctx context.Context, text string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifySupport(ctx, text); err != nil {
		m.logger.Error("failed to notify operator", "error", err)
	}
}

func cartItemFromAdd(add resolver.Add) session.CartItem {
	return session.CartItem{
		CatalogID: add.Item.ID,
		Name:      add.Item.Name,
		Quantity:  add.Quantity,
		UnitPrice: add.Item.Price,
		Category:  add.Item.Category,
		Note:      add.Note,
	}
}

// Token sets shared by the handlers. Messages arrive normalized, so no
// accented forms appear here.
var (
	affirmatives = map[string]bool{
		"s": true, "sim": true, "a": true, "isso": true, "correto": true, "ok": true,
	}
	negatives = map[string]bool{
		"n": true, "nao": true, "nn": true,
	}
	backTokens = map[string]bool{
		"v": true, "volta": true, "voltar": true, "retornar": true,
	}
	greetings = map[string]bool{
		"oi": true, "ola": true, "opa": true, "eai": true,
		"bom dia": true, "boa tarde": true, "boa noite": true,
	}
)
