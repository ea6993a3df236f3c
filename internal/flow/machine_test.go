package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/followup"
	"github.com/brutusburger/brutabot/internal/messages"
	"github.com/brutusburger/brutabot/internal/orders"
	"github.com/brutusburger/brutabot/internal/pricing"
	"github.com/brutusburger/brutabot/internal/resolver"
	"github.com/brutusburger/brutabot/internal/session"
)

type recordingTransport struct {
	replies   []string
	menuSends int
}

func (r *recordingTransport) Reply(ctx context.Context, customerID, text string) error {
	r.replies = append(r.replies, text)
	return nil
}

func (r *recordingTransport) SendMenu(ctx context.Context, customerID string) error {
	r.menuSends++
	return nil
}

func (r *recordingTransport) last() string {
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

type recordingNotifier struct {
	notes []string
}

func (r *recordingNotifier) NotifySupport(ctx context.Context, text string) error {
	r.notes = append(r.notes, text)
	return nil
}

type stubGeocoder struct {
	label string
}

func (s *stubGeocoder) Search(ctx context.Context, query string) (pricing.Place, error) {
	if strings.Contains(query, "lugar nenhum") {
		return pricing.Place{}, pricing.ErrNoResult
	}
	return pricing.Place{Coord: pricing.Coord{Lat: -25.2, Lng: -50.6}, Label: s.label}, nil
}

func (s *stubGeocoder) Reverse(ctx context.Context, c pricing.Coord) (string, error) {
	return s.label, nil
}

type stubRouter struct {
	distanceKm float64
}

func (s *stubRouter) DistanceKm(ctx context.Context, from, to pricing.Coord) (float64, error) {
	return s.distanceKm, nil
}

type fixture struct {
	machine   *Machine
	sessions  *session.Store
	archive   *orders.Store
	transport *recordingTransport
	notifier  *recordingNotifier
	sched     *followup.ManualScheduler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	seed := []struct {
		item     catalog.Item
		triggers []string
	}{
		{catalog.Item{Name: "Dallas", Price: 22, Category: catalog.CategoryFood, Available: true}, []string{"dallas"}},
		{catalog.Item{Name: "Coca Lata", Price: 6, Category: catalog.CategoryBeverage, Available: true}, []string{"coca lata", "coca"}},
		{catalog.Item{Name: "Guaraná Lata", Price: 6, Category: catalog.CategoryBeverage, Available: true}, []string{"guarana lata", "guarana"}},
		{catalog.Item{Name: "Adicional Bacon", Price: 4, Category: catalog.CategoryAddition, Available: true}, []string{"adicional bacon"}},
	}
	for _, s := range seed {
		id, err := cat.AddItem(ctx, s.item)
		require.NoError(t, err)
		for _, trig := range s.triggers {
			require.NoError(t, cat.AddTrigger(ctx, trig, id))
		}
	}

	archive, err := orders.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })

	sessions := session.NewStore()
	cache := catalog.NewCache(cat)
	transport := &recordingTransport{}
	notifier := &recordingNotifier{}
	sched := followup.NewManualScheduler()

	quoter := pricing.NewQuoter(
		&stubRouter{distanceKm: 5},
		&stubGeocoder{label: "Rua das Flores, 100, Imbituva - PR"},
		pricing.Coord{Lat: -25.23, Lng: -50.6},
		pricing.WithGeoPolicy(pricing.GeoPolicy{AreaToken: "imbituva", FailOpen: true}))

	m := New(Deps{
		Sessions:  sessions,
		Resolver:  resolver.New(cache),
		Catalog:   cache,
		Menu:      cat,
		Quoter:    quoter,
		Archive:   archive,
		Messages:  messages.NewTable(),
		Transport: transport,
		Notifier:  notifier,
		Scheduler: sched,
	}, append([]Option{WithPixKey("brutus@pix.com")}, opts...)...)

	return &fixture{
		machine:   m,
		sessions:  sessions,
		archive:   archive,
		transport: transport,
		notifier:  notifier,
		sched:     sched,
	}
}

func (f *fixture) say(t *testing.T, text string) string {
	t.Helper()
	f.machine.HandleMessage(context.Background(), "c1", text)
	return f.transport.last()
}

func (f *fixture) state(t *testing.T) session.State {
	t.Helper()
	snap, ok := f.sessions.Get("c1")
	require.True(t, ok)
	return snap.State
}

func TestGreeting(t *testing.T) {
	f := newFixture(t)
	reply := f.say(t, "oi")
	assert.Contains(t, reply, "Brutus Burger")
}

func TestFreeTextOrderAddsToCart(t *testing.T) {
	f := newFixture(t)
	reply := f.say(t, "1 dallas e 2 coca lata")
	assert.Contains(t, reply, "1x Dallas")
	assert.Contains(t, reply, "2x Coca Lata")
	assert.Contains(t, reply, "*TOTAL: R$ 34.00*")
}

func TestUnknownMessage(t *testing.T) {
	f := newFixture(t)
	reply := f.say(t, "xyzzy plugh")
	assert.Contains(t, reply, "não entendi")
}

func TestFullDeliveryCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say(t, "1 dallas")
	f.say(t, "f")
	assert.Equal(t, session.StateAddressCollection, f.state(t))

	reply := f.say(t, "rua das flores 100")
	assert.Contains(t, reply, "Rua das Flores, 100, Imbituva - PR")
	assert.Contains(t, reply, "R$ 9.00", "5 km route prices at 9")

	f.say(t, "s")
	assert.Equal(t, session.StateOrderConfirmation, f.state(t))

	f.say(t, "n") // no observation
	assert.Equal(t, session.StateNameCollection, f.state(t))

	reply = f.say(t, "Ana")
	assert.Equal(t, session.StatePaymentSelection, f.state(t))
	assert.Contains(t, reply, "R$ 31.00", "22 + 9 delivery")

	f.say(t, "1") // dinheiro
	assert.Equal(t, session.StateChangeAmount, f.state(t))

	reply = f.say(t, "50")
	assert.Contains(t, reply, "PEDIDO ANOTADO")
	assert.Equal(t, session.StateFinalized, f.state(t))

	n, err := f.archive.OrderCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NotEmpty(t, f.notifier.notes)
	summary := f.notifier.notes[len(f.notifier.notes)-1]
	assert.Contains(t, summary, "NOVO PEDIDO")
	assert.Contains(t, summary, "Cliente: Ana")
	assert.Contains(t, summary, "Troco para: R$ 50.00")
}

func TestPixPaymentFinalizesWithKey(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "2") // pix

	joined := strings.Join(f.transport.replies, "\n")
	assert.Contains(t, joined, "brutus@pix.com")
	assert.Equal(t, session.StateFinalized, f.state(t))
}

func TestChangeBelowTotalReturnsToPayment(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "1")

	f.say(t, "10") // total is 31
	assert.Equal(t, session.StatePaymentSelection, f.state(t))

	// No change needed finishes from a second attempt.
	f.say(t, "1")
	f.say(t, "n")
	assert.Equal(t, session.StateFinalized, f.state(t))
}

func TestZeroChangeAmountRejected(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "1")
	require.Equal(t, session.StateChangeAmount, f.state(t))

	reply := f.say(t, "0")
	assert.Contains(t, reply, "Não entendi")
	assert.Equal(t, session.StateChangeAmount, f.state(t))

	reply = f.say(t, "R$ 0,00")
	assert.Contains(t, reply, "Não entendi")
	assert.Equal(t, session.StateChangeAmount, f.state(t))
}

func TestPickupSkipsAddressAndPayment(t *testing.T) {
	f := newFixture(t, WithPickup(true))

	f.say(t, "1 dallas")
	reply := f.say(t, "f")
	assert.Equal(t, session.StateDeliveryOrPickup, f.state(t))
	assert.Contains(t, reply, "Retirada")

	f.say(t, "2")
	assert.Equal(t, session.StateOrderConfirmation, f.state(t))

	f.say(t, "n")
	reply = f.say(t, "Ana")
	assert.Contains(t, reply, "PEDIDO ANOTADO")
	assert.Equal(t, session.StateFinalized, f.state(t))

	snap, _ := f.sessions.Get("c1")
	assert.True(t, snap.Pickup)
	assert.Equal(t, 22.0, snap.Total, "no delivery fee on pickup")
}

func TestSavedAddressShortCircuit(t *testing.T) {
	f := newFixture(t)

	// First order establishes the saved address.
	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")
	require.Equal(t, session.StateFinalized, f.state(t))

	// Second order is offered the saved address.
	f.say(t, "reiniciar")
	f.say(t, "1 dallas")
	reply := f.say(t, "f")
	assert.Contains(t, reply, "mesmo endereço")
	assert.Contains(t, reply, "Rua das Flores")

	f.say(t, "s")
	assert.Equal(t, session.StateOrderConfirmation, f.state(t), "accepted saved address skips the quote confirmation")
}

func TestSavedAddressDeclined(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")

	f.say(t, "reiniciar")
	f.say(t, "1 dallas")
	f.say(t, "f")
	reply := f.say(t, "n")
	assert.Contains(t, reply, "endereço", "declining asks for a fresh address")
	assert.Equal(t, session.StateAddressCollection, f.state(t))
}

func TestNewAddressOverSavedOfferStillConfirms(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")
	require.Equal(t, session.StateFinalized, f.state(t))

	// Typing a different address over the saved-address offer is a
	// fresh quote, not an acceptance: it still needs a yes.
	f.say(t, "reiniciar")
	f.say(t, "1 dallas")
	reply := f.say(t, "f")
	require.Contains(t, reply, "mesmo endereço")

	f.say(t, "rua nova 200")
	assert.Equal(t, session.StateAddressCollection, f.state(t))
	snap, _ := f.sessions.Get("c1")
	assert.True(t, snap.AwaitingAddressConfirm)

	f.say(t, "s")
	assert.Equal(t, session.StateOrderConfirmation, f.state(t))
}

func TestBackFromPaymentReturnsToCart(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	require.Equal(t, session.StatePaymentSelection, f.state(t))

	reply := f.say(t, "voltar")
	assert.Contains(t, reply, "Dallas", "back re-shows the cart")
	assert.Equal(t, session.StateInitial, f.state(t))
}

func TestReturningCustomerSkipsNameQuestion(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")
	require.Equal(t, session.StateFinalized, f.state(t))

	f.say(t, "reiniciar")
	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "s") // saved address
	require.Equal(t, session.StateOrderConfirmation, f.state(t))

	reply := f.say(t, "n")
	assert.Equal(t, session.StatePaymentSelection, f.state(t), "name on file goes straight to payment")
	assert.Contains(t, reply, "VALOR TOTAL")

	snap, _ := f.sessions.Get("c1")
	assert.Equal(t, "Ana", snap.CustomerName)
}

func TestReturningCustomerPickupKeepsName(t *testing.T) {
	f := newFixture(t, WithPickup(true))

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "2")
	f.say(t, "n")
	f.say(t, "Ana")
	require.Equal(t, session.StateFinalized, f.state(t))

	f.say(t, "reiniciar")
	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "2")
	reply := f.say(t, "n")
	assert.Contains(t, reply, "PEDIDO ANOTADO", "pickup with a known name finalizes without asking")
	assert.Equal(t, session.StateFinalized, f.state(t))
}

func TestAddressNotFound(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")
	f.say(t, "f")
	reply := f.say(t, "lugar nenhum")
	assert.Contains(t, reply, "Não encontrei")
	assert.Equal(t, session.StateAddressCollection, f.state(t))
}

func TestLocationMessageQuotes(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")
	f.say(t, "f")

	f.machine.HandleLocation(context.Background(), "c1", -25.2, -50.6)
	reply := f.transport.last()
	assert.Contains(t, reply, "R$ 9.00")

	snap, _ := f.sessions.Get("c1")
	assert.True(t, snap.AwaitingAddressConfirm)
}

func TestSensitiveStateIgnoresItemTriggers(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")
	f.say(t, "f")

	// In address collection, "dallas" is an address attempt, not an
	// order for another burger.
	f.say(t, "dallas")
	snap, _ := f.sessions.Get("c1")
	assert.Len(t, snap.Cart, 1)
}

func TestCancelRemovesLastLine(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")
	f.say(t, "2 coca lata")

	reply := f.say(t, "c")
	assert.Contains(t, reply, "removido")

	snap, _ := f.sessions.Get("c1")
	require.Len(t, snap.Cart, 1)
	assert.Equal(t, "Dallas", snap.Cart[0].Name)
}

func TestEllipsisShowsCart(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")

	reply := f.say(t, "...")
	assert.Contains(t, reply, "Dallas")
	assert.Equal(t, session.StateInitial, f.state(t))
}

func TestSupportHandoff(t *testing.T) {
	f := newFixture(t)

	reply := f.say(t, "ajuda")
	assert.Contains(t, reply, "atendente")
	assert.Equal(t, session.StateSupport, f.state(t))
	require.Len(t, f.notifier.notes, 1)

	// The bot stays quiet while a human owns the conversation.
	before := len(f.transport.replies)
	f.say(t, "meu pedido veio errado")
	assert.Len(t, f.transport.replies, before)
}

func TestRestartInsideSensitiveState(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")
	f.say(t, "f")
	require.Equal(t, session.StateAddressCollection, f.state(t))

	f.say(t, "reiniciar")
	assert.Equal(t, session.StateInitial, f.state(t))
	snap, _ := f.sessions.Get("c1")
	assert.Empty(t, snap.Cart)
}

func TestBeverageMenuFlow(t *testing.T) {
	f := newFixture(t)

	reply := f.say(t, "b")
	assert.Contains(t, reply, "*1* - Coca Lata")
	assert.Contains(t, reply, "*2* - Guaraná Lata")
	assert.Equal(t, session.StateBeverageMenu, f.state(t))

	reply = f.say(t, "2")
	assert.Contains(t, reply, "unidades")
	assert.Equal(t, session.StateBeverageQuantity, f.state(t))

	reply = f.say(t, "3")
	assert.Contains(t, reply, "3x Guaraná Lata")
	assert.Equal(t, session.StateInitial, f.state(t))
}

func TestAdditionsMenuFlow(t *testing.T) {
	f := newFixture(t)
	f.say(t, "1 dallas")

	reply := f.say(t, "adicionais")
	assert.Contains(t, reply, "*1* - Adicional Bacon")

	f.say(t, "1")
	reply = f.say(t, "2")
	assert.Contains(t, reply, "2x Adicional Bacon")
	assert.Equal(t, session.StateInitial, f.state(t))
}

func TestFinalizeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")
	require.Equal(t, session.StateFinalized, f.state(t))

	reply := f.say(t, "f")
	assert.Contains(t, reply, "já está na fila")

	n, err := f.archive.OrderCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only one order row per session")
}

func TestMarkOutForDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.machine.MarkOutForDelivery(ctx, "c1"), ErrNoSession)

	f.say(t, "1 dallas")
	assert.ErrorIs(t, f.machine.MarkOutForDelivery(ctx, "c1"), ErrNotFinalized)

	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")

	require.NoError(t, f.machine.MarkOutForDelivery(ctx, "c1"))
	assert.Equal(t, session.StateOutForDelivery, f.state(t))
	assert.Contains(t, f.transport.last(), "saiu para entrega")
}

func TestFollowupNudge(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	assert.Equal(t, 1, f.sched.PendingCount())

	f.sched.Fire()
	assert.Contains(t, f.transport.last(), "finalizar")

	// One nudge per session.
	f.say(t, "oi")
	assert.Zero(t, f.sched.PendingCount())
}

func TestFollowupCanceledOnFinalize(t *testing.T) {
	f := newFixture(t)

	f.say(t, "1 dallas")
	f.say(t, "f")
	f.say(t, "rua das flores 100")
	f.say(t, "s")
	f.say(t, "n")
	f.say(t, "Ana")
	f.say(t, "3")
	require.Equal(t, session.StateFinalized, f.state(t))

	before := len(f.transport.replies)
	f.sched.Fire()
	assert.Len(t, f.transport.replies, before, "no nudge after finalization")
}

func TestEmptyCartCheckout(t *testing.T) {
	f := newFixture(t)
	reply := f.say(t, "f")
	assert.Contains(t, reply, "vazio")
}

func TestMenuShortcut(t *testing.T) {
	f := newFixture(t)
	f.say(t, "cardapio")
	assert.Equal(t, 1, f.transport.menuSends)
}
