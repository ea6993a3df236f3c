package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/brutusburger/brutabot/internal/catalog"
	"github.com/brutusburger/brutabot/internal/flow"
	"github.com/brutusburger/brutabot/internal/followup"
	"github.com/brutusburger/brutabot/internal/messages"
	"github.com/brutusburger/brutabot/internal/orders"
	"github.com/brutusburger/brutabot/internal/pricing"
	"github.com/brutusburger/brutabot/internal/resolver"
	"github.com/brutusburger/brutabot/internal/session"
)

// customerID used for every scripted conversation.
const customerID = "scenario-customer"

// scriptTransport captures outbound messages in order.
type scriptTransport struct {
	replies []string
}

func (s *scriptTransport) Reply(ctx context.Context, customerID, text string) error {
	s.replies = append(s.replies, text)
	return nil
}

func (s *scriptTransport) SendMenu(ctx context.Context, customerID string) error {
	s.replies = append(s.replies, "[cardápio]")
	return nil
}

type scriptGeocoder struct{}

func (scriptGeocoder) Search(ctx context.Context, query string) (pricing.Place, error) {
	if strings.Contains(query, "lugar nenhum") {
		return pricing.Place{}, pricing.ErrNoResult
	}
	return pricing.Place{
		Coord: pricing.Coord{Lat: -25.2, Lng: -50.6},
		Label: "Rua das Flores, 100, Imbituva - PR",
	}, nil
}

func (scriptGeocoder) Reverse(ctx context.Context, c pricing.Coord) (string, error) {
	return "Rua das Flores, 100, Imbituva - PR", nil
}

type scriptRouter struct{}

func (scriptRouter) DistanceKm(ctx context.Context, from, to pricing.Coord) (float64, error) {
	return 5, nil
}

// menu seeded into every scenario run.
var scenarioMenu = []struct {
	item     catalog.Item
	triggers []string
}{
	{catalog.Item{Name: "Dallas", Price: 22, Category: catalog.CategoryFood, Available: true}, []string{"dallas"}},
	{catalog.Item{Name: "Coca Lata", Price: 6, Category: catalog.CategoryBeverage, Available: true}, []string{"coca lata", "coca"}},
	{catalog.Item{Name: "Adicional Bacon", Price: 4, Category: catalog.CategoryAddition, Available: true}, []string{"adicional bacon"}},
}

// Run replays a scenario against a freshly wired machine and returns
// the transcript. Each step prints the customer's action, the first
// line of every reply it triggered, and the session position after the
// step.
func Run(scenario *Scenario) (string, error) {
	ctx := context.Background()

	cat, err := catalog.Open(":memory:")
	if err != nil {
		return "", fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()
	for _, entry := range scenarioMenu {
		id, err := cat.AddItem(ctx, entry.item)
		if err != nil {
			return "", fmt.Errorf("seed item: %w", err)
		}
		for _, trig := range entry.triggers {
			if err := cat.AddTrigger(ctx, trig, id); err != nil {
				return "", fmt.Errorf("seed trigger: %w", err)
			}
		}
	}

	archive, err := orders.Open(":memory:")
	if err != nil {
		return "", fmt.Errorf("open orders: %w", err)
	}
	defer archive.Close()

	sessions := session.NewStore()
	cache := catalog.NewCache(cat)
	transport := &scriptTransport{}
	sched := followup.NewManualScheduler()

	quoter := pricing.NewQuoter(scriptRouter{}, scriptGeocoder{},
		pricing.Coord{Lat: -25.23, Lng: -50.6},
		pricing.WithGeoPolicy(pricing.GeoPolicy{AreaToken: "imbituva", FailOpen: true}))

	machine := flow.New(flow.Deps{
		Sessions:  sessions,
		Resolver:  resolver.New(cache),
		Catalog:   cache,
		Menu:      cat,
		Quoter:    quoter,
		Archive:   archive,
		Messages:  messages.NewTable(),
		Transport: transport,
		Scheduler: sched,
	}, flow.WithPixKey("brutus@pix.com"), flow.WithPickup(scenario.Pickup))

	var b strings.Builder
	seen := 0
	for _, step := range scenario.Steps {
		switch {
		case step.Location != nil:
			fmt.Fprintf(&b, "> [location %.4f,%.4f]\n", step.Location.Lat, step.Location.Lng)
			machine.HandleLocation(ctx, customerID, step.Location.Lat, step.Location.Lng)
		case step.FireFollowup:
			b.WriteString("! followup fires\n")
			sched.Fire()
		default:
			fmt.Fprintf(&b, "> %s\n", step.Send)
			machine.HandleMessage(ctx, customerID, step.Send)
		}

		for ; seen < len(transport.replies); seen++ {
			fmt.Fprintf(&b, "< %s\n", firstLine(transport.replies[seen]))
		}
		if snap, ok := sessions.Get(customerID); ok {
			fmt.Fprintf(&b, "  state=%s cart=%d total=%.2f\n", snap.State, len(snap.Cart), snap.Total)
		}
	}
	return b.String(), nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
