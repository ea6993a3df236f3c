package session

import (
	"fmt"
	"strings"

	"github.com/brutusburger/brutabot/internal/catalog"
)

var viewSections = []struct {
	category catalog.Category
	header   string
}{
	{catalog.CategoryFood, "*LANCHES:*"},
	{catalog.CategorySide, "*ACOMPANHAMENTOS:*"},
	{catalog.CategoryBeverage, "*BEBIDAS:*"},
	{catalog.CategoryAddition, "*ADICIONAIS:*"},
}

// CartView renders the customer-facing cart summary, grouped by
// category. Empty carts get a short notice instead of an empty list.
func CartView(s Session) string {
	if len(s.Cart) == 0 {
		return "*SEU CARRINHO ESTÁ VAZIO.*"
	}

	var b strings.Builder
	b.WriteString("*SEU PEDIDO:*\n")
	for _, sec := range viewSections {
		var lines []string
		for _, it := range s.Cart {
			if it.Category != sec.category {
				continue
			}
			line := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
			if it.Note != "" {
				line += fmt.Sprintf(" (%s)", it.Note)
			}
			line += fmt.Sprintf(" - R$ %.2f", it.LineTotal())
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n" + sec.header + "\n")
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}

	if s.Delivery && s.DeliveryFee > 0 {
		fmt.Fprintf(&b, "\n*ENTREGA:* R$ %.2f\n", s.DeliveryFee)
	}
	fmt.Fprintf(&b, "\n*TOTAL: R$ %.2f*", s.Total)
	return b.String()
}

// AdminSummary renders the operator-facing order sheet: who ordered
// what, where it goes, and how it gets paid.
func AdminSummary(s Session) string {
	var b strings.Builder
	b.WriteString("*NOVO PEDIDO*\n")
	if s.CustomerName != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", s.CustomerName)
	}
	fmt.Fprintf(&b, "Contato: %s\n", s.CustomerID)

	b.WriteString("\nItens:\n")
	for _, it := range s.Cart {
		line := fmt.Sprintf("- %dx %s", it.Quantity, it.Name)
		if it.Note != "" {
			line += fmt.Sprintf(" (%s)", it.Note)
		}
		line += fmt.Sprintf(" R$ %.2f", it.LineTotal())
		b.WriteString(line + "\n")
	}

	if s.Pickup {
		b.WriteString("\nRetirada no balcão\n")
	} else if s.Delivery {
		fmt.Fprintf(&b, "\nEntrega: %s\n", s.Address)
		if s.DeliveryFee > 0 {
			fmt.Fprintf(&b, "Taxa: R$ %.2f (%.1f km)\n", s.DeliveryFee, s.DistanceKm)
		}
	}

	if s.PaymentMethod != "" {
		fmt.Fprintf(&b, "Pagamento: %s\n", s.PaymentMethod)
		if s.ChangeFor != nil {
			fmt.Fprintf(&b, "Troco para: R$ %.2f\n", *s.ChangeFor)
		}
	}
	if s.Observation != "" {
		fmt.Fprintf(&b, "Observação: %s\n", s.Observation)
	}
	fmt.Fprintf(&b, "\n*TOTAL: R$ %.2f*", s.Total)
	return b.String()
}
