package terminal

import (
	"fmt"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	cartTitleCells = 50
	maxCardWidth   = 64
)

func renderCard(item domain.StructuralItem, s styles, width int) string {
	var body string
	switch item.Kind {
	case domain.ItemKindProduct:
		body = productCard(*item.Product, s)
	case domain.ItemKindCart:
		body = cartCard(*item.Cart, s)
	case domain.ItemKindOrder:
		body = orderCard(*item.Order, s)
	default:
		return ""
	}

	return s.card.Width(cardWidth(width)).Render(body)
}

func cardWidth(width int) int {
	// lipgloss widths exclude the border.
	if width <= 0 || width-2 > maxCardWidth {
		return maxCardWidth
	}
	return max(width-2, 8)
}

func productCard(p domain.Product, s styles) string {
	lines := []string{s.cardTitle.Render(p.Title.String())}
	if summary := p.Summary(); summary != p.Title.String() {
		lines = append(lines, s.faint.Render(summary))
	}
	if price := p.Price.String(); price != "" {
		lines = append(lines, s.price.Render(price))
	}
	if link := p.Link.String(); link != "" {
		lines = append(lines, s.link.Render(link))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func cartCard(c domain.Cart, s styles) string {
	lines := []string{s.cardHeader.Render("🛒 Here's your cart:")}
	if len(c.LineItems) == 0 {
		lines = append(lines, "Your cart is empty.")
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, line := range c.LineItems {
		lines = append(lines, fmt.Sprintf("%s  %s",
			s.cardTitle.Render(truncateCells(line.DisplayTitle(), cartTitleCells)),
			s.price.Render(fmt.Sprintf("%s × %d", line.DisplayPrice(), line.Qty())),
		))
	}
	lines = append(lines, s.label.Render("Subtotal:")+" "+c.DisplaySubtotal())
	if checkout := c.CheckoutURL.String(); checkout != "" {
		lines = append(lines,
			s.label.Render("Proceed to Checkout — "+c.Subtotal.String()),
			s.link.Render(checkout),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func orderCard(o domain.Order, s styles) string {
	row := func(label, value string) string {
		return s.label.Render(label+":") + " " + value
	}

	lines := []string{
		s.cardHeader.Render("📦 Your Order Summary"),
		row("Order ID", o.OrderID.Or(domain.MissingField)),
		row("Status", o.FinancialStatus.Or(domain.MissingField)+" / "+o.FulfillmentStatus.Or(domain.MissingField)),
		row("Customer", o.CustomerName.Or(domain.MissingField)),
		row("Phone", o.CustomerPhone.Or(domain.MissingField)),
		row("Email", o.CustomerEmail.Or(domain.MissingField)),
	}
	if items := o.ItemLines(); len(items) > 0 {
		lines = append(lines, s.label.Render("Items:"))
		for _, item := range items {
			lines = append(lines, "  "+item)
		}
	}
	if o.ShippingAddress != "" {
		lines = append(lines, row("Ship To", o.ShippingAddress.Or(domain.MissingField)))
	}
	lines = append(lines, row("Total", o.Total.Or(domain.ZeroAmount)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncateCells(text string, cells int) string {
	if ansi.StringWidth(text) <= cells {
		return text
	}
	return ansi.Truncate(text, cells, "") + "…"
}
