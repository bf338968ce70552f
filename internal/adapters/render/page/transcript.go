// Package page renders a conversation as an HTML fragment that drops into
// the storefront chat widget stylesheet.
package page

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/ports"
)

const (
	NoticeTTL      = 5 * time.Second
	cartTitleRunes = 50
)

var _ ports.Presenter = (*Transcript)(nil)

type entryKind int

const (
	entryMessage entryKind = iota
	entryNotice
	entryCard
)

type entry struct {
	kind    entryKind
	role    domain.Role
	markup  string
	item    domain.StructuralItem
	expires time.Time
}

type Transcript struct {
	clock ports.Clock

	mu      sync.Mutex
	entries []*entry
	typing  bool
}

func NewTranscript(clock ports.Clock) *Transcript {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Transcript{clock: clock}
}

type bubble struct {
	transcript *Transcript
	entry      *entry
}

func (b *bubble) Replace(markup string) {
	b.transcript.mu.Lock()
	defer b.transcript.mu.Unlock()

	b.entry.markup = markup
}

func (t *Transcript) AppendMessage(markup string, role domain.Role) ports.Bubble {
	e := &entry{kind: entryMessage, role: role, markup: markup}
	t.append(e)
	return &bubble{transcript: t, entry: e}
}

func (t *Transcript) AppendNotice(text string) {
	t.append(&entry{kind: entryNotice, role: domain.RoleSystem, markup: text, expires: t.clock.Now().Add(NoticeTTL)})
}

// AppendCard shows a product as its summary line followed by the card, the
// way the widget does.
func (t *Transcript) AppendCard(item domain.StructuralItem) {
	if item.Kind == domain.ItemKindProduct && item.Product != nil {
		t.append(&entry{kind: entryMessage, role: domain.RoleBot, markup: template.HTMLEscapeString(item.Product.Summary())})
	}
	t.append(&entry{kind: entryCard, role: domain.RoleBot, item: item})
}

func (t *Transcript) ShowTyping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing = true
}

func (t *Transcript) HideTyping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing = false
}

func (t *Transcript) append(e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Render writes the transcript as it stands. Expired notices are left out.
func (t *Transcript) Render(w io.Writer) error {
	now := t.clock.Now()

	t.mu.Lock()
	view := pageView{Typing: t.typing}
	for _, e := range t.entries {
		if e.kind == entryNotice && !now.Before(e.expires) {
			continue
		}
		view.Entries = append(view.Entries, newEntryView(e))
	}
	t.mu.Unlock()

	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}

// String is Render into a string; template errors yield an empty page.
func (t *Transcript) String() string {
	var b strings.Builder
	if err := t.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

type pageView struct {
	Entries []entryView
	Typing  bool
}

type entryView struct {
	Kind    string
	Role    string
	Markup  template.HTML
	Product *domain.Product
	Cart    *cartView
	Order   *orderView
}

type cartLineView struct {
	Title string
	Price string
	Qty   int
}

type cartView struct {
	Lines       []cartLineView
	Subtotal    string
	CheckoutURL string
	CheckoutFor string
}

type orderView struct {
	OrderID     string
	Financial   string
	Fulfillment string
	Customer    string
	Phone       string
	Email       string
	Items       []string
	ShipTo      string
	Total       string
}

func newEntryView(e *entry) entryView {
	switch e.kind {
	case entryNotice:
		return entryView{Kind: "notice", Markup: template.HTML(template.HTMLEscapeString(e.markup))}
	case entryCard:
		return cardEntry(e.item)
	}
	// Message markup comes from the renderer or is escaped by the caller.
	return entryView{Kind: "message", Role: string(e.role), Markup: template.HTML(e.markup)}
}

func cardEntry(item domain.StructuralItem) entryView {
	switch item.Kind {
	case domain.ItemKindProduct:
		return entryView{Kind: "product", Product: item.Product}
	case domain.ItemKindCart:
		return entryView{Kind: "cart", Cart: newCartView(*item.Cart)}
	case domain.ItemKindOrder:
		return entryView{Kind: "order", Order: newOrderView(*item.Order)}
	}
	return entryView{}
}

func newCartView(c domain.Cart) *cartView {
	view := &cartView{
		Subtotal:    c.DisplaySubtotal(),
		CheckoutURL: c.CheckoutURL.String(),
		CheckoutFor: c.Subtotal.String(),
	}
	for _, line := range c.LineItems {
		view.Lines = append(view.Lines, cartLineView{
			Title: truncateRunes(line.DisplayTitle(), cartTitleRunes),
			Price: line.DisplayPrice(),
			Qty:   line.Qty(),
		})
	}
	return view
}

func newOrderView(o domain.Order) *orderView {
	return &orderView{
		OrderID:     o.OrderID.Or(domain.MissingField),
		Financial:   o.FinancialStatus.Or(domain.MissingField),
		Fulfillment: o.FulfillmentStatus.Or(domain.MissingField),
		Customer:    o.CustomerName.Or(domain.MissingField),
		Phone:       o.CustomerPhone.Or(domain.MissingField),
		Email:       o.CustomerEmail.Or(domain.MissingField),
		Items:       o.ItemLines(),
		ShipTo:      o.ShippingAddress.String(),
		Total:       o.Total.Or(domain.ZeroAmount),
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"orHash": func(link domain.Text) string {
		if link == "" {
			return "#"
		}
		return string(link)
	},
	"last": func(i, n int) bool { return i == n-1 },
}).Parse(`{{range .Entries}}{{if eq .Kind "message"}}<div class="message {{.Role}}-message"><span class="message-text">{{.Markup}}</span></div>
{{else if eq .Kind "notice"}}<div class="message system-message">{{.Markup}}</div>
{{else if eq .Kind "product"}}{{with .Product}}<div class="message bot-message"><a class="product-card" href="{{orHash .Link}}" target="_blank" rel="noopener noreferrer"><img src="{{.ImageURL}}" alt="{{.Title}}" class="product-image" /><div class="product-info"><h4 class="product-title">{{.Title}}</h4><p class="product-price">{{.Price}}</p></div></a></div>
{{end}}{{else if eq .Kind "cart"}}{{with .Cart}}<div class="message bot-message cart-wrapper"><p class="cart-header">🛒 Here's your cart:</p><hr class="cart-header-divider">{{if not .Lines}}<p>Your cart is empty.</p><hr class="divider">{{else}}<div class="cart-products">{{$n := len .Lines}}{{range $i, $line := .Lines}}<div class="cart-item"><span class="cart-title">{{$line.Title}}</span><span class="cart-price">{{$line.Price}} × {{$line.Qty}}</span></div>{{if not (last $i $n)}}<hr class="divider">{{end}}{{end}}</div><hr class="divider subtotal-divider"><p class="subtotal">Subtotal: {{.Subtotal}}</p>{{if .CheckoutURL}}<a class="checkout-link" href="{{.CheckoutURL}}" target="_blank" rel="noopener noreferrer">Proceed to Checkout — {{.CheckoutFor}}</a>{{end}}{{end}}</div>
{{end}}{{else if eq .Kind "order"}}{{with .Order}}<div class="message bot-message order-wrapper"><p class="order-header">📦 Your Order Summary</p><hr class="order-divider"><div class="order-info"><div class="order-row"><strong>Order ID:</strong> {{.OrderID}}</div><div class="order-row"><strong>Status:</strong> {{.Financial}} / {{.Fulfillment}}</div><div class="order-row"><strong>Customer:</strong> {{.Customer}}</div><div class="order-row"><strong>Phone:</strong> {{.Phone}}</div><div class="order-row"><strong>Email:</strong> {{.Email}}</div>{{if .Items}}<div class="order-row"><strong>Items:</strong>{{range .Items}}<br>{{.}}{{end}}</div>{{end}}{{if .ShipTo}}<div class="order-row"><strong>Ship To:</strong> {{.ShipTo}}</div>{{end}}<div class="order-row total"><strong>Total:</strong> {{.Total}}</div></div></div>
{{end}}{{end}}{{end}}{{if .Typing}}<div class="typing-indicator" id="typing-indicator"><div class="dot"></div><div class="dot"></div><div class="dot"></div><span class="text">Assistant is typing...</span></div>
{{end}}`))
