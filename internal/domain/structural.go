package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type ItemKind string

const (
	ItemKindProduct ItemKind = "Product"
	ItemKindCart    ItemKind = "Cart"
	ItemKindOrder   ItemKind = "Order"
)

// Text decodes a JSON string, number, or boolean into its literal text.
// Servers are not consistent about quoting prices and identifiers.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(trimmed)
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Or returns the text, or fallback when it is blank.
func (t Text) Or(fallback string) string {
	if strings.TrimSpace(string(t)) == "" {
		return fallback
	}
	return string(t)
}

const (
	ZeroAmount       = "$0.00"
	MissingField     = "—"
	unnamedProduct   = "Unnamed product"
	unconfirmedPrice = "Price Not Confirmed"
)

type Product struct {
	Title       Text `json:"title"`
	Price       Text `json:"price"`
	Link        Text `json:"link"`
	ImageURL    Text `json:"imageurl"`
	Description Text `json:"description"`
}

// Summary is the line shown above a product card.
func (p Product) Summary() string {
	return p.Description.Or(p.Title.String())
}

type CartLine struct {
	Title    Text `json:"merchandise_title"`
	Price    Text `json:"merchandise_price"`
	Quantity Text `json:"quantity"`
}

// Qty returns the parsed quantity, defaulting to 1 like the storefront does.
func (l CartLine) Qty() int {
	qty, err := strconv.Atoi(strings.TrimSpace(string(l.Quantity)))
	if err != nil || qty == 0 {
		return 1
	}
	return qty
}

func (l CartLine) DisplayTitle() string {
	return l.Title.Or(unnamedProduct)
}

func (l CartLine) DisplayPrice() string {
	return l.Price.Or(unconfirmedPrice)
}

type Cart struct {
	LineItems   []CartLine `json:"lineItems"`
	Subtotal    Text       `json:"subtotalAmount"`
	CheckoutURL Text       `json:"checkoutUrl"`
}

func (c Cart) DisplaySubtotal() string {
	return c.Subtotal.Or(ZeroAmount)
}

type Order struct {
	OrderID           Text `json:"OrderID"`
	FinancialStatus   Text `json:"FinancialStatus"`
	FulfillmentStatus Text `json:"FulfillmentStatus"`
	CustomerName      Text `json:"CustomerName"`
	CustomerPhone     Text `json:"CustomerPhone"`
	CustomerEmail     Text `json:"CustomerEmail"`
	Items             Text `json:"Items"`
	ShippingAddress   Text `json:"ShippingAddress"`
	Total             Text `json:"Total"`
}

const orderItemSeparator = "^break^"

// ItemLines splits the packed Items field into trimmed, non-empty entries.
func (o Order) ItemLines() []string {
	if o.Items == "" {
		return nil
	}
	parts := strings.Split(string(o.Items), orderItemSeparator)
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// StructuralItem is one entry of a structural_data batch. Exactly one of
// Product, Cart, Order is set when Kind is known; items with a missing or
// unknown type keep only Raw and are skipped at dispatch.
type StructuralItem struct {
	Kind    ItemKind
	Product *Product
	Cart    *Cart
	Order   *Order
	Raw     json.RawMessage
}

func (i *StructuralItem) UnmarshalJSON(data []byte) error {
	*i = StructuralItem{Raw: append(json.RawMessage(nil), data...)}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		// Non-object entries are tolerated and ignored at dispatch.
		return nil
	}

	// A mistyped item keeps only Raw so the rest of the payload survives.
	switch ItemKind(head.Type) {
	case ItemKindProduct:
		var product Product
		if err := json.Unmarshal(data, &product); err == nil {
			i.Kind, i.Product = ItemKindProduct, &product
		}
	case ItemKindCart:
		var cart Cart
		if err := json.Unmarshal(data, &cart); err == nil {
			i.Kind, i.Cart = ItemKindCart, &cart
		}
	case ItemKindOrder:
		var order Order
		if err := json.Unmarshal(data, &order); err == nil {
			i.Kind, i.Order = ItemKindOrder, &order
		}
	}

	return nil
}

var nonNumeric = regexp.MustCompile(`[^0-9.-]+`)

// PriceValue extracts a best-effort number from a display price such as
// "$1,299.00". Anything unparseable is zero.
func PriceValue(price string) float64 {
	cleaned := nonNumeric.ReplaceAllString(price, "")
	value, err := strconv.ParseFloat(leadingNumber(cleaned), 64)
	if err != nil {
		return 0
	}
	return value
}

// leadingNumber keeps the longest prefix that still parses, mirroring a
// lenient float parse of strings like "10.00-12.00".
func leadingNumber(s string) string {
	for end := len(s); end > 0; end-- {
		if _, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return s[:end]
		}
	}
	return ""
}

// SortProductsByPrice orders products ascending by PriceValue. Unknown
// prices count as zero and therefore come first; ties keep arrival order.
func SortProductsByPrice(products []Product) {
	sort.SliceStable(products, func(a, b int) bool {
		return PriceValue(string(products[a].Price)) < PriceValue(string(products[b].Price))
	})
}
