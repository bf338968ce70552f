package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	history := []HistoryEntry{{Role: RoleUser, Content: "Hello"}}

	assert.Equal(t, "Hello", Fingerprint("Hello", history, false))
	assert.Equal(t, `Hello_[{"role":"user","content":"Hello"}]`, Fingerprint("Hello", history, true))
	assert.Equal(t, "Hello_[]", Fingerprint("Hello", nil, true))
}

func TestNewPayloadEncodesMissingSessionAsNull(t *testing.T) {
	encoded, err := json.Marshal(NewPayload("Hello", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hello","session_id":null}`, string(encoded))

	encoded, err = json.Marshal(NewPayload("Hello", "s-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hello","session_id":"s-1"}`, string(encoded))
}

func TestChatSessionCloneDoesNotShareHistory(t *testing.T) {
	session := ChatSession{History: []HistoryEntry{{Role: RoleUser, Content: "a"}}}
	clone := session.Clone()
	clone.History[0].Content = "b"

	assert.Equal(t, "a", session.History[0].Content)
}

func TestInterpretPayload(t *testing.T) {
	tests := []struct {
		name string
		data string
		want TokenPayload
	}{
		{name: "text field", data: `{"text":"Hi"}`, want: TokenPayload{Text: "Hi", HasText: true}},
		{name: "chunk field", data: `{"chunk":"Hi"}`, want: TokenPayload{Text: "Hi", HasText: true}},
		{name: "content field", data: `{"content":"Hi"}`, want: TokenPayload{Text: "Hi", HasText: true}},
		{name: "empty text falls through to chunk", data: `{"text":"","chunk":"there"}`, want: TokenPayload{Text: "there", HasText: true}},
		{name: "numeric token keeps literal", data: `{"text":42}`, want: TokenPayload{Text: "42", HasText: true}},
		{name: "session only", data: `{"session_id":"abc"}`, want: TokenPayload{SessionID: "abc"}},
		{name: "numeric session id", data: `{"session_id":17}`, want: TokenPayload{SessionID: "17"}},
		{name: "plain text", data: `Hi there`, want: TokenPayload{Text: "Hi there", HasText: true, Raw: true}},
		{name: "broken object", data: `{"text":`, want: TokenPayload{Text: `{"text":`, HasText: true, Raw: true}},
		{name: "bare number", data: `123`, want: TokenPayload{Text: "123", HasText: true, Raw: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretPayload(tt.data))
		})
	}
}

func TestInterpretPayloadStructuralData(t *testing.T) {
	payload := InterpretPayload(`{"session_id":"s","text":"x","structural_data":[
		{"type":"Product","title":"Mug","price":"$10"},
		{"type":"Cart","lineItems":[{"merchandise_title":"Mug","merchandise_price":"$10","quantity":2}],"subtotalAmount":"$20.00","checkoutUrl":"https://shop/checkout"},
		{"type":"Order","OrderID":1001,"Items":"Mug x1^break^ Cap x2 ^break^"},
		{"type":"Coupon"},
		"loose"
	]}`)

	require.Len(t, payload.Items, 5)
	assert.Equal(t, "s", payload.SessionID)
	assert.Equal(t, "x", payload.Text)

	assert.Equal(t, ItemKindProduct, payload.Items[0].Kind)
	assert.Equal(t, Text("Mug"), payload.Items[0].Product.Title)

	require.NotNil(t, payload.Items[1].Cart)
	assert.Equal(t, 2, payload.Items[1].Cart.LineItems[0].Qty())
	assert.Equal(t, Text("https://shop/checkout"), payload.Items[1].Cart.CheckoutURL)

	require.NotNil(t, payload.Items[2].Order)
	assert.Equal(t, Text("1001"), payload.Items[2].Order.OrderID)
	assert.Equal(t, []string{"Mug x1", "Cap x2"}, payload.Items[2].Order.ItemLines())

	assert.Empty(t, payload.Items[3].Kind)
	assert.Empty(t, payload.Items[4].Kind)
}

func TestInterpretPayloadKeepsTextBesideMistypedItem(t *testing.T) {
	payload := InterpretPayload(`{"text":"Your cart:","session_id":"s1","structural_data":[
		{"type":"Cart","lineItems":{}},
		{"type":"Product","title":"Mug","price":"$10"}
	]}`)

	assert.False(t, payload.Raw)
	assert.Equal(t, "Your cart:", payload.Text)
	assert.Equal(t, "s1", payload.SessionID)
	require.Len(t, payload.Items, 2)
	assert.Empty(t, payload.Items[0].Kind)
	assert.Nil(t, payload.Items[0].Cart)
	assert.JSONEq(t, `{"type":"Cart","lineItems":{}}`, string(payload.Items[0].Raw))
	assert.Equal(t, ItemKindProduct, payload.Items[1].Kind)
}

func TestCartLineQtyDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, CartLine{}.Qty())
	assert.Equal(t, 1, CartLine{Quantity: "many"}.Qty())
	assert.Equal(t, 3, CartLine{Quantity: "3"}.Qty())
}

func TestDisplayFallbacks(t *testing.T) {
	assert.Equal(t, "Unnamed product", CartLine{}.DisplayTitle())
	assert.Equal(t, "Price Not Confirmed", CartLine{Price: "  "}.DisplayPrice())
	assert.Equal(t, "$0.00", Cart{}.DisplaySubtotal())
	assert.Equal(t, "$12.00", Cart{Subtotal: "$12.00"}.DisplaySubtotal())
	assert.Equal(t, "Mug", Product{Title: "Mug"}.Summary())
	assert.Equal(t, "A sturdy mug", Product{Title: "Mug", Description: "A sturdy mug"}.Summary())
	assert.Equal(t, MissingField, Order{}.CustomerName.Or(MissingField))
}

func TestPriceValue(t *testing.T) {
	tests := []struct {
		price string
		want  float64
	}{
		{price: "$10", want: 10},
		{price: "$1,299.50", want: 1299.5},
		{price: "-5 USD", want: -5},
		{price: "10.00-12.00", want: 10},
		{price: "free", want: 0},
		{price: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.InDelta(t, tt.want, PriceValue(tt.price), 0.0001)
		})
	}
}

func TestSortProductsByPriceIsStable(t *testing.T) {
	products := []Product{
		{Title: "ten", Price: "$10"},
		{Title: "five", Price: "$5"},
		{Title: "unknown-a", Price: "ask"},
		{Title: "also-five", Price: "5.00"},
		{Title: "unknown-b"},
	}

	SortProductsByPrice(products)

	titles := make([]string, 0, len(products))
	for _, product := range products {
		titles = append(titles, product.Title.String())
	}
	assert.Equal(t, []string{"unknown-a", "unknown-b", "five", "also-five", "ten"}, titles)
}

func TestHTTPStatusError(t *testing.T) {
	err := &HTTPStatusError{StatusCode: 503, Status: "Service Unavailable"}
	assert.Equal(t, "HTTP 503: Service Unavailable", err.Error())
	assert.False(t, err.Retryable())

	tooMany := &HTTPStatusError{StatusCode: 429}
	assert.Equal(t, "HTTP 429: Too Many Requests", tooMany.Error())
	assert.True(t, tooMany.Retryable())
}

func TestCancellationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("open stream: %w", NewCancellation(CancelReasonTimeout))

	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, CancelReasonTimeout, CancelReasonOf(err))
	assert.Equal(t, CancelReason(""), CancelReasonOf(errors.New("boom")))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "relative endpoint", mutate: func(c *Config) { c.Endpoint = "/chat" }},
		{name: "non http endpoint", mutate: func(c *Config) { c.Endpoint = "ftp://host/chat" }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }},
		{name: "too many retries", mutate: func(c *Config) { c.MaxRetries = MaxRetriesLimit + 1 }},
		{name: "negative delay", mutate: func(c *Config) { c.RetryDelay = -1 }},
		{name: "unknown renderer", mutate: func(c *Config) { c.Renderer = "fancy" }},
		{name: "unknown secrets backend", mutate: func(c *Config) { c.Secrets = "keyring" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestTurnState(t *testing.T) {
	assert.Equal(t, "settled(aborted)", Settled(OutcomeAborted).String())
	assert.True(t, TurnState{Phase: TurnStreaming}.Busy())
	assert.False(t, Settled(OutcomeSuccess).Busy())
	assert.True(t, TurnResult{}.Rejected())
}
