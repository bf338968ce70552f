package terminal

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/ports"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *manualClock) AfterFunc(time.Duration, func()) ports.Timer {
	return time.NewTimer(time.Hour)
}

func plainStyles() styles {
	return newStyles(io.Discard, termenv.Ascii)
}

func newPlainTranscript(clock ports.Clock) *Transcript {
	return NewTranscript(Options{Output: io.Discard, NoColor: true, Clock: clock})
}

func TestRenderMarkup(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
		absent []string
	}{
		{
			name:   "paragraph entities are decoded",
			markup: "<p>Tom &amp; Jerry &lt;3</p>",
			want:   []string{"Tom & Jerry <3"},
			absent: []string{"&amp;"},
		},
		{
			name:   "line breaks",
			markup: "<p>one<br>two</p>",
			want:   []string{"one\ntwo"},
		},
		{
			name:   "unordered list",
			markup: "<ul><li>apples</li><li>pears</li></ul>",
			want:   []string{"• apples", "• pears"},
		},
		{
			name:   "ordered list",
			markup: "<ol><li>first</li><li>second</li></ol>",
			want:   []string{"1. first", "2. second"},
		},
		{
			name:   "link shows its target",
			markup: `<p><a href="https://shop.test/mug">mug</a></p>`,
			want:   []string{"mug (https://shop.test/mug)"},
		},
		{
			name:   "link equal to its text is shown once",
			markup: `<p><a href="https://shop.test">https://shop.test</a></p>`,
			want:   []string{"https://shop.test"},
			absent: []string{"(https://shop.test)"},
		},
		{
			name:   "code block keeps its lines",
			markup: `<pre><code class="language-go">a := 1` + "\n" + `b := &lt;-ch</code></pre>`,
			want:   []string{"  a := 1\n  b := <-ch"},
		},
		{
			name:   "heading and rule",
			markup: "<h2>Deals</h2><hr>",
			want:   []string{"Deals", "────"},
		},
		{
			name:   "blockquote",
			markup: "<blockquote>quoted</blockquote>",
			want:   []string{"│ quoted"},
		},
		{
			name:   "table",
			markup: "<table><thead><tr><th>Item</th><th>Price</th></tr></thead><tbody><tr><td>Mug</td><td>$5</td></tr></tbody></table>",
			want:   []string{"Item", "Price", "Mug", "$5"},
		},
		{
			name:   "bare text with breaks",
			markup: "intro<br><h1>Title</h1>",
			want:   []string{"intro", "Title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderMarkup(tt.markup, plainStyles(), 80)
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
			for _, absent := range tt.absent {
				assert.NotContains(t, got, absent)
			}
			assert.NotContains(t, got, "</")
		})
	}
}

func TestRenderMarkupWrapsToWidth(t *testing.T) {
	got := renderMarkup("<p>"+strings.Repeat("word ", 20)+"</p>", plainStyles(), 20)

	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), 20)
	}
	assert.Greater(t, strings.Count(got, "\n"), 2)
}

func TestCards(t *testing.T) {
	s := plainStyles()

	t.Run("product", func(t *testing.T) {
		got := renderCard(domain.StructuralItem{
			Kind:    domain.ItemKindProduct,
			Product: &domain.Product{Title: "Mug", Price: "$5", Link: "https://shop.test/mug", Description: "Stoneware"},
		}, s, 80)

		for _, want := range []string{"Mug", "$5", "https://shop.test/mug", "Stoneware"} {
			assert.Contains(t, got, want)
		}
	})

	t.Run("cart", func(t *testing.T) {
		long := strings.Repeat("x", 60)
		got := renderCard(domain.StructuralItem{
			Kind: domain.ItemKindCart,
			Cart: &domain.Cart{
				LineItems:   []domain.CartLine{{Title: domain.Text(long), Price: "$2", Quantity: "3"}, {}},
				CheckoutURL: "https://shop.test/checkout",
			},
		}, s, 120)

		assert.Contains(t, got, strings.Repeat("x", 50)+"…")
		assert.NotContains(t, got, strings.Repeat("x", 51))
		assert.Contains(t, got, "$2 × 3")
		assert.Contains(t, got, "Unnamed product")
		assert.Contains(t, got, "Price Not Confirmed × 1")
		assert.Contains(t, got, "Subtotal: $0.00")
		assert.Contains(t, got, "https://shop.test/checkout")
	})

	t.Run("empty cart", func(t *testing.T) {
		got := renderCard(domain.StructuralItem{Kind: domain.ItemKindCart, Cart: &domain.Cart{}}, s, 80)

		assert.Contains(t, got, "Your cart is empty.")
		assert.NotContains(t, got, "Subtotal")
	})

	t.Run("order", func(t *testing.T) {
		got := renderCard(domain.StructuralItem{
			Kind:  domain.ItemKindOrder,
			Order: &domain.Order{OrderID: "1001", FinancialStatus: "PAID", Items: "Mug x1 ^break^ Tea x2"},
		}, s, 80)

		assert.Contains(t, got, "Order ID: 1001")
		assert.Contains(t, got, "Status: PAID / —")
		assert.Contains(t, got, "Customer: —")
		assert.Contains(t, got, "Mug x1")
		assert.Contains(t, got, "Tea x2")
		assert.Contains(t, got, "Total: $0.00")
		assert.NotContains(t, got, "Ship To")
	})

	t.Run("unknown kind", func(t *testing.T) {
		assert.Empty(t, renderCard(domain.StructuralItem{}, s, 80))
	})
}

func TestTranscriptPresentsTurn(t *testing.T) {
	transcript := newPlainTranscript(&manualClock{now: time.Unix(0, 0)})

	transcript.AppendMessage("Hello", domain.RoleUser)
	transcript.ShowTyping()
	assert.True(t, transcript.Typing())

	bot := transcript.AppendMessage("", domain.RoleBot)
	transcript.HideTyping()
	assert.NotContains(t, transcript.Render(80), "Assistant")

	bot.Replace("<p>Hi <strong>there</strong></p>")
	got := transcript.Render(80)

	assert.False(t, transcript.Typing())
	assert.Contains(t, got, "You\nHello")
	assert.Contains(t, got, "Assistant\nHi there")
}

func TestTranscriptErrorMessage(t *testing.T) {
	transcript := newPlainTranscript(nil)

	transcript.AppendMessage("⚠️ Error: HTTP 500: boom", domain.RoleError)

	assert.Equal(t, "⚠️ Error: HTTP 500: boom", strings.TrimSpace(transcript.Render(80)))
}

func TestTranscriptNoticesExpire(t *testing.T) {
	clock := &manualClock{now: time.Unix(100, 0)}
	transcript := newPlainTranscript(clock)

	transcript.AppendNotice("Stream aborted.")
	assert.Contains(t, transcript.Render(80), "Stream aborted.")

	clock.advance(NoticeTTL - time.Millisecond)
	assert.Contains(t, transcript.Render(80), "Stream aborted.")

	clock.advance(time.Millisecond)
	assert.NotContains(t, transcript.Render(80), "Stream aborted.")
}

func TestTranscriptSignalsChanges(t *testing.T) {
	transcript := newPlainTranscript(nil)

	transcript.AppendMessage("a", domain.RoleUser)
	transcript.AppendMessage("b", domain.RoleUser)

	select {
	case <-transcript.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-transcript.Changes():
		t.Fatal("bursts should coalesce")
	default:
	}

	transcript.Clear()
	<-transcript.Changes()
	assert.Empty(t, transcript.Render(80))
}

type fakeChat struct {
	mu        sync.Mutex
	submitted []string
	cancels   int
	resets    int
	remember  []bool
	session   domain.ChatSession
	state     domain.TurnState
}

func (c *fakeChat) Submit(_ context.Context, message string) (domain.TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, message)
	return domain.TurnResult{ID: "turn", State: domain.Settled(domain.OutcomeSuccess)}, nil
}

func (c *fakeChat) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
}

func (c *fakeChat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *fakeChat) SetRememberMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remember = append(c.remember, enabled)
}

func (c *fakeChat) Session() domain.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *fakeChat) State() domain.TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func typeAndEnter(t *testing.T, m model, text string) (model, tea.Cmd) {
	t.Helper()

	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated, ok := next.(model)
	require.True(t, ok)
	return updated, cmd
}

func TestProgramSubmitsMessage(t *testing.T) {
	chat := &fakeChat{}
	m := newModel(context.Background(), chat, newPlainTranscript(nil))

	m, cmd := typeAndEnter(t, m, "  find a mug  ")
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.pending)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	done, ok := msg.(turnDoneMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"find a mug"}, chat.submitted)

	next, _ := m.Update(done)
	assert.Equal(t, 0, next.(model).pending)
}

func TestProgramIgnoresEmptyInput(t *testing.T) {
	chat := &fakeChat{}
	m := newModel(context.Background(), chat, newPlainTranscript(nil))

	m, _ = typeAndEnter(t, m, "   ")

	assert.Equal(t, 0, m.pending)
	assert.Empty(t, chat.submitted)
}

func TestProgramKeepsInputWhileAwaitingResponse(t *testing.T) {
	chat := &fakeChat{state: domain.TurnState{Phase: domain.TurnAwaitingResponse}}
	m := newModel(context.Background(), chat, newPlainTranscript(nil))

	m, _ = typeAndEnter(t, m, "second question")
	assert.Equal(t, 0, m.pending)
	assert.Equal(t, "second question", m.input.Value())
	assert.Empty(t, chat.submitted)

	chat.state = domain.TurnState{Phase: domain.TurnStreaming}
	m, cmd := typeAndEnter(t, m, "second question")
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.pending)
	assert.Empty(t, m.input.Value())
}

func TestProgramCommands(t *testing.T) {
	chat := &fakeChat{}
	transcript := newPlainTranscript(nil)
	transcript.AppendMessage("old", domain.RoleUser)
	m := newModel(context.Background(), chat, transcript)

	m, _ = typeAndEnter(t, m, CommandNew)
	assert.Equal(t, 1, chat.resets)
	assert.Empty(t, transcript.Render(80))

	m, _ = typeAndEnter(t, m, CommandRemember)
	assert.True(t, m.remember)
	assert.Equal(t, []bool{true}, chat.remember)
	assert.Contains(t, transcript.Render(80), "Remember mode on.")

	m, _ = typeAndEnter(t, m, CommandRemember)
	assert.False(t, m.remember)
	assert.Equal(t, []bool{true, false}, chat.remember)
	assert.Empty(t, chat.submitted)
}

func TestProgramKeys(t *testing.T) {
	chat := &fakeChat{}
	m := newModel(context.Background(), chat, newPlainTranscript(nil))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, chat.cancels)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, 2, chat.cancels)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProgramViewShowsTranscriptAndStatus(t *testing.T) {
	chat := &fakeChat{session: domain.ChatSession{SessionID: "abcdef123456", RememberMode: true}}
	transcript := newPlainTranscript(nil)
	m := newModel(context.Background(), chat, transcript)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(model)
	transcript.AppendMessage("Hello", domain.RoleUser)
	transcript.ShowTyping()
	next, _ = m.Update(transcriptChangedMsg{})
	view := next.(model).View()

	assert.Contains(t, view, "session abcdef12")
	assert.Contains(t, view, "remember on")
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "Assistant is typing...")
}
