package terminal

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/ports"
	"github.com/charmbracelet/x/ansi"
)

const NoticeTTL = 5 * time.Second

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

type Options struct {
	Output  io.Writer
	NoColor bool
	Clock   ports.Clock
}

// Transcript is the terminal presentation sink. It is safe to feed from a
// turn goroutine while a UI goroutine renders it; every change is
// signalled on Changes.
type Transcript struct {
	styles  styles
	clock   ports.Clock
	changes chan struct{}

	mu      sync.Mutex
	entries []*entry
	typing  bool
}

func NewTranscript(opts Options) *Transcript {
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Transcript{
		styles:  newStyles(opts.Output, profileFor(opts.Output, opts.NoColor)),
		clock:   clock,
		changes: make(chan struct{}, 1),
	}
}

type bubble struct {
	transcript *Transcript
	entry      *entry
}

func (b *bubble) Replace(markup string) {
	b.transcript.mu.Lock()
	b.entry.markup = markup
	b.transcript.mu.Unlock()

	b.transcript.changed()
}

func (t *Transcript) AppendMessage(markup string, role domain.Role) ports.Bubble {
	e := &entry{kind: entryMessage, role: role, markup: markup}
	t.append(e)

	return &bubble{transcript: t, entry: e}
}

func (t *Transcript) AppendNotice(text string) {
	t.append(&entry{
		kind:    entryNotice,
		role:    domain.RoleSystem,
		markup:  text,
		expires: t.clock.Now().Add(NoticeTTL),
	})
}

func (t *Transcript) AppendCard(item domain.StructuralItem) {
	t.append(&entry{kind: entryCard, role: domain.RoleBot, item: item})
}

func (t *Transcript) ShowTyping() {
	t.setTyping(true)
}

func (t *Transcript) HideTyping() {
	t.setTyping(false)
}

func (t *Transcript) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.typing
}

// Clear drops every entry, for a new conversation.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.typing = false
	t.mu.Unlock()

	t.changed()
}

// Changes receives a value after any change. Bursts coalesce into one.
func (t *Transcript) Changes() <-chan struct{} {
	return t.changes
}

// Render lays the transcript out for the given width. Expired notices are
// left out.
func (t *Transcript) Render(width int) string {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if block := t.renderEntry(e, now, width); block != "" {
			blocks = append(blocks, block)
		}
	}

	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderEntry(e *entry, now time.Time, width int) string {
	s := t.styles
	switch e.kind {
	case entryNotice:
		if !now.Before(e.expires) {
			return ""
		}
		return s.notice.Render(e.markup)
	case entryCard:
		return renderCard(e.item, s, width)
	}

	body := renderMarkup(e.markup, s, width)
	if body == "" {
		return ""
	}

	switch e.role {
	case domain.RoleUser:
		return s.user.Render("You") + "\n" + body
	case domain.RoleError:
		return s.errorText.Render(ansi.Strip(body))
	default:
		return s.bot.Render("Assistant") + "\n" + body
	}
}

func (t *Transcript) append(e *entry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	t.changed()
}

func (t *Transcript) setTyping(typing bool) {
	t.mu.Lock()
	t.typing = typing
	t.mu.Unlock()

	t.changed()
}

func (t *Transcript) changed() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}
