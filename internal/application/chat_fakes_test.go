package application

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/ports"
)

type presented struct {
	kind   string
	role   domain.Role
	markup string
	item   domain.StructuralItem
}

type fakePresenter struct {
	mu      sync.Mutex
	entries []presented
	typing  bool
}

var _ ports.Presenter = (*fakePresenter)(nil)

type fakeBubble struct {
	presenter *fakePresenter
	index     int
}

func (b fakeBubble) Replace(markup string) {
	b.presenter.mu.Lock()
	defer b.presenter.mu.Unlock()

	b.presenter.entries[b.index].markup = markup
}

func (p *fakePresenter) AppendMessage(markup string, role domain.Role) ports.Bubble {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, presented{kind: "message", role: role, markup: markup})
	return fakeBubble{presenter: p, index: len(p.entries) - 1}
}

func (p *fakePresenter) AppendNotice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, presented{kind: "notice", role: domain.RoleSystem, markup: text})
}

func (p *fakePresenter) ShowTyping() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.typing = true
}

func (p *fakePresenter) HideTyping() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.typing = false
}

func (p *fakePresenter) AppendCard(item domain.StructuralItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, presented{kind: "card", item: item})
}

func (p *fakePresenter) Entries() []presented {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]presented(nil), p.entries...)
}

func (p *fakePresenter) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.typing
}

// openFunc scripts one call to Open.
type openFunc func(ctx context.Context, payload domain.Payload) (io.ReadCloser, error)

type fakeExchanger struct {
	mu       sync.Mutex
	script   []openFunc
	payloads []domain.Payload
	cancels  int
}

var _ ports.Exchanger = (*fakeExchanger)(nil)

func newFakeExchanger(script ...openFunc) *fakeExchanger {
	return &fakeExchanger{script: script}
}

func (e *fakeExchanger) Open(ctx context.Context, payload domain.Payload) (io.ReadCloser, error) {
	e.mu.Lock()
	e.payloads = append(e.payloads, payload)
	next := e.script[0]
	e.script = e.script[1:]
	e.mu.Unlock()

	return next(ctx, payload)
}

func (e *fakeExchanger) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancels++
}

func (e *fakeExchanger) Payloads() []domain.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]domain.Payload(nil), e.payloads...)
}

func (e *fakeExchanger) Cancels() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cancels
}

func respondWith(stream string) openFunc {
	return func(context.Context, domain.Payload) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(stream)), nil
	}
}

func failWith(err error) openFunc {
	return func(context.Context, domain.Payload) (io.ReadCloser, error) {
		return nil, err
	}
}

// liveStream returns a body the test writes to. Cancelling the exchange
// context fails pending reads with the context cause.
func liveStream(writer chan<- *io.PipeWriter) openFunc {
	return func(ctx context.Context, _ domain.Payload) (io.ReadCloser, error) {
		reader, pipeWriter := io.Pipe()
		context.AfterFunc(ctx, func() {
			_ = pipeWriter.CloseWithError(context.Cause(ctx))
		})
		writer <- pipeWriter
		return reader, nil
	}
}

// blockedOpen waits until the exchange is cancelled.
func blockedOpen(started chan<- struct{}) openFunc {
	return func(ctx context.Context, _ domain.Payload) (io.ReadCloser, error) {
		close(started)
		<-ctx.Done()
		return nil, context.Cause(ctx)
	}
}

type recordingClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *recordingClock) Now() time.Time {
	return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
}

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *recordingClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

func (c *recordingClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.delays...)
}
