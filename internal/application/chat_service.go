package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/shopchat/internal/adapters/sse"
	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/flight"
	"github.com/bnema/shopchat/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultProductStagger = 300 * time.Millisecond

	productsHeader = "Products recommendations :"
	abortedNotice  = "Stream aborted."
	errorPrefix    = "⚠️ Error: "
)

type ChatOption func(*ChatService)

func WithClock(clock ports.Clock) ChatOption {
	return func(s *ChatService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) ChatOption {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRememberMode(enabled bool) ChatOption {
	return func(s *ChatService) {
		s.session.RememberMode = enabled
	}
}

func WithTurnIDs(next func() string) ChatOption {
	return func(s *ChatService) {
		if next != nil {
			s.newTurnID = next
		}
	}
}

func WithProductStagger(d time.Duration) ChatOption {
	return func(s *ChatService) {
		s.stagger = d
	}
}

// ChatService runs conversational turns. At most one turn is live: a new
// submission replaces a streaming turn, and its cache write and session
// commit are skipped.
type ChatService struct {
	exchanger ports.Exchanger
	cache     ports.ResponseCache
	renderer  ports.Renderer
	presenter ports.Presenter
	clock     ports.Clock
	logger    *slog.Logger
	newTurnID func() string
	stagger   time.Duration

	// submitMu serializes the admission of turns with Cancel. Lock order
	// is submitMu, then the turn registry, then mu.
	submitMu sync.Mutex
	turns    flight.Registry

	mu      sync.Mutex
	session domain.ChatSession
	state   domain.TurnState
	owner   string
}

func NewChatService(exchanger ports.Exchanger, cache ports.ResponseCache, renderer ports.Renderer, presenter ports.Presenter, opts ...ChatOption) *ChatService {
	s := &ChatService{
		exchanger: exchanger,
		cache:     cache,
		renderer:  renderer,
		presenter: presenter,
		clock:     ports.SystemClock{},
		logger:    slog.New(slog.DiscardHandler),
		newTurnID: uuid.NewString,
		stagger:   DefaultProductStagger,
		state:     domain.TurnState{Phase: domain.TurnIdle},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type turn struct {
	id          string
	token       *flight.Token
	message     string
	fingerprint string
	sessionID   string
	logger      *slog.Logger

	text      strings.Builder
	items     []domain.StructuralItem
	sessionTo string
	bubble    ports.Bubble
}

func (t *turn) ctx() context.Context {
	return t.token.Context()
}

// Submit runs one turn to completion in the caller's goroutine. Empty
// messages and messages sent while a request is still awaiting its first
// byte are ignored and return a zero result. A turn that ends aborted or
// failed returns its error alongside the result.
func (s *ChatService) Submit(ctx context.Context, message string) (domain.TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.TurnResult{}, nil
	}

	t, ok := s.admit(ctx, message)
	if !ok {
		return domain.TurnResult{}, nil
	}
	defer t.token.Release()

	result := s.run(t)
	t.logger.Debug("turn settled", "state", result.State.String(), "from_cache", result.FromCache)

	return result, result.Err
}

func (s *ChatService) admit(ctx context.Context, message string) (*turn, bool) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	if s.State().Phase == domain.TurnAwaitingResponse {
		return nil, false
	}

	id := s.newTurnID()
	token := s.turns.Acquire(domain.WithTurnID(ctx, id), domain.NewCancellation(domain.CancelReasonSuperseded))

	s.mu.Lock()
	if !s.session.RememberMode {
		s.session.History = append(s.session.History, domain.HistoryEntry{Role: domain.RoleUser, Content: message})
	}
	t := &turn{
		id:          id,
		token:       token,
		message:     message,
		fingerprint: domain.Fingerprint(message, s.session.History, s.session.RememberMode),
		sessionID:   s.session.SessionID,
		logger:      s.logger.With("turn", id),
	}
	s.owner = id
	s.state = domain.TurnState{Phase: domain.TurnAwaitingResponse}
	s.mu.Unlock()

	return t, true
}

func (s *ChatService) run(t *turn) domain.TurnResult {
	s.presenter.AppendMessage(html.EscapeString(t.message), domain.RoleUser)
	s.presenter.ShowTyping()

	if reply, ok := s.cached(t); ok {
		s.presenter.HideTyping()
		markup := s.renderer.Render(reply)
		s.presenter.AppendMessage(markup, domain.RoleBot)
		t.text.WriteString(reply)
		return s.settle(t, domain.OutcomeSuccess, markup, true, nil)
	}

	body, err := s.exchanger.Open(t.ctx(), domain.NewPayload(t.message, t.sessionID))
	if err != nil {
		s.presenter.HideTyping()
		return s.fail(t, err)
	}
	defer body.Close()

	t.bubble = s.presenter.AppendMessage("", domain.RoleBot)
	s.presenter.HideTyping()
	s.setPhase(t, domain.TurnStreaming)

	scanner := sse.NewScanner(body)
	for scanner.Next() {
		event := scanner.Event()
		if event.Terminal {
			break
		}
		s.apply(t, domain.InterpretPayload(event.Data))
	}
	if err := scanner.Err(); err != nil {
		if isCancellation(err) || t.ctx().Err() != nil {
			return s.fail(t, err)
		}
		t.logger.Warn("stream read failed, keeping partial reply", "error", err)
	}

	return s.finalize(t)
}

func (s *ChatService) cached(t *turn) (string, bool) {
	reply, ok, err := s.cache.Get(t.ctx(), t.fingerprint)
	if err != nil {
		t.logger.Warn("cache lookup failed", "error", err)
		return "", false
	}
	return reply, ok
}

func (s *ChatService) apply(t *turn, payload domain.TokenPayload) {
	if payload.SessionID != "" {
		t.sessionTo = payload.SessionID
	}
	t.items = append(t.items, payload.Items...)
	if !payload.HasText {
		return
	}

	t.text.WriteString(payload.Text)
	if t.token.Current() {
		t.bubble.Replace(s.renderer.Render(t.text.String()))
	}
}

// finalize commits the session id and the cache entry only while the turn
// still owns the slot, then reveals structural items.
func (s *ChatService) finalize(t *turn) domain.TurnResult {
	reply := t.text.String()

	var cacheErr error
	committed := t.token.Commit(func() {
		if t.sessionTo != "" {
			s.mu.Lock()
			s.session.SessionID = t.sessionTo
			s.mu.Unlock()
		}
		cacheErr = s.cache.Put(context.WithoutCancel(t.ctx()), t.fingerprint, reply)
	})
	if !committed {
		return s.fail(t, cancellationOf(t.ctx()))
	}
	if cacheErr != nil {
		t.logger.Warn("cache write failed", "error", cacheErr)
	}

	markup := s.renderer.Render(reply)
	t.bubble.Replace(markup)

	s.dispatch(t)

	return s.settle(t, domain.OutcomeSuccess, markup, false, nil)
}

// dispatch shows carts and orders in arrival order, then products sorted
// by price, one at a time.
func (s *ChatService) dispatch(t *turn) {
	var products []domain.Product
	for _, item := range t.items {
		switch item.Kind {
		case domain.ItemKindProduct:
			products = append(products, *item.Product)
		case domain.ItemKindCart, domain.ItemKindOrder:
			s.presenter.AppendCard(item)
		}
	}
	if len(products) == 0 {
		return
	}

	s.presenter.AppendMessage(productsHeader, domain.RoleBot)
	domain.SortProductsByPrice(products)
	for i := range products {
		if i > 0 && s.stagger > 0 {
			select {
			case <-s.clock.After(s.stagger):
			case <-t.ctx().Done():
				return
			}
		}
		s.presenter.AppendCard(domain.StructuralItem{Kind: domain.ItemKindProduct, Product: &products[i]})
	}
}

func (s *ChatService) fail(t *turn, err error) domain.TurnResult {
	if isCancellation(err) || t.ctx().Err() != nil {
		if !isCancellation(err) {
			err = cancellationOf(t.ctx())
		}
		s.presenter.AppendNotice(abortedNotice)
		t.logger.Info("turn aborted", "reason", domain.CancelReasonOf(err))
		return s.settle(t, domain.OutcomeAborted, "", false, err)
	}

	s.presenter.AppendMessage(errorPrefix+html.EscapeString(err.Error()), domain.RoleError)
	t.logger.Error("turn failed", "error", err)
	return s.settle(t, domain.OutcomeFailed, "", false, fmt.Errorf("chat turn: %w", err))
}

func (s *ChatService) settle(t *turn, outcome domain.Outcome, markup string, fromCache bool, err error) domain.TurnResult {
	state := domain.Settled(outcome)
	s.setState(t, state)

	result := domain.TurnResult{
		ID:        t.id,
		State:     state,
		Markup:    markup,
		FromCache: fromCache,
		Err:       err,
	}
	if outcome == domain.OutcomeSuccess {
		result.Reply = t.text.String()
		result.Items = t.items
	}
	result.SessionID = s.Session().SessionID

	return result
}

func (s *ChatService) setPhase(t *turn, phase domain.TurnPhase) {
	s.setState(t, domain.TurnState{Phase: phase})
}

// setState only applies to the newest turn, so a superseded turn settling
// late cannot overwrite its successor's state.
func (s *ChatService) setState(t *turn, state domain.TurnState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == t.id {
		s.state = state
	}
}

// Cancel aborts the live turn. It is a no-op when no turn is running.
func (s *ChatService) Cancel() {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	if s.turns.Revoke(domain.NewCancellation(domain.CancelReasonUser)) {
		s.exchanger.Cancel()
	}
}

func (s *ChatService) State() domain.TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *ChatService) Session() domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.Clone()
}

func (s *ChatService) SetRememberMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.RememberMode = enabled
}

// Reset cancels the live turn and starts a new conversation. Cached
// replies are kept.
func (s *ChatService) Reset() {
	s.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.History = nil
	s.session.SessionID = ""
}

func isCancellation(err error) bool {
	return errors.Is(err, domain.ErrCancelled)
}

func cancellationOf(ctx context.Context) error {
	cause := context.Cause(ctx)
	if isCancellation(cause) {
		return cause
	}
	return domain.NewCancellation(domain.CancelReasonUser)
}
