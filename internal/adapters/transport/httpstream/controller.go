// Package httpstream opens the streaming chat request. It owns retry with
// exponential backoff, the per-attempt timeout and the single in-flight
// exchange slot.
package httpstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/flight"
	"github.com/bnema/shopchat/internal/ports"
	"github.com/google/uuid"
)

const (
	HeaderRequestID   = "X-Request-Id"
	HeaderRequestedBy = "X-Requested-With"

	requestedBy     = "XMLHttpRequest"
	errorBodyLimit  = 4 * 1024
	contentTypeJSON = "application/json"
	acceptStream    = "text/event-stream"
)

var _ ports.Exchanger = (*Controller)(nil)

type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func ConfigFrom(cfg domain.Config) Config {
	return Config{
		Endpoint:   cfg.Endpoint,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

type Option func(*Controller)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBearerToken sends the token as an Authorization header. An empty
// token sends nothing.
func WithBearerToken(token string) Option {
	return func(c *Controller) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRequestIDs replaces the X-Request-Id generator used when the context
// carries no turn id.
func WithRequestIDs(next func() string) Option {
	return func(c *Controller) {
		if next != nil {
			c.requestID = next
		}
	}
}

type Controller struct {
	cfg       Config
	client    *http.Client
	clock     ports.Clock
	logger    *slog.Logger
	token     string
	requestID func() string

	exchanges flight.Registry
}

func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		client:    &http.Client{},
		clock:     ports.SystemClock{},
		logger:    slog.New(slog.DiscardHandler),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Open sends payload and returns the unread response body. Any exchange
// still live on this controller is cancelled first. Closing the body ends
// the exchange; cancelling the exchange makes pending reads fail with a
// *domain.CancellationError.
func (c *Controller) Open(ctx context.Context, payload domain.Payload) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	exchange := c.exchanges.Acquire(ctx, domain.NewCancellation(domain.CancelReasonSuperseded))
	requestID := domain.TurnIDFrom(ctx)
	if requestID == "" {
		requestID = c.requestID()
	}
	logger := c.logger.With("request_id", requestID)

	for attempt := 0; ; attempt++ {
		stream, err := c.attempt(exchange, body, requestID)
		if err == nil {
			logger.Debug("stream opened", "attempt", attempt+1)
			return &streamBody{body: stream, exchange: exchange}, nil
		}

		if !retryable(err) || attempt >= c.cfg.MaxRetries {
			exchange.Release()
			return nil, err
		}

		delay := backoff(c.cfg.RetryDelay, attempt)
		logger.Warn("retrying chat request", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-c.clock.After(delay):
		case <-exchange.Context().Done():
			exchange.Release()
			return nil, cancellation(exchange.Context())
		}
	}
}

// Cancel stops the live exchange, if any. It is safe to call repeatedly.
func (c *Controller) Cancel() {
	c.exchanges.Revoke(domain.NewCancellation(domain.CancelReasonUser))
}

func (c *Controller) attempt(exchange *flight.Token, body []byte, requestID string) (io.ReadCloser, error) {
	ctx := exchange.Context()
	if ctx.Err() != nil {
		return nil, cancellation(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", acceptStream)
	req.Header.Set(HeaderRequestedBy, requestedBy)
	req.Header.Set(HeaderRequestID, requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	var timer ports.Timer
	if c.cfg.Timeout > 0 {
		timer = c.clock.AfterFunc(c.cfg.Timeout, func() {
			exchange.Revoke(domain.NewCancellation(domain.CancelReasonTimeout))
		})
	}
	resp, err := c.client.Do(req)
	if timer != nil {
		timer.Stop()
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, cancellation(ctx)
		}
		return nil, classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
		_ = resp.Body.Close()
		return nil, &domain.HTTPStatusError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, domain.ErrStreamUnavailable
	}

	return resp.Body, nil
}

// maxBackoff bounds a single retry delay.
const maxBackoff = 10 * time.Minute

// backoff doubles base per attempt and saturates at maxBackoff instead of
// overflowing.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for range attempt {
		if delay >= maxBackoff/2 {
			return maxBackoff
		}
		delay *= 2
	}
	return min(delay, maxBackoff)
}

func retryable(err error) bool {
	if errors.Is(err, domain.ErrCancelled) {
		return false
	}
	if errors.Is(err, domain.ErrTransientNetwork) {
		return true
	}
	var statusErr *domain.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.Retryable()
}

// classify marks connection-level failures as transient. Anything else,
// such as a malformed endpoint, is returned as is.
func classify(err error) error {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	var netErr net.Error
	if errors.As(cause, &netErr) || errors.Is(cause, io.ErrUnexpectedEOF) || errors.Is(cause, io.EOF) {
		return fmt.Errorf("%w: %w", domain.ErrTransientNetwork, err)
	}
	return fmt.Errorf("send request: %w", err)
}

// cancellation converts the state of a done exchange context into a
// *domain.CancellationError.
func cancellation(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, domain.ErrCancelled) {
		return cause
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return domain.NewCancellation(domain.CancelReasonTimeout)
	}
	return domain.NewCancellation(domain.CancelReasonUser)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

type streamBody struct {
	body     io.ReadCloser
	exchange *flight.Token
	once     sync.Once
	closeErr error
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if ctx := b.exchange.Context(); ctx.Err() != nil {
			return n, cancellation(ctx)
		}
	}
	return n, err
}

func (b *streamBody) Close() error {
	b.once.Do(func() {
		b.closeErr = b.body.Close()
		b.exchange.Release()
	})
	return b.closeErr
}
