package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransientNetwork  = errors.New("transient network failure")
	ErrCancelled         = errors.New("exchange cancelled")
	ErrStreamUnavailable = errors.New("no stream available")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrSecretNotFound    = errors.New("secret not found")
)

// HTTPStatusError is returned for any non-2xx response. Only 429 is
// retried.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	text := e.Status
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, text)
}

func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

type CancelReason string

const (
	CancelReasonUser       CancelReason = "user"
	CancelReasonTimeout    CancelReason = "timeout"
	CancelReasonSuperseded CancelReason = "superseded"
)

// CancellationError reports that an exchange or turn was stopped on
// purpose. It matches ErrCancelled with errors.Is.
type CancellationError struct {
	Reason CancelReason
}

func (e *CancellationError) Error() string {
	switch e.Reason {
	case CancelReasonTimeout:
		return "request timed out"
	case CancelReasonSuperseded:
		return "superseded by a newer request"
	default:
		return "request aborted"
	}
}

func (e *CancellationError) Is(target error) bool {
	return target == ErrCancelled
}

func NewCancellation(reason CancelReason) error {
	return &CancellationError{Reason: reason}
}

// CancelReasonOf returns the reason carried by err, or "" when err is not
// a cancellation.
func CancelReasonOf(err error) CancelReason {
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return cancelErr.Reason
	}
	return ""
}
