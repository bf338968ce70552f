package ports

import (
	"context"
	"io"

	"github.com/bnema/shopchat/internal/domain"
)

// Exchanger dispatches one request at a time and hands back the open
// response body. Opening a new exchange cancels the previous one.
type Exchanger interface {
	Open(ctx context.Context, payload domain.Payload) (io.ReadCloser, error)
	Cancel()
}
