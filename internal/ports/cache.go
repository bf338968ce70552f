package ports

import "context"

// ResponseCache maps a turn fingerprint to the final reply text. Entries
// live for the process lifetime.
type ResponseCache interface {
	Get(ctx context.Context, fingerprint string) (string, bool, error)
	Put(ctx context.Context, fingerprint string, reply string) error
	Len() int
}
