// Package memory holds final replies for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"github.com/bnema/shopchat/internal/ports"
	"github.com/zeebo/blake3"
)

var _ ports.ResponseCache = (*Cache)(nil)

type digest [32]byte

// Cache keeps only a BLAKE3 digest of each fingerprint, so remember-mode
// keys carrying the whole history cost 32 bytes per entry. There is no
// eviction.
type Cache struct {
	mu      sync.RWMutex
	entries map[digest]string
}

func New() *Cache {
	return &Cache{entries: make(map[digest]string)}
}

func (c *Cache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	reply, ok := c.entries[keyOf(fingerprint)]
	return reply, ok, nil
}

func (c *Cache) Put(ctx context.Context, fingerprint string, reply string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[keyOf(fingerprint)] = reply

	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func keyOf(fingerprint string) digest {
	return blake3.Sum256([]byte(fingerprint))
}
