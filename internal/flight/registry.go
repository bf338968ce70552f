// Package flight keeps at most one live operation per slot. Acquiring a new
// token revokes the previous holder before the new one becomes visible.
package flight

import (
	"context"
	"sync"
)

type Registry struct {
	mu     sync.Mutex
	active *Token
}

type Token struct {
	registry *Registry
	ctx      context.Context
	cancel   context.CancelCauseFunc
}

// Acquire revokes the current holder with cause and installs a new token
// whose context derives from parent.
func (r *Registry) Acquire(parent context.Context, cause error) *Token {
	ctx, cancel := context.WithCancelCause(parent)
	token := &Token{registry: r, ctx: ctx, cancel: cancel}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.active.cancel(cause)
	}
	r.active = token

	return token
}

// Revoke cancels the current holder, if any. It reports whether a token was
// revoked.
func (r *Registry) Revoke(cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return false
	}
	r.active.cancel(cause)
	r.active = nil

	return true
}

func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active != nil
}

func (t *Token) Context() context.Context {
	return t.ctx
}

// Current reports whether t still owns the slot and has not been cancelled.
func (t *Token) Current() bool {
	t.registry.mu.Lock()
	defer t.registry.mu.Unlock()

	return t.currentLocked()
}

func (t *Token) currentLocked() bool {
	return t.registry.active == t && t.ctx.Err() == nil
}

// Commit runs fn while holding the slot, only if t is still current. No
// other token can be acquired while fn runs.
func (t *Token) Commit(fn func()) bool {
	t.registry.mu.Lock()
	defer t.registry.mu.Unlock()

	if !t.currentLocked() {
		return false
	}
	fn()

	return true
}

// Revoke cancels t with cause and frees the slot if t held it.
func (t *Token) Revoke(cause error) {
	t.registry.mu.Lock()
	defer t.registry.mu.Unlock()

	t.cancel(cause)
	if t.registry.active == t {
		t.registry.active = nil
	}
}

// Release frees the slot after normal completion. The token context is
// cancelled so anything derived from it is cleaned up.
func (t *Token) Release() {
	t.registry.mu.Lock()
	defer t.registry.mu.Unlock()

	if t.registry.active == t {
		t.registry.active = nil
	}
	t.cancel(context.Canceled)
}
