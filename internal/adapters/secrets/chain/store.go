// Package chain layers two secret stores: the primary is tried first and
// the fallback covers for it when it is unavailable or lacks the entry.
package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/shopchat/internal/adapters/secrets/file"
	passstore "github.com/bnema/shopchat/internal/adapters/secrets/pass"
	"github.com/bnema/shopchat/internal/ports"
)

type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

// NewPassFirst prefers the password-store and keeps files under fileRoot
// for machines without it.
func NewPassFirst(prefix string, fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(prefix), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

// Get wraps both failures, so the result matches ErrSecretNotFound when
// either backend reported the entry missing.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes the entry from both backends; a copy left in either one
// would still be found by Get.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	if err != nil && fallbackErr != nil {
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
	if fallbackErr != nil {
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	}
	if err != nil && !errors.Is(err, passstore.ErrUnavailable) {
		return fmt.Errorf("primary backend delete failed: %w", err)
	}

	return nil
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
