// Package pass stores credentials in the user's password-store, under one
// entry prefix.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/ports"
)

const DefaultPrefix = "shopchat"

var ErrUnavailable = errors.New("pass command unavailable")

const notInStore = "is not in the password store"

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

type Store struct {
	run    runFunc
	prefix string
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{run: runPassCommand, prefix: prefix}
}

func (s *Store) entry(key string) string {
	return path.Join(s.prefix, strings.Trim(key, "/"))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := s.entry(key)
	_, stderr, err := s.run(ctx, value+"\n", "insert", "-m", "-f", entry)
	if err != nil {
		return formatError("put", entry, err, stderr)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry := s.entry(key)
	stdout, stderr, err := s.run(ctx, "", "show", entry)
	if err != nil {
		if strings.Contains(stderr, notInStore) {
			return "", fmt.Errorf("%w: %s", domain.ErrSecretNotFound, entry)
		}
		return "", formatError("get", entry, err, stderr)
	}

	// Multi-line entries keep the secret on the first line.
	value, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSpace(value), nil
}

// Delete succeeds when the entry is already gone.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := s.entry(key)
	_, stderr, err := s.run(ctx, "", "rm", "-f", entry)
	if err != nil {
		if strings.Contains(stderr, notInStore) {
			return nil
		}
		return formatError("delete", entry, err, stderr)
	}

	return nil
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	bin, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, entry string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, entry, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, entry, err, stderr)
}
