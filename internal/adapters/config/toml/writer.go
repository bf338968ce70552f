package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/shopchat/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

var ErrConfigExists = errors.New("config file already exists")

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.Mutex{}
)

// Encode renders cfg in the config file format.
func Encode(cfg domain.Config) ([]byte, error) {
	data, err := toml.Marshal(toSchema(cfg))
	if err != nil {
		return nil, fmt.Errorf("encode config file: %w", err)
	}
	return data, nil
}

// WriteDefault writes cfg to path, replacing the file atomically. An
// existing file is kept unless force is set.
func WriteDefault(path string, cfg domain.Config, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	mu := lockForPath(absPath)
	mu.Lock()
	defer mu.Unlock()

	if !force {
		if _, err := os.Stat(absPath); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, absPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat config file: %w", err)
		}
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	return writeAtomic(absPath, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false

	return nil
}

func lockForPath(path string) *sync.Mutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.Mutex{}
	pathLockMap[path] = mu
	return mu
}
