package toml

import (
	"fmt"
	"time"

	"github.com/bnema/shopchat/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version      int    `toml:"version"`
	Endpoint     string `toml:"endpoint"`
	Timeout      string `toml:"timeout"`
	MaxRetries   int    `toml:"max_retries"`
	RetryDelay   string `toml:"retry_delay"`
	RememberMode bool   `toml:"remember_mode"`
	Renderer     string `toml:"renderer"`
	Secrets      string `toml:"secrets_backend"`
	SecretsDir   string `toml:"secrets_dir,omitempty"`
	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file,omitempty"`
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("%w: unsupported config schema version %d (current %d)", domain.ErrInvalidConfig, s.Version, currentSchemaVersion)
	}

	return nil
}

func toSchema(cfg domain.Config) fileSchema {
	return fileSchema{
		Version:      currentSchemaVersion,
		Endpoint:     cfg.Endpoint,
		Timeout:      formatDuration(cfg.Timeout),
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   formatDuration(cfg.RetryDelay),
		RememberMode: cfg.RememberMode,
		Renderer:     string(cfg.Renderer),
		Secrets:      string(cfg.Secrets),
		SecretsDir:   cfg.SecretsDir,
		LogLevel:     cfg.LogLevel,
		LogFile:      cfg.LogFile,
	}
}

func formatDuration(d time.Duration) string {
	return d.String()
}
