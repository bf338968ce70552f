package domain

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultTimeout    = 50 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	MaxRetriesLimit   = 10
)

type RendererKind string

const (
	RendererIncremental RendererKind = "incremental"
	RendererCommonMark  RendererKind = "commonmark"
)

func (k RendererKind) Valid() bool {
	switch k {
	case RendererIncremental, RendererCommonMark:
		return true
	default:
		return false
	}
}

type SecretsBackend string

const (
	SecretsFile SecretsBackend = "file"
	// SecretsPass keeps the token in pass(1) and falls back to files when
	// pass is not installed.
	SecretsPass SecretsBackend = "pass"
)

func (b SecretsBackend) Valid() bool {
	return b == SecretsFile || b == SecretsPass
}

// Config is read once at startup; there is no runtime reload.
type Config struct {
	Endpoint     string         `toml:"endpoint" mapstructure:"endpoint"`
	Timeout      time.Duration  `toml:"timeout" mapstructure:"timeout"`
	MaxRetries   int            `toml:"max_retries" mapstructure:"max_retries"`
	RetryDelay   time.Duration  `toml:"retry_delay" mapstructure:"retry_delay"`
	RememberMode bool           `toml:"remember_mode" mapstructure:"remember_mode"`
	Renderer     RendererKind   `toml:"renderer" mapstructure:"renderer"`
	Secrets      SecretsBackend `toml:"secrets_backend" mapstructure:"secrets_backend"`
	SecretsDir   string         `toml:"secrets_dir" mapstructure:"secrets_dir"`
	LogLevel     string         `toml:"log_level" mapstructure:"log_level"`
	LogFile      string         `toml:"log_file" mapstructure:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint:   "http://localhost:8000/chat",
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Renderer:   RendererIncremental,
		Secrets:    SecretsFile,
		LogLevel:   "warn",
	}
}

func (c Config) Validate() error {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil || !endpoint.IsAbs() || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return fmt.Errorf("%w: endpoint %q must be an absolute http(s) URL", ErrInvalidConfig, c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("%w: max_retries must be between 0 and %d", ErrInvalidConfig, MaxRetriesLimit)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must not be negative", ErrInvalidConfig)
	}
	if c.Renderer != "" && !c.Renderer.Valid() {
		return fmt.Errorf("%w: unknown renderer %q", ErrInvalidConfig, c.Renderer)
	}
	if c.Secrets != "" && !c.Secrets.Valid() {
		return fmt.Errorf("%w: unknown secrets_backend %q", ErrInvalidConfig, c.Secrets)
	}
	return nil
}
