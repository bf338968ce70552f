// Package toml loads and writes the client configuration file.
package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".shopchat"
	configFile = "config.toml"
	secretsDir = "secrets"
	envPrefix  = "SHOPCHAT"

	KeyConfigFile   = "config"
	KeyEndpoint     = "endpoint"
	KeyTimeout      = "timeout"
	KeyMaxRetries   = "max_retries"
	KeyRetryDelay   = "retry_delay"
	KeyRememberMode = "remember_mode"
	KeyRenderer     = "renderer"
	KeySecretsDir   = "secrets_dir"
	KeySecrets      = "secrets_backend"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
)

// Loader resolves configuration from defaults, the config file, SHOPCHAT_*
// environment variables and bound flags, in increasing precedence.
type Loader struct {
	cfg     *viper.Viper
	homeDir string
}

func NewLoader(cfg *viper.Viper) (*Loader, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaults := domain.DefaultConfig()
	cfg.SetDefault(KeyEndpoint, defaults.Endpoint)
	cfg.SetDefault(KeyTimeout, defaults.Timeout)
	cfg.SetDefault(KeyMaxRetries, defaults.MaxRetries)
	cfg.SetDefault(KeyRetryDelay, defaults.RetryDelay)
	cfg.SetDefault(KeyRememberMode, defaults.RememberMode)
	cfg.SetDefault(KeyRenderer, string(defaults.Renderer))
	cfg.SetDefault(KeySecrets, string(defaults.Secrets))
	cfg.SetDefault(KeySecretsDir, filepath.Join(homeDir, configDir, secretsDir))
	cfg.SetDefault(KeyLogLevel, defaults.LogLevel)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	cfg.AutomaticEnv()

	if explicit := cfg.GetString(KeyConfigFile); explicit != "" {
		cfg.SetConfigFile(explicit)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	}

	if err := cfg.ReadInConfig(); err != nil {
		if !missingConfig(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if version := cfg.GetInt("version"); version != 0 {
		if err := (fileSchema{Version: version}).validateVersion(); err != nil {
			return nil, err
		}
	}

	return &Loader{cfg: cfg, homeDir: homeDir}, nil
}

// Load returns the validated configuration.
func (l *Loader) Load() (domain.Config, error) {
	timeout, err := l.duration(KeyTimeout)
	if err != nil {
		return domain.Config{}, err
	}
	retryDelay, err := l.duration(KeyRetryDelay)
	if err != nil {
		return domain.Config{}, err
	}
	maxRetries, err := cast.ToIntE(l.cfg.Get(KeyMaxRetries))
	if err != nil {
		return domain.Config{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, KeyMaxRetries, err)
	}

	cfg := domain.Config{
		Endpoint:     strings.TrimSpace(l.cfg.GetString(KeyEndpoint)),
		Timeout:      timeout,
		MaxRetries:   maxRetries,
		RetryDelay:   retryDelay,
		RememberMode: l.cfg.GetBool(KeyRememberMode),
		Renderer:     domain.RendererKind(strings.ToLower(l.cfg.GetString(KeyRenderer))),
		Secrets:      domain.SecretsBackend(strings.ToLower(l.cfg.GetString(KeySecrets))),
		SecretsDir:   expandHome(l.cfg.GetString(KeySecretsDir), l.homeDir),
		LogLevel:     l.cfg.GetString(KeyLogLevel),
		LogFile:      expandHome(l.cfg.GetString(KeyLogFile), l.homeDir),
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}

	return cfg, nil
}

// Path is the file Load read from, or the default location when no file
// was found.
func (l *Loader) Path() string {
	if used := l.cfg.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(l.homeDir, configDir, configFile)
}

// duration accepts Go duration strings ("50s") and bare numbers, which are
// read as milliseconds.
func (l *Loader) duration(key string) (time.Duration, error) {
	switch value := l.cfg.Get(key).(type) {
	case time.Duration:
		return value, nil
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		ms, err := cast.ToInt64E(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	default:
		text := strings.TrimSpace(cast.ToString(value))
		if ms, err := cast.ToInt64E(text); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(text)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
		}
		return d, nil
	}
}

// missingConfig reports whether err only says there is no config file yet,
// either in the search path or at an explicit --config location.
func missingConfig(err error) bool {
	var configNotFound viper.ConfigFileNotFoundError
	return errors.As(err, &configNotFound) || errors.Is(err, os.ErrNotExist)
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir, rest)
	}
	return path
}
