package toml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoaderDefaults(t *testing.T) {
	home := isolateHome(t)

	loader, err := NewLoader(viper.New())
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 50*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.False(t, cfg.RememberMode)
	assert.Equal(t, domain.RendererIncremental, cfg.Renderer)
	assert.Equal(t, domain.SecretsFile, cfg.Secrets)
	assert.Equal(t, filepath.Join(home, ".shopchat", "secrets"), cfg.SecretsDir)
	assert.Equal(t, filepath.Join(home, ".shopchat", "config.toml"), loader.Path())
}

func TestLoaderReadsConfigFile(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".shopchat")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
version = 1
endpoint = "https://shop.test/chat"
timeout = 50000
retry_delay = "250ms"
max_retries = 5
remember_mode = true
renderer = "commonmark"
secrets_backend = "PASS"
log_file = "~/logs/shopchat.log"
`), 0o600))

	loader, err := NewLoader(viper.New())
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.test/chat", cfg.Endpoint)
	assert.Equal(t, 50*time.Second, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.RememberMode)
	assert.Equal(t, domain.RendererCommonMark, cfg.Renderer)
	assert.Equal(t, domain.SecretsPass, cfg.Secrets)
	assert.Equal(t, filepath.Join(home, "logs", "shopchat.log"), cfg.LogFile)
	assert.Equal(t, filepath.Join(dir, "config.toml"), loader.Path())
}

func TestLoaderEnvironmentOverridesFile(t *testing.T) {
	isolateHome(t)
	t.Setenv("SHOPCHAT_ENDPOINT", "http://env.test/chat")
	t.Setenv("SHOPCHAT_MAX_RETRIES", "0")

	loader, err := NewLoader(viper.New())
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env.test/chat", cfg.Endpoint)
	assert.Zero(t, cfg.MaxRetries)
}

func TestLoaderRejectsInvalidValues(t *testing.T) {
	isolateHome(t)

	config := viper.New()
	config.Set(KeyTimeout, "soon")
	loader, err := NewLoader(config)
	require.NoError(t, err)

	_, err = loader.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	config = viper.New()
	config.Set(KeyEndpoint, "not a url")
	loader, err = NewLoader(config)
	require.NoError(t, err)

	_, err = loader.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoaderRejectsNewerSchema(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 9\n"), 0o600))

	config := viper.New()
	config.Set(KeyConfigFile, path)

	_, err := NewLoader(config)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoaderExplicitMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(isolateHome(t), "nowhere.toml")

	config := viper.New()
	config.Set(KeyConfigFile, path)

	loader, err := NewLoader(config)
	require.NoError(t, err)
	assert.Equal(t, path, loader.Path())
}
