package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bnema/shopchat/internal/adapters/cache/memory"
	configtoml "github.com/bnema/shopchat/internal/adapters/config/toml"
	"github.com/bnema/shopchat/internal/adapters/render/commonmark"
	"github.com/bnema/shopchat/internal/adapters/render/markdown"
	"github.com/bnema/shopchat/internal/adapters/secrets/chain"
	filestore "github.com/bnema/shopchat/internal/adapters/secrets/file"
	passstore "github.com/bnema/shopchat/internal/adapters/secrets/pass"
	"github.com/bnema/shopchat/internal/adapters/transport/httpstream"
	"github.com/bnema/shopchat/internal/application"
	"github.com/bnema/shopchat/internal/domain"
	"github.com/bnema/shopchat/internal/logging"
	"github.com/bnema/shopchat/internal/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds what every command shares. Wiring waits until flags are
// parsed, since the config file location may come from --config.
type cli struct {
	viper      *viper.Viper
	httpClient *http.Client
	clock      ports.Clock
}

func newCLI(v *viper.Viper) *cli {
	return &cli{
		viper:      v,
		httpClient: http.DefaultClient,
		clock:      ports.SystemClock{},
	}
}

type app struct {
	cfg        domain.Config
	loader     *configtoml.Loader
	logger     *slog.Logger
	closeLog   func() error
	secrets    ports.SecretStore
	httpClient *http.Client
	clock      ports.Clock
}

func (c *cli) loader() (*configtoml.Loader, error) {
	loader, err := configtoml.NewLoader(c.viper)
	if err != nil {
		return nil, fmt.Errorf("wire config loader: %w", err)
	}
	return loader, nil
}

func (c *cli) wire(cmd *cobra.Command) (*app, error) {
	loader, err := c.loader()
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	secrets, err := secretStore(cfg)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	return &app{
		cfg:        cfg,
		loader:     loader,
		logger:     logger,
		closeLog:   closeLog,
		secrets:    secrets,
		httpClient: c.httpClient,
		clock:      c.clock,
	}, nil
}

func secretStore(cfg domain.Config) (ports.SecretStore, error) {
	if cfg.Secrets == domain.SecretsPass {
		store, err := chain.NewPassFirst(passstore.DefaultPrefix, cfg.SecretsDir)
		if err != nil {
			return nil, fmt.Errorf("wire secret store: %w", err)
		}
		return store, nil
	}
	return filestore.NewStore(cfg.SecretsDir), nil
}

func (a *app) Close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

func (a *app) newChatService(ctx context.Context, presenter ports.Presenter, opts ...application.ChatOption) (*application.ChatService, error) {
	token, err := filestore.BearerToken(ctx, a.secrets)
	if err != nil {
		return nil, err
	}

	controller := httpstream.New(httpstream.ConfigFrom(a.cfg),
		httpstream.WithHTTPClient(a.httpClient),
		httpstream.WithClock(a.clock),
		httpstream.WithLogger(a.logger),
		httpstream.WithBearerToken(token),
	)

	base := []application.ChatOption{
		application.WithClock(a.clock),
		application.WithLogger(a.logger),
		application.WithRememberMode(a.cfg.RememberMode),
	}

	return application.NewChatService(controller, memory.New(), a.renderer(), presenter, append(base, opts...)...), nil
}

func (a *app) renderer() ports.Renderer {
	if a.cfg.Renderer == domain.RendererCommonMark {
		return commonmark.New()
	}
	return markdown.New()
}
