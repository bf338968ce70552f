package cmd

import (
	"context"

	configtoml "github.com/bnema/shopchat/internal/adapters/config/toml"
	"github.com/bnema/shopchat/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagConfig     = "config"
	flagEndpoint   = "endpoint"
	flagTimeout    = "timeout"
	flagRetries    = "retries"
	flagRetryDelay = "retry-delay"
	flagRemember   = "remember"
	flagRenderer   = "renderer"
	flagNoColor    = "no-color"
)

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cli := newCLI(viper.New())

	rootCmd := &cobra.Command{
		Use:           "shopchat",
		Short:         "shopchat: chat with the storefront assistant",
		Long:          "shopchat talks to the storefront assistant over its streaming chat endpoint, rendering replies as they arrive along with product, cart and order cards.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	defaults := domain.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default ~/.shopchat/config.toml)")
	flags.String(flagEndpoint, defaults.Endpoint, "Chat endpoint URL")
	flags.Duration(flagTimeout, defaults.Timeout, "Per-attempt request timeout")
	flags.Int(flagRetries, defaults.MaxRetries, "Retries after a transient failure")
	flags.Duration(flagRetryDelay, defaults.RetryDelay, "Base retry delay, doubled per attempt")
	flags.Bool(flagRemember, defaults.RememberMode, "Start in remember mode")
	flags.String(flagRenderer, string(defaults.Renderer), "Reply renderer (incremental|commonmark)")
	flags.Bool(flagNoColor, false, "Disable colored output")

	if err := bindFlags(cli.viper, flags); err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(cli),
		newAskCmd(cli),
		newConfigCmd(cli),
		newAuthCmd(cli),
	)

	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		configtoml.KeyConfigFile:   flagConfig,
		configtoml.KeyEndpoint:     flagEndpoint,
		configtoml.KeyTimeout:      flagTimeout,
		configtoml.KeyMaxRetries:   flagRetries,
		configtoml.KeyRetryDelay:   flagRetryDelay,
		configtoml.KeyRememberMode: flagRemember,
		configtoml.KeyRenderer:     flagRenderer,
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func noColor(cmd *cobra.Command) bool {
	disabled, err := cmd.Flags().GetBool(flagNoColor)
	return err == nil && disabled
}
