package cmd

import (
	"fmt"

	configtoml "github.com/bnema/shopchat/internal/adapters/config/toml"
	"github.com/bnema/shopchat/internal/domain"
	"github.com/spf13/cobra"
)

func newConfigCmd(cli *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	cmd.AddCommand(newConfigInitCmd(cli), newConfigShowCmd(cli))

	return cmd
}

func newConfigInitCmd(cli *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, err := cli.loader()
			if err != nil {
				return err
			}

			path := loader.Path()
			if err := configtoml.WriteDefault(path, domain.DefaultConfig(), force); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func newConfigShowCmd(cli *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := cli.wire(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			data, err := configtoml.Encode(app.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# %s\n", app.loader.Path()); err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
