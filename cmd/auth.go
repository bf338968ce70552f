package cmd

import (
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/shopchat/internal/adapters/secrets/file"
	"github.com/spf13/cobra"
)

var errEmptyToken = errors.New("token must not be empty")

func newAuthCmd(cli *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the endpoint bearer token",
	}

	cmd.AddCommand(newAuthSetCmd(cli), newAuthRemoveCmd(cli))

	return cmd
}

func newAuthSetCmd(cli *cli) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the bearer token sent with chat requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return errEmptyToken
			}

			app, err := cli.wire(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.secrets.Put(cmd.Context(), filestore.BearerTokenKey, token); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Bearer token stored.")
			return err
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newAuthRemoveCmd(cli *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := cli.wire(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.secrets.Delete(cmd.Context(), filestore.BearerTokenKey); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Bearer token removed.")
			return err
		},
	}
}
