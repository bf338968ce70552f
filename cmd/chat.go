package cmd

import (
	"errors"
	"os"

	"github.com/bnema/shopchat/internal/adapters/render/terminal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNotATerminal = errors.New("chat needs an interactive terminal; use `shopchat ask` instead")

func newChatCmd(cli *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(cmd.InOrStdin()) {
				return errNotATerminal
			}

			app, err := cli.wire(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			transcript := terminal.NewTranscript(terminal.Options{
				Output:  cmd.OutOrStdout(),
				NoColor: noColor(cmd),
				Clock:   app.clock,
			})
			service, err := app.newChatService(cmd.Context(), transcript)
			if err != nil {
				return err
			}

			program := terminal.NewProgram(service, transcript, terminal.ProgramOptions{
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
				AltScreen: true,
			})
			return program.Run(cmd.Context())
		},
	}
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
