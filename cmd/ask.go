package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/shopchat/internal/adapters/render/page"
	"github.com/bnema/shopchat/internal/adapters/render/terminal"
	"github.com/bnema/shopchat/internal/application"
	"github.com/bnema/shopchat/internal/ports"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	formatText = "text"
	formatHTML = "html"

	defaultTextWidth = 80
)

func newAskCmd(cli *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				presenter ports.Presenter
				flush     func(io.Writer) error
			)
			switch format {
			case formatText:
				transcript := terminal.NewTranscript(terminal.Options{Output: cmd.OutOrStdout(), NoColor: noColor(cmd)})
				presenter = transcript
				flush = func(w io.Writer) error {
					_, err := fmt.Fprintln(w, transcript.Render(outputWidth(w)))
					return err
				}
			case formatHTML:
				transcript := page.NewTranscript(nil)
				presenter = transcript
				flush = transcript.Render
			default:
				return fmt.Errorf("unsupported format %q (want %s or %s)", format, formatText, formatHTML)
			}

			app, err := cli.wire(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			service, err := app.newChatService(cmd.Context(), presenter, application.WithProductStagger(0))
			if err != nil {
				return err
			}

			_, turnErr := service.Submit(cmd.Context(), strings.Join(args, " "))
			if err := flush(cmd.OutOrStdout()); err != nil {
				return err
			}
			return turnErr
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, "Output format (text|html)")

	return cmd
}

func outputWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return defaultTextWidth
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return defaultTextWidth
	}
	return width
}
