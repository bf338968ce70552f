package terminal

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	color bool

	user       lipgloss.Style
	bot        lipgloss.Style
	errorText  lipgloss.Style
	notice     lipgloss.Style
	typing     lipgloss.Style
	status     lipgloss.Style
	help       lipgloss.Style
	prompt     lipgloss.Style
	heading    lipgloss.Style
	quote      lipgloss.Style
	code       lipgloss.Style
	codeBlock  lipgloss.Style
	link       lipgloss.Style
	rule       lipgloss.Style
	tableHead  lipgloss.Style
	card       lipgloss.Style
	cardHeader lipgloss.Style
	cardTitle  lipgloss.Style
	price      lipgloss.Style
	label      lipgloss.Style
	faint      lipgloss.Style
	spinner    lipgloss.Style
	base       lipgloss.Style
}

// profileFor picks the color profile for out. NoColor forces plain text.
func profileFor(out io.Writer, noColor bool) termenv.Profile {
	if noColor {
		return termenv.Ascii
	}
	if out == nil {
		out = os.Stdout
	}
	return termenv.NewOutput(out).EnvColorProfile()
}

func newStyles(out io.Writer, profile termenv.Profile) styles {
	if out == nil {
		out = io.Discard
	}
	r := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	r.SetColorProfile(profile)

	return styles{
		color:      profile != termenv.Ascii,
		user:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		bot:        r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		errorText:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		notice:     r.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		typing:     r.NewStyle().Faint(true),
		status:     r.NewStyle().Foreground(lipgloss.Color("241")),
		help:       r.NewStyle().Foreground(lipgloss.Color("240")),
		prompt:     r.NewStyle().Foreground(lipgloss.Color("63")),
		heading:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		quote:      r.NewStyle().Foreground(lipgloss.Color("245")),
		code:       r.NewStyle().Foreground(lipgloss.Color("216")),
		codeBlock:  r.NewStyle().Foreground(lipgloss.Color("250")),
		link:       r.NewStyle().Underline(true).Foreground(lipgloss.Color("75")),
		rule:       r.NewStyle().Foreground(lipgloss.Color("238")),
		tableHead:  r.NewStyle().Bold(true).Padding(0, 1),
		card:       r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		cardHeader: r.NewStyle().Bold(true),
		cardTitle:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		price:      r.NewStyle().Foreground(lipgloss.Color("159")),
		label:      r.NewStyle().Foreground(lipgloss.Color("250")),
		faint:      r.NewStyle().Faint(true),
		spinner:    r.NewStyle().Foreground(lipgloss.Color("69")),
		base:       r.NewStyle(),
	}
}
