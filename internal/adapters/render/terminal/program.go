package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bnema/shopchat/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	CommandNew      = "/new"
	CommandRemember = "/remember"

	inputCharLimit  = 4000
	chromeHeight    = 4
	minViewHeight   = 5
	defaultWidth    = 100
	defaultHeight   = 30
	sessionIDLength = 8
	refreshInterval = time.Second
)

var ErrUnexpectedProgramModel = errors.New("unexpected final bubbletea model type")

// Chat is the conversation the program drives.
type Chat interface {
	Submit(ctx context.Context, message string) (domain.TurnResult, error)
	Cancel()
	Reset()
	SetRememberMode(enabled bool)
	Session() domain.ChatSession
	State() domain.TurnState
}

type ProgramOptions struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

type Program struct {
	chat       Chat
	transcript *Transcript
	opts       ProgramOptions
}

func NewProgram(chat Chat, transcript *Transcript, opts ProgramOptions) *Program {
	return &Program{chat: chat, transcript: transcript, opts: opts}
}

// Run blocks until the user quits or ctx is done. The live turn is
// cancelled on the way out.
func (p *Program) Run(ctx context.Context) error {
	options := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.opts.Input != nil {
		options = append(options, tea.WithInput(p.opts.Input))
	}
	if p.opts.Output != nil {
		options = append(options, tea.WithOutput(p.opts.Output))
	}
	if p.opts.AltScreen {
		options = append(options, tea.WithAltScreen())
	}

	program := tea.NewProgram(newModel(ctx, p.chat, p.transcript), options...)
	finalModel, err := program.Run()
	p.chat.Cancel()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run chat program: %w", err)
	}
	if _, ok := finalModel.(model); !ok {
		return ErrUnexpectedProgramModel
	}

	return nil
}

type (
	transcriptChangedMsg struct{}
	refreshTickMsg       struct{}
	turnDoneMsg          struct {
		result domain.TurnResult
		err    error
	}
)

type model struct {
	ctx        context.Context
	chat       Chat
	transcript *Transcript
	styles     styles

	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model

	width    int
	height   int
	pending  int
	remember bool
}

func newModel(ctx context.Context, chat Chat, transcript *Transcript) model {
	input := textinput.New()
	input.Placeholder = "Ask about products, your cart or an order"
	input.CharLimit = inputCharLimit
	input.Prompt = ""
	input.Focus()

	s := transcript.styles
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(s.spinner),
	)

	m := model{
		ctx:        ctx,
		chat:       chat,
		transcript: transcript,
		styles:     s,
		input:      input,
		view:       viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:    sp,
		width:      defaultWidth,
		height:     defaultHeight,
		remember:   chat.Session().RememberMode,
	}
	m.input.Width = defaultWidth - 3
	m.refresh()

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForChange(), refreshTick())
}

func (m model) waitForChange() tea.Cmd {
	changes := m.transcript.Changes()
	return func() tea.Msg {
		<-changes
		return transcriptChangedMsg{}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m model) submit(message string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		result, err := chat.Submit(ctx, message)
		return turnDoneMsg{result: result, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		if cmd != nil {
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case transcriptChangedMsg:
		m.refresh()
		cmds = append(cmds, m.waitForChange())
	case refreshTickMsg:
		m.refresh()
		cmds = append(cmds, refreshTick())
	case turnDoneMsg:
		m.pending = max(0, m.pending-1)
		m.refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey returns a command for keys it consumes. Unconsumed keys go on
// to the text input.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.chat.Cancel()
		return nil, true
	case tea.KeyEsc:
		m.chat.Cancel()
		return noop, false
	case tea.KeyPgUp:
		m.view.ViewUp()
		return noop, false
	case tea.KeyPgDown:
		m.view.ViewDown()
		return noop, false
	case tea.KeyEnter:
		return m.handleEnter(), false
	}

	return nil, false
}

// handleEnter keeps the typed message in the input while a request still
// awaits its first byte, since the chat would drop it.
func (m *model) handleEnter() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if m.awaitingResponse(text) {
		return noop
	}
	m.input.Reset()

	switch text {
	case "":
		return noop
	case CommandNew:
		m.chat.Reset()
		m.transcript.Clear()
		return noop
	case CommandRemember:
		m.remember = !m.remember
		m.chat.SetRememberMode(m.remember)
		m.transcript.AppendNotice(fmt.Sprintf("Remember mode %s.", onOff(m.remember)))
		return noop
	}

	m.pending++
	return m.submit(text)
}

func (m *model) awaitingResponse(text string) bool {
	switch text {
	case "", CommandNew, CommandRemember:
		return false
	}
	return m.chat.State().Phase == domain.TurnAwaitingResponse
}

func noop() tea.Msg {
	return nil
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	m.view.Width = width
	m.view.Height = max(height-chromeHeight, minViewHeight)
	m.input.Width = max(width-3, 1)
	m.refresh()
}

func (m *model) refresh() {
	atBottom := m.view.AtBottom() || m.view.TotalLineCount() <= m.view.Height
	m.view.SetContent(m.transcript.Render(m.width))
	if atBottom {
		m.view.GotoBottom()
	}
}

func (m model) View() string {
	s := m.styles

	status := "shopchat"
	if id := m.chat.Session().SessionID; id != "" {
		if len(id) > sessionIDLength {
			id = id[:sessionIDLength]
		}
		status += " • session " + id
	}
	status += " • remember " + onOff(m.remember)

	activity := ""
	if m.transcript.Typing() {
		activity = m.spinner.View() + s.typing.Render(" Assistant is typing...")
	} else if m.pending > 0 {
		activity = m.spinner.View()
	}

	help := "Enter send • Esc cancel • PgUp/PgDn scroll • /new • /remember • Ctrl+C quit"

	return lipgloss.JoinVertical(lipgloss.Left,
		s.status.Render(status),
		m.view.View(),
		activity,
		s.prompt.Render("> ")+m.input.View(),
		s.help.Render(help),
	)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
