package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boardbot/pkg/channel/console"
	"boardbot/pkg/interact"
)

// Transport is the console side the UI drives.
type Transport interface {
	Submit(ctx context.Context, text string) error
	Output() <-chan console.Output
}

// Info describes the session shown in the header.
type Info struct {
	Username string
	Prefix   string
}

type entry struct {
	id        string
	role      string
	content   string
	edited    bool
	reactions []string
}

type outputMsg struct {
	output console.Output
	ok     bool
}

type submitErrMsg struct {
	err error
}

type model struct {
	ctx       context.Context
	transport Transport
	info      Info

	theme     theme
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	index     map[string]int
	width     int
	height    int
	isReady   bool
	lastErr   string
	followLog bool
	closed    bool
}

func newModel(ctx context.Context, transport Transport, info Info) *model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Type a command, e.g. " + info.Prefix + "help"
	in.Focus()
	in.CharLimit = 0

	return &model{
		ctx:       ctx,
		transport: transport,
		info:      info,
		theme:     defaultTheme(),
		input:     in,
		viewport:  viewport.New(80, 12),
		index:     map[string]int{},
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitOutputCmd(m.transport))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil

	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil

	case outputMsg:
		if !typed.ok {
			m.closed = true
			return m, nil
		}
		m.apply(typed.output)
		m.refreshViewport(false)
		return m, waitOutputCmd(m.transport)

	case submitErrMsg:
		m.lastErr = typed.err.Error()
		m.entries = append(m.entries, entry{role: "error", content: typed.err.Error()})
		m.refreshViewport(false)
		return m, nil

	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+p":
			return m, submitCmd(m.ctx, m.transport, "/react "+interact.EmojiPrevious)
		case "ctrl+n":
			return m, submitCmd(m.ctx, m.transport, "/react "+interact.EmojiNext)
		case "ctrl+x":
			return m, submitCmd(m.ctx, m.transport, "/react "+interact.EmojiStop)
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if isExitCommand(text) {
				return m, tea.Quit
			}
			m.lastErr = ""
			m.input.SetValue("")
			if !strings.HasPrefix(text, "/react ") {
				m.entries = append(m.entries, entry{role: "user", content: text})
			}
			m.followLog = true
			m.refreshViewport(true)
			return m, submitCmd(m.ctx, m.transport, text)
		}
		if m.handleViewportKey(typed) {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds one bot output into the transcript. Edits and reactions to
// unknown messages are dropped.
func (m *model) apply(out console.Output) {
	switch out.Kind {
	case console.OutputPosted:
		m.index[out.MessageID] = len(m.entries)
		m.entries = append(m.entries, entry{id: out.MessageID, role: "bot", content: out.Text})
	case console.OutputEdited:
		if i, ok := m.index[out.MessageID]; ok {
			m.entries[i].content = out.Text
			m.entries[i].edited = true
		}
	case console.OutputReacted:
		if i, ok := m.index[out.MessageID]; ok {
			m.entries[i].reactions = append(m.entries[i].reactions, out.Emoji)
		}
	}
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("📋 boardbot console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"user:%s · prefix:%s · messages:%d",
		displayOrNA(m.info.Username),
		displayOrNA(m.info.Prefix),
		len(m.entries),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("Enter send · Ctrl+P/Ctrl+N page · Ctrl+X stop · PgUp/PgDn scroll · Ctrl+C quit")
	if m.closed {
		status = m.theme.statusBusy.Render("bot output closed")
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("last input was not delivered")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("You")+" "+m.theme.hint.Render("(type exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := max(50, m.width-6)
	h := max(8, m.height-10)

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		switch item.role {
		case "user":
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.userTitle.Render(displayOrNA(m.info.Username)),
				m.theme.userBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)),
			))
		case "bot":
			body := strings.TrimSpace(item.content)
			if item.edited {
				body += "\n" + m.theme.edited.Render("(edited)")
			}
			if len(item.reactions) > 0 {
				body += "\n\n" + m.theme.reactions.Render(strings.Join(item.reactions, " "))
			}
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.botTitle.Render("boardbot"),
				m.theme.botBox.Width(m.viewport.Width).Render(body),
			))
		case "error":
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.errorTitle.Render("ERROR"),
				m.theme.errorBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.LineUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.LineDown(3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func waitOutputCmd(transport Transport) tea.Cmd {
	return func() tea.Msg {
		out, ok := <-transport.Output()
		return outputMsg{output: out, ok: ok}
	}
}

func submitCmd(ctx context.Context, transport Transport, text string) tea.Cmd {
	return func() tea.Msg {
		if err := transport.Submit(ctx, text); err != nil {
			return submitErrMsg{err: err}
		}
		return nil
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}
	return trimmed
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
