package chatpanel

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"partybox/pkg/logging"
)

// message is one chat transcript entry.
type message struct {
	role string // "user", "assistant" or "error"
	text string
}

// replyMsg carries an asynchronous backend reply into the update loop.
type replyMsg struct {
	text string
	err  error
}

// logEntryMsg carries one log entry from the logging channel into the
// update loop.
type logEntryMsg logging.LogEntry

// logClosedMsg signals that the logging channel was closed.
type logClosedMsg struct{}

// maxLogLines bounds the in-memory log view.
const maxLogLines = 500

// SendFunc submits a chat prompt and returns the reply text. The
// provider wires this to the backend request handler.
type SendFunc func(prompt string) (string, error)

// model is the bubbletea model behind the chat panel.
type model struct {
	viewport viewport.Model
	input    textarea.Model

	messages []message
	send     SendFunc
	title    string
	width    int
	height   int
	waiting  bool

	logCh    <-chan logging.LogEntry
	logLines []string
	showLogs bool
}

func newModel(title string, send SendFunc, logCh <-chan logging.LogEntry) model {
	input := textarea.New()
	input.Placeholder = "Ask the party..."
	input.SetHeight(3)
	input.Focus()

	vp := viewport.New(80, 16)

	return model{
		viewport: vp,
		input:    input,
		send:     send,
		title:    title,
		width:    80,
		height:   24,
		logCh:    logCh,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForLog())
}

// waitForLog blocks on the logging channel and feeds the next entry into
// the update loop.
func (m model) waitForLog() tea.Cmd {
	ch := m.logCh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return logClosedMsg{}
		}
		return logEntryMsg(entry)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		m.input.SetWidth(msg.Width - 4)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+y":
			m.copyLastReply()
			return m, nil
		case "ctrl+l":
			m.showLogs = !m.showLogs
			m.refreshViewport()
			return m, nil
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" || m.waiting {
				return m, nil
			}
			m.messages = append(m.messages, message{role: "user", text: prompt})
			m.input.Reset()
			m.waiting = true
			m.refreshViewport()
			return m, m.submit(prompt)
		}

	case logEntryMsg:
		m.logLines = append(m.logLines, formatLogEntry(logging.LogEntry(msg)))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		if m.showLogs {
			m.refreshViewport()
		}
		return m, m.waitForLog()

	case logClosedMsg:
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.messages = append(m.messages, message{role: "error", text: msg.err.Error()})
		} else {
			m.messages = append(m.messages, message{role: "assistant", text: msg.text})
		}
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) submit(prompt string) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		if send == nil {
			return replyMsg{err: fmt.Errorf("chat backend not connected")}
		}
		text, err := send(prompt)
		return replyMsg{text: text, err: err}
	}
}

func (m *model) copyLastReply() {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == "assistant" {
			if err := clipboard.WriteAll(m.messages[i].text); err != nil {
				logging.Warn("ChatPanel", "Clipboard copy failed: %v", err)
			}
			return
		}
	}
}

func (m *model) refreshViewport() {
	if m.showLogs {
		m.viewport.SetContent(strings.Join(m.logLines, "\n"))
	} else {
		m.viewport.SetContent(renderTranscript(m.messages, m.viewport.Width))
	}
	m.viewport.GotoBottom()
}

// formatLogEntry renders one log entry as a single log-view line.
func formatLogEntry(entry logging.LogEntry) string {
	line := fmt.Sprintf("%s %-5s [%s] %s",
		entry.Timestamp.Format("15:04:05"), entry.Level, entry.Subsystem, entry.Message)
	if entry.Err != nil {
		line += ": " + entry.Err.Error()
	}
	return line
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.waiting {
		b.WriteString(statusStyle.Render("thinking..."))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("enter: send · ctrl+y: copy last reply · ctrl+l: logs · esc: close"))
	return panelStyle.Render(b.String())
}

// renderTranscript formats the transcript for the viewport, wrapping
// each message to the panel width.
func renderTranscript(messages []message, width int) string {
	if width <= 0 {
		width = 76
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.role {
		case "user":
			b.WriteString(userStyle.Render("you"))
		case "error":
			b.WriteString(errorStyle.Render("error"))
		default:
			b.WriteString(assistantStyle.Render("party box"))
		}
		b.WriteString("\n")
		b.WriteString(wrapText(msg.text, width))
	}
	return b.String()
}

// wrapText wraps on display width so double-width runes don't overflow
// the panel.
func wrapText(text string, width int) string {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		lineWidth := 0
		var current strings.Builder
		for _, word := range strings.Fields(line) {
			w := runewidth.StringWidth(word)
			if lineWidth > 0 && lineWidth+1+w > width {
				b.WriteString(current.String())
				b.WriteString("\n")
				current.Reset()
				lineWidth = 0
			}
			if lineWidth > 0 {
				current.WriteString(" ")
				lineWidth++
			}
			current.WriteString(word)
			lineWidth += w
		}
		b.WriteString(current.String())
	}
	return b.String()
}
