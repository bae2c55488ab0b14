package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"document-qa/internal/models"
	"document-qa/internal/session"
)

// answerMsg carries a finished turn back into the update loop
type answerMsg struct {
	question string
	reply    session.Reply
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx      context.Context
	session  *session.Session
	input    textinput.Model
	viewport viewport.Model
	title    string
	status   string
	busy     bool
	ready    bool
	// turns shown above the input, the failed ones styled differently
	turns []turn
}

type turn struct {
	question string
	reply    session.Reply
}

// New creates the chat model. Previous history entries are shown on start.
func New(ctx context.Context, sess *session.Session, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	m := Model{
		ctx:      ctx,
		session:  sess,
		input:    ti,
		viewport: viewport.New(0, 0),
		title:    title,
		status:   "Ready. Ctrl+C to quit.",
	}
	for _, e := range sess.History().Entries() {
		m.turns = append(m.turns, turn{question: e.User, reply: session.Reply{Text: e.Bot, Failed: e.Failed}})
	}
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// title, status and the input line
		reserved := 3 + qh + th
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.turns = append(m.turns, turn{question: msg.question, reply: msg.reply})
		if msg.reply.Failed {
			m.status = "Last question failed."
		} else {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.busy {
				return m, nil
			}
			q := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(q) == "" {
				m.status = models.PromptForInput
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			return m, m.ask(q)
		}
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) ask(q string) tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return answerMsg{question: q, reply: sess.Ask(ctx, q)}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(t.question)
		b.WriteString("\n")
		if t.reply.Failed {
			b.WriteString(failureStyle.Render("Bot: " + t.reply.Text))
			continue
		}
		b.WriteString(botStyle.Render("Bot: "))
		b.WriteString(t.reply.Text)
		if t.reply.Sources != "" {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render(fmt.Sprintf("Sources: %s", strings.ReplaceAll(t.reply.Sources, "\n", ", "))))
		}
	}
	return b.String()
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	failureStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run starts the full-screen chat until the user quits
func Run(ctx context.Context, sess *session.Session, title string) error {
	p := tea.NewProgram(New(ctx, sess, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
