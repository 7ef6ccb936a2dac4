// Package ui shows the question/answer history and the pipeline status.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/status"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06bbd9")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d0d0d0")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)
)

// StatusMsg replaces the status line
type StatusMsg string

// HistoryMsg replaces the rendered history
type HistoryMsg []message.Answer

// Model is the bubbletea model for the history window
type Model struct {
	viewport viewport.Model
	markdown *glamour.TermRenderer
	status   string
	entries  []message.Answer
	width    int
}

// NewModel creates a model showing an empty history
func NewModel() Model {
	return Model{
		viewport: viewport.New(80, 20),
		status:   status.Waiting,
		width:    80,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-lipgloss.Height(m.statusBar()), 1)
		m.markdown = newMarkdown(msg.Width)
		m.viewport.SetContent(m.renderHistory())

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case HistoryMsg:
		m.entries = msg
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	return m.viewport.View() + "\n" + m.statusBar()
}

func (m Model) statusBar() string {
	return statusStyle.Width(m.width).Render(m.status)
}

// renderHistory redraws every entry from scratch
func (m Model) renderHistory() string {
	var b strings.Builder
	for _, a := range m.entries {
		b.WriteString(titleStyle.Render("@" + a.Sender + " asks: "))
		b.WriteString(textStyle.Render(a.Question))
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Answer: "))
		b.WriteString(m.renderAnswer(a.Answer))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) renderAnswer(text string) string {
	if m.markdown == nil {
		return textStyle.Render(text)
	}
	rendered, err := m.markdown.Render(text)
	if err != nil {
		return textStyle.Render(text)
	}
	return strings.Trim(rendered, "\n")
}

// newMarkdown returns nil when glamour cannot be set up; answers are then
// shown as plain text
func newMarkdown(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}
