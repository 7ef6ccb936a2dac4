package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/status"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func TestModelShowsStatus(t *testing.T) {
	m := NewModel()
	assert.Contains(t, m.View(), status.Waiting)

	m = update(t, m, StatusMsg(status.Processing))
	assert.Contains(t, m.View(), status.Processing)
	assert.NotContains(t, m.View(), status.Waiting)
}

func TestModelRendersHistory(t *testing.T) {
	m := NewModel()
	m = update(t, m, HistoryMsg{
		{Command: message.Command{Sender: "alice", Question: "what time is it"}, Answer: "42"},
		{Command: message.Command{Sender: "bob", Question: "why"}, Answer: "because"},
	})

	view := m.View()
	assert.Contains(t, view, "@alice asks: ")
	assert.Contains(t, view, "what time is it")
	assert.Contains(t, view, "42")
	assert.Contains(t, view, "@bob asks: ")
	assert.Contains(t, view, "because")
}

func TestModelResize(t *testing.T) {
	m := NewModel()
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 29, m.viewport.Height)

	m = update(t, m, HistoryMsg{
		{Command: message.Command{Sender: "alice", Question: "q"}, Answer: "markdown answer"},
	})
	assert.Contains(t, m.renderHistory(), "markdown")
}

func TestModelQuitKeys(t *testing.T) {
	m := NewModel()
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.QuitMsg{}, cmd(), key.String())
	}
}
