package ui

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/john/chatqa/internal/message"
)

// Presenter is what the pipeline calls to update the display
type Presenter interface {
	SetStatus(text string)
	Rerender(entries []message.Answer)
}

// Program runs the terminal window. Worker goroutines never touch the
// model; their updates are sent through the bubbletea event loop.
type Program struct {
	program *tea.Program
}

// NewProgram creates a full-screen history window
func NewProgram() *Program {
	return &Program{
		program: tea.NewProgram(NewModel(), tea.WithAltScreen()),
	}
}

// Run blocks until the user quits or ctx is cancelled
func (p *Program) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, p.program.Quit)
	defer stop()

	if _, err := p.program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// SetStatus implements Presenter
func (p *Program) SetStatus(text string) {
	p.program.Send(StatusMsg(text))
}

// Rerender implements Presenter
func (p *Program) Rerender(entries []message.Answer) {
	p.program.Send(HistoryMsg(entries))
}

// Headless logs updates instead of drawing them
type Headless struct{}

// SetStatus implements Presenter
func (Headless) SetStatus(text string) {
	log.Printf("Status: %s", text)
}

// Rerender implements Presenter. Only the newest entry is logged; earlier
// ones were logged when they arrived.
func (Headless) Rerender(entries []message.Answer) {
	if len(entries) == 0 {
		return
	}
	a := entries[len(entries)-1]
	log.Printf("@%s asks: %s | Answer: %s", a.Sender, a.Question, a.Answer)
}
