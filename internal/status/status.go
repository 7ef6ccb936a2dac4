// Package status tracks the one-line status shown under the history.
package status

import "sync"

// Status texts shown to the viewer
const (
	Waiting    = "🔍 Waiting for a question..."
	Processing = "⏳ Processing question..."
	Reading    = "📖 Reading response..."
)

// Setter receives status updates
type Setter interface {
	SetStatus(text string)
}

// Board holds the current status and forwards every update to a sink.
// Several goroutines write to it; the last write wins.
type Board struct {
	mu      sync.RWMutex
	current string
	sink    Setter
}

// NewBoard creates a board starting at Waiting. sink may be nil.
func NewBoard(sink Setter) *Board {
	return &Board{current: Waiting, sink: sink}
}

// SetStatus records text and forwards it to the sink
func (b *Board) SetStatus(text string) {
	b.mu.Lock()
	b.current = text
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		sink.SetStatus(text)
	}
}

// Current returns the last status set
func (b *Board) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}
