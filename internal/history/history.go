// Package history keeps the answered questions for the lifetime of the process.
package history

import (
	"sync"

	"github.com/john/chatqa/internal/message"
)

// Log is an append-only, insertion-ordered list of answers. The dispatcher
// is the only writer; readers get copies.
type Log struct {
	mu      sync.RWMutex
	entries []message.Answer
}

// New creates an empty log
func New() *Log {
	return &Log{}
}

// Append adds an answer to the end of the log and returns the new length
func (l *Log) Append(a message.Answer) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, a)
	return len(l.entries)
}

// Len returns the number of answers recorded so far
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of every answer in insertion order
func (l *Log) Snapshot() []message.Answer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]message.Answer, len(l.entries))
	copy(out, l.entries)
	return out
}
