// Package queue holds commands between the chat connectors and the dispatcher.
package queue

import (
	"sync"

	"github.com/john/chatqa/internal/message"
)

// Queue is an unbounded FIFO of commands. Push and TryPop never block and
// are safe to call from any goroutine.
type Queue struct {
	mu    sync.Mutex
	items []message.Command
	ready chan struct{}
}

// New creates an empty queue
func New() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Push appends a command to the tail of the queue
func (q *Queue) Push(cmd message.Command) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	// Coalesce wakeups: one pending signal is enough
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the head of the queue, if any
func (q *Queue) TryPop() (message.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return message.Command{}, false
	}

	cmd := q.items[0]
	q.items[0] = message.Command{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Let the backing array go once drained
		q.items = nil
	}
	return cmd, true
}

// Len returns the number of queued commands
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready is signalled after a push. Signals coalesce, so a receiver should
// drain with TryPop until it reports empty.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}
