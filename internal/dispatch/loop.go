// Package dispatch drains the command queue, answers each question and
// publishes the result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/john/chatqa/internal/history"
	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/narrator"
	"github.com/john/chatqa/internal/queue"
	"github.com/john/chatqa/internal/status"
)

// DefaultInterval is the pause between dispatch cycles
const DefaultInterval = 10 * time.Second

// Mode selects how many commands a cycle handles
type Mode string

const (
	// ModeFixed answers at most one command per interval
	ModeFixed Mode = "fixed"
	// ModeDrain answers until the queue is empty, then waits for the
	// interval or the next push
	ModeDrain Mode = "drain"
)

// ParseMode validates a configured mode name. Empty means ModeFixed.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFixed:
		return ModeFixed, nil
	case ModeDrain:
		return ModeDrain, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", s)
	}
}

// Generator produces an answer for a question
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

// Speaker reads text aloud and returns once it is done
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Renderer redraws the history view
type Renderer interface {
	Rerender(entries []message.Answer)
}

// Loop is the single consumer of the command queue and the single writer
// of the history log.
type Loop struct {
	queue     *queue.Queue
	history   *history.Log
	generator Generator
	speaker   Speaker
	renderer  Renderer
	status    status.Setter
	archive   chan<- message.Answer

	interval time.Duration
	mode     Mode
}

// Options configures a Loop. Speaker, Renderer and Archive are optional.
type Options struct {
	Queue     *queue.Queue
	History   *history.Log
	Generator Generator
	Speaker   Speaker
	Renderer  Renderer
	Status    status.Setter
	Archive   chan<- message.Answer
	Interval  time.Duration
	Mode      Mode
}

// New creates a dispatch loop
func New(opts Options) *Loop {
	l := &Loop{
		queue:     opts.Queue,
		history:   opts.History,
		generator: opts.Generator,
		speaker:   opts.Speaker,
		renderer:  opts.Renderer,
		status:    opts.Status,
		archive:   opts.Archive,
		interval:  opts.Interval,
		mode:      opts.Mode,
	}
	if l.speaker == nil {
		l.speaker = narrator.Silent{}
	}
	if l.status == nil {
		l.status = status.NewBoard(nil)
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	if l.mode == "" {
		l.mode = ModeFixed
	}
	return l
}

// Start runs dispatch cycles until ctx is cancelled
func (l *Loop) Start(ctx context.Context) error {
	log.Printf("Dispatcher started (mode %s, interval %v)", l.mode, l.interval)

	for {
		l.cycle(ctx)

		if err := l.wait(ctx); err != nil {
			log.Println("Dispatcher shutting down...")
			return err
		}
	}
}

// wait blocks until the next cycle is due
func (l *Loop) wait(ctx context.Context) error {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	var ready <-chan struct{}
	if l.mode == ModeDrain {
		ready = l.queue.Ready()
	}

	select {
	case <-timer.C:
		return nil
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycle handles one command, or in drain mode every queued command, and
// returns how many were taken off the queue
func (l *Loop) cycle(ctx context.Context) int {
	handled := 0
	for ctx.Err() == nil {
		cmd, ok := l.queue.TryPop()
		if !ok {
			break
		}
		handled++
		l.process(ctx, cmd)

		if l.mode == ModeFixed {
			break
		}
	}
	return handled
}

// process answers a single command. A failed generation drops the command.
func (l *Loop) process(ctx context.Context, cmd message.Command) {
	reply, err := l.generator.Generate(ctx, cmd.Question)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("Error answering %s from %s (%s): %v", cmd.ID, cmd.Sender, cmd.Channel, err)
		l.status.SetStatus(status.Waiting)
		return
	}

	a := message.Answer{
		Command:    cmd,
		Answer:     reply,
		AnsweredAt: time.Now().UTC(),
	}
	n := l.history.Append(a)
	log.Printf("Answered %s from %s (%d in history)", cmd.ID, cmd.Sender, n)

	if l.renderer != nil {
		l.renderer.Rerender(l.history.Snapshot())
	}

	if l.archive != nil {
		select {
		case l.archive <- a:
		default:
			log.Printf("Warning: transcript queue full, answer %s not archived", cmd.ID)
		}
	}

	if err := l.speaker.Speak(ctx, narrator.Utterance(a)); err != nil {
		log.Printf("Error speaking answer %s: %v", cmd.ID, err)
	}

	l.status.SetStatus(status.Waiting)
}
