package command

import (
	"log"

	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/status"
)

// Enqueuer accepts commands for the dispatcher
type Enqueuer interface {
	Push(cmd message.Command)
}

// Enqueue pushes text onto q when it is a question command and flags the
// status as Processing. st may be nil.
func Enqueue(platform, channel, sender, text string, q Enqueuer, st status.Setter) bool {
	question, ok := Extract(text)
	if !ok {
		return false
	}

	cmd := message.NewCommand(platform, channel, sender, question)
	q.Push(cmd)
	log.Printf("Queued question %s from %s (%s/%s)", cmd.ID, cmd.Sender, platform, channel)
	if st != nil {
		st.SetStatus(status.Processing)
	}
	return true
}
