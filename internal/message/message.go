package message

import (
	"time"

	"github.com/google/uuid"
)

// Command is a question picked out of chat, waiting to be answered
type Command struct {
	ID         string    `json:"id"`
	Platform   string    `json:"platform"`    // Platform name: "twitch", "kick"
	Channel    string    `json:"channel"`     // Channel name or slug, without '#'
	Sender     string    `json:"sender"`      // Chat login of the asker
	Question   string    `json:"question"`    // May be empty
	ReceivedAt time.Time `json:"received_at"` // UTC
}

// NewCommand creates a command stamped with a fresh ID and the current time
func NewCommand(platform, channel, sender, question string) Command {
	return Command{
		ID:         uuid.NewString(),
		Platform:   platform,
		Channel:    channel,
		Sender:     sender,
		Question:   question,
		ReceivedAt: time.Now().UTC(),
	}
}

// Answer is a command paired with the generated reply. Answers are never
// modified once they are appended to the history.
type Answer struct {
	Command
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}
