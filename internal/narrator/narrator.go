// Package narrator reads answers aloud.
package narrator

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/john/chatqa/internal/message"
)

const (
	// DefaultCommand is the speech synthesizer used when none is configured
	DefaultCommand = "espeak-ng"
	speechRate     = 180
)

// Utterance is the sentence spoken for an answer
func Utterance(a message.Answer) string {
	return fmt.Sprintf("%s asks %s. %s", a.Sender, a.Question, a.Answer)
}

// System speaks through a text-to-speech binary such as espeak-ng
type System struct {
	command string
}

// NewSystem resolves command on PATH
func NewSystem(command string) (*System, error) {
	if command == "" {
		command = DefaultCommand
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("find speech command %q: %w", command, err)
	}
	return &System{command: resolved}, nil
}

// Speak blocks until text has been spoken or ctx is done
func (s *System) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.command, "-s", strconv.Itoa(speechRate), text)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", s.command, err)
	}
	return nil
}

// Silent is used when narration is disabled
type Silent struct{}

// Speak does nothing
func (Silent) Speak(context.Context, string) error { return nil }
