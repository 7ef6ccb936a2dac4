// Package command recognizes question commands in chat text.
package command

import "strings"

const (
	// Prefix marks a chat message as a question
	Prefix    = "!q"
	separator = " "
)

// Extract returns the question carried by text when text is a "!q" command.
// The question is everything after "!q " verbatim and may be empty; a bare
// "!q" also counts as an empty question.
func Extract(text string) (string, bool) {
	if text == Prefix {
		return "", true
	}
	if !strings.HasPrefix(text, Prefix+separator) {
		return "", false
	}
	return text[len(Prefix)+len(separator):], true
}
