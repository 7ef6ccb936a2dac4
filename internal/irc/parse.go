// Package irc classifies raw lines from a Twitch-style IRC connection.
package irc

import "strings"

// EventKind identifies what a line means to the connection loop
type EventKind int

const (
	// EventOther covers everything the loop ignores, including malformed lines
	EventOther EventKind = iota
	// EventKeepalive is a server PING that needs an immediate PONG
	EventKeepalive
	// EventMessage is a chat message delivered to the channel
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventKeepalive:
		return "keepalive"
	case EventMessage:
		return "message"
	default:
		return "other"
	}
}

const (
	keepaliveToken = "PING"
	messageMarker  = " PRIVMSG "
)

// Event is the classification of one line
type Event struct {
	Kind   EventKind
	Sender string // set for EventMessage
	Text   string // message text, or the PING argument for EventKeepalive
}

// Parse classifies a single protocol line. It never fails: anything it
// cannot make sense of comes back as EventOther.
func Parse(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	line = stripTags(line)

	if strings.HasPrefix(line, keepaliveToken) {
		return Event{
			Kind: EventKeepalive,
			Text: strings.TrimSpace(strings.TrimPrefix(line, keepaliveToken)),
		}
	}

	marker := strings.Index(line, messageMarker)
	if marker < 0 {
		return Event{Kind: EventOther}
	}

	// Prefix looks like ":nick!user@host"; the '!' must come before the marker
	if !strings.HasPrefix(line, ":") {
		return Event{Kind: EventOther}
	}
	bang := strings.IndexByte(line, '!')
	if bang < 2 || bang > marker {
		return Event{Kind: EventOther}
	}
	sender := line[1:bang]

	// Params look like "#channel :text"
	params := line[marker+len(messageMarker):]
	colon := strings.IndexByte(params, ':')
	if colon < 0 {
		return Event{Kind: EventOther}
	}

	return Event{
		Kind:   EventMessage,
		Sender: sender,
		Text:   params[colon+1:],
	}
}

// stripTags drops a leading IRCv3 tag block ("@key=value;... ")
func stripTags(line string) string {
	if !strings.HasPrefix(line, "@") {
		return line
	}
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[i+1:]
	}
	return ""
}
