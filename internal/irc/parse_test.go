package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "privmsg",
			line: ":alice!alice@host PRIVMSG #chan :!q what time is it",
			want: Event{Kind: EventMessage, Sender: "alice", Text: "!q what time is it"},
		},
		{
			name: "privmsg with crlf",
			line: ":bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hello there\r\n",
			want: Event{Kind: EventMessage, Sender: "bob", Text: "hello there"},
		},
		{
			name: "text keeps colons",
			line: ":bob!bob@host PRIVMSG #chan :time: 12:30",
			want: Event{Kind: EventMessage, Sender: "bob", Text: "time: 12:30"},
		},
		{
			name: "empty text",
			line: ":bob!bob@host PRIVMSG #chan :",
			want: Event{Kind: EventMessage, Sender: "bob", Text: ""},
		},
		{
			name: "tagged privmsg",
			line: "@badge-info=;color=#FF0000;display-name=Carol :carol!carol@host PRIVMSG #chan :!q hi",
			want: Event{Kind: EventMessage, Sender: "carol", Text: "!q hi"},
		},
		{
			name: "ping",
			line: "PING :tmi.twitch.tv\r\n",
			want: Event{Kind: EventKeepalive, Text: ":tmi.twitch.tv"},
		},
		{
			name: "bare ping",
			line: "PING",
			want: Event{Kind: EventKeepalive},
		},
		{
			name: "welcome numeric",
			line: ":tmi.twitch.tv 001 bot :Welcome, GLHF!",
			want: Event{Kind: EventOther},
		},
		{
			name: "join echo",
			line: ":bot!bot@bot.tmi.twitch.tv JOIN #chan",
			want: Event{Kind: EventOther},
		},
		{
			name: "missing bang",
			line: ":tmi.twitch.tv PRIVMSG #chan :hi!",
			want: Event{Kind: EventOther},
		},
		{
			name: "missing leading colon",
			line: "alice!alice@host PRIVMSG #chan :hi",
			want: Event{Kind: EventOther},
		},
		{
			name: "missing text delimiter",
			line: ":alice!alice@host PRIVMSG #chan",
			want: Event{Kind: EventOther},
		},
		{
			name: "empty sender",
			line: ":!alice@host PRIVMSG #chan :hi",
			want: Event{Kind: EventOther},
		},
		{
			name: "empty line",
			line: "",
			want: Event{Kind: EventOther},
		},
		{
			name: "tags only",
			line: "@badge-info=",
			want: Event{Kind: EventOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestParseKeepaliveNeverMessage(t *testing.T) {
	lines := []string{
		"PING :tmi.twitch.tv",
		"PING :x PRIVMSG #chan :hi",
		"PING :alice!alice@host PRIVMSG #chan :!q hi",
	}
	for _, line := range lines {
		assert.Equal(t, EventKeepalive, Parse(line).Kind, line)
	}
}

func TestParseSenderIsPrefixNick(t *testing.T) {
	for _, nick := range []string{"a", "alice", "some_user42", "x-y"} {
		ev := Parse(":" + nick + "!" + nick + "@host PRIVMSG #c :text")
		assert.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, nick, ev.Sender)
	}
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "keepalive", EventKeepalive.String())
	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "other", EventOther.String())
}
