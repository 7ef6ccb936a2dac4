package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/status"
)

type sliceQueue []message.Command

func (s *sliceQueue) Push(cmd message.Command) {
	*s = append(*s, cmd)
}

func TestEnqueue(t *testing.T) {
	q := &sliceQueue{}
	board := status.NewBoard(nil)

	assert.False(t, Enqueue("twitch", "chan", "bob", "just chatting", q, board))
	assert.Empty(t, *q)
	assert.Equal(t, status.Waiting, board.Current())

	assert.True(t, Enqueue("twitch", "chan", "alice", "!q what time is it", q, board))
	require.Len(t, *q, 1)
	cmd := (*q)[0]
	assert.Equal(t, "twitch", cmd.Platform)
	assert.Equal(t, "chan", cmd.Channel)
	assert.Equal(t, "alice", cmd.Sender)
	assert.Equal(t, "what time is it", cmd.Question)
	assert.NotEmpty(t, cmd.ID)
	assert.Equal(t, status.Processing, board.Current())
}

func TestEnqueueNilStatus(t *testing.T) {
	q := &sliceQueue{}
	assert.True(t, Enqueue("kick", "xqc", "dave", "!q", q, nil))
	require.Len(t, *q, 1)
	assert.Equal(t, "", (*q)[0].Question)
}
