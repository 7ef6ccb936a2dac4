package narrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/chatqa/internal/message"
)

func TestUtterance(t *testing.T) {
	a := message.Answer{
		Command: message.Command{Sender: "alice", Question: "what time is it"},
		Answer:  "Time to stream.",
	}
	assert.Equal(t, "alice asks what time is it. Time to stream.", Utterance(a))
}

func TestNewSystemMissingCommand(t *testing.T) {
	_, err := NewSystem("definitely-not-a-speech-binary-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-speech-binary-xyz")
}

func TestSilent(t *testing.T) {
	assert.NoError(t, Silent{}.Speak(context.Background(), "hello"))
}
