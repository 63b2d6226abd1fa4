package transcript_test

import (
	"fmt"
	"testing"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestSubmitAppendsUserAndPlaceholder(t *testing.T) {
	tr := transcript.New(transcript.WithIDGenerator(sequentialIDs()))
	tr.SetInput("What is Otic?")

	ex, err := tr.Submit("What is Otic?")
	require.NoError(t, err)

	s := tr.Snapshot()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, models.SenderUser, s.Messages[0].Sender)
	assert.Equal(t, "What is Otic?", s.Messages[0].Text)
	assert.Equal(t, models.SenderBot, s.Messages[1].Sender)
	assert.Empty(t, s.Messages[1].Text)
	assert.False(t, s.Messages[1].Error)

	assert.Empty(t, s.Input)
	assert.Equal(t, models.StateSending, s.State)
	assert.True(t, s.StreamActive())

	assert.Equal(t, s.Messages[0].ID, ex.UserMessageID)
	assert.Equal(t, s.Messages[1].ID, ex.BotMessageID)
	assert.Equal(t, "What is Otic?", ex.Payload)
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n", "   \r\n  "} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			tr := transcript.New(transcript.WithGreeting(models.DefaultGreeting))
			before := tr.Snapshot()

			_, err := tr.Submit(in)
			require.ErrorIs(t, err, transcript.ErrEmptyInput)

			after := tr.Snapshot()
			assert.Equal(t, before.Messages, after.Messages)
			assert.Equal(t, before.Version, after.Version)
			assert.Equal(t, models.StateIdle, after.State)
		})
	}
}

func TestSubmitRejectedWhileActive(t *testing.T) {
	tr := transcript.New()

	ex, err := tr.Submit("first")
	require.NoError(t, err)

	_, err = tr.Submit("second")
	require.ErrorIs(t, err, transcript.ErrStreamActive)
	assert.Equal(t, 2, tr.Len())

	require.NoError(t, tr.BeginStreaming(ex.BotMessageID))
	_, err = tr.Submit("third")
	require.ErrorIs(t, err, transcript.ErrStreamActive)
	assert.Equal(t, 2, tr.Len())

	require.NoError(t, tr.Complete(ex.BotMessageID))
	_, err = tr.Submit("fourth")
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Len())
}

func TestChunksAppendInOrder(t *testing.T) {
	var texts []string
	tr := transcript.New(transcript.WithObserver(func(s transcript.Snapshot) {
		if n := len(s.Messages); n > 0 && s.Messages[n-1].Sender == models.SenderBot {
			texts = append(texts, s.Messages[n-1].Text)
		}
	}))

	ex, err := tr.Submit("hi")
	require.NoError(t, err)
	require.NoError(t, tr.BeginStreaming(ex.BotMessageID))
	for _, c := range []string{"Hel", "lo", " world"} {
		require.NoError(t, tr.AppendChunk(ex.BotMessageID, c))
	}
	require.NoError(t, tr.Complete(ex.BotMessageID))

	s := tr.Snapshot()
	assert.Equal(t, "Hello world", s.Messages[1].Text)
	assert.Equal(t, models.StateCompleted, s.State)
	assert.False(t, s.StreamActive())

	// submit, begin, three chunks, complete
	assert.Equal(t, []string{"", "", "Hel", "Hello", "Hello world", "Hello world"}, texts)
}

func TestAppendChunkWhileSendingBeginsStreaming(t *testing.T) {
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)

	require.NoError(t, tr.AppendChunk(ex.BotMessageID, "x"))
	assert.Equal(t, models.StateStreaming, tr.State())
}

func TestFailReplacesPartialText(t *testing.T) {
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)
	require.NoError(t, tr.AppendChunk(ex.BotMessageID, "partial answ"))

	require.NoError(t, tr.Fail(ex.BotMessageID))

	s := tr.Snapshot()
	bot := s.Messages[1]
	assert.Equal(t, models.ConnectivityErrorText, bot.Text)
	assert.True(t, bot.Error)
	assert.Equal(t, models.StateErrored, s.State)
	assert.False(t, s.StreamActive())
}

func TestTransitionsRequireActiveExchange(t *testing.T) {
	tr := transcript.New()

	require.ErrorIs(t, tr.AppendChunk("nope", "x"), transcript.ErrNoActiveExchange)
	require.ErrorIs(t, tr.Complete("nope"), transcript.ErrNoActiveExchange)
	require.ErrorIs(t, tr.Fail("nope"), transcript.ErrNoActiveExchange)

	ex, err := tr.Submit("hi")
	require.NoError(t, err)
	require.ErrorIs(t, tr.AppendChunk("other", "x"), transcript.ErrUnknownMessage)

	require.NoError(t, tr.Complete(ex.BotMessageID))
	require.ErrorIs(t, tr.Fail(ex.BotMessageID), transcript.ErrNoActiveExchange)
	assert.Empty(t, tr.Snapshot().Messages[1].Text)
}

func TestEveryUserMessageFollowedByBot(t *testing.T) {
	tr := transcript.New(transcript.WithGreeting(models.DefaultGreeting))
	for i := 0; i < 3; i++ {
		ex, err := tr.Submit(fmt.Sprintf("q%d", i))
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, tr.Complete(ex.BotMessageID))
		} else {
			require.NoError(t, tr.Fail(ex.BotMessageID))
		}
	}

	msgs := tr.Snapshot().Messages
	require.Len(t, msgs, 7)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
	for i, m := range msgs {
		if m.Sender == models.SenderUser {
			require.Less(t, i+1, len(msgs))
			assert.Equal(t, models.SenderBot, msgs[i+1].Sender)
		}
	}
}

func TestSetInputIgnoredWhileActive(t *testing.T) {
	tr := transcript.New()
	tr.SetInput("draft")
	assert.Equal(t, "draft", tr.Snapshot().Input)

	_, err := tr.Submit("draft")
	require.NoError(t, err)
	tr.SetInput("typing during stream")
	assert.Empty(t, tr.Snapshot().Input)
}

func TestObserveReceivesCurrentState(t *testing.T) {
	tr := transcript.New(transcript.WithGreeting("hello"))

	var got []transcript.Snapshot
	tr.Observe(func(s transcript.Snapshot) { got = append(got, s) })
	require.Len(t, got, 1)
	assert.Len(t, got[0].Messages, 1)

	_, err := tr.Submit("hi")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, got[1].Version, got[0].Version)
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)

	s := tr.Snapshot()
	require.NoError(t, tr.AppendChunk(ex.BotMessageID, "later"))
	assert.Empty(t, s.Messages[1].Text)
}
