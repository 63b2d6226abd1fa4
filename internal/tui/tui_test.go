package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/BusulwaJordan/Oticbot/internal/ingest"
	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExchanger struct {
	chunks  []string
	fail    bool
	release chan struct{}
}

func (m mockExchanger) Run(ctx context.Context, sink ingest.Sink, ex models.Exchange) models.ExchangeState {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			_ = sink.Fail(ex.BotMessageID)
			return models.StateErrored
		}
	}
	if m.fail {
		_ = sink.Fail(ex.BotMessageID)
		return models.StateErrored
	}
	_ = sink.BeginStreaming(ex.BotMessageID)
	for _, c := range m.chunks {
		_ = sink.AppendChunk(ex.BotMessageID, c)
	}
	_ = sink.Complete(ex.BotMessageID)
	return models.StateCompleted
}

func newTestModel(t *testing.T, ex Exchanger) *Model {
	t.Helper()
	m := New(context.Background(), ex, Config{
		Greeting:     models.DefaultGreeting,
		InfoPanel:    models.DefaultInfoPanel(),
		GlamourStyle: "notty",
	}, nil)
	t.Cleanup(m.cancel)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// nextSnapshot feeds the pending transcript snapshot to the model.
func nextSnapshot(t *testing.T, m *Model) transcript.Snapshot {
	t.Helper()
	msg, ok := m.waitForSnapshot()().(snapshotMsg)
	require.True(t, ok, "expected a snapshot")
	m.Update(msg)
	return transcript.Snapshot(msg)
}

func TestSubmitStreamsReply(t *testing.T) {
	m := newTestModel(t, mockExchanger{chunks: []string{"Otic was ", "founded in **2021**."}})

	typeText(m, "When was Otic founded?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd, "enter should start an exchange")
	assert.Empty(t, m.input.Value(), "composer should be cleared after submitting")

	done, ok := cmd().(exchangeDoneMsg)
	require.True(t, ok)
	assert.Equal(t, models.StateCompleted, done.state)

	s := nextSnapshot(t, m)
	assert.Equal(t, models.StateCompleted, s.State)
	require.Len(t, s.Messages, 3)

	out := m.View()
	assert.Contains(t, out, "When was Otic founded?")
	assert.Contains(t, out, "founded in")
	assert.Contains(t, out, "2021")
	assert.NotContains(t, out, "Thinking...")
	assert.Contains(t, out, "Vision 2030", "info panel should be shown on wide terminals")
}

func TestPendingDisablesInput(t *testing.T) {
	release := make(chan struct{})
	m := newTestModel(t, mockExchanger{chunks: []string{"ok"}, release: release})

	typeText(m, "Hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	s := nextSnapshot(t, m)
	assert.Equal(t, models.StateSending, s.State)
	assert.True(t, m.view.Pending)
	assert.True(t, m.view.InputDisabled)
	assert.Contains(t, m.View(), "Thinking...")

	typeText(m, "ignored")
	assert.Empty(t, m.input.Value(), "typing should be ignored while pending")

	_, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again, "a second submission should be rejected while pending")

	close(release)
	cmd()
	nextSnapshot(t, m)
	assert.False(t, m.view.InputDisabled)
	assert.True(t, m.input.Focused())
}

func TestBlankSubmissionIgnored(t *testing.T) {
	m := newTestModel(t, mockExchanger{})

	typeText(m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.transcript.Len(), "only the greeting should be in the transcript")
}

func TestFailedExchangeShowsConnectivityError(t *testing.T) {
	m := newTestModel(t, mockExchanger{fail: true})

	typeText(m, "Hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	nextSnapshot(t, m)

	require.Len(t, m.view.Bubbles, 3)
	last := m.view.Bubbles[2]
	assert.True(t, last.Error)
	assert.Equal(t, models.ConnectivityErrorText, last.Body)
	assert.Contains(t, m.View(), "I'm having trouble connecting")
}

func TestQuitCancelsExchange(t *testing.T) {
	release := make(chan struct{})
	m := newTestModel(t, mockExchanger{release: release})

	typeText(m, "Hello")
	_, run := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, quit := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
	assert.Error(t, m.ctx.Err())

	done := run().(exchangeDoneMsg)
	assert.Equal(t, models.StateErrored, done.state)
}

func TestPublishKeepsLatestSnapshot(t *testing.T) {
	m := newTestModel(t, mockExchanger{})

	for v := uint64(1); v <= 3; v++ {
		m.publish(transcript.Snapshot{Version: 100 + v})
	}

	s := <-m.snapshots
	assert.Equal(t, uint64(103), s.Version)
	assert.Empty(t, m.snapshots)
}

func TestNarrowTerminalHidesInfoPanel(t *testing.T) {
	m := newTestModel(t, mockExchanger{})
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})

	out := m.View()
	assert.NotContains(t, out, "Vision 2030")
	assert.Contains(t, out, "Powered by Otic Intelligence")
}

func TestFormatter(t *testing.T) {
	f := NewFormatter("notty", 80)

	assert.Equal(t, "", f.Markdown(""))
	out := f.Markdown("# Mission\n\nDemocratize **AI** access.")
	assert.Contains(t, out, "Mission")
	assert.Contains(t, out, "Democratize")
	assert.False(t, strings.HasPrefix(out, "\n"))

	assert.Equal(t, "[31mred", f.Plain("\x1b[31mred"))
	assert.Equal(t, "**kept**", f.Plain("**kept**"))
}
