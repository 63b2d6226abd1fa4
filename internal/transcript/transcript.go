// Package transcript holds the state container behind a chat widget: the ordered list of messages,
// the pending input and the state of the current exchange. Every mutation goes through one of the
// transition methods, which keeps the invariants in one place:
//
//   - the transcript only grows; the only in-place edit is the bot message of the active exchange,
//   - every user message is immediately followed by exactly one bot message,
//   - at most one exchange is active at a time.
package transcript

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrEmptyInput is returned by Submit when the text is empty after trimming.
	ErrEmptyInput = errors.New("transcript: empty input")
	// ErrStreamActive is returned by Submit while a previous exchange is still sending or streaming.
	ErrStreamActive = errors.New("transcript: exchange already active")
	// ErrNoActiveExchange is returned by ingest transitions when no exchange is active.
	ErrNoActiveExchange = errors.New("transcript: no active exchange")
	// ErrUnknownMessage is returned by ingest transitions addressed to a message that is not the
	// placeholder of the active exchange.
	ErrUnknownMessage = errors.New("transcript: unknown message")
)

// Snapshot is an immutable copy of the container handed to observers and renderers.
type Snapshot struct {
	Messages []models.Message
	Input    string
	State    models.ExchangeState
	// Version increases by one on every mutation.
	Version uint64
}

// StreamActive reports whether the snapshot was taken while an exchange was sending or streaming.
func (s Snapshot) StreamActive() bool {
	return s.State.Active()
}

// Observer is notified after every mutation. It is called with the container lock held so
// notifications arrive in mutation order; it must not call back into the Transcript.
type Observer func(Snapshot)

// Transcript is the state container. The zero value is not usable; create one with New.
type Transcript struct {
	mu sync.Mutex

	messages []models.Message
	input    string
	state    models.ExchangeState
	exchange models.Exchange
	version  uint64

	observers []Observer
	newID     func() string
	now       func() time.Time
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithGreeting seeds the transcript with a bot message. An empty greeting is ignored.
func WithGreeting(text string) Option {
	return func(t *Transcript) {
		if strings.TrimSpace(text) == "" {
			return
		}
		t.messages = append(t.messages, models.Message{
			ID:        t.newID(),
			Text:      text,
			Sender:    models.SenderBot,
			Timestamp: t.now(),
		})
	}
}

// WithObserver registers fn to be called after every mutation.
func WithObserver(fn Observer) Option {
	return func(t *Transcript) {
		if fn != nil {
			t.observers = append(t.observers, fn)
		}
	}
}

// WithIDGenerator replaces the UUID generator used for message and exchange IDs.
func WithIDGenerator(fn func() string) Option {
	return func(t *Transcript) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// WithClock replaces the clock used for message timestamps.
func WithClock(fn func() time.Time) Option {
	return func(t *Transcript) {
		if fn != nil {
			t.now = fn
		}
	}
}

// New creates an empty transcript in the Idle state. Options are applied in order, so WithIDGenerator
// and WithClock must precede WithGreeting to affect the greeting message.
func New(opts ...Option) *Transcript {
	t := &Transcript{
		state: models.StateIdle,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe registers fn after construction. The observer is immediately called with the current
// snapshot so it can render the initial state.
func (t *Transcript) Observe(fn Observer) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
	fn(t.snapshot())
}

// Snapshot returns a copy of the current state.
func (t *Transcript) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// State returns the state of the current (or last) exchange.
func (t *Transcript) State() models.ExchangeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetInput records the pending input text. It is a no-op while an exchange is active since the input
// affordance is disabled then.
func (t *Transcript) SetInput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Active() || t.input == text {
		return
	}
	t.input = text
	t.changed()
}

// Submit starts a new exchange with text. Empty or whitespace-only text is rejected with
// ErrEmptyInput and submissions during an active exchange with ErrStreamActive; in both cases
// nothing changes. On success a user message and an empty bot placeholder are appended, the pending
// input is cleared and the state becomes Sending. The caller is responsible for running the
// returned exchange.
func (t *Transcript) Submit(text string) (models.Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return models.Exchange{}, ErrEmptyInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Active() {
		return models.Exchange{}, ErrStreamActive
	}

	now := t.now()
	user := models.Message{
		ID:        t.newID(),
		Text:      text,
		Sender:    models.SenderUser,
		Timestamp: now,
	}
	bot := models.Message{
		ID:        t.newID(),
		Sender:    models.SenderBot,
		Timestamp: now,
	}
	t.messages = append(t.messages, user, bot)
	t.input = ""
	t.state = models.StateSending
	t.exchange = models.Exchange{
		ID:            t.newID(),
		UserMessageID: user.ID,
		BotMessageID:  bot.ID,
		Payload:       text,
	}
	t.changed()

	return t.exchange, nil
}

// BeginStreaming moves the exchange owning botID from Sending to Streaming. It is called once the
// backend answered with a success status, before any chunk is read.
func (t *Transcript) BeginStreaming(botID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.activeBot(botID); err != nil {
		return err
	}
	if t.state == models.StateStreaming {
		return nil
	}
	t.state = models.StateStreaming
	t.changed()
	return nil
}

// AppendChunk appends chunk to the placeholder message botID. A chunk arriving while still Sending
// implicitly begins streaming. Empty chunks are ignored.
func (t *Transcript) AppendChunk(botID, chunk string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.activeBot(botID)
	if err != nil {
		return err
	}
	if chunk == "" {
		return nil
	}
	t.messages[idx].Text += chunk
	t.state = models.StateStreaming
	t.changed()
	return nil
}

// Complete ends the exchange owning botID successfully.
func (t *Transcript) Complete(botID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.activeBot(botID); err != nil {
		return err
	}
	t.state = models.StateCompleted
	t.changed()
	return nil
}

// Fail ends the exchange owning botID with an error. Whatever text was streamed so far is replaced by
// models.ConnectivityErrorText and the message is flagged as an error.
func (t *Transcript) Fail(botID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.activeBot(botID)
	if err != nil {
		return err
	}
	t.messages[idx].Text = models.ConnectivityErrorText
	t.messages[idx].Error = true
	t.state = models.StateErrored
	t.changed()
	return nil
}

func (t *Transcript) activeBot(botID string) (int, error) {
	if !t.state.Active() {
		return -1, ErrNoActiveExchange
	}
	if botID != t.exchange.BotMessageID {
		return -1, fmt.Errorf("%w: %s", ErrUnknownMessage, botID)
	}
	// The placeholder is always the last message while its exchange is active.
	idx := len(t.messages) - 1
	if idx < 0 || t.messages[idx].ID != botID {
		return -1, fmt.Errorf("%w: %s", ErrUnknownMessage, botID)
	}
	return idx, nil
}

func (t *Transcript) changed() {
	t.version++
	if len(t.observers) == 0 {
		return
	}
	s := t.snapshot()
	for _, fn := range t.observers {
		fn(s)
	}
}

func (t *Transcript) snapshot() Snapshot {
	return Snapshot{
		Messages: slices.Clone(t.messages),
		Input:    t.input,
		State:    t.state,
		Version:  t.version,
	}
}
