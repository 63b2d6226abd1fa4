package models

import "time"

// Message is one entry of the transcript. Bot messages start empty and are filled in while the
// response streams; user messages never change after they are created.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Error     bool
	Timestamp time.Time
}

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser marks a message typed by the person using the widget. Its text is never interpreted
	// as markup.
	SenderUser Sender = "user"
	// SenderBot marks a message produced by the chat backend. Its text is rendered as markdown unless
	// the message carries the error flag.
	SenderBot Sender = "bot"
)

// ConnectivityErrorText replaces the bot's answer when an exchange fails, whatever the cause.
const ConnectivityErrorText = "I'm having trouble connecting to the server. " +
	"Please ensure the backend is running and Ollama is started."

func (s Sender) String() string {
	return string(s)
}
