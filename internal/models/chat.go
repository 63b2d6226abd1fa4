package models

import "strings"

// ExchangeState is the state of a single request/response exchange with the chat backend.
//
//	Idle -> Sending -> Streaming -> Completed
//	           |           |
//	           +-----------+-> Errored
type ExchangeState int

const (
	// StateIdle means no exchange has been submitted yet.
	StateIdle ExchangeState = iota
	// StateSending means the request is in flight and no response has been seen.
	StateSending
	// StateStreaming means the backend answered with a success status and chunks are being appended.
	StateStreaming
	// StateCompleted means the response body was read to its end.
	StateCompleted
	// StateErrored means the exchange failed and the bot message holds ConnectivityErrorText.
	StateErrored
)

var exchangeStateNames = [...]string{
	StateIdle:      "idle",
	StateSending:   "sending",
	StateStreaming: "streaming",
	StateCompleted: "completed",
	StateErrored:   "errored",
}

func (s ExchangeState) String() string {
	if s < 0 || int(s) >= len(exchangeStateNames) {
		return "unknown"
	}
	return exchangeStateNames[s]
}

// Active reports whether an exchange in this state still owns the input, i.e. new submissions must be
// rejected.
func (s ExchangeState) Active() bool {
	return s == StateSending || s == StateStreaming
}

// Exchange is the handle of one accepted submission. Payload is the text sent to the backend and
// BotMessageID names the placeholder message the response is streamed into.
type Exchange struct {
	ID            string
	UserMessageID string
	BotMessageID  string
	Payload       string
}

// InfoPanel is the static content shown next to the transcript.
type InfoPanel struct {
	Title   string     `yaml:"title"`
	Tagline string     `yaml:"tagline"`
	Cards   []InfoCard `yaml:"cards"`
	Footer  string     `yaml:"footer"`
}

// Initial returns the first letter of the title, used as the avatar of the assistant.
func (p InfoPanel) Initial() string {
	for _, r := range p.Title {
		return strings.ToUpper(string(r))
	}
	return ""
}

// InfoCard is a highlighted fact in the info panel.
type InfoCard struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// DefaultGreeting is the bot message a fresh transcript starts with.
const DefaultGreeting = "Hello! I'm the Otic Foundation AI. How can I help you today?"

// DefaultInfoPanel returns the Otic Foundation panel content.
func DefaultInfoPanel() InfoPanel {
	return InfoPanel{
		Title: "Otic Foundation",
		Tagline: "Empowering Uganda through Artificial Intelligence. Ask me about our skilling initiatives, " +
			"the AI in Every City campaign, or how we are shaping the future of work.",
		Cards: []InfoCard{
			{Title: "Mission", Body: "Democratizing AI knowledge & emerging technologies."},
			{Title: "Vision 2030", Body: "Raising 3 Million AI Talents in Uganda."},
		},
		Footer: "© 2025 Otic Foundation. All rights reserved.",
	}
}
