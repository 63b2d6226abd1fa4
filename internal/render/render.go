// Package render maps transcript snapshots to the bubbles a front-end draws. The mapping is pure:
// the same snapshot always produces the same view, one bubble per message, in transcript order.
package render

import (
	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
)

// Formatter turns message text into the markup of a particular front-end.
type Formatter interface {
	// Markdown formats model output. It is only ever called for bot messages.
	Markdown(src string) string
	// Plain formats text that must not be interpreted as markup.
	Plain(src string) string
}

// Bubble is one drawn message.
type Bubble struct {
	ID     string
	Sender models.Sender
	Body   string
	Error  bool
}

// IsBot reports whether the bubble belongs to the bot.
func (b Bubble) IsBot() bool {
	return b.Sender == models.SenderBot
}

// View is everything a front-end needs to draw the chat pane.
type View struct {
	Bubbles []Bubble
	// Pending is true while an exchange is sending or streaming; front-ends show a typing indicator
	// after the last bubble.
	Pending bool
	// InputDisabled is true whenever new submissions would be rejected.
	InputDisabled bool
	Input         string
	State         models.ExchangeState
	// ScrollTarget is the ID of the newest bubble, empty for an empty transcript.
	ScrollTarget string
	Version      uint64
}

// Renderer renders snapshots with a Formatter.
type Renderer struct {
	f Formatter
}

// New creates a Renderer.
func New(f Formatter) Renderer {
	return Renderer{f: f}
}

// Render maps s to a View.
func (r Renderer) Render(s transcript.Snapshot) View {
	v := View{
		Bubbles:       make([]Bubble, 0, len(s.Messages)),
		Pending:       s.StreamActive(),
		InputDisabled: s.StreamActive(),
		Input:         s.Input,
		State:         s.State,
		Version:       s.Version,
	}
	for _, m := range s.Messages {
		v.Bubbles = append(v.Bubbles, r.bubble(m))
	}
	if n := len(v.Bubbles); n > 0 {
		v.ScrollTarget = v.Bubbles[n-1].ID
	}
	return v
}

func (r Renderer) bubble(m models.Message) Bubble {
	b := Bubble{
		ID:     m.ID,
		Sender: m.Sender,
		Error:  m.Error,
	}
	switch {
	case m.Sender == models.SenderBot && !m.Error:
		b.Body = r.f.Markdown(m.Text)
	default:
		b.Body = r.f.Plain(m.Text)
	}
	return b
}
