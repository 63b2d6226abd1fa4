package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Formatter renders bot markdown for the terminal with glamour. User text is shown as typed.
type Formatter struct {
	r *glamour.TermRenderer
}

// NewFormatter creates a formatter wrapping at width columns. style is a glamour standard style name
// ("dark", "light", "notty", ...) or "auto" to detect it from the terminal.
func NewFormatter(style string, width int) Formatter {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return Formatter{}
	}
	return Formatter{r: r}
}

// Markdown renders src, falling back to the raw text when glamour fails.
func (f Formatter) Markdown(src string) string {
	if f.r == nil || src == "" {
		return src
	}
	out, err := f.r.Render(src)
	if err != nil {
		return src
	}
	return strings.Trim(out, "\n")
}

// Plain returns src with escape characters removed so it cannot drive the terminal.
func (f Formatter) Plain(src string) string {
	return strings.ReplaceAll(src, "\x1b", "")
}
