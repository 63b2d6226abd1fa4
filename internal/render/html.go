package render

import (
	"bytes"
	"html"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTML formats messages for the browser. Markdown goes through goldmark with GitHub-flavoured
// extensions and highlighted code blocks; raw HTML inside model output is dropped rather than passed
// through. Plain text is escaped.
type HTML struct {
	md goldmark.Markdown
}

// NewHTML creates the browser formatter.
func NewHTML() HTML {
	return HTML{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
			),
		),
	}
}

// Markdown implements Formatter.
func (h HTML) Markdown(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		// goldmark only fails on writer errors, which a bytes.Buffer never returns.
		return h.Plain(src)
	}
	return buf.String()
}

// Plain implements Formatter. Line breaks are kept.
func (h HTML) Plain(src string) string {
	if src == "" {
		return ""
	}
	return strings.ReplaceAll(html.EscapeString(src), "\n", "<br>")
}
