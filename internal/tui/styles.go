package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#2563EB")
	muted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	danger = lipgloss.Color("#DC2626")
	green  = lipgloss.Color("#10B981")
)

// Info panel.
var (
	infoPanelStyle = lipgloss.NewStyle().Padding(1, 2).MarginRight(2).
		Border(lipgloss.RoundedBorder(), false, true, false, false).BorderForeground(muted)

	logoStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Foreground(lipgloss.Color("#FFFFFF")).Background(accent)

	titleStyle     = lipgloss.NewStyle().Bold(true)
	taglineStyle   = lipgloss.NewStyle().Foreground(muted).Italic(true)
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
	cardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	footerStyle    = lipgloss.NewStyle().Foreground(muted).Faint(true)
)

// Chat pane.
var (
	accentStyle      = lipgloss.NewStyle().Foreground(accent)
	userLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	botLabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(green)
	userBubbleStyle  = lipgloss.NewStyle().PaddingLeft(2)
	botBubbleStyle   = lipgloss.NewStyle().PaddingLeft(2)
	errorBubbleStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(danger)
	pendingStyle     = lipgloss.NewStyle().Foreground(muted).Italic(true)
	composerStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true, false, false, false).BorderForeground(muted)
)
