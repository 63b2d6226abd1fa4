// Package tui is the terminal front-end of the chat widget: the info panel on the left, the
// transcript and the composer on the right.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BusulwaJordan/Oticbot/internal/ingest"
	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/render"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Exchanger runs one exchange against the chat backend. ingest.Exchanger implements it.
type Exchanger interface {
	Run(ctx context.Context, sink ingest.Sink, ex models.Exchange) models.ExchangeState
}

// Config holds the presentation settings of the terminal client.
type Config struct {
	Greeting  string
	InfoPanel models.InfoPanel
	// GlamourStyle names the markdown style, "auto" detects it from the terminal.
	GlamourStyle string
}

type snapshotMsg transcript.Snapshot

type exchangeDoneMsg struct {
	exchangeID string
	state      models.ExchangeState
}

const (
	infoPanelWidth = 34
	composerHeight = 3
)

// Model is the bubbletea model of the client.
type Model struct {
	transcript *transcript.Transcript
	exchanger  Exchanger
	cfg        Config

	renderer render.Renderer
	view     render.View

	// snapshots carries the latest transcript snapshot to the update loop.
	snapshots chan transcript.Snapshot

	ctx    context.Context
	cancel context.CancelFunc

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	logger *slog.Logger
}

// New creates the client model. Cancelling ctx, or quitting, aborts a running exchange.
func New(ctx context.Context, exchanger Exchanger, cfg Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(ctx)

	in := textinput.New()
	in.Placeholder = "Ask about Otic Foundation..."
	in.Prompt = "› "
	in.CharLimit = 2000
	in.Focus()

	m := &Model{
		exchanger: exchanger,
		cfg:       cfg,
		renderer:  render.New(NewFormatter(cfg.GlamourStyle, 60)),
		snapshots: make(chan transcript.Snapshot, 1),
		ctx:       ctx,
		cancel:    cancel,
		input:     in,
		viewport:  viewport.New(60, 20),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		logger:    logger.With(slog.String("module", "tui")),
	}
	m.transcript = transcript.New(
		transcript.WithGreeting(cfg.Greeting),
		transcript.WithObserver(m.publish),
	)
	m.view = m.renderer.Render(m.transcript.Snapshot())
	return m
}

// publish hands s to the update loop, replacing a snapshot that was not consumed yet. The observer
// runs under the transcript lock, so it must never block.
func (m *Model) publish(s transcript.Snapshot) {
	select {
	case m.snapshots <- s:
		return
	default:
	}
	select {
	case <-m.snapshots:
	default:
	}
	m.snapshots <- s
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.snapshots:
			return snapshotMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) runExchange(ex models.Exchange) tea.Cmd {
	return func() tea.Msg {
		state := m.exchanger.Run(m.ctx, m.transcript, ex)
		return exchangeDoneMsg{exchangeID: ex.ID, state: state}
	}
}

// Init starts listening for transcript updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), textinput.Blink)
}

// Update handles keys, resizes and transcript updates.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m, m.submit()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.view.InputDisabled {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.transcript.SetInput(m.input.Value())
		return m, cmd

	case snapshotMsg:
		wasPending := m.view.Pending
		m.view = m.renderer.Render(transcript.Snapshot(msg))
		m.refreshViewport()
		cmds := []tea.Cmd{m.waitForSnapshot()}
		if m.view.InputDisabled {
			m.input.Blur()
		} else {
			cmds = append(cmds, m.input.Focus())
		}
		if m.view.Pending && !wasPending {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case exchangeDoneMsg:
		m.logger.Debug("Exchange finished",
			slog.String("exchangeID", msg.exchangeID),
			slog.String("state", msg.state.String()))
		return m, nil

	case spinner.TickMsg:
		if !m.view.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) submit() tea.Cmd {
	ex, err := m.transcript.Submit(m.input.Value())
	if err != nil {
		m.logger.Debug("Submission rejected", slog.String("err", err.Error()))
		return nil
	}
	m.input.Reset()
	m.logger.Info("Exchange started", slog.String("exchangeID", ex.ID))
	return m.runExchange(ex)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	chatWidth := m.chatWidth()
	m.viewport.Width = chatWidth
	m.viewport.Height = max(height-composerHeight-2, 3)
	m.input.Width = max(chatWidth-4, 10)

	// Wrapping depends on the width, so the bubbles are rendered again.
	m.renderer = render.New(NewFormatter(m.cfg.GlamourStyle, chatWidth-6))
	m.view = m.renderer.Render(m.transcript.Snapshot())
	m.refreshViewport()
}

func (m *Model) chatWidth() int {
	if m.width == 0 {
		return 60
	}
	if m.showInfoPanel() {
		return m.width - infoPanelWidth - 2
	}
	return m.width
}

// showInfoPanel hides the left pane on narrow terminals.
func (m *Model) showInfoPanel() bool {
	return m.width >= 90
}

func (m *Model) refreshViewport() {
	var sb strings.Builder
	for i, b := range m.view.Bubbles {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderBubble(b, m.viewport.Width))
	}
	if m.view.Pending {
		sb.WriteString("\n\n")
		sb.WriteString(pendingStyle.Render("Thinking..."))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

// View draws both panes.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.composerView(),
	)
	if !m.showInfoPanel() {
		return chat
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		infoPanelView(m.cfg.InfoPanel, infoPanelWidth, m.height),
		chat,
	)
}

func (m *Model) composerView() string {
	if m.view.Pending {
		// The viewport content is static between snapshots, so the spinner is redrawn here.
		return composerStyle.Width(m.chatWidth() - 2).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				pendingStyle.Render(m.spinner.View()+" Waiting for the reply..."),
				footerStyle.Render("Powered by Otic Intelligence · esc to quit"),
			))
	}
	return composerStyle.Width(m.chatWidth() - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.input.View(),
			footerStyle.Render("Powered by Otic Intelligence · esc to quit"),
		))
}

func renderBubble(b render.Bubble, width int) string {
	label := userLabelStyle.Render("You")
	style := userBubbleStyle
	if b.IsBot() {
		label = botLabelStyle.Render("Otic AI")
		style = botBubbleStyle
	}
	if b.Error {
		style = errorBubbleStyle
	}
	body := b.Body
	if body == "" {
		body = " "
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, style.Width(max(width-4, 10)).Render(body))
}

func infoPanelView(p models.InfoPanel, width, height int) string {
	var sb strings.Builder
	sb.WriteString(logoStyle.Render(p.Initial()))
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render(p.Title))
	sb.WriteString("\n")
	sb.WriteString(taglineStyle.Render(p.Tagline))
	for _, c := range p.Cards {
		sb.WriteString("\n\n")
		sb.WriteString(cardStyle.Width(width - 4).Render(
			fmt.Sprintf("%s\n%s", cardTitleStyle.Render(c.Title), c.Body)))
	}
	if p.Footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(footerStyle.Render(p.Footer))
	}
	return infoPanelStyle.Width(width).Height(max(height-2, 0)).Render(sb.String())
}
