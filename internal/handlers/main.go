package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	oticbot "github.com/BusulwaJordan/Oticbot"
	"github.com/BusulwaJordan/Oticbot/internal/ingest"
	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/render"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	"github.com/tmaxmax/go-sse"
)

// Exchanger runs one exchange against the chat backend, streaming the reply into sink.
// ingest.Exchanger implements it.
type Exchanger interface {
	Run(ctx context.Context, sink ingest.Sink, ex models.Exchange) models.ExchangeState
}

// Config holds the presentation settings of the widget.
type Config struct {
	// Greeting is the bot message every new transcript starts with. Empty disables it.
	Greeting string
	// InfoPanel is the static content of the left pane.
	InfoPanel models.InfoPanel
	// SessionTTL is how long an idle session is kept in memory. Zero keeps sessions forever.
	SessionTTL time.Duration
	// SecureCookie marks the session cookie Secure, for deployments behind TLS.
	SecureCookie bool
}

// Main handles the widget: it owns one transcript per browser session, renders the page and the chat
// box, and pushes a freshly rendered chat box over server-sent events after every transcript mutation.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	renderer  render.Renderer

	exchanger Exchanger
	sessions  *sessionStore
	cfg       Config

	// ctx is cancelled on Shutdown so exchanges still streaming are aborted. lifecycle orders that
	// cancellation against exchanges.Add.
	ctx       context.Context
	cancel    context.CancelFunc
	lifecycle *sync.Mutex
	exchanges *sync.WaitGroup

	logger *slog.Logger
}

// SSE event types for real-time updates.
var (
	chatboxSSEType = sse.Type("chatbox")
	closeSSEType   = sse.Type("closeChat")
)

const errLoggerKey = "err"

// NewMain creates the widget handlers. Templates are parsed from the embedded filesystem; the SSE
// server subscribes each client to the topic of its own session.
func NewMain(exchanger Exchanger, cfg Config, logger *slog.Logger) (Main, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tmpl, err := template.ParseFS(
		oticbot.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Main{
		templates: tmpl,
		renderer:  render.New(render.NewHTML()),
		exchanger: exchanger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		lifecycle: &sync.Mutex{},
		exchanges: &sync.WaitGroup{},
		logger:    logger.With(slog.String("module", "handlers")),
	}
	// Method values copy m, so every field they read must be set before they are taken.
	m.sseSrv = &sse.Server{
		Logger: func(*http.Request) *slog.Logger {
			return m.logger.With(slog.String("component", "sse"))
		},
	}
	m.sessions = newSessionStore(cfg.SessionTTL, m.newTranscript)
	m.sseSrv.OnSession = m.onSSESession

	return m, nil
}

func sessionTopic(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// newTranscript creates the transcript of a new session and wires it to the session's SSE topic.
func (m Main) newTranscript(sessionID string) *transcript.Transcript {
	return transcript.New(
		transcript.WithGreeting(m.cfg.Greeting),
		transcript.WithObserver(func(s transcript.Snapshot) {
			m.publishChatbox(sessionID, s)
		}),
	)
}

func (m Main) publishChatbox(sessionID string, s transcript.Snapshot) {
	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, "chatbox", m.chatboxData(s)); err != nil {
		m.logger.Error("Failed to render chatbox",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{Type: chatboxSSEType}
	msg.AppendData(sb.String())
	if err := m.sseSrv.Publish(&msg, sessionTopic(sessionID)); err != nil {
		m.logger.Error("Failed to publish chatbox",
			slog.String("sessionID", sessionID),
			slog.Uint64("version", s.Version),
			slog.String(errLoggerKey, err.Error()))
	}
}

// onSSESession subscribes the client to its session topic and to the default topic, which carries the
// close event. The SSE headers are only written on the first event, so the session cookie can still
// be set here for a client that lost it.
func (m Main) onSSESession(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	sess := m.session(w, r)
	return []string{sessionTopic(sess.id), sse.DefaultTopic}, true
}

// HandleSSE serves the server-sent events stream of the caller's session.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown aborts running exchanges, tells connected clients to close their event streams and waits
// up to 5 seconds for connections to terminate.
func (m Main) Shutdown(ctx context.Context) error {
	m.lifecycle.Lock()
	m.cancel()
	m.lifecycle.Unlock()

	done := make(chan struct{})
	go func() {
		m.exchanges.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Exchanges still running at shutdown")
	}

	// Events without data are never dispatched by browsers.
	e := &sse.Message{Type: closeSSEType}
	e.AppendData("bye")
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	if err := m.sseSrv.Shutdown(ctx); err != nil && !errors.Is(err, sse.ErrProviderClosed) {
		return err
	}
	return nil
}
