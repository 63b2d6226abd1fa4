package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
)

type bubble struct {
	ID    string
	IsBot bool
	Error bool
	// Body is produced by render.HTML: escaped for user text, sanitized markdown for bot text.
	Body template.HTML
}

type chatboxData struct {
	Bubbles       []bubble
	Pending       bool
	InputDisabled bool
	Input         string
	ScrollTarget  string
	State         string
	// Version orders fragments that race each other to the browser.
	Version uint64
}

type homePageData struct {
	Info    models.InfoPanel
	Chatbox chatboxData
}

func (m Main) chatboxData(s transcript.Snapshot) chatboxData {
	v := m.renderer.Render(s)
	bubbles := make([]bubble, len(v.Bubbles))
	for i, b := range v.Bubbles {
		bubbles[i] = bubble{
			ID:    b.ID,
			IsBot: b.IsBot(),
			Error: b.Error,
			Body:  template.HTML(b.Body),
		}
	}
	return chatboxData{
		Bubbles:       bubbles,
		Pending:       v.Pending,
		InputDisabled: v.InputDisabled,
		Input:         v.Input,
		ScrollTarget:  v.ScrollTarget,
		State:         v.State.String(),
		Version:       v.Version,
	}
}

// HandleHome renders the two-pane page: the info panel and the chat box of the caller's session.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	sess := m.session(w, r)

	data := homePageData{
		Info:    m.cfg.InfoPanel,
		Chatbox: m.chatboxData(sess.transcript.Snapshot()),
	}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home",
			slog.String("sessionID", sess.id),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleChatbox renders the chat box of the caller's session. Clients fetch it after (re)connecting
// to the event stream to catch up on updates published while they were away.
func (m Main) HandleChatbox(w http.ResponseWriter, r *http.Request) {
	sess := m.session(w, r)
	m.writeChatbox(w, sess)
}

func (m Main) writeChatbox(w http.ResponseWriter, sess *session) {
	if err := m.templates.ExecuteTemplate(w, "chatbox", m.chatboxData(sess.transcript.Snapshot())); err != nil {
		m.logger.Error("Failed to render chatbox",
			slog.String("sessionID", sess.id),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
