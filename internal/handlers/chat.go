package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
)

// HandleChat is the input controller. It accepts a "message" form field and submits it to the
// caller's transcript, which appends the user message and an empty bot placeholder; the reply is then
// streamed into the placeholder on a separate goroutine and every update reaches the browser over SSE.
//
// Blank messages are answered with 400 and messages sent while a reply is still streaming with 409.
// htmx does not swap error responses, so both are silent for the user. After Shutdown the exchange is
// failed at once and the request is answered with 503. On success the handler responds with the
// re-rendered chat box, whose data-version lets the client drop it when an SSE update overtook it.
// Requests not made by htmx (plain form posts) are redirected back to the page instead.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := m.session(w, r)
	msg := r.FormValue("message")

	ex, err := sess.transcript.Submit(msg)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, transcript.ErrEmptyInput):
			status = http.StatusBadRequest
		case errors.Is(err, transcript.ErrStreamActive):
			status = http.StatusConflict
		}
		m.logger.Debug("Submission rejected",
			slog.String("sessionID", sess.id),
			slog.Int("status", status),
			slog.String(errLoggerKey, err.Error()))
		if !isHTMX(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}

	if !m.startExchange(sess, ex) {
		// Shutting down: the placeholder is failed so the session does not stay pending.
		_ = sess.transcript.Fail(ex.BotMessageID)
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	m.writeChatbox(w, sess)
}

// startExchange streams the reply of ex on its own goroutine. It reports false once Shutdown has
// started, in which case nothing is run.
func (m Main) startExchange(sess *session, ex models.Exchange) bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.ctx.Err() != nil {
		return false
	}

	m.logger.Info("Exchange started",
		slog.String("sessionID", sess.id),
		slog.String("exchangeID", ex.ID))

	m.exchanges.Add(1)
	go func() {
		defer m.exchanges.Done()
		state := m.exchanger.Run(m.ctx, sess.transcript, ex)
		m.logger.Info("Exchange finished",
			slog.String("sessionID", sess.id),
			slog.String("exchangeID", ex.ID),
			slog.String("state", state.String()))
	}()
	return true
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
