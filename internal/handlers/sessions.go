package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	"github.com/google/uuid"
)

const sessionCookie = "oticbot_session"

// session is one browser's chat. Transcripts only live in memory.
type session struct {
	id         string
	transcript *transcript.Transcript
	lastSeen   time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session

	ttl           time.Duration
	newTranscript func(id string) *transcript.Transcript
	now           func() time.Time
}

func newSessionStore(ttl time.Duration, newTranscript func(id string) *transcript.Transcript) *sessionStore {
	return &sessionStore{
		sessions:      make(map[string]*session),
		ttl:           ttl,
		newTranscript: newTranscript,
		now:           time.Now,
	}
}

// getOrCreate returns the session id, creating it when unknown. Creating a session also drops idle
// ones whose exchange is not running.
func (s *sessionStore) getOrCreate(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = now
		return sess
	}

	s.pruneLocked(now)
	sess := &session{
		id:       id,
		lastSeen: now,
	}
	sess.transcript = s.newTranscript(id)
	s.sessions[id] = sess
	return sess
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionStore) pruneLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl && !sess.transcript.State().Active() {
			delete(s.sessions, id)
		}
	}
}

func sessionIDFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// session resolves the caller's session, issuing a new cookie when the request has none.
func (m Main) session(w http.ResponseWriter, r *http.Request) *session {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return m.sessions.getOrCreate(id)
}
