// Package backend serves the chat endpoint the widget talks to: it prompts a language model with the
// user's message and streams the reply back as plain text.
package backend

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// LLM streams the reply to a single user message. Implemented by the providers in internal/services.
type LLM interface {
	Chat(ctx context.Context, message string) iter.Seq2[string, error]
}

// Config holds the HTTP settings of the backend.
type Config struct {
	// AllowedOrigins lists the origins allowed to call the API from a browser. Empty allows any origin.
	AllowedOrigins []string
}

// Server is the chat backend.
type Server struct {
	llm    LLM
	cfg    Config
	logger *slog.Logger
}

type chatRequest struct {
	Message string `json:"message"`
}

// maxRequestBytes bounds the JSON body of a chat request.
const maxRequestBytes = 64 << 10

const errLoggerKey = "err"

// New creates the backend around llm.
func New(llm LLM, cfg Config, logger *slog.Logger) Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Server{
		llm:    llm,
		cfg:    cfg,
		logger: logger.With(slog.String("module", "backend")),
	}
}

// Routes wires the backend endpoints behind CORS.
func (s Server) Routes() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/ping", s.HandlePing)
	r.Post("/chat", s.HandleChat)

	return r
}

// HandlePing answers health checks.
func (s Server) HandlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "pong")
}

// HandleChat streams the model's reply to the JSON body {"message": "..."} as text/plain, flushing
// after every delta.
//
// A blank or malformed request is answered with 400. A model failure before the first delta is
// answered with 502; once streaming has started the status is already sent, so the failure is
// appended to the body as "Error: <message>" instead.
func (s Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.logger.Debug("Malformed chat request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reqID := middleware.GetReqID(r.Context())
	logger := s.logger.With(slog.String("requestID", reqID))
	logger.Info("Chat request", slog.Int("messageLength", len(req.Message)))

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	started := false
	start := func() {
		started = true
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}

	chunks := 0
	for delta, err := range s.llm.Chat(r.Context(), req.Message) {
		if err != nil {
			logger.Error("Failed to stream reply",
				slog.Bool("started", started),
				slog.String(errLoggerKey, err.Error()))
			if !started {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, "Error: "+err.Error())
			flusher.Flush()
			return
		}
		if !started {
			start()
		}
		if _, err := io.WriteString(w, delta); err != nil {
			logger.Warn("Client went away", slog.String(errLoggerKey, err.Error()))
			return
		}
		flusher.Flush()
		chunks++
	}

	if !started {
		start()
	}
	logger.Info("Chat reply sent", slog.Int("chunks", chunks))
}
