package handlers

import (
	"fmt"
	"io/fs"
	"net/http"

	oticbot "github.com/BusulwaJordan/Oticbot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes wires the widget endpoints and the embedded static assets.
func (m Main) Routes() (http.Handler, error) {
	staticFS, err := fs.Sub(oticbot.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/", m.HandleHome)
	r.Get("/chatbox", m.HandleChatbox)
	r.Post("/chat", m.HandleChat)
	r.Get("/sse", m.HandleSSE)

	return r, nil
}
