package oticbot

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering the widget. They are organized
// into layouts, pages and partials; partials are also rendered on their own for SSE updates.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded static assets (stylesheet and the small script that keeps the
// transcript scrolled to the newest bubble).
//
//go:embed static/*
var StaticFS embed.FS
