package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alexcrichton/bors2/internal/adapter/otel"
)

// NewRouter builds the full route table with the standard middleware
// stack. Every page and webhook handler runs through the transaction
// pipeline; health and the 404 page do not.
func NewRouter(p *Pipeline, h *Handlers, serviceName string) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(otel.HTTPMiddleware(serviceName))
	r.Use(Logger)

	r.Get("/", p.Wrap(h.Index))
	r.Post("/repos", p.Wrap(h.BeginOnboarding))
	r.Get("/repos/{owner}/{repo}", p.Wrap(h.RepoPage))
	r.Get("/authorize/github", p.Wrap(h.GitHubCallback))
	r.Post("/repos/{owner}/{repo}/add-travis-token", p.Wrap(h.AddTravisToken))
	r.Post("/repos/{owner}/{repo}/add-appveyor-token", p.Wrap(h.AddAppVeyorToken))
	r.Post("/webhook/github/{owner}/{repo}", p.Wrap(h.GitHubWebhook))
	r.Post("/webhook/travis", p.Wrap(h.TravisWebhook))

	r.Get("/health", h.Health)
	r.NotFound(h.NotFound)

	return r
}
