package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/domain/project"
	"github.com/alexcrichton/bors2/internal/port/database"
	"github.com/alexcrichton/bors2/internal/service"
)

// Handlers holds the route handlers and their dependencies.
type Handlers struct {
	store      database.Store
	onboarding *service.OnboardingService
	ingest     *service.IngestService
	flash      *FlashCodec
	tmpl       *template.Template
}

// NewHandlers creates the handler set.
func NewHandlers(store database.Store, onboarding *service.OnboardingService, ingest *service.IngestService, flash *FlashCodec) *Handlers {
	return &Handlers{
		store:      store,
		onboarding: onboarding,
		ingest:     ingest,
		flash:      flash,
		tmpl:       parseTemplates(),
	}
}

func (h *Handlers) render(rc *RequestContext, name string, data any) error {
	rc.W.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(rc.W, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// Index lists the registered repositories.
func (h *Handlers) Index(rc *RequestContext) error {
	projects, err := h.store.ListProjects(rc.Context())
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	return h.render(rc, "index.html", struct {
		Projects []project.Project
		Flash    string
	}{projects, rc.Flash})
}

// BeginOnboarding starts the OAuth round trip for the submitted repo.
func (h *Handlers) BeginOnboarding(rc *RequestContext) error {
	repo, err := rc.FormValue("repo")
	if err != nil {
		return err
	}
	url, err := h.onboarding.AuthorizeURL(repo)
	if err != nil {
		return err
	}
	rc.Redirect(url)
	return nil
}

// GitHubCallback finishes the OAuth round trip and lands on the new
// repository's page.
func (h *Handlers) GitHubCallback(rc *RequestContext) error {
	code := rc.R.URL.Query().Get("code")
	state := rc.R.URL.Query().Get("state")
	if code == "" || state == "" {
		return fmt.Errorf("missing code or state: %w", domain.ErrMalformedInput)
	}

	p, err := h.onboarding.CompleteAuthorization(rc.Context(), code, state)
	if err != nil {
		return err
	}
	rc.Redirect("/repos/" + p.FullName())
	return nil
}

// RepoPage shows one repository's linking status.
func (h *Handlers) RepoPage(rc *RequestContext) error {
	owner, err := rc.Param("owner")
	if err != nil {
		return err
	}
	name, err := rc.Param("repo")
	if err != nil {
		return err
	}

	p, err := h.store.GetProjectByRepo(rc.Context(), owner, name)
	if err != nil {
		return err
	}
	return h.render(rc, "repo.html", struct {
		Project     *project.Project
		Flash       string
		HasTravis   bool
		HasAppVeyor bool
	}{p, rc.Flash, p.TravisToken != "", p.AppVeyorToken != ""})
}

// AddTravisToken validates and stores a Travis token. A rejected token
// is caught here and redisplayed as a flash on the repository page; it
// never reaches the pipeline's generic error path.
func (h *Handlers) AddTravisToken(rc *RequestContext) error {
	return h.addToken(rc, h.onboarding.AddTravisToken, "Travis rejected that token for this repository")
}

// AddAppVeyorToken validates and stores an AppVeyor token.
func (h *Handlers) AddAppVeyorToken(rc *RequestContext) error {
	return h.addToken(rc, h.onboarding.AddAppVeyorToken, "AppVeyor rejected that token for this repository")
}

func (h *Handlers) addToken(rc *RequestContext, link func(ctx context.Context, owner, name, token string) error, rejected string) error {
	owner, err := rc.Param("owner")
	if err != nil {
		return err
	}
	name, err := rc.Param("repo")
	if err != nil {
		return err
	}
	token, err := rc.FormValue("token")
	if err != nil {
		return err
	}

	err = link(rc.Context(), owner, name, token)
	if errors.Is(err, domain.ErrInvalidToken) {
		h.flash.Set(rc.W, rejected)
		rc.Redirect("/repos/" + owner + "/" + name)
		return nil
	}
	if err != nil {
		return err
	}

	h.flash.Set(rc.W, "token saved")
	rc.Redirect("/repos/" + owner + "/" + name)
	return nil
}

// GitHubWebhook ingests one GitHub delivery for the routed repository.
func (h *Handlers) GitHubWebhook(rc *RequestContext) error {
	owner, err := rc.Param("owner")
	if err != nil {
		return err
	}
	name, err := rc.Param("repo")
	if err != nil {
		return err
	}

	body, err := io.ReadAll(rc.R.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	_, err = h.ingest.IngestGitHub(rc.Context(), owner, name, service.GitHubDelivery{
		DeliveryID: rc.R.Header.Get("X-GitHub-Delivery"),
		EventType:  rc.R.Header.Get("X-GitHub-Event"),
		Signature:  rc.R.Header.Get("X-Hub-Signature"),
		Body:       body,
	})
	if err != nil {
		return err
	}

	rc.W.WriteHeader(http.StatusOK)
	_, _ = rc.W.Write([]byte("ok"))
	return nil
}

// TravisWebhook ingests one Travis notification.
func (h *Handlers) TravisWebhook(rc *RequestContext) error {
	if err := rc.R.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", domain.ErrMalformedInput)
	}

	_, err := h.ingest.IngestTravis(rc.Context(), service.TravisDelivery{
		Payload:   rc.R.PostFormValue("payload"),
		Signature: rc.R.Header.Get("Signature"),
		RepoSlug:  rc.R.Header.Get("Travis-Repo-Slug"),
	})
	if err != nil {
		return err
	}

	rc.W.WriteHeader(http.StatusOK)
	_, _ = rc.W.Write([]byte("ok"))
	return nil
}

// NotFound renders the 404 page for unmatched routes. It runs outside
// the pipeline: no lookup, no transaction.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := h.tmpl.ExecuteTemplate(w, "notfound.html", nil); err != nil {
		slog.Error("render notfound", "error", err)
	}
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
