package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/alexcrichton/bors2/internal/adapter/otel"
	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/domain/project"
	"github.com/alexcrichton/bors2/internal/port/ciprovider"
	"github.com/alexcrichton/bors2/internal/port/database"
	"github.com/alexcrichton/bors2/internal/port/gitprovider"
)

// webhookEvents is the GitHub event set registered on every new hook.
var webhookEvents = []string{
	"issue_comment",
	"issues",
	"pull_request",
	"pull_request_review",
	"pull_request_review_comment",
	"status",
}

const webhookSecretLen = 20

// OnboardingService links repositories to the service: the GitHub OAuth
// round trip that registers a webhook and creates the Project row, and
// the validate-then-store flows for Travis and AppVeyor tokens.
type OnboardingService struct {
	store    database.Store
	github   gitprovider.Provider
	travis   ciprovider.Travis
	appveyor ciprovider.AppVeyor
	hostURL  string // public base URL webhook callbacks are built from
	metrics  *otel.Metrics
}

// NewOnboardingService creates an OnboardingService with all dependencies.
func NewOnboardingService(
	store database.Store,
	github gitprovider.Provider,
	travis ciprovider.Travis,
	appveyor ciprovider.AppVeyor,
	hostURL string,
	metrics *otel.Metrics,
) *OnboardingService {
	return &OnboardingService{
		store:    store,
		github:   github,
		travis:   travis,
		appveyor: appveyor,
		hostURL:  hostURL,
		metrics:  metrics,
	}
}

// AuthorizeURL builds the GitHub OAuth redirect for onboarding the given
// "owner/name" repository. The repository rides through the round trip
// as the opaque state value; nothing is persisted yet.
func (s *OnboardingService) AuthorizeURL(repo string) (string, error) {
	if repo == "" {
		return "", fmt.Errorf("missing repository: %w", domain.ErrMalformedInput)
	}
	return s.github.AuthorizeURL(repo), nil
}

// CompleteAuthorization finishes the OAuth round trip: exchanges the
// code, registers the webhook on the repository, and only then persists
// the Project. Any failure before the insert leaves the store untouched;
// a webhook created on GitHub for a failed insert is left dangling
// rather than rolled back.
func (s *OnboardingService) CompleteAuthorization(ctx context.Context, code, state string) (*project.Project, error) {
	token, err := s.github.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange oauth code: %w", err)
	}

	owner, name, err := project.SplitFullName(state)
	if err != nil {
		return nil, err
	}

	repo, err := s.github.GetRepository(ctx, token, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}

	secret, err := generateSecret(webhookSecretLen)
	if err != nil {
		return nil, fmt.Errorf("generate webhook secret: %w", err)
	}

	callbackURL := fmt.Sprintf("%s/webhook/github/%s/%s", s.hostURL, owner, name)
	hook, err := s.github.CreateWebhook(ctx, token, owner, name, callbackURL, secret, webhookEvents)
	if err != nil {
		return nil, fmt.Errorf("create webhook on %s/%s: %w", owner, name, err)
	}

	created, err := s.store.CreateProject(ctx, &project.Project{
		RepoOwner:         owner,
		RepoName:          name,
		SourceRepoID:      repo.ID,
		SourceAccessToken: token,
		WebhookSecret:     secret,
	})
	if err != nil {
		return nil, fmt.Errorf("persist project %s/%s: %w", owner, name, err)
	}

	slog.Info("repository onboarded",
		"repo", created.FullName(), "repo_id", repo.ID, "hook_id", hook.ID)
	if s.metrics != nil {
		s.metrics.OnboardingCompleted.Add(ctx, 1)
	}
	return created, nil
}

// AddTravisToken validates a Travis token against the project's
// repository and stores it. The token is proved usable by fetching the
// repository and its token-scoped settings before anything is written;
// a failed validation leaves the stored token unchanged.
func (s *OnboardingService) AddTravisToken(ctx context.Context, owner, name, token string) error {
	p, err := s.store.GetProjectByRepo(ctx, owner, name)
	if err != nil {
		return err
	}

	repo, err := s.travis.GetRepository(ctx, token, p.FullName())
	if err != nil {
		return fmt.Errorf("travis rejected token for %s: %v: %w", p.FullName(), err, domain.ErrInvalidToken)
	}
	if _, err := s.travis.GetSettings(ctx, token, repo.ID); err != nil {
		return fmt.Errorf("travis rejected token for %s: %v: %w", p.FullName(), err, domain.ErrInvalidToken)
	}

	if err := s.store.SetCIToken(ctx, p.ID, project.CITravis, token); err != nil {
		return fmt.Errorf("store travis token: %w", err)
	}

	slog.Info("travis token linked", "repo", p.FullName())
	if s.metrics != nil {
		s.metrics.TokensLinked.Add(ctx, 1)
	}
	return nil
}

// AddAppVeyorToken validates an AppVeyor token and stores it. The
// repository is registered as an AppVeyor project when the account does
// not already have one; a repeat submission skips the registration.
func (s *OnboardingService) AddAppVeyorToken(ctx context.Context, owner, name, token string) error {
	p, err := s.store.GetProjectByRepo(ctx, owner, name)
	if err != nil {
		return err
	}

	projects, err := s.appveyor.ListProjects(ctx, token)
	if err != nil {
		return fmt.Errorf("appveyor rejected token for %s: %v: %w", p.FullName(), err, domain.ErrInvalidToken)
	}

	registered := false
	for _, avp := range projects {
		if avp.RepositoryName == p.FullName() {
			registered = true
			break
		}
	}
	if !registered {
		if _, err := s.appveyor.AddProject(ctx, token, p.FullName()); err != nil {
			return fmt.Errorf("appveyor rejected token for %s: %v: %w", p.FullName(), err, domain.ErrInvalidToken)
		}
	}

	if err := s.store.SetCIToken(ctx, p.ID, project.CIAppVeyor, token); err != nil {
		return fmt.Errorf("store appveyor token: %w", err)
	}

	slog.Info("appveyor token linked", "repo", p.FullName(), "registered", !registered)
	if s.metrics != nil {
		s.metrics.TokensLinked.Add(ctx, 1)
	}
	return nil
}

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateSecret returns n alphanumeric characters from crypto/rand.
func generateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return string(buf), nil
}
