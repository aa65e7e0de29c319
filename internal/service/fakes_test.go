package service

import (
	"context"
	"fmt"

	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/domain/event"
	"github.com/alexcrichton/bors2/internal/domain/project"
	"github.com/alexcrichton/bors2/internal/port/ciprovider"
	"github.com/alexcrichton/bors2/internal/port/gitprovider"
)

// fakeStore is an in-memory database.Store.
type fakeStore struct {
	projects []project.Project
	nextID   int64
}

func (f *fakeStore) ListProjects(_ context.Context) ([]project.Project, error) {
	return append([]project.Project(nil), f.projects...), nil
}

func (f *fakeStore) GetProjectByRepo(_ context.Context, owner, name string) (*project.Project, error) {
	for i := range f.projects {
		if f.projects[i].RepoOwner == owner && f.projects[i].RepoName == name {
			p := f.projects[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("project %s/%s: %w", owner, name, domain.ErrNotFound)
}

func (f *fakeStore) CreateProject(_ context.Context, p *project.Project) (*project.Project, error) {
	for i := range f.projects {
		if f.projects[i].RepoOwner == p.RepoOwner && f.projects[i].RepoName == p.RepoName {
			return nil, fmt.Errorf("project %s already registered", p.FullName())
		}
	}
	f.nextID++
	stored := *p
	stored.ID = f.nextID
	f.projects = append(f.projects, stored)
	return &stored, nil
}

func (f *fakeStore) SetCIToken(_ context.Context, projectID int64, ci project.CIProvider, token string) error {
	for i := range f.projects {
		if f.projects[i].ID == projectID {
			switch ci {
			case project.CITravis:
				f.projects[i].TravisToken = token
			case project.CIAppVeyor:
				f.projects[i].AppVeyorToken = token
			default:
				return fmt.Errorf("unknown ci provider %q: %w", ci, domain.ErrMalformedInput)
			}
			return nil
		}
	}
	return fmt.Errorf("project %d: %w", projectID, domain.ErrNotFound)
}

// fakeGitHub is a scriptable gitprovider.Provider.
type fakeGitHub struct {
	token       string
	exchangeErr error
	repoID      int64
	repoErr     error
	hookErr     error

	createdHooks []createdHook
}

type createdHook struct {
	owner, name, url, secret string
	events                   []string
}

func (f *fakeGitHub) AuthorizeURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

func (f *fakeGitHub) ExchangeCode(_ context.Context, _ string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeGitHub) GetRepository(_ context.Context, _, owner, name string) (*gitprovider.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return &gitprovider.Repository{ID: f.repoID, FullName: owner + "/" + name}, nil
}

func (f *fakeGitHub) CreateWebhook(_ context.Context, _, owner, name, callbackURL, secret string, events []string) (*gitprovider.Webhook, error) {
	if f.hookErr != nil {
		return nil, f.hookErr
	}
	f.createdHooks = append(f.createdHooks, createdHook{owner, name, callbackURL, secret, events})
	return &gitprovider.Webhook{ID: int64(len(f.createdHooks)), URL: callbackURL, Events: events, Active: true}, nil
}

// fakeTravis is a scriptable ciprovider.Travis.
type fakeTravis struct {
	repoID      int64
	repoErr     error
	settingsErr error
	publicKey   []byte
	keyErr      error
}

func (f *fakeTravis) GetRepository(_ context.Context, _, _ string) (*ciprovider.TravisRepository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return &ciprovider.TravisRepository{ID: f.repoID}, nil
}

func (f *fakeTravis) GetSettings(_ context.Context, _ string, _ int64) (*ciprovider.TravisSettings, error) {
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return &ciprovider.TravisSettings{MaximumNumberOfBuilds: 1}, nil
}

func (f *fakeTravis) PublicKey(_ context.Context) ([]byte, error) {
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	return f.publicKey, nil
}

// fakeAppVeyor is a scriptable ciprovider.AppVeyor.
type fakeAppVeyor struct {
	projects []ciprovider.AppVeyorProject
	listErr  error
	addErr   error
	added    []string
}

func (f *fakeAppVeyor) ListProjects(_ context.Context, _ string) ([]ciprovider.AppVeyorProject, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.projects, nil
}

func (f *fakeAppVeyor) AddProject(_ context.Context, _, repoName string) (*ciprovider.AppVeyorProject, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, repoName)
	return &ciprovider.AppVeyorProject{ProjectID: int64(len(f.added)), RepositoryName: repoName}, nil
}

// fakeLog is an in-memory eventstore.Log.
type fakeLog struct {
	events    []event.InboundEvent
	insertErr error
}

func (f *fakeLog) Insert(_ context.Context, ev *event.InboundEvent) (*event.InboundEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	stored := *ev
	stored.ID = int64(len(f.events) + 1)
	stored.State = event.StateUnprocessed
	f.events = append(f.events, stored)
	return &stored, nil
}

// fakePublisher records published fanout messages.
type fakePublisher struct {
	subjects   []string
	publishErr error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
