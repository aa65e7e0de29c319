// Package database defines the project store port (interface).
package database

import (
	"context"

	"github.com/alexcrichton/bors2/internal/domain/project"
)

// Store is the persistence contract for repository registrations. When a
// transaction has been opened for the request, implementations run every
// statement on it; (repo_owner, repo_name) uniqueness is enforced by the
// storage layer, not by callers.
type Store interface {
	ListProjects(ctx context.Context) ([]project.Project, error)

	// GetProjectByRepo looks a project up by its (owner, name) pair.
	// Returns domain.ErrNotFound when no such project exists.
	GetProjectByRepo(ctx context.Context, owner, name string) (*project.Project, error)

	// CreateProject persists a new project. The webhook secret and source
	// access token must already be set; CI tokens start empty.
	CreateProject(ctx context.Context, p *project.Project) (*project.Project, error)

	// SetCIToken overwrites the stored token for one CI provider.
	SetCIToken(ctx context.Context, projectID int64, ci project.CIProvider, token string) error
}
