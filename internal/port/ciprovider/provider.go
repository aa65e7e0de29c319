// Package ciprovider defines the CI service gateway ports (interfaces).
//
// Travis and AppVeyor expose different enough APIs that they get separate
// interfaces rather than one forced abstraction: Travis keys repositories
// by slug and signs webhooks with an account-wide RSA key; AppVeyor keys
// projects by repository name and must have a project registered before a
// token is usable.
package ciprovider

import "context"

// TravisRepository is Travis's view of a source repository.
type TravisRepository struct {
	ID int64 `json:"id"`
}

// TravisSettings is the token-scoped settings document used to validate a
// submitted token against a specific repository.
type TravisSettings struct {
	MaximumNumberOfBuilds int `json:"maximum_number_of_builds"`
}

// Travis is the port interface for the Travis CI API.
type Travis interface {
	// GetRepository fetches the repository by "owner/name" slug.
	GetRepository(ctx context.Context, token, slug string) (*TravisRepository, error)

	// GetSettings fetches repository settings; this call succeeding is
	// what proves a submitted token is valid for the repository.
	GetSettings(ctx context.Context, token string, repoID int64) (*TravisSettings, error)

	// PublicKey fetches the account-wide webhook signing key, fresh per
	// call. The key is never cached across deliveries.
	PublicKey(ctx context.Context) ([]byte, error)
}

// AppVeyorProject is AppVeyor's registration of a source repository.
type AppVeyorProject struct {
	ProjectID      int64  `json:"projectId"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	RepositoryName string `json:"repositoryName"`
}

// AppVeyor is the port interface for the AppVeyor API.
type AppVeyor interface {
	// ListProjects returns the projects visible to the token.
	ListProjects(ctx context.Context, token string) ([]AppVeyorProject, error)

	// AddProject registers a repository ("owner/name") with AppVeyor.
	AddProject(ctx context.Context, token, repoName string) (*AppVeyorProject, error)
}
