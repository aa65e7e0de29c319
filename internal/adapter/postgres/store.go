package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/domain/project"
)

// Store implements the database.Store port using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// projectColumns is the SELECT column list for projects queries.
const projectColumns = `id, repo_owner, repo_name, source_repo_id, source_access_token,
	webhook_secret, COALESCE(travis_token, ''), COALESCE(appveyor_token, ''), created_at, updated_at`

// scanProject scans a row into a Project.
func scanProject(scanner interface{ Scan(dest ...any) error }, p *project.Project) error {
	return scanner.Scan(
		&p.ID, &p.RepoOwner, &p.RepoName, &p.SourceRepoID, &p.SourceAccessToken,
		&p.WebhookSecret, &p.TravisToken, &p.AppVeyorToken, &p.CreatedAt, &p.UpdatedAt,
	)
}

// ListProjects returns all registered projects ordered by repository name.
func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM projects ORDER BY repo_owner, repo_name`, projectColumns))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var p project.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProjectByRepo returns the project registered for (owner, name).
func (s *Store) GetProjectByRepo(ctx context.Context, owner, name string) (*project.Project, error) {
	var p project.Project
	err := scanProject(db(ctx, s.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM projects WHERE repo_owner = $1 AND repo_name = $2`, projectColumns),
		owner, name), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %s/%s: %w", owner, name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %s/%s: %w", owner, name, err)
	}
	return &p, nil
}

// CreateProject inserts a new project row. The (repo_owner, repo_name)
// uniqueness constraint makes a duplicate registration fail here rather
// than silently creating a second row.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) (*project.Project, error) {
	var created project.Project
	err := scanProject(db(ctx, s.pool).QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO projects
			(repo_owner, repo_name, source_repo_id, source_access_token, webhook_secret)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING %s`, projectColumns),
		p.RepoOwner, p.RepoName, p.SourceRepoID, p.SourceAccessToken, p.WebhookSecret), &created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("project %s/%s already registered: %w", p.RepoOwner, p.RepoName, err)
		}
		return nil, fmt.Errorf("create project %s/%s: %w", p.RepoOwner, p.RepoName, err)
	}
	return &created, nil
}

// SetCIToken overwrites the stored token for one CI provider.
func (s *Store) SetCIToken(ctx context.Context, projectID int64, ci project.CIProvider, token string) error {
	var column string
	switch ci {
	case project.CITravis:
		column = "travis_token"
	case project.CIAppVeyor:
		column = "appveyor_token"
	default:
		return fmt.Errorf("unknown ci provider %q: %w", ci, domain.ErrMalformedInput)
	}

	tag, err := db(ctx, s.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE projects SET %s = $1, updated_at = now() WHERE id = $2`, column),
		token, projectID)
	if err != nil {
		return fmt.Errorf("set %s token: %w", ci, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s token for project %d: %w", ci, projectID, domain.ErrNotFound)
	}
	return nil
}
