// Package project defines the repository registration and its provider credentials.
package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexcrichton/bors2/internal/domain"
)

// CIProvider names a continuous-integration service a project can link.
type CIProvider string

const (
	CITravis   CIProvider = "travis"
	CIAppVeyor CIProvider = "appveyor"
)

// Project is one linked repository. The webhook secret is generated once
// at creation and is the HMAC key for every inbound GitHub delivery for
// this project; it is never exposed again after creation. CI tokens are
// optional and independently overwritable.
type Project struct {
	ID                int64
	RepoOwner         string
	RepoName          string
	SourceRepoID      int64
	SourceAccessToken string
	WebhookSecret     string
	TravisToken       string
	AppVeyorToken     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName returns the "owner/name" form of the repository.
func (p *Project) FullName() string {
	return p.RepoOwner + "/" + p.RepoName
}

// CIToken returns the stored token for the given CI provider.
func (p *Project) CIToken(ci CIProvider) (string, error) {
	switch ci {
	case CITravis:
		return p.TravisToken, nil
	case CIAppVeyor:
		return p.AppVeyorToken, nil
	}
	return "", fmt.Errorf("unknown ci provider %q: %w", ci, domain.ErrMalformedInput)
}

// SplitFullName splits an "owner/name" repository identifier at the first
// slash. Both halves must be non-empty.
func SplitFullName(full string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(full, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name: %w", full, domain.ErrMalformedInput)
	}
	return owner, name, nil
}
