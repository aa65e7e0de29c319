// Package gitprovider defines the source-host gateway port (interface).
package gitprovider

import "context"

// Repository is the subset of source-host repository metadata the
// onboarding flow needs: the stable numeric id.
type Repository struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// Webhook describes a hook registered on a repository.
type Webhook struct {
	ID     int64    `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
}

// Provider is the port interface for the source-hosting service
// (GitHub). All calls are synchronous and unretried; any transport or
// decode failure is returned to the caller.
type Provider interface {
	// AuthorizeURL builds the OAuth authorization redirect for the given
	// opaque state value.
	AuthorizeURL(state string) string

	// ExchangeCode swaps an authorization code for an access token.
	ExchangeCode(ctx context.Context, code string) (token string, err error)

	// GetRepository fetches repository metadata using the given token.
	GetRepository(ctx context.Context, token, owner, name string) (*Repository, error)

	// CreateWebhook registers a webhook on the repository delivering the
	// given event set to callbackURL, signed with secret.
	CreateWebhook(ctx context.Context, token, owner, name, callbackURL, secret string, events []string) (*Webhook, error)
}
