// Package github implements the gitprovider.Provider port against the
// GitHub REST API and OAuth endpoints.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/alexcrichton/bors2/internal/config"
	"github.com/alexcrichton/bors2/internal/port/gitprovider"
)

// Scopes is the OAuth scope set requested during onboarding: enough to
// read repository metadata, write statuses, and manage repo hooks.
var Scopes = []string{
	"user:email",
	"repo:status",
	"write:repo_hook",
	"public_repo",
	"user",
	"admin:org",
}

// Client implements gitprovider.Provider for GitHub.
type Client struct {
	apiURL     string
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewClient creates a GitHub client from OAuth app credentials and API
// endpoints.
func NewClient(cfg config.GitHub) *Client {
	return &Client{
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		httpClient: http.DefaultClient,
	}
}

// AuthorizeURL builds the OAuth authorization redirect carrying the given
// opaque state value.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode swaps an authorization code for an access token. Codes are
// single use on the provider side; a replayed code fails here.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("github token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// GetRepository fetches repository metadata, including the stable numeric
// repository id.
func (c *Client) GetRepository(ctx context.Context, token, owner, name string) (*gitprovider.Repository, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, owner, name)
	body, err := c.doRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, fmt.Errorf("github get repository: %w", err)
	}

	var repo gitprovider.Repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return nil, fmt.Errorf("github parse repository: %w", err)
	}
	return &repo, nil
}

// createWebhookRequest mirrors the GitHub hook creation payload.
type createWebhookRequest struct {
	Name   string              `json:"name"`
	Active bool                `json:"active"`
	Events []string            `json:"events"`
	Config createWebhookConfig `json:"config"`
}

type createWebhookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret"`
}

// CreateWebhook registers a webhook on the repository delivering the
// given events to callbackURL, signed with secret.
func (c *Client) CreateWebhook(ctx context.Context, token, owner, name, callbackURL, secret string, events []string) (*gitprovider.Webhook, error) {
	payload, err := json.Marshal(createWebhookRequest{
		Name:   "web",
		Active: true,
		Events: events,
		Config: createWebhookConfig{
			URL:         callbackURL,
			ContentType: "json",
			Secret:      secret,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("github encode webhook: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/hooks", c.apiURL, owner, name)
	body, err := c.doRequest(ctx, http.MethodPost, url, token, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("github create webhook: %w", err)
	}

	var hook gitprovider.Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("github parse webhook: %w", err)
	}
	return &hook, nil
}

func (c *Client) doRequest(ctx context.Context, method, reqURL, token string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("github API %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
