// Package travis implements the ciprovider.Travis port against the
// Travis CI v2 API.
package travis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alexcrichton/bors2/internal/port/ciprovider"
)

// Client implements ciprovider.Travis.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a Travis client for the given API base URL.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: http.DefaultClient,
	}
}

// getRepositoryResponse mirrors the /repos/{slug} envelope.
type getRepositoryResponse struct {
	Repo ciprovider.TravisRepository `json:"repo"`
}

// GetRepository fetches the repository registered under "owner/name".
func (c *Client) GetRepository(ctx context.Context, token, slug string) (*ciprovider.TravisRepository, error) {
	url := fmt.Sprintf("%s/repos/%s", c.apiURL, slug)
	body, err := c.doRequest(ctx, url, token)
	if err != nil {
		return nil, fmt.Errorf("travis get repository: %w", err)
	}

	var resp getRepositoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("travis parse repository: %w", err)
	}
	return &resp.Repo, nil
}

// getSettingsResponse mirrors the /repos/{id}/settings envelope.
type getSettingsResponse struct {
	Settings ciprovider.TravisSettings `json:"settings"`
}

// GetSettings fetches repository settings with the submitted token. A
// failure here means the token is invalid or the repository is not
// registered with Travis.
func (c *Client) GetSettings(ctx context.Context, token string, repoID int64) (*ciprovider.TravisSettings, error) {
	url := fmt.Sprintf("%s/repos/%d/settings", c.apiURL, repoID)
	body, err := c.doRequest(ctx, url, token)
	if err != nil {
		return nil, fmt.Errorf("travis get settings: %w", err)
	}

	var resp getSettingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("travis parse settings: %w", err)
	}
	return &resp.Settings, nil
}

// configResponse mirrors the /config envelope down to the webhook
// signing key.
type configResponse struct {
	Config struct {
		Notifications struct {
			Webhook struct {
				PublicKey string `json:"public_key"`
			} `json:"webhook"`
		} `json:"notifications"`
	} `json:"config"`
}

// PublicKey fetches the account-wide webhook signing key. Deliveries are
// verified against a fresh key every time; nothing is cached.
func (c *Client) PublicKey(ctx context.Context) ([]byte, error) {
	body, err := c.doRequest(ctx, c.apiURL+"/config", "")
	if err != nil {
		return nil, fmt.Errorf("travis get config: %w", err)
	}

	var resp configResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("travis parse config: %w", err)
	}
	if resp.Config.Notifications.Webhook.PublicKey == "" {
		return nil, fmt.Errorf("travis config has no webhook public key")
	}
	return []byte(resp.Config.Notifications.Webhook.PublicKey), nil
}

func (c *Client) doRequest(ctx context.Context, reqURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	req.Header.Set("Accept", "application/vnd.travis-ci.2+json")

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
		return nil, fmt.Errorf("travis API %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
