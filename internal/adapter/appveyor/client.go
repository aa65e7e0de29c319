// Package appveyor implements the ciprovider.AppVeyor port against the
// AppVeyor REST API.
package appveyor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alexcrichton/bors2/internal/port/ciprovider"
)

// Client implements ciprovider.AppVeyor.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient creates an AppVeyor client for the given API base URL.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: http.DefaultClient,
	}
}

// ListProjects returns the projects visible to the token.
func (c *Client) ListProjects(ctx context.Context, token string) ([]ciprovider.AppVeyorProject, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.apiURL+"/projects", token, nil)
	if err != nil {
		return nil, fmt.Errorf("appveyor list projects: %w", err)
	}

	var projects []ciprovider.AppVeyorProject
	if err := json.Unmarshal(body, &projects); err != nil {
		return nil, fmt.Errorf("appveyor parse projects: %w", err)
	}
	return projects, nil
}

// newProjectRequest mirrors the AppVeyor project registration payload.
type newProjectRequest struct {
	RepositoryProvider string `json:"repositoryProvider"`
	RepositoryName     string `json:"repositoryName"`
}

// AddProject registers a GitHub repository ("owner/name") with AppVeyor.
func (c *Client) AddProject(ctx context.Context, token, repoName string) (*ciprovider.AppVeyorProject, error) {
	payload, err := json.Marshal(newProjectRequest{
		RepositoryProvider: "gitHub",
		RepositoryName:     repoName,
	})
	if err != nil {
		return nil, fmt.Errorf("appveyor encode project: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.apiURL+"/projects", token, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("appveyor add project: %w", err)
	}

	var created ciprovider.AppVeyorProject
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("appveyor parse project: %w", err)
	}
	return &created, nil
}

func (c *Client) doRequest(ctx context.Context, method, reqURL, token string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
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
		return nil, fmt.Errorf("appveyor API %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
