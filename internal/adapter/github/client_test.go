package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexcrichton/bors2/internal/config"
	"github.com/alexcrichton/bors2/internal/port/gitprovider"
)

// Compile-time interface check.
var _ gitprovider.Provider = (*Client)(nil)

func testConfig(apiURL, tokenURL string) config.GitHub {
	return config.GitHub{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		APIURL:       apiURL,
		AuthURL:      "https://github.example/login/oauth/authorize",
		TokenURL:     tokenURL,
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(testConfig("https://api.github.example", "https://github.example/token"))

	raw := c.AuthorizeURL("acme/widgets")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse authorize URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "acme/widgets" {
		t.Errorf("state = %q, want acme/widgets", q.Get("state"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "write:repo_hook") {
		t.Errorf("scope %q missing write:repo_hook", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("code"); got != "the-code" {
			t.Errorf("code = %q, want the-code", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_token","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig("https://api.github.example", srv.URL))
	token, err := c.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "gho_token" {
		t.Fatalf("token = %q, want gho_token", token)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig("https://api.github.example", srv.URL))
	if _, err := c.ExchangeCode(context.Background(), "consumed-code"); err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestGetRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "token gho_token" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gitprovider.Repository{ID: 12345, FullName: "acme/widgets"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "https://github.example/token"))
	repo, err := c.GetRepository(context.Background(), "gho_token", "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ID != 12345 {
		t.Fatalf("repo id = %d, want 12345", repo.ID)
	}
}

func TestCreateWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/repos/acme/widgets/hooks" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req createWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Name != "web" || !req.Active {
			t.Errorf("unexpected hook request: %+v", req)
		}
		if req.Config.URL != "https://bors2.example/webhook/github/acme/widgets" {
			t.Errorf("hook url = %q", req.Config.URL)
		}
		if req.Config.ContentType != "json" || req.Config.Secret != "s3cret" {
			t.Errorf("unexpected hook config: %+v", req.Config)
		}
		if len(req.Events) != 2 {
			t.Errorf("events = %v", req.Events)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gitprovider.Webhook{ID: 7, URL: req.Config.URL, Events: req.Events, Active: true})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "https://github.example/token"))
	hook, err := c.CreateWebhook(context.Background(), "gho_token", "acme", "widgets",
		"https://bors2.example/webhook/github/acme/widgets", "s3cret",
		[]string{"issues", "status"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hook.ID != 7 {
		t.Fatalf("hook id = %d, want 7", hook.ID)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "https://github.example/token"))
	if _, err := c.GetRepository(context.Background(), "gho_token", "acme", "gone"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
