package travis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexcrichton/bors2/internal/port/ciprovider"
)

// Compile-time interface check.
var _ ciprovider.Travis = (*Client)(nil)

func TestGetRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "token travis-tok" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.travis-ci.2+json" {
			t.Errorf("accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"repo":{"id":8675309}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	repo, err := c.GetRepository(context.Background(), "travis-tok", "acme/widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ID != 8675309 {
		t.Fatalf("repo id = %d, want 8675309", repo.ID)
	}
}

func TestGetSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/8675309/settings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settings":{"maximum_number_of_builds":5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	settings, err := c.GetSettings(context.Background(), "travis-tok", 8675309)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.MaximumNumberOfBuilds != 5 {
		t.Fatalf("max builds = %d, want 5", settings.MaximumNumberOfBuilds)
	}
}

func TestGetSettingsRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"access denied"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetSettings(context.Background(), "bad-token", 1); err == nil {
		t.Fatal("expected error for rejected token")
	}
}

func TestPublicKey(t *testing.T) {
	const keyPEM = "-----BEGIN PUBLIC KEY-----\nMIIBIjAN...\n-----END PUBLIC KEY-----\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("config fetch should be unauthenticated, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"config":{"notifications":{"webhook":{"public_key":"` +
			strings.ReplaceAll(keyPEM, "\n", `\n`) + `"}}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	key, err := c.PublicKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != keyPEM {
		t.Fatalf("key = %q, want %q", key, keyPEM)
	}
}

func TestPublicKeyMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"config":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.PublicKey(context.Background()); err == nil {
		t.Fatal("expected error for missing public key")
	}
}
