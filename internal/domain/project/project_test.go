package project

import (
	"errors"
	"testing"

	"github.com/alexcrichton/bors2/internal/domain"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in          string
		owner, name string
		wantErr     bool
	}{
		{"acme/widgets", "acme", "widgets", false},
		{"acme/widgets/extra", "acme", "widgets/extra", false},
		{"acme", "", "", true},
		{"/widgets", "", "", true},
		{"acme/", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		owner, name, err := SplitFullName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrMalformedInput) {
				t.Errorf("SplitFullName(%q): got %v, want ErrMalformedInput", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitFullName(%q): %v", tt.in, err)
			continue
		}
		if owner != tt.owner || name != tt.name {
			t.Errorf("SplitFullName(%q) = (%q, %q), want (%q, %q)", tt.in, owner, name, tt.owner, tt.name)
		}
	}
}

func TestCIToken(t *testing.T) {
	p := &Project{TravisToken: "t-tok", AppVeyorToken: "a-tok"}

	if got, err := p.CIToken(CITravis); err != nil || got != "t-tok" {
		t.Errorf("CIToken(travis) = %q, %v", got, err)
	}
	if got, err := p.CIToken(CIAppVeyor); err != nil || got != "a-tok" {
		t.Errorf("CIToken(appveyor) = %q, %v", got, err)
	}
	if _, err := p.CIToken(CIProvider("circle")); !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("unknown provider: got %v, want ErrMalformedInput", err)
	}
}

func TestFullName(t *testing.T) {
	p := &Project{RepoOwner: "acme", RepoName: "widgets"}
	if got := p.FullName(); got != "acme/widgets" {
		t.Errorf("FullName() = %q", got)
	}
}
