package openrouter

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		wantErr      bool
	}{
		{
			name:    "default host with https",
			baseURL: "https://openrouter.ai",
		},
		{
			name:    "empty falls back to default",
			baseURL: "  ",
		},
		{
			name:    "default api host with https",
			baseURL: "https://api.openrouter.ai/",
		},
		{
			name:    "reject non-absolute URL",
			baseURL: "openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject http by default",
			baseURL: "http://openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject unknown host by default",
			baseURL: "https://evil.example",
			wantErr: true,
		},
		{
			name:         "allow configured host",
			baseURL:      "https://proxy.internal:8443",
			allowedHosts: []string{"https://proxy.internal/"},
		},
		{
			name:    "reject userinfo",
			baseURL: "https://user:pw@openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject query",
			baseURL: "https://openrouter.ai?x=1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.wantErr && !errors.Is(err, ErrInvalidBaseURL) {
				t.Fatalf("expected ErrInvalidBaseURL, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeAllowedHosts_DefaultWhenEmpty(t *testing.T) {
	out := normalizeAllowedHosts([]string{" ", "https://", "http://"})
	if len(out) != len(defaultAllowedHosts) {
		t.Fatalf("expected default allowed hosts, got %v", out)
	}
}

func TestSplitHosts(t *testing.T) {
	got := SplitHosts(" a.example , ,b.example")
	if !reflect.DeepEqual(got, []string{"a.example", "b.example"}) {
		t.Fatalf("SplitHosts = %q", got)
	}
	if SplitHosts("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
