package pipeline

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/config"
	"github.com/KiwiSingh/LyricVision/internal/credentials"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/openrouter"
	"github.com/KiwiSingh/LyricVision/internal/types"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Song.mp3", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-song-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-song-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Song  ": "my-cool-song",
		"___":              "",
		"abc123":           "abc123",
		"Name (v2)!":       "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	if got := baseName("/music/Night Drive (Live).wav"); got != "night-drive-live" {
		t.Fatalf("baseName = %q", got)
	}
	if got := baseName("/music/!!!.mp3"); got != "lyricvision" {
		t.Fatalf("baseName fallback = %q", got)
	}
}

func TestValidate(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	withProvider := func(p string) config.Config {
		c := config.Default()
		c.Keywords.Provider = p
		return c
	}
	badSub := config.Default()
	badSub.Subdivision = "triplet"

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		is      error
	}{
		{
			name:    "empty input",
			cfg:     Config{Project: config.Default()},
			wantErr: "input is empty",
		},
		{
			name:    "missing input",
			cfg:     Config{AudioPath: audio + ".nope", Project: config.Default()},
			wantErr: "stat input",
		},
		{
			name:    "bad subdivision",
			cfg:     Config{AudioPath: audio, Project: badSub, Credentials: credentials.Static{"pexels": "p", "openai": "o"}},
			wantErr: "subdivision must be",
		},
		{
			name:    "no stock keys",
			cfg:     Config{AudioPath: audio, Project: withProvider("none"), Credentials: credentials.Static{}},
			wantErr: "PEXELS_API_KEY or PIXABAY_API_KEY is required",
		},
		{
			name:    "openai key missing",
			cfg:     Config{AudioPath: audio, Project: withProvider("openai"), Credentials: credentials.Static{"pixabay": "k"}},
			wantErr: "OPENAI_API_KEY is required",
		},
		{
			name: "openrouter base url rejected",
			cfg: Config{
				AudioPath:         audio,
				Project:           withProvider("openrouter"),
				Credentials:       credentials.Static{"pexels": "p", "openrouter": "r"},
				OpenRouterBaseURL: "http://openrouter.ai",
			},
			is: openrouter.ErrInvalidBaseURL,
		},
		{
			name: "openrouter ok",
			cfg: Config{
				AudioPath:   audio,
				Project:     withProvider("openrouter"),
				Credentials: credentials.Static{"pexels": "p", "openrouter": "r"},
			},
		},
		{
			name: "no keyword provider",
			cfg:  Config{AudioPath: audio, Project: withProvider("none"), Credentials: credentials.Static{"pixabay": "k"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.is != nil:
				if !errors.Is(err, tt.is) {
					t.Fatalf("expected %v, got %v", tt.is, err)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "manifest.json")
	m := types.Manifest{
		Input:    "/music/song.mp3",
		BPM:      120,
		Grid:     0.5,
		Keywords: []string{"rain"},
		Timeline: []types.TimelineClip{{Text: "hello", Start: 0, Duration: 0.5, End: 0.5}},
		FCPXML:   "song.fcpxml",
	}
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if got["grid_sec"] != 0.5 || got["fcpxml"] != "song.fcpxml" {
		t.Fatalf("unexpected manifest: %s", b)
	}
	if _, ok := got["subtitles"]; ok {
		t.Fatalf("empty subtitles path should be omitted")
	}
}

func TestBuildDeps_KeywordProvider(t *testing.T) {
	creds := credentials.Static{"pexels": "p", "openai": "o", "openrouter": "r"}
	for _, tt := range []struct {
		provider string
		wantNil  bool
	}{
		{"openai", false},
		{"openrouter", false},
		{"none", true},
	} {
		c := config.Default()
		c.Keywords.Provider = tt.provider
		deps := buildDeps(Config{Project: c, Credentials: creds}, nil)
		if (deps.Keywords == nil) != tt.wantNil {
			t.Fatalf("provider %s: keywords nil = %v", tt.provider, deps.Keywords == nil)
		}
		if deps.Search == nil || deps.Download == nil || deps.Tempo == nil || deps.Separator == nil {
			t.Fatalf("provider %s: missing deps %+v", tt.provider, deps)
		}
	}
}
