//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/config"
	"github.com/KiwiSingh/LyricVision/internal/pipeline"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/ffmpeg"
	"github.com/KiwiSingh/LyricVision/internal/types"
)

func TestE2E(t *testing.T) {
	if os.Getenv("PEXELS_API_KEY") == "" && os.Getenv("PIXABAY_API_KEY") == "" {
		t.Fatalf("PEXELS_API_KEY or PIXABAY_API_KEY is required for itest")
	}

	tmp := t.TempDir()
	// "acapella" in the name skips vocal separation.
	in := filepath.Join(tmp, "city-acapella.wav")

	speech := filepath.Join(tmp, "speech.wav")
	text := "City lights are shining. Rain is falling on the ocean."
	cmd := exec.Command("espeak-ng", "-w", speech, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}
	ff := exec.Command("ffmpeg", "-y", "-i", speech, "-ar", "44100", "-ac", "2", in)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	repoRoot := mustRepoRoot(t)
	project := config.Default()
	project.BPM = 120
	project.Subdivision = "eighth"
	project.OutDir = filepath.Join(tmp, "out")
	project.CacheDir = filepath.Join(tmp, "cache")
	project.Keywords.Provider = "none"
	if os.Getenv("OPENAI_API_KEY") != "" {
		project.Keywords.Provider = "openai"
	}
	project.Search.PerQuery = 1
	project.Search.MaxKeywords = 2
	project.Tools.WhisperBin = filepath.Join(repoRoot, ".cache", "bin", "whisper.cpp")
	project.Tools.WhisperModel = filepath.Join(repoRoot, ".cache", "models", "ggml-base.bin")

	cfg := pipeline.Config{
		AudioPath: in,
		Lyrics:    "City lights are shining\nRain is falling on the ocean\n",
		Project:   project,
		Logf:      t.Logf,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	if err := pipeline.Run(ctx, cfg); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	manifests, _ := filepath.Glob(filepath.Join(project.OutDir, "*", "manifest.json"))
	if len(manifests) != 1 {
		t.Fatalf("expected one manifest, got %v", manifests)
	}
	b, err := os.ReadFile(manifests[0])
	if err != nil {
		t.Fatal(err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if m.Grid != 0.25 || len(m.Timeline) == 0 || len(m.Videos) == 0 {
		t.Fatalf("unexpected manifest: %s", b)
	}

	runDir := filepath.Dir(manifests[0])
	for _, name := range []string{m.FCPXML, m.Subtitles} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	d, err := ffmpeg.New("", "").ProbeDuration(ctx, m.Videos[0].LocalPath)
	if err != nil {
		t.Fatalf("probe downloaded clip: %v", err)
	}
	if d <= 0 {
		t.Fatalf("downloaded clip has no duration")
	}
}
