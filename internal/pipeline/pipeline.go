package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/KiwiSingh/LyricVision/internal/config"
	"github.com/KiwiSingh/LyricVision/internal/credentials"
	"github.com/KiwiSingh/LyricVision/internal/domain/grid"
	"github.com/KiwiSingh/LyricVision/internal/fsutil"
	"github.com/KiwiSingh/LyricVision/internal/ports"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/aubio"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/demucs"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/ffmpeg"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/openai"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/openrouter"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/stock"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/whispercpp"
	"github.com/KiwiSingh/LyricVision/internal/types"
	"github.com/KiwiSingh/LyricVision/internal/usecase"
	"go.uber.org/zap"
)

type Config struct {
	AudioPath string
	Lyrics    string
	Project   config.Config
	Logf      func(format string, args ...any)
	// Logger receives adapter warnings (rate limits, failed downloads).
	Logger *zap.Logger

	Credentials ports.Credentials

	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
	OpenAIBaseURL          string
}

func (c Config) Validate() error {
	if c.AudioPath == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.AudioPath); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if math.IsNaN(c.Project.BPM) || math.IsInf(c.Project.BPM, 0) {
		return fmt.Errorf("bpm must be finite")
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if c.Project.Tools.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}

	creds := c.creds()
	if !has(creds, credentials.Pexels) && !has(creds, credentials.Pixabay) {
		return errors.New("PEXELS_API_KEY or PIXABAY_API_KEY is required (set it in .env)")
	}
	switch c.Project.Keywords.Provider {
	case "openai":
		if !has(creds, credentials.OpenAI) {
			return errors.New("OPENAI_API_KEY is required for keywords.provider openai")
		}
	case "openrouter":
		if !has(creds, credentials.OpenRouter) {
			return errors.New("OPENROUTER_API_KEY is required for keywords.provider openrouter")
		}
		return openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
	}
	return nil
}

func (c Config) creds() ports.Credentials {
	if c.Credentials == nil {
		return credentials.NewEnv()
	}
	return c.Credentials
}

func has(c ports.Credentials, service string) bool {
	_, ok := c.Get(service)
	return ok
}

func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := cfg.Project

	uc := usecase.New(buildDeps(cfg, logger))

	jobID := hash(cfg.AudioPath)
	baseCache := p.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	logf("cache: %s", cacheDir)

	outDir := p.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.AudioPath, time.Now().UTC())
	if err := os.MkdirAll(filepath.Join(runOutDir, "media"), 0o755); err != nil {
		return err
	}
	logf("output run dir: %s", runOutDir)

	res, err := uc.Run(ctx, usecase.Input{
		AudioPath:     cfg.AudioPath,
		Lyrics:        cfg.Lyrics,
		BPM:           p.BPM,
		Subdivision:   grid.ParseSubdivision(p.Subdivision),
		Resolution:    p.Resolution,
		FPS:           p.FPS,
		PerQuery:      p.Search.PerQuery,
		FallbackLimit: p.Keywords.FallbackLimit,
		Subtitles:     p.SubtitlesEnabled(),
		CacheDir:      cacheDir,
		OutDir:        runOutDir,
		Name:          baseName(cfg.AudioPath),
		Logf:          logf,
	})
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := WriteManifest(manifestPath, res.Manifest); err != nil {
		return err
	}
	logf("manifest written (%d clips, %d videos): %s", len(res.Manifest.Timeline), len(res.Manifest.Videos), manifestPath)
	return nil
}

func buildDeps(cfg Config, logger *zap.Logger) usecase.Deps {
	p := cfg.Project
	creds := cfg.creds()

	deps := usecase.Deps{
		Audio: ffmpeg.New(p.Tools.FFmpeg, p.Tools.FFprobe),
		Aligner: whispercpp.New(p.Tools.WhisperBin, p.Tools.WhisperModel, whispercpp.Options{
			Device:   p.Alignment.Device,
			Language: p.Alignment.Language,
		}),
		Tempo:     aubio.New(p.Tools.Aubio),
		Separator: demucs.New(p.Tools.Demucs),
	}

	switch p.Keywords.Provider {
	case "openai":
		key, _ := creds.Get(credentials.OpenAI)
		deps.Keywords = openai.New(key, p.Keywords.Model, cfg.OpenAIBaseURL)
	case "openrouter":
		key, _ := creds.Get(credentials.OpenRouter)
		deps.Keywords = openrouter.New(key, p.Keywords.Model, cfg.OpenRouterBaseURL)
	}

	pexels, _ := creds.Get(credentials.Pexels)
	pixabay, _ := creds.Get(credentials.Pixabay)
	deps.Search = stock.NewSearcher(stock.Options{
		PexelsKey:   pexels,
		PixabayKey:  pixabay,
		Resolution:  p.Resolution,
		MaxKeywords: p.Search.MaxKeywords,
		Delay:       p.Search.RateLimitDelay,
		Backoff:     stock.DefaultBackoff,
		Logger:      logger,
	})
	deps.Download = stock.NewDownloader(nil, p.Search.Concurrency, logger)
	return deps
}

// WriteManifest stores m as indented JSON at path.
func WriteManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}

func baseName(input string) string {
	name := normalizePathSegment(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	if name == "" {
		return "lyricvision"
	}
	return name
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.AudioTool = (*ffmpeg.Adapter)(nil)
var _ ports.Aligner = (*whispercpp.Adapter)(nil)
var _ ports.TempoDetector = (*aubio.Adapter)(nil)
var _ ports.VocalSeparator = (*demucs.Adapter)(nil)
var _ ports.KeywordExtractor = (*openai.Adapter)(nil)
var _ ports.KeywordExtractor = (*openrouter.Adapter)(nil)
var _ ports.VideoSearcher = (*stock.Searcher)(nil)
var _ ports.Downloader = (*stock.Downloader)(nil)
var _ ports.Credentials = credentials.Env{}
var _ ports.Credentials = credentials.Static{}
