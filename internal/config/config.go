package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional project file. Command-line flags override it.
type Config struct {
	BPM         float64 `yaml:"bpm"` // 0 = detect
	Subdivision string  `yaml:"subdivision"`
	Resolution  string  `yaml:"resolution"`
	FPS         int     `yaml:"fps"`
	OutDir      string  `yaml:"out_dir"`
	CacheDir    string  `yaml:"cache_dir"`
	Subtitles   *bool   `yaml:"subtitles,omitempty"` // nil = true

	Keywords  KeywordsConfig  `yaml:"keywords"`
	Search    SearchConfig    `yaml:"search"`
	Tools     ToolsConfig     `yaml:"tools"`
	Alignment AlignmentConfig `yaml:"alignment"`
}

type KeywordsConfig struct {
	// Provider is one of openai, openrouter or none.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// FallbackLimit caps keywords taken from the aligned words.
	FallbackLimit int `yaml:"fallback_limit"`
}

type SearchConfig struct {
	PerQuery       int           `yaml:"per_query"`
	MaxKeywords    int           `yaml:"max_keywords"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
	Concurrency    int           `yaml:"download_concurrency"`
}

type ToolsConfig struct {
	FFmpeg       string `yaml:"ffmpeg"`
	FFprobe      string `yaml:"ffprobe"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
	Demucs       string `yaml:"demucs"`
	Aubio        string `yaml:"aubio"`
}

type AlignmentConfig struct {
	Device   string `yaml:"device"`
	Language string `yaml:"language"`
}

func Default() Config {
	return Config{
		Subdivision: "quarter",
		Resolution:  "1080p",
		FPS:         24,
		OutDir:      "out",
		CacheDir:    ".cache",
		Keywords: KeywordsConfig{
			Provider:      "openai",
			FallbackLimit: 24,
		},
		Search: SearchConfig{
			PerQuery:       6,
			MaxKeywords:    6,
			RateLimitDelay: 1200 * time.Millisecond,
			Concurrency:    4,
		},
		Tools: ToolsConfig{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
			Demucs:       "demucs",
			Aubio:        "aubio",
		},
		Alignment: AlignmentConfig{
			Device: "cpu",
		},
	}
}

// Load reads a YAML project file over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (c *Config) ApplyDefaults() {
	d := Default()
	c.Subdivision = strings.ToLower(strings.TrimSpace(c.Subdivision))
	if c.Subdivision == "" {
		c.Subdivision = d.Subdivision
	}
	if strings.TrimSpace(c.Resolution) == "" {
		c.Resolution = d.Resolution
	}
	if c.FPS == 0 {
		c.FPS = d.FPS
	}
	if c.OutDir == "" {
		c.OutDir = d.OutDir
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	c.Keywords.Provider = strings.ToLower(strings.TrimSpace(c.Keywords.Provider))
	if c.Keywords.Provider == "" {
		c.Keywords.Provider = d.Keywords.Provider
	}
	if c.Keywords.FallbackLimit == 0 {
		c.Keywords.FallbackLimit = d.Keywords.FallbackLimit
	}
	if c.Search.PerQuery == 0 {
		c.Search.PerQuery = d.Search.PerQuery
	}
	if c.Search.MaxKeywords == 0 {
		c.Search.MaxKeywords = d.Search.MaxKeywords
	}
	if c.Search.Concurrency == 0 {
		c.Search.Concurrency = d.Search.Concurrency
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = d.Tools.FFmpeg
	}
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = d.Tools.FFprobe
	}
	if c.Tools.WhisperBin == "" {
		c.Tools.WhisperBin = d.Tools.WhisperBin
	}
	if c.Tools.WhisperModel == "" {
		c.Tools.WhisperModel = d.Tools.WhisperModel
	}
	if c.Tools.Demucs == "" {
		c.Tools.Demucs = d.Tools.Demucs
	}
	if c.Tools.Aubio == "" {
		c.Tools.Aubio = d.Tools.Aubio
	}
	if c.Alignment.Device == "" {
		c.Alignment.Device = d.Alignment.Device
	}
}

func (c Config) SubtitlesEnabled() bool {
	return c.Subtitles == nil || *c.Subtitles
}

func (c Config) Validate() error {
	if c.BPM < 0 {
		return fmt.Errorf("bpm must be >= 0 (0 = detect), got %v", c.BPM)
	}
	switch c.Subdivision {
	case "quarter", "eighth", "sixteenth":
	default:
		return fmt.Errorf("subdivision must be quarter, eighth or sixteenth, got %q", c.Subdivision)
	}
	switch strings.ToUpper(strings.TrimSpace(c.Resolution)) {
	case "1080P", "4K", "2160P", "UHD":
	default:
		return fmt.Errorf("resolution must be 1080p or 4K (2160p, UHD), got %q", c.Resolution)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0, got %d", c.FPS)
	}
	switch c.Keywords.Provider {
	case "openai", "openrouter", "none":
	default:
		return fmt.Errorf("keywords.provider must be openai, openrouter or none, got %q", c.Keywords.Provider)
	}
	if c.Search.PerQuery < 0 || c.Search.MaxKeywords < 0 || c.Search.Concurrency < 0 {
		return errors.New("search limits must be >= 0")
	}
	if c.Search.RateLimitDelay < 0 {
		return errors.New("search.rate_limit_delay must be >= 0")
	}
	switch c.Alignment.Device {
	case "cpu", "gpu":
	default:
		return fmt.Errorf("alignment.device must be cpu or gpu, got %q", c.Alignment.Device)
	}
	return nil
}
