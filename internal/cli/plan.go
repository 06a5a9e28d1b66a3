package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/config"
	"github.com/KiwiSingh/LyricVision/internal/credentials"
	"github.com/KiwiSingh/LyricVision/internal/pipeline"
	"github.com/KiwiSingh/LyricVision/internal/ports/adapters/openrouter"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <audio>",
		Short: "Align lyrics, fetch stock footage and write FCPXML, SRT and manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("lyrics", "", "Lyrics text file (one line per lyric line)")
	f.Float64("bpm", 0, "Tempo in BPM (0 = detect)")
	f.String("subdivision", "quarter", "Beat subdivision: quarter, eighth or sixteenth")
	f.String("resolution", "1080p", "Target resolution: 1080p or 4K (2160p, UHD)")
	f.Int("fps", 24, "Timeline frame rate")
	f.String("out", "out", "Output directory")
	f.String("provider", "openai", "Keyword provider: openai, openrouter or none")
	f.Bool("srt", true, "Write beat-grouped SRT subtitles")
	return cmd
}

func runPlan(cmd *cobra.Command, input string) error {
	project, err := loadProject(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("out") {
		project.OutDir, _ = f.GetString("out")
	}
	if f.Changed("provider") {
		p, _ := f.GetString("provider")
		project.Keywords.Provider = strings.ToLower(strings.TrimSpace(p))
	}
	if f.Changed("srt") {
		on, _ := f.GetBool("srt")
		project.Subtitles = &on
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	var lyrics string
	if path, _ := cmd.Flags().GetString("lyrics"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read lyrics: %w", err)
		}
		lyrics = string(b)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := pipeline.Config{
		AudioPath:   absIn,
		Lyrics:      lyrics,
		Project:     project,
		Logf:        logger.Sugar().Infof,
		Logger:      logger,
		Credentials: credentials.NewEnv(),

		OpenRouterBaseURL:      getenvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		OpenRouterAllowedHosts: openrouter.SplitHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS")),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
	}
	if cfg.Project.Keywords.Model == "" {
		switch cfg.Project.Keywords.Provider {
		case "openai":
			cfg.Project.Keywords.Model = os.Getenv("OPENAI_MODEL")
		case "openrouter":
			cfg.Project.Keywords.Model = os.Getenv("OPENROUTER_MODEL")
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()
	return pipeline.Run(ctx, cfg)
}

// loadProject reads --config and applies the grid and export flags the user
// set explicitly.
func loadProject(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("bpm") {
		cfg.BPM, _ = f.GetFloat64("bpm")
	}
	if f.Changed("subdivision") {
		cfg.Subdivision, _ = f.GetString("subdivision")
	}
	if f.Changed("resolution") {
		cfg.Resolution, _ = f.GetString("resolution")
	}
	if f.Changed("fps") {
		cfg.FPS, _ = f.GetInt("fps")
	}
	cfg.Subdivision = strings.ToLower(strings.TrimSpace(cfg.Subdivision))
	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
