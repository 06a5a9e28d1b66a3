package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/KiwiSingh/LyricVision/internal/domain/fcpxml"
	"github.com/KiwiSingh/LyricVision/internal/domain/grid"
	"github.com/KiwiSingh/LyricVision/internal/domain/subtitles"
	"github.com/KiwiSingh/LyricVision/internal/domain/timeline"
	"github.com/KiwiSingh/LyricVision/internal/types"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

func newTimelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Snap aligned words to the beat grid and export FCPXML",
		Args:  cobra.NoArgs,
		RunE:  runTimeline,
	}
	f := cmd.Flags()
	f.String("words", "", "Aligned words JSON")
	f.String("videos", "", "Downloaded videos JSON")
	f.Float64("bpm", 0, "Tempo in BPM")
	f.String("subdivision", "quarter", "Beat subdivision: quarter, eighth or sixteenth")
	f.String("resolution", "1080p", "Target resolution: 1080p or 4K (2160p, UHD)")
	f.Int("fps", 24, "Timeline frame rate")
	f.String("out", "", "Output .fcpxml path")
	_ = cmd.MarkFlagRequired("words")
	_ = cmd.MarkFlagRequired("videos")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	project, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if project.BPM <= 0 {
		return errors.New("config: --bpm must be > 0")
	}
	if err := project.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	wordsPath, _ := cmd.Flags().GetString("words")
	videosPath, _ := cmd.Flags().GetString("videos")
	out, _ := cmd.Flags().GetString("out")

	words, err := readWords(wordsPath)
	if err != nil {
		return err
	}
	var videos []types.VideoAsset
	if err := readJSON(videosPath, &videos); err != nil {
		return err
	}

	clips, err := timeline.Build(words, project.BPM, grid.ParseSubdivision(project.Subdivision))
	if err != nil {
		return err
	}
	opts := fcpxml.Options{Resolution: project.Resolution, FPS: project.FPS}
	if err := fcpxml.Export(out, videos, clips, opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d clips, %.2fs)\n", out, len(clips), timeline.TotalDuration(clips))
	return nil
}

func newSRTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "srt",
		Short: "Group aligned words by beat and export SRT subtitles",
		Args:  cobra.NoArgs,
		RunE:  runSRT,
	}
	f := cmd.Flags()
	f.String("words", "", "Aligned words JSON")
	f.Float64("bpm", 0, "Tempo in BPM")
	f.String("subdivision", "quarter", "Beat subdivision: quarter, eighth or sixteenth")
	f.String("out", "", "Output .srt path")
	f.Bool("copy", false, "Also copy the subtitles to the clipboard")
	_ = cmd.MarkFlagRequired("words")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runSRT(cmd *cobra.Command, _ []string) error {
	project, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if project.BPM <= 0 {
		return errors.New("config: --bpm must be > 0")
	}
	if err := project.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	wordsPath, _ := cmd.Flags().GetString("words")
	out, _ := cmd.Flags().GetString("out")
	words, err := readWords(wordsPath)
	if err != nil {
		return err
	}

	sub := grid.ParseSubdivision(project.Subdivision)
	if err := subtitles.Export(out, words, project.BPM, sub); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)

	if copyOut, _ := cmd.Flags().GetBool("copy"); copyOut {
		lines, err := subtitles.GroupByBeat(words, project.BPM, sub)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(subtitles.RenderSRT(lines)); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "copied to clipboard")
	}
	return nil
}

// readWords accepts a bare word list, {"words": [...]} or a transcript with
// per-segment words.
func readWords(path string) ([]types.Word, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}
	var list []types.Word
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Words    []types.Word `json:"words"`
		Segments []struct {
			Words []types.Word `json:"words"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse words %s: %w", path, err)
	}
	words := doc.Words
	for _, s := range doc.Segments {
		words = append(words, s.Words...)
	}
	return words, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
