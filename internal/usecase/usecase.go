package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KiwiSingh/LyricVision/internal/domain/fcpxml"
	"github.com/KiwiSingh/LyricVision/internal/domain/grid"
	"github.com/KiwiSingh/LyricVision/internal/domain/keywords"
	"github.com/KiwiSingh/LyricVision/internal/domain/subtitles"
	"github.com/KiwiSingh/LyricVision/internal/domain/timeline"
	"github.com/KiwiSingh/LyricVision/internal/ports"
	"github.com/KiwiSingh/LyricVision/internal/types"
)

var (
	ErrNoWords     = errors.New("no words aligned")
	ErrNoVideos    = errors.New("no stock videos found")
	ErrNoDownloads = errors.New("no stock videos downloaded")
)

// Deps are the collaborators of one run. Separator, Tempo and Keywords may be
// nil: vocals then come from the mix, BPM must be given and keywords fall back
// to the aligned words.
type Deps struct {
	Audio     ports.AudioTool
	Aligner   ports.Aligner
	Tempo     ports.TempoDetector
	Separator ports.VocalSeparator
	Keywords  ports.KeywordExtractor
	Search    ports.VideoSearcher
	Download  ports.Downloader
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	AudioPath   string
	Lyrics      string
	BPM         float64 // > 0 skips tempo detection
	Subdivision grid.Subdivision
	Resolution  string
	FPS         int

	PerQuery      int
	FallbackLimit int
	Subtitles     bool

	CacheDir string
	OutDir   string
	// Name is the base name of the .fcpxml and .srt outputs.
	Name string
	Logf func(format string, args ...any)
}

type Result struct {
	Manifest types.Manifest
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	name := in.Name
	if name == "" {
		name = "lyricvision"
	}

	if _, err := os.Stat(in.AudioPath); err != nil {
		return Result{}, fmt.Errorf("audio: %w", err)
	}

	logf("converting audio")
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Audio.ConvertToWav(ctx, in.AudioPath, wav); err != nil {
		return Result{}, err
	}

	vocals, err := u.vocals(ctx, in.AudioPath, wav, in.CacheDir, logf)
	if err != nil {
		return Result{}, err
	}

	logf("aligning words")
	speech := filepath.Join(in.CacheDir, "speech.wav")
	if err := u.d.Audio.ExtractSpeechWav(ctx, vocals, speech); err != nil {
		return Result{}, err
	}
	words, err := u.d.Aligner.Align(ctx, speech, in.Lyrics, in.CacheDir)
	if err != nil {
		return Result{}, fmt.Errorf("align: %w", err)
	}
	if len(words) == 0 {
		return Result{}, ErrNoWords
	}
	logf("aligned %d words", len(words))

	bpm, err := u.bpm(ctx, in.BPM, wav, logf)
	if err != nil {
		return Result{}, err
	}
	g, err := grid.Grid(bpm, in.Subdivision)
	if err != nil {
		return Result{}, err
	}

	kws := u.keywords(ctx, in, words, logf)
	logf("searching stock footage for %d keywords", len(kws))
	found, err := u.d.Search.Search(ctx, kws, in.PerQuery)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	if len(found) == 0 {
		return Result{}, ErrNoVideos
	}

	clips, err := timeline.Build(words, bpm, in.Subdivision)
	if err != nil {
		return Result{}, err
	}
	if len(clips) == 0 {
		return Result{}, errors.New("timeline is empty")
	}

	logf("downloading %d videos", len(found))
	videos, err := u.d.Download.Download(ctx, found, filepath.Join(in.OutDir, "media"))
	if err != nil {
		return Result{}, fmt.Errorf("download: %w", err)
	}
	if len(videos) == 0 {
		return Result{}, ErrNoDownloads
	}
	u.probeDurations(ctx, videos, logf)

	m := types.Manifest{
		Input:       in.AudioPath,
		BPM:         bpm,
		Subdivision: in.Subdivision.String(),
		Grid:        g,
		Resolution:  in.Resolution,
		FPS:         in.FPS,
		Words:       len(words),
		Keywords:    kws,
		Videos:      videos,
		Timeline:    clips,
	}

	xmlName := name + ".fcpxml"
	opts := fcpxml.Options{Resolution: in.Resolution, FPS: in.FPS, ProjectName: name}
	if err := fcpxml.Export(filepath.Join(in.OutDir, xmlName), videos, clips, opts); err != nil {
		return Result{}, err
	}
	m.FCPXML = xmlName
	logf("fcpxml written: %s", xmlName)

	if in.Subtitles {
		srtName := name + ".srt"
		if err := subtitles.Export(filepath.Join(in.OutDir, srtName), words, bpm, in.Subdivision); err != nil {
			return Result{}, err
		}
		m.Subtitles = srtName
		logf("subtitles written: %s", srtName)
	}

	return Result{Manifest: m}, nil
}

// vocals returns the track to align. Acapella inputs and runs without a
// separator use the converted mix directly.
func (u Usecase) vocals(ctx context.Context, audioPath, wav, cacheDir string, logf func(string, ...any)) (string, error) {
	if strings.Contains(strings.ToLower(filepath.Base(audioPath)), "acapella") {
		logf("acapella input, skipping vocal separation")
		return wav, nil
	}
	if u.d.Separator == nil {
		return wav, nil
	}
	logf("separating vocals")
	v, err := u.d.Separator.SeparateVocals(ctx, wav, filepath.Join(cacheDir, "stems"))
	if err != nil {
		return "", fmt.Errorf("separate vocals: %w", err)
	}
	return v, nil
}

func (u Usecase) bpm(ctx context.Context, manual float64, wav string, logf func(string, ...any)) (float64, error) {
	if manual > 0 {
		logf("using manual bpm %.2f", manual)
		return manual, nil
	}
	if u.d.Tempo == nil {
		return 0, fmt.Errorf("bpm: %w (no tempo detector and no manual bpm)", grid.ErrInvalidBPM)
	}
	bpm, err := u.d.Tempo.DetectBPM(ctx, wav)
	if err != nil {
		return 0, fmt.Errorf("detect bpm: %w", err)
	}
	logf("detected bpm %.2f", bpm)
	return bpm, nil
}

// keywords asks the extractor line by line and falls back to the aligned
// words when it yields nothing.
func (u Usecase) keywords(ctx context.Context, in Input, words []types.Word, logf func(string, ...any)) []string {
	var out []string
	if u.d.Keywords != nil {
		lines := keywords.LyricLines(in.Lyrics)
		if len(lines) == 0 {
			lines = []string{joinWords(words)}
		}
		for _, line := range lines {
			kws, err := u.d.Keywords.Keywords(ctx, line)
			if err != nil {
				logf("keywords for %q failed: %v", line, err)
				continue
			}
			out = append(out, kws...)
		}
		out = keywords.Clean(out)
	}
	if len(out) == 0 {
		logf("using keywords from aligned words")
		out = keywords.FromWords(words, in.FallbackLimit)
	}
	return out
}

func (u Usecase) probeDurations(ctx context.Context, videos []types.VideoAsset, logf func(string, ...any)) {
	for i := range videos {
		if videos[i].Duration > 0 {
			continue
		}
		d, err := u.d.Audio.ProbeDuration(ctx, videos[i].LocalPath)
		if err != nil {
			logf("probe %s: %v", videos[i].LocalPath, err)
			continue
		}
		videos[i].Duration = types.Seconds(d.Seconds())
	}
}

func joinWords(words []types.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Word); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
