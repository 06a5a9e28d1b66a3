package ports

import (
	"context"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/types"
)

type AudioTool interface {
	ConvertToWav(ctx context.Context, in, outWav string) error
	// ExtractSpeechWav writes the mono 16 kHz WAV the aligner reads.
	ExtractSpeechWav(ctx context.Context, in, outWav string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// Aligner returns word timestamps for audioPath. When lyrics is non-empty it
// guides the alignment.
type Aligner interface {
	Align(ctx context.Context, audioPath, lyrics, cacheDir string) ([]types.Word, error)
}

type TempoDetector interface {
	DetectBPM(ctx context.Context, audioPath string) (float64, error)
}

// VocalSeparator isolates the vocal stem and returns its path.
type VocalSeparator interface {
	SeparateVocals(ctx context.Context, audioPath, outDir string) (string, error)
}

type KeywordExtractor interface {
	Keywords(ctx context.Context, text string) ([]string, error)
}

type VideoSearcher interface {
	Search(ctx context.Context, keywords []string, perQuery int) ([]types.VideoAsset, error)
}

// Downloader fetches videos into dir and returns the ones that made it, with
// LocalPath set.
type Downloader interface {
	Download(ctx context.Context, videos []types.VideoAsset, dir string) ([]types.VideoAsset, error)
}

type Credentials interface {
	Get(service string) (string, bool)
}
