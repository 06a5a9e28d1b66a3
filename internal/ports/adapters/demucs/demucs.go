package demucs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const model = "htdemucs"

var ErrNoVocals = errors.New("vocals stem not found after separation")

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "demucs"
	}
	return &Adapter{bin: binPath}
}

// SeparateVocals runs a two-stem separation and returns the vocals stem,
// written under outDir/htdemucs/<track>/vocals.wav.
func (a *Adapter) SeparateVocals(ctx context.Context, audioPath, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, a.bin, args(audioPath, outDir)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("demucs failed: %w\n%s", err, string(b))
	}
	vocals := VocalsPath(audioPath, outDir)
	if _, err := os.Stat(vocals); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoVocals, vocals)
	}
	return vocals, nil
}

func args(audioPath, outDir string) []string {
	return []string{
		"-n", model,
		"--two-stems=vocals",
		"-o", outDir,
		audioPath,
	}
}

func VocalsPath(audioPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outDir, model, base, "vocals.wav")
}
