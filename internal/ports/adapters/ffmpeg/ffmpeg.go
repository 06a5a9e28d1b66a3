package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ConvertToWav decodes any audio or video input to 44.1 kHz stereo WAV.
func (a *Adapter) ConvertToWav(ctx context.Context, in, outWav string) error {
	return a.convert(ctx, convertArgs(in, outWav, 44100, 2), "ffmpeg convert to wav")
}

// ExtractSpeechWav writes the 16 kHz mono WAV whisper.cpp expects.
func (a *Adapter) ExtractSpeechWav(ctx context.Context, in, outWav string) error {
	return a.convert(ctx, convertArgs(in, outWav, 16000, 1), "ffmpeg extract audio")
}

func (a *Adapter) convert(ctx context.Context, args []string, what string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", what, err, string(b))
	}
	return nil
}

func convertArgs(in, outWav string, rate, channels int) []string {
	return []string{
		"-y",
		"-i", in,
		"-vn",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"-f", "wav",
		outWav,
	}
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	return parseDuration(string(b))
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}
