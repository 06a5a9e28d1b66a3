package aubio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var ErrNoTempo = errors.New("aubio: no tempo in output")

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "aubio"
	}
	return &Adapter{bin: binPath}
}

// DetectBPM runs `aubio tempo` on the file and returns the estimated tempo.
func (a *Adapter) DetectBPM(ctx context.Context, audioPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.bin, "tempo", "-i", audioPath)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("aubio tempo: %w\n%s", err, string(b))
	}
	return parseTempo(string(b))
}

// parseTempo takes the last positive number in the output; aubio prints
// "<bpm> bpm" on its final line.
func parseTempo(out string) (float64, error) {
	fields := strings.Fields(out)
	for i := len(fields) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err == nil && v > 0 && !math.IsInf(v, 0) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoTempo, strings.TrimSpace(out))
}
