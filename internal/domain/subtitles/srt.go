package subtitles

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KiwiSingh/LyricVision/internal/domain/grid"
	"github.com/KiwiSingh/LyricVision/internal/fsutil"
	"github.com/KiwiSingh/LyricVision/internal/types"
)

var ErrBadTimestamp = errors.New("bad srt timestamp")

type bucket struct {
	Start float64
	// End is the snapped end of the last word appended. Cue timing ignores it:
	// every cue lasts exactly one grid interval.
	End   float64
	Words []string
}

// GroupByBeat buckets words into subtitle lines. Words must already be in time
// order; they are not sorted here. A word starts a new line when its snapped
// start lies more than one grid interval after the current line's start.
func GroupByBeat(words []types.Word, bpm float64, sub grid.Subdivision) ([]types.SubtitleLine, error) {
	g, err := grid.Grid(bpm, sub)
	if err != nil {
		return nil, fmt.Errorf("subtitles: %w", err)
	}
	buckets := packWords(words, g)
	out := make([]types.SubtitleLine, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, types.SubtitleLine{
			Start: b.Start,
			End:   b.Start + g,
			Text:  strings.Join(b.Words, " "),
		})
	}
	return out, nil
}

func packWords(words []types.Word, g float64) []bucket {
	if len(words) == 0 {
		return nil
	}
	var out []bucket
	cur := bucket{Start: grid.Snap(words[0].Start, g)}
	for _, w := range words {
		start := grid.Snap(w.Start, g)
		if start > cur.Start+g {
			out = append(out, cur)
			cur = bucket{Start: start}
		}
		cur.Words = append(cur.Words, w.Word)
		cur.End = grid.Snap(w.End, g)
	}
	if len(cur.Words) > 0 {
		out = append(out, cur)
	}
	return out
}

// RenderSRT writes numbered cues separated by blank lines.
func RenderSRT(lines []types.SubtitleLine) string {
	var b strings.Builder
	for i, ln := range lines {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(SRTTime(ln.Start))
		b.WriteString(" --> ")
		b.WriteString(SRTTime(ln.End))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(ln.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Export groups words by beat and writes the SRT file at path, replacing any
// existing file.
func Export(path string, words []types.Word, bpm float64, sub grid.Subdivision) error {
	lines, err := GroupByBeat(words, bpm, sub)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, []byte(RenderSRT(lines)), 0o644); err != nil {
		return fmt.Errorf("subtitles: write %s: %w", path, err)
	}
	return nil
}

// SRTTime formats seconds as HH:MM:SS,mmm. Hours, minutes and seconds use
// floored division; milliseconds are truncated, not rounded.
func SRTTime(seconds float64) string {
	hs := int(math.Floor(seconds / 3600))
	ms := int(math.Floor(floorMod(seconds, 3600) / 60))
	s := int(floorMod(seconds, 60))
	millis := int((seconds - math.Trunc(seconds)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hs, ms, s, millis)
}

// ParseSRTTime reads a HH:MM:SS,mmm timestamp back into seconds.
func ParseSRTTime(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	clock, frac, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	var total float64
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
		total = total*60 + float64(n)
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
		}
	}
	ms, err := strconv.Atoi(frac)
	if err != nil || ms < 0 || ms > 999 || len(frac) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	return total + float64(ms)/1000, nil
}

func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
