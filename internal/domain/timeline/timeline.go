package timeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/KiwiSingh/LyricVision/internal/domain/grid"
	"github.com/KiwiSingh/LyricVision/internal/types"
)

// Build turns aligned words into one clip per word. Clip starts are snapped
// to the grid and each clip lasts until the next word's snapped start, but
// never less than one grid interval. The input slice is not modified.
func Build(words []types.Word, bpm float64, sub grid.Subdivision) ([]types.TimelineClip, error) {
	if len(words) == 0 {
		return nil, nil
	}
	g, err := grid.Grid(bpm, sub)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	sorted := make([]types.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	snapped := make([]float64, len(sorted))
	for i, w := range sorted {
		snapped[i] = grid.Snap(w.Start, g)
	}

	out := make([]types.TimelineClip, 0, len(sorted))
	for i, w := range sorted {
		d := g
		if i < len(sorted)-1 {
			d = math.Max(g, snapped[i+1]-snapped[i])
		}
		out = append(out, types.TimelineClip{
			Text:     w.Word,
			Start:    snapped[i],
			Duration: d,
			End:      snapped[i] + d,
		})
	}
	return out, nil
}

// TotalDuration is the end of the last clip, or 0 for an empty timeline.
func TotalDuration(clips []types.TimelineClip) float64 {
	var end float64
	for _, c := range clips {
		end = math.Max(end, c.End)
	}
	return end
}
