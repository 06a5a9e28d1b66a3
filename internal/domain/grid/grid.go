// Package grid quantizes times onto a musical beat grid.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidBPM = errors.New("bpm must be a positive finite number")

type Subdivision string

const (
	Quarter   Subdivision = "quarter"
	Eighth    Subdivision = "eighth"
	Sixteenth Subdivision = "sixteenth"
)

// ParseSubdivision never fails: unknown names fall back to Quarter.
func ParseSubdivision(s string) Subdivision {
	switch Subdivision(strings.ToLower(strings.TrimSpace(s))) {
	case Eighth:
		return Eighth
	case Sixteenth:
		return Sixteenth
	default:
		return Quarter
	}
}

func (s Subdivision) Divisor() float64 {
	switch s {
	case Eighth:
		return 2
	case Sixteenth:
		return 4
	default:
		return 1
	}
}

func (s Subdivision) String() string {
	return string(ParseSubdivision(string(s)))
}

// Grid returns the grid interval in seconds: 60 / bpm / divisor.
func Grid(bpm float64, sub Subdivision) (float64, error) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBPM, bpm)
	}
	return 60.0 / bpm / sub.Divisor(), nil
}

// Snap rounds t to the nearest multiple of grid. Exact half-way values round
// to the even multiple, so 0.25 on a 0.5 grid snaps to 0 and 0.75 to 1.0.
func Snap(t, grid float64) float64 {
	return math.RoundToEven(t/grid) * grid
}
