package fcpxml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNegativeTime = errors.New("time must be a non-negative number")
	ErrInvalidFPS   = errors.New("fps must be > 0")
	ErrBadTimeCode  = errors.New("bad time code")
)

// TimeCode renders seconds as a rational "<frames>/<fps>s" value. Frames are
// rounded half to even.
func TimeCode(seconds float64, fps int) (string, error) {
	n, err := Frames(seconds, fps)
	if err != nil {
		return "", err
	}
	return frameCode(n, fps), nil
}

// Frames converts seconds to a whole frame count, rounded half to even.
func Frames(seconds float64, fps int) (int64, error) {
	if fps <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegativeTime, seconds)
	}
	return int64(math.RoundToEven(seconds * float64(fps))), nil
}

func frameCode(frames int64, fps int) string {
	return fmt.Sprintf("%d/%ds", frames, fps)
}

// ParseTimeCode accepts "N/Ds" and whole-second "Ns" values.
func ParseTimeCode(tc string) (float64, error) {
	s := strings.TrimSpace(tc)
	if !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeCode, tc)
	}
	s = strings.TrimSuffix(s, "s")

	num, den, rational := strings.Cut(s, "/")
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeCode, tc)
	}
	if !rational {
		return float64(n), nil
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeCode, tc)
	}
	return float64(n) / float64(d), nil
}
