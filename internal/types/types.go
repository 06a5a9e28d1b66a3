package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Word is a single aligned token. Times are seconds from the start of the song.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type TimelineClip struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	End      float64 `json:"end"`
}

type SubtitleLine struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// VideoAsset is a stock clip found by search. LocalPath is set once the clip
// has been downloaded.
type VideoAsset struct {
	LocalPath string  `json:"local_path,omitempty"`
	Duration  Seconds `json:"duration,omitempty"`
	Source    string  `json:"source,omitempty"`
	Keyword   string  `json:"keyword_query,omitempty"`
	URL       string  `json:"url,omitempty"`
	Preview   string  `json:"preview,omitempty"`
	User      string  `json:"user,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

// Seconds decodes from a JSON number, a numeric string or null.
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = 0
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("duration %q: %w", str, err)
		}
		*s = Seconds(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*s = Seconds(v)
	return nil
}

type Manifest struct {
	Input       string         `json:"input"`
	BPM         float64        `json:"bpm"`
	Subdivision string         `json:"subdivision"`
	Grid        float64        `json:"grid_sec"`
	Resolution  string         `json:"resolution"`
	FPS         int            `json:"fps"`
	Words       int            `json:"words"`
	Keywords    []string       `json:"keywords"`
	Videos      []VideoAsset   `json:"videos"`
	Timeline    []TimelineClip `json:"timeline"`
	FCPXML      string         `json:"fcpxml"`
	Subtitles   string         `json:"subtitles,omitempty"`
}
