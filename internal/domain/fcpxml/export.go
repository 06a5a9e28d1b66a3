package fcpxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KiwiSingh/LyricVision/internal/fsutil"
	"github.com/KiwiSingh/LyricVision/internal/types"
	"github.com/google/uuid"
)

var (
	ErrEmptyTimeline = errors.New("timeline is empty")
	ErrNoVideos      = errors.New("no videos to place on the timeline")
	ErrMissingMedia  = errors.New("missing local media")
)

const (
	DefaultFPS           = 24
	DefaultAssetDuration = 5.0
	DefaultEventName     = "LyricVision"
	DefaultProjectName   = "Lyric Timeline"

	formatID = "r1"
)

var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/KiwiSingh/LyricVision"))

type Options struct {
	// Resolution "4K" (or "2160p", "UHD") gives 3840x2160; anything else
	// gives 1920x1080.
	Resolution  string
	FPS         int
	EventName   string
	ProjectName string
}

func (o Options) withDefaults() Options {
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if strings.TrimSpace(o.EventName) == "" {
		o.EventName = DefaultEventName
	}
	if strings.TrimSpace(o.ProjectName) == "" {
		o.ProjectName = DefaultProjectName
	}
	return o
}

// ResolutionSize maps a resolution name to frame width and height.
func ResolutionSize(resolution string) (int, int) {
	switch strings.ToUpper(strings.TrimSpace(resolution)) {
	case "4K", "2160P", "UHD":
		return 3840, 2160
	default:
		return 1920, 1080
	}
}

// Build validates its inputs and assembles the document. Every video must be
// an existing local file; one missing file fails the whole build. Timeline
// clips reuse the videos round-robin.
func Build(videos []types.VideoAsset, timeline []types.TimelineClip, opts Options) (*FCPXML, error) {
	if len(timeline) == 0 {
		return nil, fmt.Errorf("fcpxml: %w", ErrEmptyTimeline)
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("fcpxml: %w", ErrNoVideos)
	}
	opts = opts.withDefaults()
	if opts.FPS < 0 {
		return nil, fmt.Errorf("fcpxml: %w: %d", ErrInvalidFPS, opts.FPS)
	}
	fps := opts.FPS
	width, height := ResolutionSize(opts.Resolution)

	doc := &FCPXML{Version: Version}
	doc.Resources.Formats = []Format{{
		ID:            formatID,
		FrameDuration: fmt.Sprintf("1/%ds", fps),
		Width:         strconv.Itoa(width),
		Height:        strconv.Itoa(height),
	}}

	assetIDs := make([]string, 0, len(videos))
	assetUIDs := make([]string, 0, len(videos))
	for i, v := range videos {
		a, err := buildAsset(i, v, fps)
		if err != nil {
			return nil, err
		}
		doc.Resources.Assets = append(doc.Resources.Assets, a)
		assetIDs = append(assetIDs, a.ID)
		assetUIDs = append(assetUIDs, a.UID)
	}

	// Durations are converted to whole frames once so every clip starts on
	// the frame where the previous one ends.
	durFrames := make([]int64, len(timeline))
	var totalFrames int64
	for i, c := range timeline {
		n, err := Frames(math.Max(0, c.Duration), fps)
		if err != nil {
			return nil, fmt.Errorf("fcpxml: clip %d duration: %w", i, err)
		}
		durFrames[i] = max(1, n)
		totalFrames += durFrames[i]
	}

	seq := Sequence{
		Format:   formatID,
		Duration: frameCode(totalFrames, fps),
		TCStart:  "0s",
		TCFormat: "NDF",
	}
	var offsetFrames int64
	for i, c := range timeline {
		seq.Spine.AssetClips = append(seq.Spine.AssetClips, AssetClip{
			Name:     c.Text,
			Ref:      assetIDs[i%len(assetIDs)],
			Offset:   frameCode(offsetFrames, fps),
			Start:    "0s",
			Duration: frameCode(durFrames[i], fps),
		})
		offsetFrames += durFrames[i]
	}

	doc.Library.Events = []Event{{
		Name: opts.EventName,
		UID:  uid("event", opts.EventName, strings.Join(assetUIDs, ",")),
		Projects: []Project{{
			Name:      opts.ProjectName,
			UID:       uid("project", opts.EventName, opts.ProjectName, strings.Join(assetUIDs, ",")),
			Sequences: []Sequence{seq},
		}},
	}}
	return doc, nil
}

func buildAsset(i int, v types.VideoAsset, fps int) (Asset, error) {
	if strings.TrimSpace(v.LocalPath) == "" {
		return Asset{}, fmt.Errorf("fcpxml: %w: video %d has no local path (url=%s)", ErrMissingMedia, i+1, v.URL)
	}
	ok, err := fsutil.IsRegularFile(v.LocalPath)
	if err != nil {
		return Asset{}, fmt.Errorf("fcpxml: stat %s: %w", v.LocalPath, err)
	}
	if !ok {
		return Asset{}, fmt.Errorf("fcpxml: %w: %s", ErrMissingMedia, v.LocalPath)
	}
	abs, err := filepath.Abs(v.LocalPath)
	if err != nil {
		return Asset{}, fmt.Errorf("fcpxml: abs %s: %w", v.LocalPath, err)
	}

	secs := float64(v.Duration)
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		secs = DefaultAssetDuration
	}
	dur, err := TimeCode(secs, fps)
	if err != nil {
		return Asset{}, fmt.Errorf("fcpxml: asset duration: %w", err)
	}

	name := filepath.Base(abs)
	return Asset{
		ID:       fmt.Sprintf("a%d", i+1),
		Name:     name,
		UID:      uid("asset", abs),
		Start:    "0s",
		Duration: dur,
		HasVideo: "1",
		Format:   formatID,
		MediaRep: MediaRep{
			Kind: "original-media",
			Src:  fileURL(abs),
		},
	}, nil
}

// uid is a name-based UUID over parts, uppercased without dashes. Assets are
// keyed by absolute path, not base name.
func uid(parts ...string) string {
	u := uuid.NewSHA1(uidSpace, []byte(strings.Join(parts, "\x00")))
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", ""))
}

// fileURL builds a file:// URL, percent-encoding every byte of the path
// except unreserved characters and "/".
func fileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.WriteString("file://")
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}

// Marshal renders the document with the XML header and FCPXML doctype.
func Marshal(doc *FCPXML) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("fcpxml: marshal: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+32)
	out = append(out, xml.Header...)
	out = append(out, "<!DOCTYPE fcpxml>\n"...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// Export builds the project and writes it to path, replacing any existing
// file. Nothing is written when validation fails.
func Export(path string, videos []types.VideoAsset, timeline []types.TimelineClip, opts Options) error {
	doc, err := Build(videos, timeline, opts)
	if err != nil {
		return err
	}
	b, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("fcpxml: write %s: %w", path, err)
	}
	return nil
}
