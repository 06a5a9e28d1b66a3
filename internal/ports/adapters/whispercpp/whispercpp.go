package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/KiwiSingh/LyricVision/internal/types"
)

// Options configure the whisper.cpp run explicitly; nothing is read from or
// written to the process environment.
type Options struct {
	// Device is "cpu" or "gpu". cpu passes -ng.
	Device   string
	Language string
	Threads  int
}

type Adapter struct {
	bin   string
	model string
	opts  Options
}

func New(binPath, modelPath string, opts Options) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, opts: opts}
}

// fullJSON is the subset of whisper.cpp's -ojf output we use.
type fullJSON struct {
	Transcription []struct {
		Text   string  `json:"text"`
		Tokens []token `json:"tokens"`
	} `json:"transcription"`
}

type token struct {
	Text    string `json:"text"`
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
}

func (a *Adapter) Align(ctx context.Context, audioPath, lyrics, cacheDir string) ([]types.Word, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	cmd := exec.CommandContext(ctx, a.bin, a.args(audioPath, lyrics, outPrefix)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	words, err := parseWords(jb)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(lyrics) != "" {
		words = applyLyrics(words, lyrics)
	}
	return words, nil
}

func (a *Adapter) args(audioPath, lyrics, outPrefix string) []string {
	args := []string{
		"-m", a.model,
		"-f", audioPath,
		"-oj",
		"-ojf",
		"-of", outPrefix,
	}
	if strings.EqualFold(a.opts.Device, "cpu") {
		args = append(args, "-ng")
	}
	if a.opts.Language != "" {
		args = append(args, "-l", a.opts.Language)
	}
	if a.opts.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(a.opts.Threads))
	}
	if p := promptFromLyrics(lyrics); p != "" {
		args = append(args, "--prompt", p)
	}
	return args
}

func promptFromLyrics(lyrics string) string {
	return strings.Join(strings.Fields(lyrics), " ")
}

// parseWords merges sub-word tokens into words. A token that starts with a
// space opens a new word; special tokens like [_BEG_] are skipped.
func parseWords(b []byte) ([]types.Word, error) {
	var doc fullJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	var out []types.Word
	for _, seg := range doc.Transcription {
		open := false
		for _, tk := range seg.Tokens {
			if isSpecial(tk.Text) {
				continue
			}
			start := float64(tk.Offsets.From) / 1000
			end := float64(tk.Offsets.To) / 1000
			text := strings.TrimSpace(tk.Text)
			if text == "" {
				open = false
				continue
			}
			if !open || strings.HasPrefix(tk.Text, " ") {
				out = append(out, types.Word{Start: start, End: end, Word: text})
				open = true
				continue
			}
			last := &out[len(out)-1]
			last.Word += text
			if end > last.End {
				last.End = end
			}
		}
	}
	return out, nil
}

func isSpecial(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[_") || strings.HasPrefix(s, "<|")
}

// applyLyrics swaps recognized spellings for the supplied lyric words where
// the two line up, keeping whisper's timing.
func applyLyrics(words []types.Word, lyrics string) []types.Word {
	lyricWords := strings.Fields(lyrics)
	out := make([]types.Word, len(words))
	copy(out, words)
	li := 0
	for i := range out {
		if li >= len(lyricWords) {
			break
		}
		got := normalize(out[i].Word)
		for j := li; j < len(lyricWords) && j < li+3; j++ {
			want := normalize(lyricWords[j])
			if got == "" || want == "" {
				continue
			}
			if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
				out[i].Word = lyricWords[j]
				li = j + 1
				break
			}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Trim(s, `"'.,!?;:()[]-`))
}
