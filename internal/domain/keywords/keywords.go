// Package keywords cleans stock-footage search terms and derives fallback
// terms from lyrics when no language model is available.
package keywords

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/KiwiSingh/LyricVision/internal/types"
)

var ErrNoKeywords = errors.New("no keywords found")

var (
	reSpace = regexp.MustCompile(`\s+`)
	reFence = regexp.MustCompile("```[a-zA-Z]*")
)

// Clean strips fences, brackets and quotes that leak from model output,
// collapses whitespace and drops empty and duplicate entries. Order is kept.
func Clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = reFence.ReplaceAllString(kw, "")
		kw = strings.NewReplacer("[", "", "]", "", `"`, "").Replace(kw)
		kw = strings.TrimSpace(reSpace.ReplaceAllString(kw, " "))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// LyricLines returns the non-empty trimmed lines of a lyric sheet.
func LyricLines(lyrics string) []string {
	var out []string
	for _, l := range strings.Split(lyrics, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// FromWords picks search terms straight from the aligned words: content
// words ranked by frequency, ties broken by first appearance. limit <= 0
// keeps every term.
func FromWords(words []types.Word, limit int) []string {
	type term struct {
		text  string
		count int
		first int
	}
	byText := map[string]*term{}
	var order []*term
	for i, w := range words {
		t := normalizeToken(w.Word)
		if len([]rune(t)) < 2 || isStopword(t) {
			continue
		}
		if e, ok := byText[t]; ok {
			e.count++
			continue
		}
		e := &term{text: t, count: 1, first: i}
		byText[t] = e
		order = append(order, e)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count == order[j].count {
			return order[i].first < order[j].first
		}
		return order[i].count > order[j].count
	})
	out := make([]string, 0, len(order))
	for _, e := range order {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e.text)
	}
	return out
}

// ParseList reads a keyword list from model output. It accepts a bare JSON
// array, an object with a "keywords" array, either one wrapped in a markdown
// fence or surrounded by chatter.
func ParseList(s string) ([]string, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if t == "" {
		return nil, ErrNoKeywords
	}

	if start, end := strings.Index(t, "["), strings.LastIndex(t, "]"); start >= 0 && end > start {
		var list []string
		if err := json.Unmarshal([]byte(t[start:end+1]), &list); err == nil {
			return nonEmpty(Clean(list))
		}
	}
	if start, end := strings.Index(t, "{"), strings.LastIndex(t, "}"); start >= 0 && end > start {
		var obj struct {
			Keywords []string `json:"keywords"`
		}
		if err := json.Unmarshal([]byte(t[start:end+1]), &obj); err == nil {
			return nonEmpty(Clean(obj.Keywords))
		}
	}
	return nil, fmt.Errorf("%w in %q", ErrNoKeywords, truncate(t, 120))
}

func nonEmpty(kws []string) ([]string, error) {
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}
	return kws, nil
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(s, `"'`+"`"+"[](){}.,!?;:-")
}

func isStopword(w string) bool {
	switch w {
	case "the", "a", "an", "and", "or", "but", "so", "to", "of", "in", "on", "at",
		"for", "with", "from", "by", "is", "am", "are", "was", "were", "be", "been",
		"i", "i'm", "you", "he", "she", "it", "we", "they", "me", "my", "your", "our",
		"his", "her", "its", "their", "this", "that", "these", "those", "oh", "ooh",
		"yeah", "la", "na", "do", "don't", "just", "like", "all", "up", "down", "no":
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
