package stock

import (
	"strings"
	"unicode"
)

var aiIndicators = []string{
	"ai",
	"artificial",
	"generated",
	"midjourney",
	"stable diffusion",
	"dalle",
	"suno",
}

// IsAIContent reports whether the uploader name or tags mention a generative
// tool. Indicators match whole words so "mountain" does not trip "ai".
func IsAIContent(user, tags string) bool {
	words := strings.FieldsFunc(strings.ToLower(user+" "+tags), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	joined := " " + strings.Join(words, " ") + " "
	for _, ind := range aiIndicators {
		if strings.Contains(joined, " "+ind+" ") {
			return true
		}
	}
	return false
}
