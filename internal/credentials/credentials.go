// Package credentials resolves API secrets for the external collaborators.
package credentials

import (
	"os"
	"strings"
)

const (
	OpenAI     = "openai"
	OpenRouter = "openrouter"
	Pexels     = "pexels"
	Pixabay    = "pixabay"
)

var envKeys = map[string]string{
	OpenAI:     "OPENAI_API_KEY",
	OpenRouter: "OPENROUTER_API_KEY",
	Pexels:     "PEXELS_API_KEY",
	Pixabay:    "PIXABAY_API_KEY",
}

// Env reads secrets from the process environment (populated from .env by the
// CLI). Blank values count as absent.
type Env struct {
	lookup func(string) (string, bool)
}

func NewEnv() Env { return Env{lookup: os.LookupEnv} }

func (e Env) Get(service string) (string, bool) {
	key, ok := envKeys[strings.ToLower(service)]
	if !ok {
		return "", false
	}
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Static serves secrets from a fixed map.
type Static map[string]string

func (s Static) Get(service string) (string, bool) {
	v, ok := s[strings.ToLower(service)]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
