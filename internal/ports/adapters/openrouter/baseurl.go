package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var ErrInvalidBaseURL = errors.New("invalid OPENROUTER_BASE_URL")

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL requires an absolute https URL without userinfo, query or
// fragment whose host is in allowedHosts (or the OpenRouter hosts when empty).
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("%w %q: absolute URL with host is required", ErrInvalidBaseURL, baseURL)
	case u.User != nil:
		return fmt.Errorf("%w %q: userinfo is not allowed", ErrInvalidBaseURL, baseURL)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("%w %q: query and fragment are not allowed", ErrInvalidBaseURL, baseURL)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("%w %q: https is required", ErrInvalidBaseURL, baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := normalizeAllowedHosts(allowedHosts)[host]; !ok {
		return fmt.Errorf("%w %q: host %q is not in OPENROUTER_ALLOWED_HOSTS", ErrInvalidBaseURL, baseURL, host)
	}
	return nil
}

func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}

// SplitHosts parses a comma separated OPENROUTER_ALLOWED_HOSTS value.
func SplitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
