package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/domain/keywords"
	"github.com/KiwiSingh/LyricVision/internal/types"
	"go.uber.org/zap"
)

const (
	SourcePexels  = "Pexels"
	SourcePixabay = "Pixabay"

	DefaultPexelsURL   = "https://api.pexels.com/videos/search"
	DefaultPixabayURL  = "https://pixabay.com/api/videos/"
	DefaultMaxKeywords = 6
	DefaultBackoff     = 5 * time.Second

	searchTimeout = 10 * time.Second
	width4K       = 3840
	width1080     = 1920
)

var (
	ErrNoProviders = errors.New("no stock provider key configured (PEXELS_API_KEY or PIXABAY_API_KEY)")
	errRateLimited = errors.New("rate limited")
)

type Options struct {
	PexelsKey  string
	PixabayKey string
	// Resolution picks the target variant width: "4K", "2160p" or "UHD" want 3840, anything else 1920.
	Resolution  string
	MaxKeywords int
	// Delay is waited before each request. Zero disables it.
	Delay time.Duration
	// Backoff is waited after a 429 before moving to the next keyword.
	Backoff time.Duration

	PexelsURL  string
	PixabayURL string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Searcher queries Pexels and Pixabay for stock footage.
type Searcher struct {
	opts        Options
	targetWidth int
	client      *http.Client
	logger      *zap.Logger
}

func NewSearcher(opts Options) *Searcher {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = DefaultMaxKeywords
	}
	if opts.PexelsURL == "" {
		opts.PexelsURL = DefaultPexelsURL
	}
	if opts.PixabayURL == "" {
		opts.PixabayURL = DefaultPixabayURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: searchTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		opts:        opts,
		targetWidth: TargetWidth(opts.Resolution),
		client:      client,
		logger:      logger,
	}
}

func TargetWidth(resolution string) int {
	switch strings.ToUpper(strings.TrimSpace(resolution)) {
	case "4K", "2160P", "UHD":
		return width4K
	default:
		return width1080
	}
}

// Search returns Pexels hits for every keyword followed by Pixabay hits.
// Provider errors are logged and skipped; only cancellation aborts the search.
func (s *Searcher) Search(ctx context.Context, kws []string, perQuery int) ([]types.VideoAsset, error) {
	if s.opts.PexelsKey == "" && s.opts.PixabayKey == "" {
		return nil, ErrNoProviders
	}
	if perQuery <= 0 {
		perQuery = 1
	}
	kws = keywords.Clean(kws)
	if len(kws) > s.opts.MaxKeywords {
		kws = kws[:s.opts.MaxKeywords]
	}

	var out []types.VideoAsset
	if s.opts.PexelsKey != "" {
		got, err := s.each(ctx, SourcePexels, kws, func(kw string) ([]types.VideoAsset, error) {
			return s.searchPexels(ctx, kw, perQuery)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	if s.opts.PixabayKey != "" {
		got, err := s.each(ctx, SourcePixabay, kws, func(kw string) ([]types.VideoAsset, error) {
			return s.searchPixabay(ctx, kw, perQuery)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

func (s *Searcher) each(ctx context.Context, source string, kws []string, search func(string) ([]types.VideoAsset, error)) ([]types.VideoAsset, error) {
	var out []types.VideoAsset
	for _, kw := range kws {
		if err := sleep(ctx, s.opts.Delay); err != nil {
			return nil, err
		}
		got, err := search(kw)
		switch {
		case err == nil:
			out = append(out, got...)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, errRateLimited):
			s.logger.Warn("stock search rate limited",
				zap.String("source", source),
				zap.String("keyword", kw),
				zap.Duration("backoff", s.opts.Backoff),
			)
			if err := sleep(ctx, s.opts.Backoff); err != nil {
				return nil, err
			}
		default:
			s.logger.Warn("stock search failed",
				zap.String("source", source),
				zap.String("keyword", kw),
				zap.Error(err),
			)
		}
	}
	return out, nil
}

type variant struct {
	URL    string `json:"url"`
	Link   string `json:"link"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (v variant) href() string {
	if v.Link != "" {
		return v.Link
	}
	return v.URL
}

type pexelsResponse struct {
	Videos []struct {
		Image    string        `json:"image"`
		Duration types.Seconds `json:"duration"`
		Tags     []string      `json:"tags"`
		User     struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []variant `json:"video_files"`
	} `json:"videos"`
}

func (s *Searcher) searchPexels(ctx context.Context, kw string, perQuery int) ([]types.VideoAsset, error) {
	q := url.Values{}
	q.Set("query", kw)
	q.Set("per_page", strconv.Itoa(perQuery))

	var resp pexelsResponse
	if err := s.getJSON(ctx, s.opts.PexelsURL, q, map[string]string{"Authorization": s.opts.PexelsKey}, &resp); err != nil {
		return nil, err
	}

	var out []types.VideoAsset
	for _, v := range resp.Videos {
		if IsAIContent(v.User.Name, strings.Join(v.Tags, " ")) {
			continue
		}
		best, ok := bestVariant(v.VideoFiles, s.targetWidth)
		if !ok {
			continue
		}
		out = append(out, types.VideoAsset{
			Source:   SourcePexels,
			Keyword:  kw,
			URL:      best.href(),
			Preview:  v.Image,
			User:     orUnknown(v.User.Name),
			Duration: v.Duration,
			Width:    best.Width,
			Height:   best.Height,
		})
	}
	return out, nil
}

type pixabayResponse struct {
	Hits []struct {
		PictureID string             `json:"picture_id"`
		Duration  types.Seconds      `json:"duration"`
		Tags      string             `json:"tags"`
		User      string             `json:"user"`
		Videos    map[string]variant `json:"videos"`
	} `json:"hits"`
}

func (s *Searcher) searchPixabay(ctx context.Context, kw string, perQuery int) ([]types.VideoAsset, error) {
	q := url.Values{}
	q.Set("key", s.opts.PixabayKey)
	q.Set("q", kw)
	q.Set("per_page", strconv.Itoa(perQuery))

	var resp pixabayResponse
	if err := s.getJSON(ctx, s.opts.PixabayURL, q, nil, &resp); err != nil {
		return nil, err
	}

	var out []types.VideoAsset
	for _, h := range resp.Hits {
		if IsAIContent(h.User, h.Tags) {
			continue
		}
		names := make([]string, 0, len(h.Videos))
		for name := range h.Videos {
			names = append(names, name)
		}
		sort.Strings(names)
		variants := make([]variant, 0, len(names))
		for _, name := range names {
			if v := h.Videos[name]; v.href() != "" {
				variants = append(variants, v)
			}
		}
		best, ok := bestVariant(variants, s.targetWidth)
		if !ok {
			continue
		}
		out = append(out, types.VideoAsset{
			Source:   SourcePixabay,
			Keyword:  kw,
			URL:      best.href(),
			Preview:  h.PictureID,
			User:     orUnknown(h.User),
			Duration: h.Duration,
			Width:    best.Width,
			Height:   best.Height,
		})
	}
	return out, nil
}

func (s *Searcher) getJSON(ctx context.Context, endpoint string, q url.Values, headers map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// bestVariant returns the narrowest variant at least target wide, or the
// widest one when none is.
func bestVariant(vs []variant, target int) (variant, bool) {
	if len(vs) == 0 {
		return variant{}, false
	}
	widest := vs[0]
	var best variant
	found := false
	for _, v := range vs {
		if v.Width > widest.Width {
			widest = v
		}
		if v.Width >= target && (!found || v.Width < best.Width) {
			best, found = v, true
		}
	}
	if found {
		return best, true
	}
	return widest, true
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
