package stock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const pexelsBody = `{"videos":[
 {"image":"https://img/1.jpg","duration":12,"tags":[],"user":{"name":"Jane"},
  "video_files":[
   {"link":"https://cdn/a_4k.mp4","width":3840,"height":2160},
   {"link":"https://cdn/a_hd.mp4","width":1920,"height":1080},
   {"link":"https://cdn/a_sd.mp4","width":960,"height":540}]},
 {"image":"https://img/2.jpg","duration":8,"tags":["ai generated"],"user":{"name":"Bot"},
  "video_files":[{"link":"https://cdn/b.mp4","width":1920,"height":1080}]},
 {"image":"https://img/3.jpg","duration":5,"user":{"name":""},"video_files":[]}
]}`

const pixabayBody = `{"hits":[
 {"picture_id":"123","duration":"7","tags":"mountain, lake","user":"hiker",
  "videos":{"large":{"url":"https://pix/l.mp4","width":2560,"height":1440},
            "small":{"url":"https://pix/s.mp4","width":1280,"height":720},
            "tiny":{"url":"","width":0,"height":0}}}
]}`

func TestSearch_BothProviders(t *testing.T) {
	var pexelsAuth, pixabayKey, pixabayQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pexels":
			pexelsAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(pexelsBody))
		case "/pixabay":
			pixabayKey = r.URL.Query().Get("key")
			pixabayQuery = r.URL.Query().Get("q")
			_, _ = w.Write([]byte(pixabayBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewSearcher(Options{
		PexelsKey:  "px",
		PixabayKey: "pb",
		PexelsURL:  srv.URL + "/pexels",
		PixabayURL: srv.URL + "/pixabay",
	})
	got, err := s.Search(context.Background(), []string{"```json", " lake "}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if pexelsAuth != "px" || pixabayKey != "pb" || pixabayQuery != "lake" {
		t.Fatalf("unexpected request: auth=%q key=%q q=%q", pexelsAuth, pixabayKey, pixabayQuery)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 videos, got %d: %+v", len(got), got)
	}

	px := got[0]
	if px.Source != SourcePexels || px.URL != "https://cdn/a_hd.mp4" || px.Width != 1920 || px.Duration != 12 || px.User != "Jane" || px.Keyword != "lake" {
		t.Fatalf("unexpected pexels asset: %+v", px)
	}
	pb := got[1]
	if pb.Source != SourcePixabay || pb.URL != "https://pix/l.mp4" || pb.Preview != "123" || pb.Duration != 7 {
		t.Fatalf("unexpected pixabay asset: %+v", pb)
	}
}

func TestSearch_RateLimitSkipsKeyword(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(pexelsBody))
	}))
	defer srv.Close()

	s := NewSearcher(Options{PexelsKey: "px", PexelsURL: srv.URL})
	got, err := s.Search(context.Background(), []string{"first", "second"}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
	if len(got) != 1 || got[0].Keyword != "second" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSearch_ServerErrorIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSearcher(Options{PixabayKey: "pb", PixabayURL: srv.URL})
	got, err := s.Search(context.Background(), []string{"x"}, 1)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestSearch_MaxKeywords(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"videos":[]}`))
	}))
	defer srv.Close()

	s := NewSearcher(Options{PexelsKey: "px", PexelsURL: srv.URL, MaxKeywords: 2})
	if _, err := s.Search(context.Background(), []string{"a", "b", "c", "a"}, 1); err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestSearch_NoProviders(t *testing.T) {
	_, err := NewSearcher(Options{}).Search(context.Background(), []string{"x"}, 1)
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestSearch_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"videos":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSearcher(Options{PexelsKey: "px", PexelsURL: srv.URL}).Search(ctx, []string{"x"}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBestVariant(t *testing.T) {
	vs := []variant{
		{URL: "sd", Width: 960},
		{URL: "uhd", Width: 3840},
		{URL: "hd", Width: 1920},
		{URL: "qhd", Width: 2560},
	}
	tests := []struct {
		target int
		want   string
	}{
		{1920, "hd"},
		{2000, "qhd"},
		{3840, "uhd"},
		{7680, "uhd"},
	}
	for _, tt := range tests {
		got, ok := bestVariant(vs, tt.target)
		if !ok || got.URL != tt.want {
			t.Fatalf("bestVariant(%d) = %q, want %q", tt.target, got.URL, tt.want)
		}
	}
	if _, ok := bestVariant(nil, 1920); ok {
		t.Fatalf("expected no variant for empty input")
	}
}

func TestTargetWidth(t *testing.T) {
	for _, res := range []string{"4K", "4k", "UHD"} {
		if TargetWidth(res) != 3840 {
			t.Fatalf("TargetWidth(%q) != 3840", res)
		}
	}
	if TargetWidth("1080p") != 1920 || TargetWidth("") != 1920 {
		t.Fatalf("expected 1920 fallback")
	}
}

func TestIsAIContent(t *testing.T) {
	tests := []struct {
		user, tags string
		want       bool
	}{
		{"Jane", "mountain, rain", false},
		{"Jane", "aerial, maine", false},
		{"AI Studio", "", true},
		{"Jane", "city, ai-generated", true},
		{"Jane", "Stable Diffusion art", true},
		{"midjourney_fan", "", true},
		{"Jane", "artificial light", true},
	}
	for _, tt := range tests {
		if got := IsAIContent(tt.user, tt.tags); got != tt.want {
			t.Fatalf("IsAIContent(%q, %q) = %v, want %v", tt.user, tt.tags, got, tt.want)
		}
	}
	if !strings.Contains(strings.Join(aiIndicators, ","), "suno") {
		t.Fatalf("indicator list lost suno")
	}
}
