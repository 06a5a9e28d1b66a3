package stock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/fsutil"
	"github.com/KiwiSingh/LyricVision/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	downloadTimeout    = 5 * time.Minute
)

type Downloader struct {
	client      *http.Client
	concurrency int
	logger      *zap.Logger
}

func NewDownloader(client *http.Client, concurrency int, logger *zap.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{client: client, concurrency: concurrency, logger: logger}
}

// Download saves each video as dir/clip_NN.ext, numbered by its position in
// videos. Failed downloads are logged and left out; the rest keep their order.
func (d *Downloader) Download(ctx context.Context, videos []types.VideoAsset, dir string) ([]types.VideoAsset, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	done := make([]*types.VideoAsset, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, v := range videos {
		i, v := i, v
		g.Go(func() error {
			dest := filepath.Join(absDir, ClipName(i, v.URL))
			if err := d.fetch(gctx, v.URL, dest); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.logger.Warn("download failed",
					zap.String("url", v.URL),
					zap.String("keyword", v.Keyword),
					zap.Error(err),
				)
				return nil
			}
			v.LocalPath = dest
			done[i] = &v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []types.VideoAsset
	for _, v := range done {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL, dest string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	_, err = fsutil.CopyToFileAtomic(dest, resp.Body, 0o644)
	return err
}

// ClipName is clip_NN.ext for the zero-based index i. The extension comes from
// the URL path; query strings are ignored.
func ClipName(i int, rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if j := strings.IndexByte(p, '?'); j >= 0 {
		p = p[:j]
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("clip_%02d.%s", i+1, ext)
}
