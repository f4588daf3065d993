package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const maxImageBytes = 32 << 20

var ErrBadImage = errors.New("bad image")

// ImageInfo describes a payload that decoded as an image.
type ImageInfo struct {
	URL         string
	Format      string
	ContentType string
	Width       int
	Height      int
	Size        int
}

type LoaderOptions struct {
	Client *http.Client
	// RatePerSecond paces requests across all loads; zero means unlimited.
	RatePerSecond float64
	// Concurrency bounds LoadAll.
	Concurrency int
}

// ImageLoader performs image loads for the tracker. A load succeeds when
// the payload arrives with a 2xx status and its header decodes as a known
// image format. Nothing is kept after the check.
type ImageLoader struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

func NewImageLoader(opts LoaderOptions, logger *slog.Logger) *ImageLoader {
	if logger == nil {
		logger = discardLogger()
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = EagerImages
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &ImageLoader{
		client:      client,
		limiter:     rate.NewLimiter(limit, concurrency),
		concurrency: concurrency,
		logger:      logger.With("component", "loader"),
	}
}

// Fetch downloads url and validates it as an image.
func (l *ImageLoader) Fetch(ctx context.Context, url string) (ImageInfo, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return ImageInfo{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ImageInfo{}, fmt.Errorf("%w: bad status: %s", ErrBadImage, resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image content: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %w", ErrBadImage, err)
	}

	return ImageInfo{
		URL:         url,
		Format:      format,
		ContentType: resp.Header.Get("Content-Type"),
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        len(content),
	}, nil
}

// Load runs one tracker attempt and returns the result to report back.
func (l *ImageLoader) Load(ctx context.Context, attempt ImageAttempt) ImageResult {
	_, err := l.Fetch(ctx, attempt.URL)
	if err != nil {
		l.logger.Debug("image load failed", "id", attempt.ID, "url", attempt.URL, "error", err)
	}
	return ImageResult{Attempt: attempt, Err: err}
}

// LoadAll runs attempts with bounded concurrency. Results keep the order
// of attempts; a failed load does not stop the others.
func (l *ImageLoader) LoadAll(ctx context.Context, attempts []ImageAttempt) []ImageResult {
	results := make([]ImageResult, len(attempts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, attempt := range attempts {
		g.Go(func() error {
			results[i] = l.Load(ctx, attempt)
			return nil
		})
	}
	g.Wait()

	return results
}
