package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestImageLoader_Fetch(t *testing.T) {
	pngData := createTestPNG(4, 3)

	t.Run("successful load", func(t *testing.T) {
		server := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		})
		loader := NewImageLoader(LoaderOptions{}, nil)

		info, err := loader.Fetch(context.Background(), server.URL+"/p0.png")
		require.NoError(t, err)
		assert.Equal(t, "png", info.Format)
		assert.Equal(t, "image/png", info.ContentType)
		assert.Equal(t, 4, info.Width)
		assert.Equal(t, 3, info.Height)
		assert.Equal(t, len(pngData), info.Size)
	})

	t.Run("http error", func(t *testing.T) {
		server := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		loader := NewImageLoader(LoaderOptions{}, nil)

		_, err := loader.Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrBadImage)
	})

	t.Run("not an image", func(t *testing.T) {
		server := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("<html>blocked</html>"))
		})
		loader := NewImageLoader(LoaderOptions{}, nil)

		_, err := loader.Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrBadImage)
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		loader := NewImageLoader(LoaderOptions{}, nil)

		_, err := loader.Fetch(context.Background(), url)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBadImage)
	})

	t.Run("cancelled context", func(t *testing.T) {
		loader := NewImageLoader(LoaderOptions{RatePerSecond: 1}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := loader.Fetch(ctx, "http://127.0.0.1:1/never")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestImageLoader_LoadReportsAttempt(t *testing.T) {
	server := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.png" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(createTestPNG(1, 1))
	})
	loader := NewImageLoader(LoaderOptions{}, nil)

	tracker := NewImageTracker(nil, nil)
	eager := tracker.Track(PageImages([]string{server.URL + "/ok.png", server.URL + "/bad.png"}))
	require.Len(t, eager, 2)

	for _, res := range loader.LoadAll(context.Background(), eager) {
		_, committed := tracker.Report(res)
		assert.True(t, committed)
	}

	assert.Equal(t, ImageCounts{Total: 2, Loaded: 1, Failed: 1}, tracker.Counts())
	assert.True(t, tracker.HasError("page-1"))
}

func TestImageLoader_LoadAllBoundsConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	pngData := createTestPNG(2, 2)
	server := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Write(pngData)
	})
	loader := NewImageLoader(LoaderOptions{Concurrency: 2}, nil)

	attempts := make([]ImageAttempt, 6)
	for i := range attempts {
		attempts[i] = ImageAttempt{ID: PageImageID(i), URL: fmt.Sprintf("%s/%d.png", server.URL, i)}
	}

	results := loader.LoadAll(context.Background(), attempts)
	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, attempts[i].ID, res.Attempt.ID)
		assert.NoError(t, res.Err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
