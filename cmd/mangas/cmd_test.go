package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangas/pkg/config"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/utils"
)

// fakeSite serves two pages of listings and one three-page chapter whose
// images live on the same server.
func fakeSite(t *testing.T, imageHits *atomic.Int32) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	img := buf.Bytes()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/lists":
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			fmt.Fprintf(w, `{"success":true,"data":{"stories":[{"id":"%[1]d","name":"Story %[1]d","slug":"story-%[1]d"}],"totalHits":2,"totalPages":2,"currentPage":%[1]d}}`, page)
		case r.URL.Path == "/chapters/demo/1":
			fmt.Fprintf(w, `{"success":true,"data":{"story":{"name":"Demo","slug":"demo"},"chapter":{"name":"1","title":"Start","images":["%[1]s/img/0.png","%[1]s/img/1.png","%[1]s/img/2.png"]},"navigation":{"next":{"name":"2"}}}}`, server.URL)
		case strings.HasPrefix(r.URL.Path, "/img/"):
			imageHits.Add(1)
			w.Header().Set("Content-Type", "image/png")
			w.Write(img)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Not found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}

func TestCollect(t *testing.T) {
	var hits atomic.Int32
	server := fakeSite(t, &hits)

	cfg = config.Default()
	cfg.API.BaseURL = server.URL
	logger = utils.NewLogger("error", "text", io.Discard)

	state, err := collect(context.Background(), "test", data.LatestFilter(), 5)
	require.NoError(t, err)

	require.Len(t, state.Items, 2)
	assert.Equal(t, "story-2", state.Items[1].Slug)
	assert.Equal(t, 2, state.Pagination.CurrentPage)
	assert.False(t, state.Pagination.HasNextPage)
}

func TestReadCommand(t *testing.T) {
	var hits atomic.Int32
	server := fakeSite(t, &hits)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "history.db")
	t.Setenv("MANGAS_API_BASE_URL", server.URL)
	t.Setenv("MANGAS_HISTORY_DB_PATH", dbPath)
	t.Setenv("MANGAS_LOGGING_LEVEL", "error")
	t.Setenv("MANGAS_IMAGES_RATE_PER_SECOND", "0")

	rootCmd.SetArgs([]string{"read", "demo", "1", "--all"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, int32(3), hits.Load())

	repo, err := data.NewDuckDBRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	p, err := repo.GetProgress(context.Background(), "demo")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1", p.Chapter)
	assert.Equal(t, "Demo", p.StoryName)
	assert.Equal(t, 0, p.Page)
}

func TestReadCommandMissingChapter(t *testing.T) {
	var hits atomic.Int32
	server := fakeSite(t, &hits)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv("MANGAS_API_BASE_URL", server.URL)
	t.Setenv("MANGAS_LOGGING_LEVEL", "error")

	rootCmd.SetArgs([]string{"read", "demo", "9", "--no-history"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Zero(t, hits.Load())
}
