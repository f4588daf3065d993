package screens

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/config"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

type mockSource struct {
	listFunc       func(ctx context.Context, q data.ListQuery) (data.ListResult, error)
	chapterFunc    func(ctx context.Context, slug, chapter string) (data.ChapterContent, error)
	categoriesFunc func(ctx context.Context) ([]data.Category, error)
	chapterCalls   []string
}

func (m *mockSource) ListStories(ctx context.Context, q data.ListQuery) (data.ListResult, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return data.ListResult{}, nil
}

func (m *mockSource) GetChapter(ctx context.Context, slug, chapter string) (data.ChapterContent, error) {
	m.chapterCalls = append(m.chapterCalls, chapter)
	if m.chapterFunc != nil {
		return m.chapterFunc(ctx, slug, chapter)
	}
	return data.ChapterContent{}, &sources.FetchError{Kind: sources.KindNotFound, Status: 404}
}

func (m *mockSource) ListCategories(ctx context.Context) ([]data.Category, error) {
	if m.categoriesFunc != nil {
		return m.categoriesFunc(ctx)
	}
	return nil, nil
}

type fakeHistory struct {
	entries map[string]data.ReadingProgress
	saved   []data.ReadingProgress
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: map[string]data.ReadingProgress{}}
}

func (h *fakeHistory) SaveProgress(_ context.Context, p data.ReadingProgress) error {
	h.saved = append(h.saved, p)
	h.entries[p.StorySlug] = p
	return nil
}

func (h *fakeHistory) GetProgress(_ context.Context, slug string) (*data.ReadingProgress, error) {
	p, ok := h.entries[slug]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (h *fakeHistory) ListHistory(_ context.Context, limit int) ([]data.ReadingProgress, error) {
	var out []data.ReadingProgress
	for _, p := range h.entries {
		out = append(out, p)
	}
	return out, nil
}

func (h *fakeHistory) DeleteProgress(_ context.Context, slug string) error {
	delete(h.entries, slug)
	return nil
}

func (h *fakeHistory) last() data.ReadingProgress {
	if len(h.saved) == 0 {
		return data.ReadingProgress{}
	}
	return h.saved[len(h.saved)-1]
}

func testDeps(source sources.Source, history History) Deps {
	cfg := config.Default()
	cfg.List.PageSize = 3
	cfg.Images.RatePerSecond = 0
	return Deps{Source: source, History: history, Config: cfg}
}

// pagedSource serves two pages of three stories for every list.
func pagedSource() *mockSource {
	return &mockSource{
		listFunc: func(_ context.Context, q data.ListQuery) (data.ListResult, error) {
			items := make([]data.StorySummary, 3)
			for i := range items {
				slug := fmt.Sprintf("%s%s-p%d-%d", q.Category, q.Keyword, q.Page, i)
				items[i] = data.StorySummary{ID: slug, Name: "Story " + slug, Slug: slug, Status: data.StatusOngoing}
			}
			return data.ListResult{Items: items, CurrentPage: q.Page, TotalPages: 2, TotalItems: 6, HasNextPage: q.Page < 2}, nil
		},
		categoriesFunc: func(context.Context) ([]data.Category, error) {
			return []data.Category{{Slug: "action", Name: "Action"}, {Slug: "drama", Name: "Drama"}}, nil
		},
	}
}

// run executes cmd and feeds every resulting message back into m until
// nothing is left.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("too many commands")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, cmd := m.Update(msg)
			queue = append(queue, cmd)
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// expectSwitch runs cmd and returns the screen switch it produces.
func expectSwitch(t *testing.T, cmd tea.Cmd) SwitchScreenMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	raw := cmd()
	msg, ok := raw.(SwitchScreenMsg)
	if !ok {
		t.Fatalf("Expected SwitchScreenMsg, got %T", raw)
	}
	return msg
}

func createTestPNG() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// imageServer serves a PNG for every path. A primary server answers 404
// for paths containing "broken".
func imageServer(t *testing.T, primary bool) *httptest.Server {
	t.Helper()
	img := createTestPNG()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if primary && strings.Contains(r.URL.Path, "broken") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	t.Cleanup(server.Close)
	return server
}
