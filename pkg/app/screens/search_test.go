package screens

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

func newSearch(t *testing.T, source sources.Source) *SearchScreen {
	t.Helper()
	s := NewSearchScreen(testDeps(source, nil))
	s.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return s
}

func TestSearchScreen_Search(t *testing.T) {
	s := newSearch(t, pagedSource())

	s.input.SetValue("  one piece ")
	_, cmd := s.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Contains(t, s.View(), "Searching...")
	run(t, s, cmd)

	assert.Equal(t, "one piece", s.coord.Filter().Keyword)
	require.Len(t, s.results.Items, 3)
	assert.Equal(t, "one piece-p1-0", s.results.Items[0].Slug)
	assert.False(t, s.input.Focused())
	assert.Contains(t, s.View(), "Found 6 results")

	s.Update(key("j"))
	_, cmd = s.Update(key("j"))
	run(t, s, cmd)
	assert.Len(t, s.results.Items, 6)

	_, cmd = s.Update(key("enter"))
	msg := expectSwitch(t, cmd)
	req := msg.Data.(OpenRequest)
	assert.Equal(t, "one piece-p1-2", req.Target.StorySlug)
	assert.Equal(t, "1", req.Target.Chapter)
}

func TestSearchScreen_EmptyQueryIsIgnored(t *testing.T) {
	source := pagedSource()
	calls := 0
	list := source.listFunc
	source.listFunc = func(ctx context.Context, q data.ListQuery) (data.ListResult, error) {
		calls++
		return list(ctx, q)
	}
	s := newSearch(t, source)

	s.input.SetValue("   ")
	_, cmd := s.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, calls)
}

func TestSearchScreen_NewSearchReplacesResults(t *testing.T) {
	s := newSearch(t, pagedSource())

	s.input.SetValue("first")
	_, stale := s.Update(key("enter"))
	s.input.SetValue("second")
	_, latest := s.Update(key("enter"))

	run(t, s, latest)
	run(t, s, stale)

	assert.Equal(t, "second", s.coord.Filter().Keyword)
	require.NotEmpty(t, s.results.Items)
	assert.Equal(t, "second-p1-0", s.results.Items[0].Slug)
}

func TestSearchScreen_Error(t *testing.T) {
	source := &mockSource{listFunc: func(context.Context, data.ListQuery) (data.ListResult, error) {
		return data.ListResult{}, &sources.FetchError{Kind: sources.KindAPI, Status: 400, Message: "keyword too short"}
	}}
	s := newSearch(t, source)

	s.input.SetValue("a")
	_, cmd := s.Update(key("enter"))
	run(t, s, cmd)

	assert.Contains(t, s.View(), "Error: keyword too short")
	assert.True(t, s.input.Focused())
}

func TestSearchScreen_EscTogglesFocus(t *testing.T) {
	s := newSearch(t, pagedSource())
	require.True(t, s.input.Focused())

	s.Update(key("esc"))
	assert.False(t, s.input.Focused())

	_, cmd := s.Update(key("esc"))
	assert.True(t, s.input.Focused())
	assert.NotNil(t, cmd)
}
