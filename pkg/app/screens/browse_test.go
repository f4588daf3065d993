package screens

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

func newBrowse(t *testing.T, source sources.Source, history History) *BrowseScreen {
	t.Helper()
	b := NewBrowseScreen(testDeps(source, history))
	b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	run(t, b, b.Init())
	return b
}

func TestBrowseScreen_LoadsLatest(t *testing.T) {
	b := newBrowse(t, pagedSource(), nil)

	assert.Len(t, b.categories, 2)
	assert.Equal(t, data.LatestFilter(), b.coord.Filter())
	require.Len(t, b.list.Items, 3)
	assert.Equal(t, "-p1-0", b.list.Items[0].Slug)

	view := b.View()
	assert.Contains(t, view, "Page 1 of 2")
	assert.Contains(t, view, "sort: updatedAt desc")

	// switching back to the tab keeps the current list
	assert.Nil(t, b.Init())
}

func TestBrowseScreen_LoadsMoreAtTheEnd(t *testing.T) {
	b := newBrowse(t, pagedSource(), nil)

	_, cmd := b.Update(key("j"))
	assert.Nil(t, cmd)
	_, cmd = b.Update(key("j"))
	require.NotNil(t, cmd)
	run(t, b, cmd)

	require.Len(t, b.list.Items, 6)
	assert.Equal(t, "-p2-2", b.list.Items[5].Slug)
	assert.Equal(t, 2, b.list.SelectedIndex)

	// no third page
	b.list.SelectedIndex = 4
	_, cmd = b.Update(key("j"))
	assert.Nil(t, cmd)
}

func TestBrowseScreen_FilterChangesStartOver(t *testing.T) {
	b := newBrowse(t, pagedSource(), nil)

	_, cmd := b.Update(key("c"))
	run(t, b, cmd)
	assert.Equal(t, "action", b.coord.Filter().Category)
	assert.Equal(t, "action-p1-0", b.list.Items[0].Slug)
	assert.Contains(t, b.View(), "category: Action")

	_, cmd = b.Update(key("s"))
	run(t, b, cmd)
	assert.Equal(t, data.StatusOngoing, b.coord.Filter().Status)
	assert.Equal(t, "action", b.coord.Filter().Category)
	assert.Len(t, b.list.Items, 3)

	_, cmd = b.Update(key("p"))
	run(t, b, cmd)
	assert.Equal(t, data.PopularFilter(), b.coord.Filter())
	assert.Equal(t, "-p1-0", b.list.Items[0].Slug)
}

func TestBrowseScreen_RapidSwitchKeepsLatest(t *testing.T) {
	b := newBrowse(t, pagedSource(), nil)

	_, first := b.Update(key("c"))
	_, second := b.Update(key("c"))
	require.NotNil(t, first)
	require.NotNil(t, second)

	run(t, b, second)
	run(t, b, first)

	assert.Equal(t, "drama", b.coord.Filter().Category)
	for _, item := range b.list.Items {
		assert.True(t, strings.HasPrefix(item.Slug, "drama"), item.Slug)
	}
}

func TestBrowseScreen_ShowsErrors(t *testing.T) {
	source := &mockSource{
		listFunc: func(context.Context, data.ListQuery) (data.ListResult, error) {
			return data.ListResult{}, &sources.FetchError{Kind: sources.KindNetwork, Err: errors.New("refused")}
		},
		categoriesFunc: func(context.Context) ([]data.Category, error) {
			return nil, &sources.FetchError{Kind: sources.KindAPI, Status: 500, Message: "maintenance"}
		},
	}
	b := newBrowse(t, source, nil)

	view := b.View()
	assert.Contains(t, view, "Could not reach the server")
	assert.Contains(t, view, "Categories unavailable: maintenance")
	assert.Empty(t, b.list.Items)
}

func TestBrowseScreen_OpensStory(t *testing.T) {
	t.Run("from the start", func(t *testing.T) {
		b := newBrowse(t, pagedSource(), nil)
		_, cmd := b.Update(key("enter"))

		msg := expectSwitch(t, cmd)
		assert.Equal(t, "reader", msg.Screen)
		req := msg.Data.(OpenRequest)
		assert.Equal(t, "-p1-0", req.Target.StorySlug)
		assert.Equal(t, "1", req.Target.Chapter)
		assert.Equal(t, 0, req.Page)
	})

	t.Run("resumes saved progress", func(t *testing.T) {
		history := newFakeHistory()
		history.entries["-p1-1"] = data.ReadingProgress{StorySlug: "-p1-1", Chapter: "7", Page: 2}
		b := newBrowse(t, pagedSource(), history)
		b.Update(key("j"))

		req := expectSwitch(t, func() tea.Msg {
			_, cmd := b.Update(key("enter"))
			return cmd()
		}).Data.(OpenRequest)
		assert.Equal(t, "7", req.Target.Chapter)
		assert.Equal(t, 2, req.Page)
		assert.Equal(t, "Story -p1-1", req.StoryName)
	})
}
