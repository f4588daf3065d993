package screens

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
)

const historyTimeout = 5 * time.Second

// OpenRequest tells the reader which chapter to load and where to land.
type OpenRequest struct {
	Target    services.ChapterTarget
	StoryName string
	Page      int
}

// Messages
type listLoadedMsg struct {
	list string
	resp services.ListResponse
}

type categoriesLoadedMsg struct {
	categories []data.Category
	err        error
}

// Commands
func listCmd(list string, fetch *services.ListFetch) tea.Cmd {
	if fetch == nil {
		return nil
	}
	return func() tea.Msg {
		return listLoadedMsg{list: list, resp: fetch.Do()}
	}
}

// openStory resolves where reading should start: the saved position when
// there is one, otherwise the first chapter.
func openStory(history History, story data.StorySummary) tea.Cmd {
	return func() tea.Msg {
		req := OpenRequest{
			Target:    services.ChapterTarget{StorySlug: story.Slug, Chapter: "1"},
			StoryName: story.Name,
		}
		if history != nil {
			ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
			defer cancel()
			if p, err := history.GetProgress(ctx, story.Slug); err == nil && p != nil {
				req.Target.Chapter = p.Chapter
				req.Page = p.Page
			}
		}
		return SwitchScreenMsg{Screen: "reader", Data: req}
	}
}
