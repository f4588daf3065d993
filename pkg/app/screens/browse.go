package screens

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/app/components"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
	"github.com/kerbaras/mangas/pkg/sources"
)

const browseList = "browse"

var (
	statusCycle = []string{data.StatusAny, data.StatusOngoing, data.StatusCompleted}
	sortCycle   = []string{data.SortByUpdatedAt, data.SortByViewCount, data.SortByRating, data.SortByName}
)

// BrowseScreen pages through category, popular and latest listings.
type BrowseScreen struct {
	source  sources.Source
	history History
	coord   *services.Coordinator
	list    *components.StoryList

	categories  []data.Category
	categoryIdx int
	catErr      error
	width       int
	height      int
}

func NewBrowseScreen(deps Deps) *BrowseScreen {
	controller := services.NewListController(browseList, deps.Source, deps.Logger)
	return &BrowseScreen{
		source:      deps.Source,
		history:     deps.History,
		coord:       services.NewCoordinator(controller, deps.Config.List.PageSize),
		list:        components.NewStoryList(),
		categoryIdx: -1,
	}
}

func (s *BrowseScreen) Init() tea.Cmd {
	var cmds []tea.Cmd
	if s.categories == nil {
		cmds = append(cmds, s.loadCategories)
	}
	if s.coord.List().State().Query.Page == 0 {
		fetch, _ := s.coord.Apply(data.LatestFilter())
		cmds = append(cmds, listCmd(browseList, fetch))
	}
	return tea.Batch(cmds...)
}

func (s *BrowseScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Width = msg.Width - 4
		s.list.Height = msg.Height - 12

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.list.Prev()
		case "down", "j":
			if s.list.Next() {
				fetch, _ := s.coord.LoadMore()
				return s, listCmd(browseList, fetch)
			}
		case "c":
			return s, s.nextCategory()
		case "p":
			s.categoryIdx = -1
			return s, s.apply(data.PopularFilter())
		case "l":
			s.categoryIdx = -1
			return s, s.apply(data.LatestFilter())
		case "s":
			fetch, _ := s.coord.SetStatus(cycle(statusCycle, s.coord.Filter().Status))
			return s, listCmd(browseList, fetch)
		case "o":
			f := s.coord.Filter()
			fetch, _ := s.coord.SetSort(cycle(sortCycle, f.SortBy), data.SortDesc)
			return s, listCmd(browseList, fetch)
		case "r":
			fetch, _ := s.coord.Refresh()
			return s, listCmd(browseList, fetch)
		case "enter":
			if selected := s.list.Selected(); selected != nil {
				return s, openStory(s.history, *selected)
			}
		}

	case listLoadedMsg:
		if msg.list == browseList && s.coord.List().Commit(msg.resp) {
			s.list.SetItems(s.coord.List().State().Items)
		}

	case categoriesLoadedMsg:
		s.categories = msg.categories
		s.catErr = msg.err
	}

	return s, nil
}

func (s *BrowseScreen) apply(f data.Filter) tea.Cmd {
	s.list.SelectedIndex = 0
	fetch, _ := s.coord.Apply(f)
	return listCmd(browseList, fetch)
}

func (s *BrowseScreen) nextCategory() tea.Cmd {
	if len(s.categories) == 0 {
		return nil
	}
	s.categoryIdx = (s.categoryIdx + 1) % len(s.categories)
	s.list.SelectedIndex = 0
	fetch, _ := s.coord.SelectCategory(s.categories[s.categoryIdx].Slug)
	return listCmd(browseList, fetch)
}

func (s *BrowseScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Browse")
	state := s.coord.List().State()

	var status string
	switch {
	case state.Err != nil:
		status = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.coord.List().ErrorMessage()))
	case state.Loading:
		status = styles.StatusLoading.Render("Loading...")
	case state.Pagination.TotalPages > 0:
		status = styles.MutedStyle.Render(fmt.Sprintf("Page %d of %d • %d stories",
			state.Pagination.CurrentPage, state.Pagination.TotalPages, state.Pagination.TotalItems))
	}
	if s.catErr != nil {
		status += "\n" + styles.StatusError.Render("Categories unavailable: "+sources.Message(s.catErr))
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: read • c: category • p: popular • l: latest • s: status • o: sort • r: refresh • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n%s", header, s.renderFilter(), status, s.list.View(), help)
}

func (s *BrowseScreen) renderFilter() string {
	f := s.coord.Filter()
	var chips []string
	if f.Category != "" {
		name := f.Category
		if s.categoryIdx >= 0 && s.categoryIdx < len(s.categories) {
			name = s.categories[s.categoryIdx].Name
		}
		chips = append(chips, "category: "+name)
	}
	if f.Status != "" {
		chips = append(chips, "status: "+f.Status)
	}
	if f.SortBy != "" {
		chips = append(chips, fmt.Sprintf("sort: %s %s", f.SortBy, f.SortOrder))
	}
	for i, c := range chips {
		chips[i] = styles.ChipStyle.Render(c)
	}
	return strings.Join(chips, " ")
}

func (s *BrowseScreen) loadCategories() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	categories, err := s.source.ListCategories(ctx)
	return categoriesLoadedMsg{categories: categories, err: err}
}

// cycle returns the value after current in values, wrapping around.
func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}
