package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/app/components"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/services"
)

const searchList = "search"

type SearchScreen struct {
	history History
	coord   *services.Coordinator
	input   textinput.Model
	results *components.StoryList
	width   int
	height  int
}

func NewSearchScreen(deps Deps) *SearchScreen {
	ti := textinput.New()
	ti.Placeholder = "Search stories..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	results := components.NewStoryList()
	results.Empty = "No results found"

	controller := services.NewListController(searchList, deps.Source, deps.Logger)
	return &SearchScreen{
		history: deps.History,
		coord:   services.NewCoordinator(controller, deps.Config.List.PageSize),
		input:   ti,
		results: results,
	}
}

func (s *SearchScreen) Init() tea.Cmd {
	return textinput.Blink
}

func (s *SearchScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.results.Width = msg.Width - 4
		s.results.Height = msg.Height - 14

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if s.input.Focused() {
				query := strings.TrimSpace(s.input.Value())
				if query == "" {
					return s, nil
				}
				s.results.SelectedIndex = 0
				fetch, _ := s.coord.Search(query)
				return s, listCmd(searchList, fetch)
			}
			if selected := s.results.Selected(); selected != nil {
				return s, openStory(s.history, *selected)
			}
			return s, nil

		case "esc":
			if s.input.Focused() {
				s.input.Blur()
				return s, nil
			}
			s.input.Focus()
			return s, textinput.Blink

		case "up", "k":
			if !s.input.Focused() {
				s.results.Prev()
				return s, nil
			}

		case "down", "j":
			if !s.input.Focused() {
				if s.results.Next() {
					fetch, _ := s.coord.LoadMore()
					return s, listCmd(searchList, fetch)
				}
				return s, nil
			}
		}

	case listLoadedMsg:
		if msg.list != searchList || !s.coord.List().Commit(msg.resp) {
			return s, nil
		}
		state := s.coord.List().State()
		s.results.SetItems(state.Items)
		if len(state.Items) > 0 && msg.resp.Err == nil {
			s.input.Blur()
		}
		return s, nil
	}

	if s.input.Focused() {
		s.input, cmd = s.input.Update(msg)
	}

	return s, cmd
}

func (s *SearchScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Search")

	inputStyle := styles.InputStyle
	if s.input.Focused() {
		inputStyle = styles.FocusedInputStyle
	}
	inputView := inputStyle.Render(s.input.View())

	state := s.coord.List().State()
	var resultsView string
	switch {
	case state.Err != nil:
		resultsView = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.coord.List().ErrorMessage()))
	case state.Loading && len(state.Items) == 0:
		resultsView = styles.StatusLoading.Render("Searching...")
	case state.Query.Keyword != "":
		resultsView = styles.SubtitleStyle.Render(fmt.Sprintf("Found %d results:", state.Pagination.TotalItems))
		resultsView += "\n\n" + s.results.View()
	}

	help := styles.HelpStyle.Render(
		"enter: search/read • esc: switch focus • ↑/k ↓/j: navigate • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", header, inputView, resultsView, help)
}
