package screens

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/config"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

// History persists the last position reached in each story.
type History interface {
	SaveProgress(ctx context.Context, p data.ReadingProgress) error
	GetProgress(ctx context.Context, slug string) (*data.ReadingProgress, error)
	ListHistory(ctx context.Context, limit int) ([]data.ReadingProgress, error)
	DeleteProgress(ctx context.Context, slug string) error
}

// Deps are shared by every screen. History may be nil, in which case
// progress is neither saved nor resumed.
type Deps struct {
	Source  sources.Source
	History History
	Config  *config.Config
	Logger  *slog.Logger
}

type screenType int

const (
	browseView screenType = iota
	searchView
	historyView
	readerView
)

var tabNames = []string{"Browse", "Search", "History"}

// SwitchScreenMsg asks the root screen to change views. "reader" expects
// an OpenRequest in Data; "back" leaves the reader.
type SwitchScreenMsg struct {
	Screen string
	Data   interface{}
}

type RootScreen struct {
	deps Deps

	currentView screenType
	lastTab     screenType
	browse      *BrowseScreen
	search      *SearchScreen
	history     *HistoryScreen
	reader      *ReaderScreen

	width  int
	height int
}

func NewRootScreen(deps Deps) *RootScreen {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	return &RootScreen{
		deps:        deps,
		currentView: browseView,
		browse:      NewBrowseScreen(deps),
		search:      NewSearchScreen(deps),
		history:     NewHistoryScreen(deps),
	}
}

func (r *RootScreen) Init() tea.Cmd {
	return r.browse.Init()
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		return r, r.broadcast(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			r.closeReader()
			return r, tea.Quit
		case "q":
			if !r.typing() {
				r.closeReader()
				return r, tea.Quit
			}
		case "tab":
			if r.currentView == readerView {
				break
			}
			return r, r.show((r.currentView + 1) % screenType(len(tabNames)))
		}
		return r, r.updateActive(msg)

	case SwitchScreenMsg:
		switch msg.Screen {
		case "browse":
			return r, r.show(browseView)
		case "search":
			return r, r.show(searchView)
		case "history":
			return r, r.show(historyView)
		case "reader":
			req, ok := msg.Data.(OpenRequest)
			if !ok {
				return r, nil
			}
			r.closeReader()
			r.reader = NewReaderScreen(r.deps, req)
			r.currentView = readerView
			cmds := []tea.Cmd{r.reader.Init()}
			if r.width > 0 {
				cmds = append(cmds, r.reader.resize(r.width, r.height))
			}
			return r, tea.Batch(cmds...)
		case "back":
			r.closeReader()
			return r, r.show(r.lastTab)
		}
		return r, nil
	}

	return r, r.broadcast(msg)
}

// show switches to a tab and lets it refresh.
func (r *RootScreen) show(view screenType) tea.Cmd {
	r.currentView = view
	r.lastTab = view
	switch view {
	case searchView:
		return r.search.Init()
	case historyView:
		return r.history.Init()
	default:
		return r.browse.Init()
	}
}

// updateActive sends input to the visible screen only.
func (r *RootScreen) updateActive(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch r.currentView {
	case browseView:
		_, cmd = r.browse.Update(msg)
	case searchView:
		_, cmd = r.search.Update(msg)
	case historyView:
		_, cmd = r.history.Update(msg)
	case readerView:
		if r.reader != nil {
			_, cmd = r.reader.Update(msg)
		}
	}
	return cmd
}

// broadcast delivers results to every screen so a response for a hidden
// tab is still committed by its owner.
func (r *RootScreen) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	_, cmd := r.browse.Update(msg)
	cmds = append(cmds, cmd)
	_, cmd = r.search.Update(msg)
	cmds = append(cmds, cmd)
	_, cmd = r.history.Update(msg)
	cmds = append(cmds, cmd)
	if r.reader != nil {
		_, cmd = r.reader.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (r *RootScreen) typing() bool {
	return r.currentView == searchView && r.search.input.Focused()
}

func (r *RootScreen) closeReader() {
	if r.reader != nil {
		r.reader.Close()
		r.reader = nil
	}
}

func (r *RootScreen) View() string {
	var content string
	switch r.currentView {
	case browseView:
		content = r.browse.View()
	case searchView:
		content = r.search.View()
	case historyView:
		content = r.history.View()
	case readerView:
		if r.reader != nil {
			return r.reader.View()
		}
	}

	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if screenType(i) == r.currentView {
			tabs[i] = styles.ActiveTabStyle.Render(name)
		} else {
			tabs[i] = styles.InactiveTabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
