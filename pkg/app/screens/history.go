package screens

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
)

const historyLimit = 50

// HistoryScreen lists stories with a saved reading position.
type HistoryScreen struct {
	history  History
	entries  []data.ReadingProgress
	selected int
	width    int
	height   int
	err      error
}

func NewHistoryScreen(deps Deps) *HistoryScreen {
	return &HistoryScreen{history: deps.History}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return s.loadHistory
}

func (s *HistoryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.entries)-1 {
				s.selected++
			}
		case "r":
			return s, s.loadHistory
		case "d":
			if p := s.current(); p != nil {
				return s, s.deleteEntry(p.StorySlug)
			}
		case "enter":
			if p := s.current(); p != nil {
				req := OpenRequest{
					Target:    services.ChapterTarget{StorySlug: p.StorySlug, Chapter: p.Chapter},
					StoryName: p.StoryName,
					Page:      p.Page,
				}
				return s, func() tea.Msg {
					return SwitchScreenMsg{Screen: "reader", Data: req}
				}
			}
		}

	case historyLoadedMsg:
		s.entries = msg.entries
		s.err = msg.err
		if s.selected >= len(s.entries) {
			s.selected = max(len(s.entries)-1, 0)
		}

	case historyDeletedMsg:
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		return s, s.loadHistory
	}

	return s, nil
}

func (s *HistoryScreen) current() *data.ReadingProgress {
	if s.selected < 0 || s.selected >= len(s.entries) {
		return nil
	}
	return &s.entries[s.selected]
}

func (s *HistoryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Reading History")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	var b strings.Builder
	switch {
	case s.history == nil:
		b.WriteString(styles.MutedStyle.Render("History is disabled"))
	case len(s.entries) == 0:
		b.WriteString(styles.MutedStyle.Render("Nothing read yet"))
	}
	for i, p := range s.entries {
		line := fmt.Sprintf("%s  Ch. %s, page %d", p.StoryName, p.Chapter, p.Page+1)
		line += styles.MutedStyle.Render("  " + p.UpdatedAt.Format("2006-01-02 15:04"))
		if i == s.selected {
			b.WriteString(styles.SelectedRowStyle.Render(line))
		} else {
			b.WriteString(styles.RowStyle.Render(line))
		}
		b.WriteString("\n")
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: resume • d: forget • r: refresh • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, b.String(), help)
}

// Messages
type historyLoadedMsg struct {
	entries []data.ReadingProgress
	err     error
}

type historyDeletedMsg struct {
	err error
}

type progressSavedMsg struct {
	err error
}

// Commands
func (s *HistoryScreen) loadHistory() tea.Msg {
	if s.history == nil {
		return historyLoadedMsg{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	entries, err := s.history.ListHistory(ctx, historyLimit)
	return historyLoadedMsg{entries: entries, err: err}
}

func (s *HistoryScreen) deleteEntry(slug string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		return historyDeletedMsg{err: s.history.DeleteProgress(ctx, slug)}
	}
}
