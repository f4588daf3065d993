package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/data"
)

// StoryList renders a scrolling window over list items with one selected
// row. Items are owned by the list controller; the component only reads
// the published copy.
type StoryList struct {
	Items         []data.StorySummary
	SelectedIndex int
	Width         int
	Height        int
	Empty         string
}

func NewStoryList() *StoryList {
	return &StoryList{
		Width:  80,
		Height: 20,
		Empty:  "No stories",
	}
}

func (l *StoryList) SetItems(items []data.StorySummary) {
	l.Items = items
	if l.SelectedIndex >= len(items) && len(items) > 0 {
		l.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		l.SelectedIndex = 0
	}
}

// Next moves the selection down and reports whether it reached the last
// item, which is the cue to load more.
func (l *StoryList) Next() bool {
	if len(l.Items) == 0 {
		return false
	}
	if l.SelectedIndex < len(l.Items)-1 {
		l.SelectedIndex++
	}
	return l.SelectedIndex == len(l.Items)-1
}

func (l *StoryList) Prev() {
	if l.SelectedIndex > 0 {
		l.SelectedIndex--
	}
}

func (l *StoryList) Selected() *data.StorySummary {
	if len(l.Items) == 0 || l.SelectedIndex >= len(l.Items) {
		return nil
	}
	return &l.Items[l.SelectedIndex]
}

// window returns the visible [start, end) range around the selection.
func (l *StoryList) window() (int, int) {
	rows := l.Height
	if rows <= 0 || rows >= len(l.Items) {
		return 0, len(l.Items)
	}
	start := l.SelectedIndex - rows/2
	if start < 0 {
		start = 0
	}
	end := start + rows
	if end > len(l.Items) {
		end = len(l.Items)
		start = end - rows
	}
	return start, end
}

func (l *StoryList) View() string {
	if len(l.Items) == 0 {
		return styles.MutedStyle.Render(l.Empty)
	}

	var b strings.Builder
	start, end := l.window()
	for i := start; i < end; i++ {
		line := storyLine(l.Items[i], l.Width-4)
		if i == l.SelectedIndex {
			b.WriteString(styles.SelectedRowStyle.Render(line))
		} else {
			b.WriteString(styles.RowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if end-start < len(l.Items) {
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(l.Items))))
	}
	return b.String()
}

func storyLine(s data.StorySummary, width int) string {
	status := s.Status
	if status == "" {
		status = "unknown"
	}
	meta := styles.StatusStyle(status).Render(status)
	if s.ViewCount != nil {
		meta += styles.MutedStyle.Render(fmt.Sprintf(" • %d views", *s.ViewCount))
	}
	if s.Rating > 0 {
		meta += styles.MutedStyle.Render(fmt.Sprintf(" • ★ %.1f", s.Rating))
	}

	name := s.Name
	room := width - lipgloss.Width(meta) - 3
	if room < 10 {
		room = 10
	}
	if len([]rune(name)) > room {
		name = string([]rune(name)[:room-3]) + "..."
	}
	return fmt.Sprintf("%s  %s", styles.TextStyle.Render(name), meta)
}
