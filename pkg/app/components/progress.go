package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/services"
)

// ReadingProgress shows how far into a chapter the reader is and how its
// page images are doing.
type ReadingProgress struct {
	current int
	total   int
	images  services.ImageCounts
	width   int
}

func NewReadingProgress(width int) *ReadingProgress {
	return &ReadingProgress{width: width}
}

func (p *ReadingProgress) SetWidth(width int) {
	p.width = width
}

// Update takes the reader's current page and the tracker's counts.
func (p *ReadingProgress) Update(current, total int, images services.ImageCounts) {
	p.current = current
	p.total = total
	p.images = images
}

func (p *ReadingProgress) View() string {
	if p.total == 0 {
		return ""
	}

	var b strings.Builder
	page := p.current + 1
	b.WriteString(renderProgressBar(page, p.total, p.width-4))
	b.WriteString("\n")
	b.WriteString(styles.TextStyle.Render(fmt.Sprintf("Page %d/%d", page, p.total)))

	summary := fmt.Sprintf("  %d loaded", p.images.Loaded)
	b.WriteString(styles.StatusCompleted.Render(summary))
	if p.images.Failed > 0 {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf(" • %d failed", p.images.Failed)))
	}
	if p.images.Pending > 0 {
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf(" • %d pending", p.images.Pending)))
	}
	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := styles.ProgressBarStyle.Render(strings.Repeat("█", filled))
	return bar + styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// SimpleProgress renders a bare progress bar
func SimpleProgress(current, total, width int) string {
	return renderProgressBar(current, total, width)
}
