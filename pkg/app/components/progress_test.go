package components

import (
	"strings"
	"testing"

	"github.com/kerbaras/mangas/pkg/services"
)

func TestNewReadingProgress(t *testing.T) {
	p := NewReadingProgress(80)

	if p == nil {
		t.Fatal("Expected progress to be created")
	}
	if p.width != 80 {
		t.Errorf("Expected width 80, got %d", p.width)
	}
}

func TestReadingProgressViewEmpty(t *testing.T) {
	p := NewReadingProgress(80)

	if view := p.View(); view != "" {
		t.Errorf("Expected empty view without pages, got %q", view)
	}
}

func TestReadingProgressView(t *testing.T) {
	p := NewReadingProgress(40)
	p.Update(4, 10, services.ImageCounts{Total: 10, Loaded: 5, Failed: 1, Pending: 4})

	view := p.View()
	for _, want := range []string{"Page 5/10", "5 loaded", "1 failed", "4 pending", "█"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view:\n%s", want, view)
		}
	}
}

func TestReadingProgressHidesZeroFailures(t *testing.T) {
	p := NewReadingProgress(40)
	p.Update(0, 3, services.ImageCounts{Total: 3, Loaded: 3})

	if strings.Contains(p.View(), "failed") {
		t.Error("Expected no failure count when nothing failed")
	}
}

func TestRenderProgressBar(t *testing.T) {
	bar := renderProgressBar(50, 100, 20)

	if strings.Count(bar, "█") != 10 {
		t.Errorf("Expected 10 filled chars, got %d", strings.Count(bar, "█"))
	}
	if strings.Count(bar, "░") != 10 {
		t.Errorf("Expected 10 empty chars, got %d", strings.Count(bar, "░"))
	}
}

func TestRenderProgressBarZeroTotal(t *testing.T) {
	if bar := renderProgressBar(0, 0, 20); bar != "" {
		t.Errorf("Expected empty string for zero total, got: %s", bar)
	}
}

func TestRenderProgressBarFull(t *testing.T) {
	bar := renderProgressBar(120, 100, 20)

	if strings.Count(bar, "█") != 20 {
		t.Errorf("Expected 20 filled chars, got %d", strings.Count(bar, "█"))
	}
}

func TestSimpleProgress(t *testing.T) {
	bar := SimpleProgress(25, 100, 40)

	filled := strings.Count(bar, "█")
	if filled < 8 || filled > 12 {
		t.Errorf("Expected approximately 10 filled chars, got %d", filled)
	}
	if strings.Count(bar, "░") == 0 {
		t.Error("Expected some empty characters")
	}
}
