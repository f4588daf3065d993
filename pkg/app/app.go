package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/app/screens"
)

type App struct {
	deps screens.Deps
}

func NewApp(deps screens.Deps) *App {
	return &App{deps: deps}
}

func (a *App) Run() error {
	model := screens.NewRootScreen(a.deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
