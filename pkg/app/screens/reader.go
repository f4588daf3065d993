package screens

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangas/pkg/app/components"
	"github.com/kerbaras/mangas/pkg/app/styles"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
	"github.com/kerbaras/mangas/pkg/sources"
)

// pageLines is the height of one page block on the reading surface.
const pageLines = 6

var readerIDs atomic.Uint64

// ReaderScreen shows one chapter as a vertical strip of page blocks. The
// scrolled view drives the session's viewport tracker, which decides the
// current page; images near it are loaded lazily.
type ReaderScreen struct {
	id       uint64
	session  *services.ReadingSession
	loader   *services.ImageLoader
	history  History
	surface  *services.ScrollSurface
	view     viewport.Model
	progress *components.ReadingProgress
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	req     OpenRequest
	resumed bool
	issued  map[string]bool
	moved   bool

	// position shown before the last navigation, restored when the
	// neighbour turns out to be missing
	readTarget services.ChapterTarget
	readIndex  int

	// blank lines above the first page so every page can be centered
	lead   int
	width  int
	height int
}

func NewReaderScreen(deps Deps, req OpenRequest) *ReaderScreen {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	surface := &services.ScrollSurface{}
	session := services.NewReadingSession(deps.Source, services.SessionOptions{
		Fallback: sources.FallbackHost(cfg.Images.FallbackBaseURL),
		Observer: surface.Factory,
		Viewport: services.ObserverOptions{Threshold: cfg.Viewport.Threshold, Margin: cfg.Viewport.Margin},
		Layout:   services.UniformLayout(pageLines),
	}, logger)
	loader := services.NewImageLoader(services.LoaderOptions{
		RatePerSecond: cfg.Images.RatePerSecond,
		Concurrency:   cfg.Images.Concurrency,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s := &ReaderScreen{
		id:       readerIDs.Add(1),
		session:  session,
		loader:   loader,
		history:  deps.History,
		surface:  surface,
		view:     viewport.New(80, 4*pageLines),
		progress: components.NewReadingProgress(80),
		logger:   logger.With("screen", "reader"),
		ctx:      ctx,
		cancel:   cancel,
		req:      req,
		issued:   map[string]bool{},
	}
	session.OnIndexChange(func(int) { s.moved = true })
	s.lead = (s.view.Height - pageLines) / 2
	s.syncSurface()
	return s
}

func (s *ReaderScreen) Init() tea.Cmd {
	fetch := s.session.Open(s.req.Target)
	s.render()
	if fetch == nil {
		return s.afterCommit()
	}
	return s.chapterCmd(fetch)
}

func (s *ReaderScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return s, s.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace":
			return s, func() tea.Msg {
				return SwitchScreenMsg{Screen: "back"}
			}
		case "n":
			return s, s.navigate(s.session.GoNext)
		case "p":
			return s, s.navigate(s.session.GoPrev)
		case "r":
			if fetch := s.session.Retry(); fetch != nil {
				s.render()
				return s, s.chapterCmd(fetch)
			}
			return s, nil
		case "R":
			return s, s.retryImages()
		}
		return s, s.scroll(msg)

	case tea.MouseMsg:
		return s, s.scroll(msg)

	case chapterLoadedMsg:
		if msg.reader != s.id || !s.session.Commit(msg.resp) {
			return s, nil
		}
		return s, s.afterCommit()

	case prefetchedMsg:
		if msg.reader == s.id {
			s.session.StorePrefetch(msg.resp)
		}

	case imagesLoadedMsg:
		if msg.reader != s.id {
			return s, nil
		}
		var cmds []tea.Cmd
		for _, res := range msg.results {
			next, committed := s.session.ReportImage(res)
			if committed && next != nil {
				cmds = append(cmds, s.imageCmd(*next))
			}
		}
		s.render()
		return s, tea.Batch(cmds...)

	case progressSavedMsg:
		if msg.err != nil {
			s.logger.Warn("saving progress failed", "error", msg.err)
		}
	}

	return s, nil
}

// Close cancels outstanding image loads and tears the session down.
func (s *ReaderScreen) Close() {
	s.cancel()
	s.session.Close()
}

func (s *ReaderScreen) resize(width, height int) tea.Cmd {
	s.width = width
	s.height = height
	s.view.Width = width
	s.view.Height = max(height-8, pageLines)
	s.lead = (s.view.Height - pageLines) / 2
	s.progress.SetWidth(width)
	s.render()
	s.syncSurface()
	return s.settle()
}

func (s *ReaderScreen) scroll(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.view, cmd = s.view.Update(msg)
	s.syncSurface()
	return tea.Batch(cmd, s.settle())
}

// syncSurface reports the view position to the viewport tracker. Surface
// coordinates start at the first page, below the lead.
func (s *ReaderScreen) syncSurface() {
	s.surface.Scroll(s.view.YOffset-s.lead, s.view.Height)
}

func (s *ReaderScreen) navigate(step func() *services.ChapterFetch) tea.Cmd {
	before := s.session.Snapshot()
	fetch := step()
	if fetch != nil {
		s.readTarget = before.Target
		s.readIndex = before.CurrentImageIndex
		s.view.SetYOffset(0)
		s.render()
		s.syncSurface()
		return s.chapterCmd(fetch)
	}
	if after := s.session.Snapshot(); after.Content != before.Content {
		// served from the prefetched copy
		s.readTarget = services.ChapterTarget{}
		return s.afterCommit()
	}
	return nil
}

// afterCommit lays out a newly committed chapter, lands on the right page
// and starts the eager image loads.
func (s *ReaderScreen) afterCommit() tea.Cmd {
	snap := s.session.Snapshot()
	if snap.Status != services.ReaderReady {
		s.render()
		return nil
	}

	// a dead neighbour link puts the same chapter back with its images intact
	restored := snap.Target == s.readTarget
	land := 0
	switch {
	case restored:
		land = s.readIndex
	case !s.resumed && snap.Target == s.req.Target:
		land = s.req.Page
	}
	s.resumed = true
	s.readTarget = services.ChapterTarget{}
	land = min(max(land, 0), snap.Content.PageCount()-1)

	if !restored {
		s.issued = map[string]bool{}
	}
	eager := s.session.EagerAttempts()
	for _, a := range eager {
		s.issued[a.ID] = true
	}

	s.render()
	s.view.SetYOffset(max(land, 0) * pageLines)
	s.syncSurface()
	s.moved = true

	return tea.Batch(s.imagesCmd(eager), s.settle())
}

// settle reacts to a page change: lazy loads, prefetch and saving the
// position.
func (s *ReaderScreen) settle() tea.Cmd {
	if !s.moved {
		return nil
	}
	s.moved = false
	s.render()

	snap := s.session.Snapshot()
	if snap.Status != services.ReaderReady {
		return nil
	}

	var cmds []tea.Cmd
	for i := snap.CurrentImageIndex - 1; i < snap.CurrentImageIndex+services.EagerImages; i++ {
		if i < 0 || i >= snap.Content.PageCount() {
			continue
		}
		id := services.PageImageID(i)
		if s.issued[id] {
			continue
		}
		if attempt, ok := s.session.ImageAttempt(id); ok {
			s.issued[id] = true
			cmds = append(cmds, s.imageCmd(attempt))
		}
	}
	if pf := s.session.Prefetch(); pf != nil {
		cmds = append(cmds, s.prefetchCmd(pf))
	}
	cmds = append(cmds, s.saveProgress(snap))
	return tea.Batch(cmds...)
}

func (s *ReaderScreen) retryImages() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range s.session.Images().IDs() {
		if !s.session.Images().HasError(id) {
			continue
		}
		if attempt, ok := s.session.RetryImage(id); ok {
			cmds = append(cmds, s.imageCmd(attempt))
		}
	}
	s.render()
	return tea.Batch(cmds...)
}

func (s *ReaderScreen) render() {
	snap := s.session.Snapshot()
	images := s.session.Images()
	s.progress.Update(snap.CurrentImageIndex, snap.Content.PageCount(), images.Counts())

	if snap.Status != services.ReaderReady {
		s.view.SetContent("")
		return
	}

	total := snap.Content.PageCount()
	blocks := make([]string, total)
	for i := range blocks {
		id := services.PageImageID(i)
		state, _ := images.State(id)

		label := state.Status.String()
		if state.UsingFallback && state.Status != services.ImageFailed {
			label = "fallback"
		}
		lines := []string{
			fmt.Sprintf("Page %d/%d  %s", i+1, total, styles.StatusStyle(label).Render(label)),
			styles.MutedStyle.Render(shortURL(images.Source(id))),
		}

		style := styles.PageStyle
		if i == snap.CurrentImageIndex {
			style = styles.CurrentPageStyle
		}
		block := style.Width(max(s.view.Width-4, 20)).Render(strings.Join(lines, "\n"))
		blocks[i] = fitLines(block, pageLines)
	}
	lead := strings.Repeat("\n", s.lead)
	trail := strings.Repeat("\n", max(s.view.Height-pageLines-s.lead, 0))
	s.view.SetContent(lead + strings.Join(blocks, "\n") + trail)
}

func (s *ReaderScreen) View() string {
	snap := s.session.Snapshot()

	name := s.req.StoryName
	if snap.Content != nil && snap.Content.Story.Name != "" {
		name = snap.Content.Story.Name
	}
	header := styles.TitleStyle.Render(name)

	var status string
	switch snap.Status {
	case services.ReaderLoading:
		status = styles.StatusLoading.Render(fmt.Sprintf("Loading chapter %s...", snap.Target.Chapter))
	case services.ReaderFailed:
		status = styles.StatusError.Render(sources.Message(snap.Err))
		if s.session.Reader().Retryable() {
			status += styles.MutedStyle.Render("  (r: retry)")
		}
	case services.ReaderReady:
		ch := snap.Content.Chapter
		title := fmt.Sprintf("Chapter %s", ch.Name)
		if ch.Title != "" && ch.Title != title {
			title += ": " + ch.Title
		}
		status = styles.SubtitleStyle.Render(title) + s.renderNav()
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: scroll • n: next chapter • p: previous chapter • r: retry • R: retry images • esc: back • q: quit",
	)

	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n%s", header, status, s.view.View(), s.progress.View(), help)
}

func (s *ReaderScreen) renderNav() string {
	var parts []string
	if s.session.Reader().HasPrev() {
		parts = append(parts, "◀ prev")
	}
	if s.session.Reader().HasNext() {
		parts = append(parts, "next ▶")
	}
	if len(parts) == 0 {
		return ""
	}
	return styles.MutedStyle.Render("  " + strings.Join(parts, " • "))
}

// Messages
type chapterLoadedMsg struct {
	reader uint64
	resp   services.ChapterResponse
}

type prefetchedMsg struct {
	reader uint64
	resp   services.PrefetchResponse
}

type imagesLoadedMsg struct {
	reader  uint64
	results []services.ImageResult
}

// Commands
func (s *ReaderScreen) chapterCmd(fetch *services.ChapterFetch) tea.Cmd {
	id := s.id
	return func() tea.Msg {
		return chapterLoadedMsg{reader: id, resp: fetch.Do()}
	}
}

func (s *ReaderScreen) prefetchCmd(fetch *services.PrefetchFetch) tea.Cmd {
	id := s.id
	return func() tea.Msg {
		return prefetchedMsg{reader: id, resp: fetch.Do()}
	}
}

func (s *ReaderScreen) imageCmd(attempt services.ImageAttempt) tea.Cmd {
	id, ctx, loader := s.id, s.ctx, s.loader
	return func() tea.Msg {
		return imagesLoadedMsg{reader: id, results: []services.ImageResult{loader.Load(ctx, attempt)}}
	}
}

func (s *ReaderScreen) imagesCmd(attempts []services.ImageAttempt) tea.Cmd {
	if len(attempts) == 0 {
		return nil
	}
	id, ctx, loader := s.id, s.ctx, s.loader
	return func() tea.Msg {
		return imagesLoadedMsg{reader: id, results: loader.LoadAll(ctx, attempts)}
	}
}

func (s *ReaderScreen) saveProgress(snap services.ReaderSnapshot) tea.Cmd {
	if s.history == nil {
		return nil
	}
	p := data.ReadingProgress{
		StorySlug: snap.Target.StorySlug,
		StoryName: snap.Content.Story.Name,
		Chapter:   snap.Target.Chapter,
		Page:      snap.CurrentImageIndex,
	}
	if p.StoryName == "" {
		p.StoryName = s.req.StoryName
	}
	history := s.history
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		return progressSavedMsg{err: history.SaveProgress(ctx, p)}
	}
}

// fitLines pads or cuts s to exactly n lines.
func fitLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func shortURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host + u.Path
}
