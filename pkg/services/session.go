package services

import (
	"context"
	"log/slog"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

// LayoutFunc places n page anchors on the reading surface.
type LayoutFunc func(n int) []Anchor

// UniformLayout stacks pages of equal height.
func UniformLayout(lines int) LayoutFunc {
	if lines <= 0 {
		lines = 1
	}
	return func(n int) []Anchor {
		anchors := make([]Anchor, n)
		for i := range anchors {
			anchors[i] = Anchor{Index: i, Top: i * lines, Height: lines}
		}
		return anchors
	}
}

type SessionOptions struct {
	Fallback sources.FallbackFunc
	Observer ObserverFactory
	Viewport ObserverOptions
	Layout   LayoutFunc
}

// ReadingSession owns everything one reading scope needs: the chapter
// state machine, the page image states and the viewport subscription.
// Each committed chapter re-tracks its images and re-attaches the anchors.
// Like its parts it must be driven from one event loop.
type ReadingSession struct {
	reader   *Reader
	images   *ImageTracker
	viewport *ViewportTracker
	prefetch *Prefetcher
	layout   LayoutFunc
	logger   *slog.Logger

	eager   []ImageAttempt
	onIndex func(int)
}

func NewReadingSession(source ChapterSource, opts SessionOptions, logger *slog.Logger) *ReadingSession {
	if logger == nil {
		logger = discardLogger()
	}
	layout := opts.Layout
	if layout == nil {
		layout = UniformLayout(1)
	}
	observer := opts.Observer
	if observer == nil {
		observer = new(ScrollSurface).Factory
	}

	s := &ReadingSession{
		reader:   NewReader(source, logger),
		images:   NewImageTracker(opts.Fallback, logger),
		prefetch: NewPrefetcher(source),
		layout:   layout,
		logger:   logger.With("component", "session"),
	}
	s.viewport = NewViewportTracker(observer, opts.Viewport, s.indexChanged, logger)
	s.reader.OnContentChange(s.contentChanged)
	return s
}

// OnIndexChange registers fn to run after the current page changes.
func (s *ReadingSession) OnIndexChange(fn func(int)) {
	s.onIndex = fn
}

func (s *ReadingSession) Reader() *Reader               { return s.reader }
func (s *ReadingSession) Images() *ImageTracker         { return s.images }
func (s *ReadingSession) Viewport() *ViewportTracker    { return s.viewport }
func (s *ReadingSession) Snapshot() ReaderSnapshot      { return s.reader.Snapshot() }
func (s *ReadingSession) Commit(r ChapterResponse) bool { return s.reader.Commit(r) }
func (s *ReadingSession) Retry() *ChapterFetch          { return s.reader.Retry() }
func (s *ReadingSession) Load(ctx context.Context, f *ChapterFetch) error {
	return s.reader.Load(ctx, f)
}

// Open loads target, using a prefetched copy when one is held.
func (s *ReadingSession) Open(target ChapterTarget) *ChapterFetch {
	if s.hydrate(target) {
		return nil
	}
	s.prefetch.Release()
	return s.reader.Open(target)
}

func (s *ReadingSession) GoNext() *ChapterFetch {
	return s.navigate(DirectionNext)
}

func (s *ReadingSession) GoPrev() *ChapterFetch {
	return s.navigate(DirectionPrev)
}

// EagerAttempts hands out the loads to start for the latest chapter. It
// returns them once.
func (s *ReadingSession) EagerAttempts() []ImageAttempt {
	eager := s.eager
	s.eager = nil
	return eager
}

func (s *ReadingSession) ImageAttempt(id string) (ImageAttempt, bool) {
	return s.images.Attempt(id)
}

func (s *ReadingSession) ReportImage(res ImageResult) (*ImageAttempt, bool) {
	return s.images.Report(res)
}

func (s *ReadingSession) RetryImage(id string) (ImageAttempt, bool) {
	return s.images.Retry(id)
}

// Prefetch returns a fetch for the next chapter once the reader is within
// PrefetchDistance pages of the end.
func (s *ReadingSession) Prefetch() *PrefetchFetch {
	snap := s.reader.Snapshot()
	if snap.Status != ReaderReady {
		return nil
	}
	if snap.CurrentImageIndex < snap.Content.PageCount()-PrefetchDistance {
		return nil
	}
	target, ok := s.reader.NeighbourTarget(DirectionNext)
	if !ok {
		return nil
	}
	return s.prefetch.Request(target)
}

func (s *ReadingSession) StorePrefetch(resp PrefetchResponse) bool {
	return s.prefetch.Store(resp)
}

// Close tears the whole scope down. It is safe to call more than once.
func (s *ReadingSession) Close() {
	s.reader.Close()
	s.viewport.Close()
	s.images.Release()
	s.prefetch.Release()
	s.eager = nil
}

func (s *ReadingSession) navigate(dir Direction) *ChapterFetch {
	target, ok := s.reader.NeighbourTarget(dir)
	if !ok {
		return nil
	}
	if s.hydrate(target) {
		return nil
	}
	if dir == DirectionNext {
		s.prefetch.Release()
		return s.reader.GoNext()
	}
	return s.reader.GoPrev()
}

func (s *ReadingSession) hydrate(target ChapterTarget) bool {
	content, ok := s.prefetch.Take(target)
	if !ok {
		return false
	}
	s.logger.Debug("using prefetched chapter", "target", target.String())
	s.reader.Hydrate(target, content)
	return true
}

func (s *ReadingSession) contentChanged(content *data.ChapterContent) {
	if content == nil {
		s.viewport.Close()
		s.images.Release()
		s.eager = nil
		return
	}
	s.eager = s.images.Track(PageImages(content.Chapter.Images))
	s.viewport.Attach(s.layout(content.PageCount()))
}

func (s *ReadingSession) indexChanged(index int) {
	s.reader.SetCurrentImageIndex(index)
	if s.onIndex != nil {
		s.onIndex(s.reader.Snapshot().CurrentImageIndex)
	}
}
