package services

import (
	"log/slog"
	"sort"
)

const (
	DefaultVisibilityThreshold = 0.5
	DefaultViewportMargin      = 0.35
)

// Anchor is one observed element tagged with its image index. Top and
// Height give its extent in lines; observers that get geometry elsewhere
// may ignore them.
type Anchor struct {
	Index  int
	Top    int
	Height int
}

// VisibilityEntry reports an anchor whose visibility changed.
type VisibilityEntry struct {
	Index        int
	Ratio        float64
	Intersecting bool
}

type VisibilityHandler func(entries []VisibilityEntry)

// ObserverOptions configures visibility evidence. Margin is the fraction of
// the viewport height cut off at the top and at the bottom, leaving a
// centered band.
type ObserverOptions struct {
	Threshold float64
	Margin    float64
}

func (o ObserverOptions) withDefaults() ObserverOptions {
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = DefaultVisibilityThreshold
	}
	if o.Margin < 0 || o.Margin >= 0.5 {
		o.Margin = DefaultViewportMargin
	}
	return o
}

// Observer is a visibility subscription over a set of anchors.
type Observer interface {
	Observe(a Anchor)
	Unobserve(a Anchor)
	Disconnect()
}

type ObserverFactory func(opts ObserverOptions, handler VisibilityHandler) Observer

// ViewportTracker derives the current image index from visibility events.
// The latest qualifying event always wins.
type ViewportTracker struct {
	factory  ObserverFactory
	opts     ObserverOptions
	onChange func(index int)
	logger   *slog.Logger

	observer Observer
	anchors  []Anchor
	gen      uint64
	current  int
}

func NewViewportTracker(factory ObserverFactory, opts ObserverOptions, onChange func(int), logger *slog.Logger) *ViewportTracker {
	if logger == nil {
		logger = discardLogger()
	}
	return &ViewportTracker{
		factory:  factory,
		opts:     opts.withDefaults(),
		onChange: onChange,
		logger:   logger.With("component", "viewport"),
	}
}

// Attach replaces the observed set with anchors. The previous observer is
// disconnected first so removed anchors never report again.
func (v *ViewportTracker) Attach(anchors []Anchor) {
	v.Close()
	if len(anchors) == 0 {
		return
	}

	gen := v.gen
	v.anchors = append([]Anchor(nil), anchors...)
	v.observer = v.factory(v.opts, func(entries []VisibilityEntry) {
		v.handle(gen, entries)
	})
	for _, a := range v.anchors {
		v.observer.Observe(a)
	}
	v.logger.Debug("anchors attached", "count", len(anchors))
}

// Close releases the observer. Events delivered afterwards are ignored.
func (v *ViewportTracker) Close() {
	v.gen++
	v.current = 0
	v.anchors = nil
	if v.observer != nil {
		v.observer.Disconnect()
		v.observer = nil
	}
}

func (v *ViewportTracker) Current() int {
	return v.current
}

func (v *ViewportTracker) Attached() int {
	return len(v.anchors)
}

func (v *ViewportTracker) handle(gen uint64, entries []VisibilityEntry) {
	if gen != v.gen {
		return
	}
	for _, e := range entries {
		if !e.Intersecting || e.Ratio < v.opts.Threshold {
			continue
		}
		if e.Index < 0 || e.Index >= len(v.anchors) {
			continue
		}
		v.current = e.Index
		if v.onChange != nil {
			v.onChange(e.Index)
		}
	}
}

// ScrollObserver computes visibility for anchors laid out on a vertically
// scrolled surface measured in lines. The ratio of an anchor is the share
// of it inside the centered band; anchors taller than the band are
// measured against the band instead.
type ScrollObserver struct {
	opts    ObserverOptions
	handler VisibilityHandler

	anchors map[int]Anchor
	above   map[int]bool
	visible map[int]bool

	offset int
	height int
	closed bool
}

func NewScrollObserver(opts ObserverOptions, handler VisibilityHandler, offset, height int) *ScrollObserver {
	return &ScrollObserver{
		opts:    opts.withDefaults(),
		handler: handler,
		anchors: make(map[int]Anchor),
		above:   make(map[int]bool),
		visible: make(map[int]bool),
		offset:  offset,
		height:  height,
	}
}

// Observe starts watching a. Like a browser observer it reports the
// initial state right away.
func (s *ScrollObserver) Observe(a Anchor) {
	if s.closed {
		return
	}
	s.anchors[a.Index] = a
	e := s.entry(a)
	s.above[a.Index] = e.Intersecting && e.Ratio >= s.opts.Threshold
	s.visible[a.Index] = e.Intersecting
	s.emit([]VisibilityEntry{e})
}

func (s *ScrollObserver) Unobserve(a Anchor) {
	delete(s.anchors, a.Index)
	delete(s.above, a.Index)
	delete(s.visible, a.Index)
}

func (s *ScrollObserver) Disconnect() {
	s.closed = true
	s.anchors = make(map[int]Anchor)
	s.above = make(map[int]bool)
	s.visible = make(map[int]bool)
}

// Scroll moves the surface and reports anchors that crossed the threshold
// or changed intersection, in layout order.
func (s *ScrollObserver) Scroll(offset, height int) {
	s.offset, s.height = offset, height
	if s.closed {
		return
	}

	var changed []VisibilityEntry
	for _, a := range s.anchors {
		e := s.entry(a)
		above := e.Intersecting && e.Ratio >= s.opts.Threshold
		if above != s.above[a.Index] || e.Intersecting != s.visible[a.Index] {
			s.above[a.Index] = above
			s.visible[a.Index] = e.Intersecting
			changed = append(changed, e)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Index < changed[j].Index })
	s.emit(changed)
}

func (s *ScrollObserver) entry(a Anchor) VisibilityEntry {
	cut := int(float64(s.height) * s.opts.Margin)
	bandTop := s.offset + cut
	bandBottom := s.offset + s.height - cut
	if bandBottom <= bandTop {
		bandBottom = bandTop + 1
	}

	top := max(a.Top, bandTop)
	bottom := min(a.Top+a.Height, bandBottom)
	overlap := bottom - top
	if overlap <= 0 || a.Height <= 0 {
		return VisibilityEntry{Index: a.Index}
	}
	base := min(a.Height, bandBottom-bandTop)
	return VisibilityEntry{
		Index:        a.Index,
		Ratio:        float64(overlap) / float64(base),
		Intersecting: true,
	}
}

func (s *ScrollObserver) emit(entries []VisibilityEntry) {
	if len(entries) > 0 && s.handler != nil {
		s.handler(entries)
	}
}

// ScrollSurface hands out ScrollObservers bound to one scrolled view and
// forwards scroll positions to the live one.
type ScrollSurface struct {
	observer *ScrollObserver
	offset   int
	height   int
}

func (s *ScrollSurface) Factory(opts ObserverOptions, handler VisibilityHandler) Observer {
	s.observer = NewScrollObserver(opts, handler, s.offset, s.height)
	return s.observer
}

func (s *ScrollSurface) Scroll(offset, height int) {
	s.offset, s.height = offset, height
	if s.observer != nil {
		s.observer.Scroll(offset, height)
	}
}
