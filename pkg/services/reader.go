package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

// ChapterSource is the part of the gateway the reader needs.
type ChapterSource interface {
	GetChapter(ctx context.Context, storySlug, chapter string) (data.ChapterContent, error)
}

type ReaderStatus int

const (
	ReaderIdle ReaderStatus = iota
	ReaderLoading
	ReaderReady
	ReaderFailed
)

func (s ReaderStatus) String() string {
	switch s {
	case ReaderIdle:
		return "idle"
	case ReaderLoading:
		return "loading"
	case ReaderReady:
		return "ready"
	case ReaderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Direction int

const (
	DirectionNone Direction = iota
	DirectionNext
	DirectionPrev
)

type ChapterTarget struct {
	StorySlug string
	Chapter   string
}

func (t ChapterTarget) String() string {
	return fmt.Sprintf("%s/%s", t.StorySlug, t.Chapter)
}

type ChapterFetch struct {
	gen    uint64
	target ChapterTarget
	dir    Direction
	ctx    context.Context
	source ChapterSource
}

func (f *ChapterFetch) Target() ChapterTarget { return f.target }

func (f *ChapterFetch) Do() ChapterResponse {
	content, err := f.source.GetChapter(f.ctx, f.target.StorySlug, f.target.Chapter)
	return ChapterResponse{gen: f.gen, target: f.target, dir: f.dir, Content: content, Err: err}
}

type ChapterResponse struct {
	gen     uint64
	target  ChapterTarget
	dir     Direction
	Content data.ChapterContent
	Err     error
}

// ReaderSnapshot is the published reader state. Content must be treated as
// read-only.
type ReaderSnapshot struct {
	Status            ReaderStatus
	Target            ChapterTarget
	Content           *data.ChapterContent
	Loading           bool
	Err               error
	CurrentImageIndex int
}

type readyState struct {
	target  ChapterTarget
	content *data.ChapterContent
	current int
}

// Reader is the chapter state machine: Idle -> Loading -> Ready | Failed.
// Like ListController it must be driven from a single event loop.
type Reader struct {
	source ChapterSource
	logger *slog.Logger

	gen    uint64
	cancel context.CancelFunc

	status  ReaderStatus
	target  ChapterTarget
	dir     Direction
	content *data.ChapterContent
	err     error
	current int

	// content the OnContentChange listener last saw; it outlives content
	// while a chapter navigation is loading
	scoped *data.ChapterContent

	// last Ready state, restored when a navigation link turns out dead
	previous *readyState

	onContent func(*data.ChapterContent)
}

func NewReader(source ChapterSource, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = discardLogger()
	}
	return &Reader{source: source, logger: logger.With("component", "reader")}
}

// OnContentChange registers fn to be called whenever the held chapter
// content is replaced (nil when it is dropped).
func (r *Reader) OnContentChange(fn func(*data.ChapterContent)) {
	r.onContent = fn
}

// Open starts loading target, overriding whatever the reader was doing.
func (r *Reader) Open(target ChapterTarget) *ChapterFetch {
	r.previous = nil
	return r.begin(target, DirectionNone)
}

// GoNext follows navigation.next. It is a no-op unless the reader is
// Ready and the chapter has a next link.
func (r *Reader) GoNext() *ChapterFetch {
	return r.navigate(DirectionNext)
}

func (r *Reader) GoPrev() *ChapterFetch {
	return r.navigate(DirectionPrev)
}

// Retry re-issues the failed request. It is a no-op unless the failure is
// retryable; a missing chapter stays Failed.
func (r *Reader) Retry() *ChapterFetch {
	if !r.Retryable() {
		return nil
	}
	return r.begin(r.target, r.dir)
}

// Hydrate accepts content obtained out of band straight into Ready
// without a request.
func (r *Reader) Hydrate(target ChapterTarget, content data.ChapterContent) {
	r.supersede()
	r.previous = nil
	r.status = ReaderReady
	r.target = target
	r.dir = DirectionNone
	r.err = nil
	r.current = 0
	r.setContent(&content)
	r.logger.Debug("chapter hydrated", "target", target.String())
}

// Commit applies resp if it answers the latest request and reports whether
// it did.
func (r *Reader) Commit(resp ChapterResponse) bool {
	if resp.gen != r.gen {
		r.logger.Debug("chapter response discarded", "target", resp.target.String(), "gen", resp.gen, "current", r.gen)
		return false
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if resp.Err == nil {
		content := resp.Content
		if content.Story.Slug == "" {
			content.Story.Slug = resp.target.StorySlug
		}
		r.previous = nil
		r.status = ReaderReady
		r.err = nil
		r.current = 0
		r.setContent(&content)
		return true
	}

	if sources.IsNotFound(resp.Err) && resp.dir != DirectionNone && r.previous != nil {
		r.restoreWithoutLink(resp.dir)
		r.logger.Info("navigation target missing, link disabled", "target", resp.target.String())
		return true
	}

	r.previous = nil
	r.status = ReaderFailed
	r.err = resp.Err
	r.setContent(nil)
	r.logger.Warn("chapter load failed", "target", resp.target.String(), "error", resp.Err)
	return true
}

// Load runs a fetch to completion on the calling goroutine. A nil fetch is
// a no-op.
func (r *Reader) Load(ctx context.Context, fetch *ChapterFetch) error {
	if fetch == nil {
		return nil
	}
	defer cancelWith(ctx, r.cancel)()

	r.Commit(fetch.Do())
	return r.err
}

// SetCurrentImageIndex records the page being read. It is the setter the
// viewport tracker reports to; the reader never derives it itself.
func (r *Reader) SetCurrentImageIndex(index int) {
	if r.status != ReaderReady || index < 0 || index >= r.content.PageCount() {
		return
	}
	r.current = index
}

func (r *Reader) Snapshot() ReaderSnapshot {
	return ReaderSnapshot{
		Status:            r.status,
		Target:            r.target,
		Content:           r.content,
		Loading:           r.status == ReaderLoading,
		Err:               r.err,
		CurrentImageIndex: r.current,
	}
}

// Retryable reports whether the current failure may succeed on Retry.
func (r *Reader) Retryable() bool {
	return r.status == ReaderFailed && sources.IsRetryable(r.err)
}

// HasNext reports whether GoNext would issue a request.
func (r *Reader) HasNext() bool {
	return r.status == ReaderReady && r.content.Navigation.Next != nil
}

func (r *Reader) HasPrev() bool {
	return r.status == ReaderReady && r.content.Navigation.Prev != nil
}

// NeighbourTarget returns the target of the link in dir, if any.
func (r *Reader) NeighbourTarget(dir Direction) (ChapterTarget, bool) {
	if r.status != ReaderReady {
		return ChapterTarget{}, false
	}
	ref := r.link(dir)
	if ref == nil {
		return ChapterTarget{}, false
	}
	return ChapterTarget{StorySlug: r.target.StorySlug, Chapter: ref.Name}, true
}

// Close invalidates in-flight requests and drops all state.
func (r *Reader) Close() {
	r.supersede()
	r.previous = nil
	r.status = ReaderIdle
	r.target = ChapterTarget{}
	r.err = nil
	r.current = 0
	r.setContent(nil)
}

func (r *Reader) navigate(dir Direction) *ChapterFetch {
	target, ok := r.NeighbourTarget(dir)
	if !ok {
		return nil
	}
	r.previous = &readyState{target: r.target, content: r.content, current: r.current}
	return r.begin(target, dir)
}

func (r *Reader) begin(target ChapterTarget, dir Direction) *ChapterFetch {
	r.supersede()
	r.status = ReaderLoading
	r.target = target
	r.dir = dir
	r.err = nil
	r.current = 0
	if dir == DirectionNone {
		r.setContent(nil)
	} else {
		// the listener keeps the current chapter until the neighbour commits
		r.content = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.logger.Debug("chapter request issued", "target", target.String(), "gen", r.gen)
	return &ChapterFetch{gen: r.gen, target: target, dir: dir, ctx: ctx, source: r.source}
}

func (r *Reader) restoreWithoutLink(dir Direction) {
	prev := r.previous
	r.previous = nil

	content := *prev.content
	if dir == DirectionNext {
		content.Navigation.Next = nil
	} else {
		content.Navigation.Prev = nil
	}

	r.status = ReaderReady
	r.target = prev.target
	r.dir = DirectionNone
	r.err = nil
	r.current = prev.current
	r.content = &content
	r.scoped = r.content
}

func (r *Reader) link(dir Direction) *data.ChapterRef {
	switch dir {
	case DirectionNext:
		return r.content.Navigation.Next
	case DirectionPrev:
		return r.content.Navigation.Prev
	}
	return nil
}

func (r *Reader) setContent(content *data.ChapterContent) {
	r.content = content
	if content == r.scoped {
		return
	}
	r.scoped = content
	if r.onContent != nil {
		r.onContent(content)
	}
}

func (r *Reader) supersede() {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
