package services

import (
	"fmt"
	"log/slog"

	"github.com/kerbaras/mangas/pkg/sources"
)

// EagerImages is how many leading images of a sequence load immediately.
// The rest wait until the rendering layer sees them near the viewport.
const EagerImages = 3

type ImageStatus int

const (
	ImagePending ImageStatus = iota
	ImageLoaded
	ImageFailed
)

func (s ImageStatus) String() string {
	switch s {
	case ImagePending:
		return "pending"
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type ImageLoadState struct {
	Status        ImageStatus
	UsingFallback bool
}

type ImageSpec struct {
	ID  string
	URL string
}

// PageImages turns ordered page URLs into specs identified by page index.
func PageImages(urls []string) []ImageSpec {
	specs := make([]ImageSpec, len(urls))
	for i, u := range urls {
		specs[i] = ImageSpec{ID: PageImageID(i), URL: u}
	}
	return specs
}

func PageImageID(index int) string {
	return fmt.Sprintf("page-%d", index)
}

// ImageAttempt is one load of one source URL. Results are matched back by
// seq so a load that was overtaken by a fallback swap or a retry is ignored.
type ImageAttempt struct {
	ID  string
	URL string
	seq uint64
}

type ImageResult struct {
	Attempt ImageAttempt
	Err     error
}

type ImageCounts struct {
	Total   int
	Pending int
	Loaded  int
	Failed  int
}

type imageEntry struct {
	primary       string
	fallback      string
	usingFallback bool
	status        ImageStatus
	eager         bool
	seq           uint64
}

func (e *imageEntry) source() string {
	if e.usingFallback {
		return e.fallback
	}
	return e.primary
}

// ImageTracker keeps per-image load state for one scope (a chapter or a
// list page). Each image holds a primary and a fallback slot: the first
// failure swaps to the fallback once, the second one is terminal until a
// manual Retry restores the primary.
type ImageTracker struct {
	fallback sources.FallbackFunc
	logger   *slog.Logger

	entries map[string]*imageEntry
	order   []string
	seq     uint64
}

func NewImageTracker(fallback sources.FallbackFunc, logger *slog.Logger) *ImageTracker {
	if logger == nil {
		logger = discardLogger()
	}
	return &ImageTracker{
		fallback: fallback,
		logger:   logger.With("component", "images"),
		entries:  make(map[string]*imageEntry),
	}
}

// Track replaces the tracked scope with specs and returns the attempts
// for the eager images, which should be started right away.
func (t *ImageTracker) Track(specs []ImageSpec) []ImageAttempt {
	t.Release()

	var eager []ImageAttempt
	for i, spec := range specs {
		if _, dup := t.entries[spec.ID]; dup {
			continue
		}
		e := &imageEntry{primary: spec.URL, eager: i < EagerImages}
		if t.fallback != nil {
			if fb := t.fallback(spec.URL); fb != spec.URL {
				e.fallback = fb
			}
		}
		t.entries[spec.ID] = e
		t.order = append(t.order, spec.ID)
		if e.eager {
			eager = append(eager, t.next(spec.ID, e))
		}
	}
	return eager
}

// Attempt returns the load to start for a pending image. Lazy images get
// theirs when the rendering layer decides they are close enough.
func (t *ImageTracker) Attempt(id string) (ImageAttempt, bool) {
	e, ok := t.entries[id]
	if !ok || e.status != ImagePending {
		return ImageAttempt{}, false
	}
	if e.seq == 0 {
		return t.next(id, e), true
	}
	return ImageAttempt{ID: id, URL: e.source(), seq: e.seq}, true
}

// Report records the outcome of an attempt. When a primary load fails and
// a fallback exists the returned attempt loads the fallback. committed is
// false for results of superseded attempts or released images.
func (t *ImageTracker) Report(res ImageResult) (next *ImageAttempt, committed bool) {
	id := res.Attempt.ID
	e, ok := t.entries[id]
	if !ok || e.seq != res.Attempt.seq || e.status != ImagePending {
		return nil, false
	}

	if res.Err == nil {
		e.status = ImageLoaded
		return nil, true
	}

	if !e.usingFallback && e.fallback != "" {
		e.usingFallback = true
		attempt := t.next(id, e)
		t.logger.Debug("image failed, trying fallback", "id", id, "fallback", e.fallback, "error", res.Err)
		return &attempt, true
	}

	e.status = ImageFailed
	t.logger.Debug("image failed", "id", id, "fallback", e.usingFallback, "error", res.Err)
	return nil, true
}

// Retry puts a failed image back to pending on its primary source.
func (t *ImageTracker) Retry(id string) (ImageAttempt, bool) {
	e, ok := t.entries[id]
	if !ok || e.status != ImageFailed {
		return ImageAttempt{}, false
	}
	e.status = ImagePending
	e.usingFallback = false
	return t.next(id, e), true
}

func (t *ImageTracker) State(id string) (ImageLoadState, bool) {
	e, ok := t.entries[id]
	if !ok {
		return ImageLoadState{}, false
	}
	return ImageLoadState{Status: e.status, UsingFallback: e.usingFallback}, true
}

func (t *ImageTracker) IsLoading(id string) bool {
	e, ok := t.entries[id]
	return ok && e.status == ImagePending
}

func (t *ImageTracker) HasError(id string) bool {
	e, ok := t.entries[id]
	return ok && e.status == ImageFailed
}

func (t *ImageTracker) IsEager(id string) bool {
	e, ok := t.entries[id]
	return ok && e.eager
}

// Source returns the URL currently used for id.
func (t *ImageTracker) Source(id string) string {
	if e, ok := t.entries[id]; ok {
		return e.source()
	}
	return ""
}

// IDs returns tracked ids in sequence order.
func (t *ImageTracker) IDs() []string {
	return append([]string(nil), t.order...)
}

// Counts scans the per-image states.
func (t *ImageTracker) Counts() ImageCounts {
	var c ImageCounts
	for _, e := range t.entries {
		c.Total++
		switch e.status {
		case ImagePending:
			c.Pending++
		case ImageLoaded:
			c.Loaded++
		case ImageFailed:
			c.Failed++
		}
	}
	return c
}

// Release forgets every tracked image. Results of their attempts will not
// commit.
func (t *ImageTracker) Release() {
	t.entries = make(map[string]*imageEntry)
	t.order = nil
}

func (t *ImageTracker) next(id string, e *imageEntry) ImageAttempt {
	t.seq++
	e.seq = t.seq
	return ImageAttempt{ID: id, URL: e.source(), seq: e.seq}
}
