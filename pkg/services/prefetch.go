package services

import (
	"context"

	"github.com/kerbaras/mangas/pkg/data"
)

// PrefetchDistance is how close to the last page the reader must be before
// the next chapter is fetched ahead.
const PrefetchDistance = 3

type PrefetchFetch struct {
	gen    uint64
	target ChapterTarget
	ctx    context.Context
	source ChapterSource
}

func (f *PrefetchFetch) Target() ChapterTarget { return f.target }

func (f *PrefetchFetch) Do() PrefetchResponse {
	content, err := f.source.GetChapter(f.ctx, f.target.StorySlug, f.target.Chapter)
	return PrefetchResponse{gen: f.gen, target: f.target, Content: content, Err: err}
}

type PrefetchResponse struct {
	gen     uint64
	target  ChapterTarget
	Content data.ChapterContent
	Err     error
}

// Prefetcher holds at most one chapter fetched ahead of navigation.
// Failures are dropped; the normal navigation path reports them.
type Prefetcher struct {
	source ChapterSource

	gen     uint64
	cancel  context.CancelFunc
	pending *ChapterTarget

	target  ChapterTarget
	content *data.ChapterContent
}

func NewPrefetcher(source ChapterSource) *Prefetcher {
	return &Prefetcher{source: source}
}

// Request starts fetching target unless it is already held or pending.
func (p *Prefetcher) Request(target ChapterTarget) *PrefetchFetch {
	if p.Holds(target) || (p.pending != nil && *p.pending == target) {
		return nil
	}
	p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.pending = &target
	return &PrefetchFetch{gen: p.gen, target: target, ctx: ctx, source: p.source}
}

// Store keeps a successful response of the latest request.
func (p *Prefetcher) Store(resp PrefetchResponse) bool {
	if resp.gen != p.gen || p.pending == nil {
		return false
	}
	p.pending = nil
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if resp.Err != nil {
		return false
	}
	content := resp.Content
	if content.Story.Slug == "" {
		content.Story.Slug = resp.target.StorySlug
	}
	p.target = resp.target
	p.content = &content
	return true
}

func (p *Prefetcher) Holds(target ChapterTarget) bool {
	return p.content != nil && p.target == target
}

// Take hands over the held chapter if it is target.
func (p *Prefetcher) Take(target ChapterTarget) (data.ChapterContent, bool) {
	if !p.Holds(target) {
		return data.ChapterContent{}, false
	}
	content := *p.content
	p.content = nil
	p.target = ChapterTarget{}
	return content, true
}

// Release drops the held chapter and invalidates a pending request.
func (p *Prefetcher) Release() {
	p.gen++
	p.pending = nil
	p.content = nil
	p.target = ChapterTarget{}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
