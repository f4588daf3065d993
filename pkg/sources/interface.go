package sources

import (
	"context"

	"github.com/kerbaras/mangas/pkg/data"
)

// Source is the gateway to the reading site's JSON API. Implementations
// return typed results or a *FetchError and never retry on their own.
type Source interface {
	ListStories(ctx context.Context, query data.ListQuery) (data.ListResult, error)
	GetChapter(ctx context.Context, storySlug, chapter string) (data.ChapterContent, error)
	ListCategories(ctx context.Context) ([]data.Category, error)
}
