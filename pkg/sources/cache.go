package sources

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kerbaras/mangas/pkg/data"
)

const categoriesKey = "categories"

// CachedSource caches the category catalogue of an underlying Source.
// Story lists and chapters always pass through uncached.
type CachedSource struct {
	Source
	categories *expirable.LRU[string, []data.Category]
}

func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		Source:     src,
		categories: expirable.NewLRU[string, []data.Category](1, nil, ttl),
	}
}

func (c *CachedSource) ListCategories(ctx context.Context) ([]data.Category, error) {
	if cached, ok := c.categories.Get(categoriesKey); ok {
		return cached, nil
	}
	categories, err := c.Source.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.categories.Add(categoriesKey, categories)
	return categories, nil
}

// Invalidate drops the cached catalogue.
func (c *CachedSource) Invalidate() {
	c.categories.Purge()
}
