package services

import (
	"github.com/kerbaras/mangas/pkg/data"
)

// Coordinator turns filter selections into list requests. Every change of
// category, status, sort or keyword releases the list and starts over from
// page 1; nothing from the previous selection is kept.
type Coordinator struct {
	list     *ListController
	filter   data.Filter
	pageSize int
	applied  bool
}

func NewCoordinator(list *ListController, pageSize int) *Coordinator {
	if pageSize <= 0 {
		pageSize = data.DefaultPageSize
	}
	return &Coordinator{list: list, pageSize: pageSize}
}

func (c *Coordinator) Filter() data.Filter {
	return c.filter
}

// Query returns the canonical first-page query of the current filter.
func (c *Coordinator) Query() data.ListQuery {
	return c.filter.Query(c.pageSize)
}

func (c *Coordinator) List() *ListController {
	return c.list
}

// Apply switches to f. Re-applying the current filter is a no-op; use
// Refresh to force a reload.
func (c *Coordinator) Apply(f data.Filter) (*ListFetch, Outcome) {
	if c.applied && f == c.filter {
		return nil, OutcomeNothingToLoad
	}
	c.filter = f
	c.applied = true
	return c.reset()
}

// Refresh reloads the current filter from page 1.
func (c *Coordinator) Refresh() (*ListFetch, Outcome) {
	c.applied = true
	return c.reset()
}

func (c *Coordinator) SelectCategory(slug string) (*ListFetch, Outcome) {
	f := c.filter
	f.Category = slug
	f.Keyword = ""
	return c.Apply(f)
}

func (c *Coordinator) SetStatus(status string) (*ListFetch, Outcome) {
	f := c.filter
	f.Status = status
	return c.Apply(f)
}

func (c *Coordinator) SetSort(sortBy, order string) (*ListFetch, Outcome) {
	f := c.filter
	f.SortBy = sortBy
	f.SortOrder = order
	return c.Apply(f)
}

func (c *Coordinator) Search(keyword string) (*ListFetch, Outcome) {
	return c.Apply(data.SearchFilter(keyword))
}

// LoadMore appends the next page of the current filter.
func (c *Coordinator) LoadMore() (*ListFetch, Outcome) {
	if !c.applied {
		return nil, OutcomeNothingToLoad
	}
	return c.list.LoadMore()
}

func (c *Coordinator) reset() (*ListFetch, Outcome) {
	c.list.Release()
	return c.list.Request(c.Query(), Reset)
}
