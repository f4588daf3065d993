package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangas/pkg/data"
)

func TestCoordinator_ApplyIssuesCanonicalQuery(t *testing.T) {
	lister := paged(3)
	c := NewCoordinator(NewListController("browse", lister, nil), 0)

	fetch, outcome := c.Apply(data.PopularFilter())
	require.Equal(t, OutcomeStarted, outcome)

	q := fetch.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, data.DefaultPageSize, q.Limit)
	assert.Equal(t, data.SortByViewCount, q.SortBy)
	assert.Equal(t, data.SortDesc, q.SortOrder)
	assert.Equal(t, Reset, fetch.Mode())
}

func TestCoordinator_UnchangedFilterIsNoop(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(3), nil), 12)

	fetch, _ := c.Apply(data.LatestFilter())
	require.True(t, c.List().Commit(fetch.Do()))

	again, outcome := c.Apply(data.LatestFilter())
	assert.Nil(t, again)
	assert.Equal(t, OutcomeNothingToLoad, outcome)
	assert.Len(t, c.List().State().Items, 12)

	refresh, outcome := c.Refresh()
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, 1, refresh.Query().Page)
}

func TestCoordinator_FilterChangeStartsOver(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(5), nil), 0)

	fetch, _ := c.SelectCategory("action")
	require.True(t, c.List().Commit(fetch.Do()))
	more, _ := c.LoadMore()
	require.True(t, c.List().Commit(more.Do()))
	require.Len(t, c.List().State().Items, 36)

	fetch, outcome := c.SetStatus(data.StatusCompleted)
	require.Equal(t, OutcomeStarted, outcome)
	assert.Empty(t, c.List().State().Items)
	assert.Equal(t, 1, fetch.Query().Page)
	assert.Equal(t, "action", fetch.Query().Category)
	assert.Equal(t, data.StatusCompleted, fetch.Query().Status)

	require.True(t, c.List().Commit(fetch.Do()))
	assert.Len(t, c.List().State().Items, 18)
	assert.Equal(t, 1, c.List().State().Pagination.CurrentPage)
}

// Selecting A then B quickly must end on B regardless of response order.
func TestCoordinator_RapidCategorySwitch(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(2), nil), 0)

	a, _ := c.SelectCategory("a")
	b, _ := c.SelectCategory("b")

	respB := b.Do()
	respA := a.Do()
	assert.True(t, c.List().Commit(respB))
	assert.False(t, c.List().Commit(respA))

	state := c.List().State()
	assert.Equal(t, "b", state.Query.Category)
	for _, item := range state.Items {
		assert.Contains(t, item.Slug, "b-p1")
	}
}

func TestCoordinator_SearchAndSort(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(2), nil), 0)

	fetch, _ := c.Search("hero")
	assert.Equal(t, "hero", fetch.Query().Keyword)
	assert.Equal(t, "", fetch.Query().Category)

	fetch, _ = c.SetSort(data.SortByRating, data.SortAsc)
	assert.Equal(t, "hero", fetch.Query().Keyword)
	assert.Equal(t, data.SortByRating, fetch.Query().SortBy)
	assert.Equal(t, data.SortAsc, fetch.Query().SortOrder)

	fetch, _ = c.SelectCategory("drama")
	assert.Equal(t, "", fetch.Query().Keyword)
	assert.Equal(t, "drama", c.Filter().Category)
}

func TestCoordinator_LoadMoreBeforeApply(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(2), nil), 0)

	fetch, outcome := c.LoadMore()
	assert.Nil(t, fetch)
	assert.Equal(t, OutcomeNothingToLoad, outcome)
}

func TestCoordinator_StatusChangeDropsInflightReset(t *testing.T) {
	c := NewCoordinator(NewListController("browse", paged(2), nil), 0)

	ongoing, _ := c.SetStatus(data.StatusOngoing)
	completed, _ := c.SetStatus(data.StatusCompleted)

	assert.True(t, c.List().Commit(completed.Do()))
	assert.False(t, c.List().Commit(ongoing.Do()))

	state := c.List().State()
	assert.Equal(t, data.StatusCompleted, state.Query.Status)
	assert.Len(t, state.Items, 18)
	assert.False(t, state.Loading)
}
