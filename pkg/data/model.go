package data

import "time"

// Sort fields understood by the list endpoint.
const (
	SortByViewCount = "viewCount"
	SortByUpdatedAt = "updatedAt"
	SortByRating    = "rating"
	SortByName      = "name"

	SortDesc = "desc"
	SortAsc  = "asc"
)

// Story status filter values. An empty status means "any".
const (
	StatusAny       = ""
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
)

// DefaultPageSize matches the grid size used by the site listings.
const DefaultPageSize = 18

// ListQuery identifies one page of one logical list.
type ListQuery struct {
	Category  string
	Status    string
	SortBy    string
	SortOrder string
	Keyword   string
	Page      int
	Limit     int
}

// SameList reports whether q and other address the same logical list,
// ignoring the page number. Two queries on the same list differ only by
// continuation; anything else is a reset.
func (q ListQuery) SameList(other ListQuery) bool {
	q.Page, other.Page = 0, 0
	return q == other
}

// WithPage returns a copy of q pointing at page.
func (q ListQuery) WithPage(page int) ListQuery {
	q.Page = page
	return q
}

type StorySummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Status       string     `json:"status"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	ViewCount    *int64     `json:"viewCount,omitempty"`
	Rating       float64    `json:"rating"`
	Description  string     `json:"description,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type ListResult struct {
	Items       []StorySummary
	CurrentPage int
	TotalPages  int
	TotalItems  int
	HasNextPage bool
}

// PaginationState is derived from the latest committed ListResult.
type PaginationState struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	HasNextPage bool
	PageSize    int
}

type Category struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	StoryCount *int   `json:"storyCount,omitempty"`
}

type StoryRef struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// ChapterRef points at a neighbouring chapter of the same story.
type ChapterRef struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type Chapter struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Images    []string  `json:"images"`
	ViewCount int64     `json:"viewCount"`
	LikeCount int64     `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type Navigation struct {
	Prev *ChapterRef `json:"prev,omitempty"`
	Next *ChapterRef `json:"next,omitempty"`
}

// ChapterContent is one loaded chapter. Images is ordered; index = page - 1.
type ChapterContent struct {
	Story      StoryRef   `json:"story"`
	Chapter    Chapter    `json:"chapter"`
	Navigation Navigation `json:"navigation"`
}

// PageCount returns the number of page images in the chapter.
func (c *ChapterContent) PageCount() int {
	if c == nil {
		return 0
	}
	return len(c.Chapter.Images)
}

// Filter is the user-facing selection the coordinator turns into queries.
type Filter struct {
	Category  string
	Status    string
	SortBy    string
	SortOrder string
	Keyword   string
}

// Query builds the canonical first-page query for f.
func (f Filter) Query(limit int) ListQuery {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return ListQuery{
		Category:  f.Category,
		Status:    f.Status,
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
		Keyword:   f.Keyword,
		Page:      1,
		Limit:     limit,
	}
}

func CategoryFilter(slug string) Filter {
	return Filter{Category: slug, SortBy: SortByUpdatedAt, SortOrder: SortDesc}
}

func PopularFilter() Filter {
	return Filter{SortBy: SortByViewCount, SortOrder: SortDesc}
}

func LatestFilter() Filter {
	return Filter{SortBy: SortByUpdatedAt, SortOrder: SortDesc}
}

func SearchFilter(keyword string) Filter {
	return Filter{Keyword: keyword}
}

// ReadingProgress is the last position a reader reached in a story.
type ReadingProgress struct {
	StorySlug string
	StoryName string
	Chapter   string
	Page      int
	UpdatedAt time.Time
}
