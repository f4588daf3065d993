package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/utils"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type listPayload struct {
	Stories     []data.StorySummary `json:"stories"`
	TotalHits   int                 `json:"totalHits"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
}

// Site talks to the reading site's JSON API.
type Site struct {
	api *utils.API
}

// NewSite creates a gateway for baseURL. A nil client gets a client with
// the given timeout (no timeout when zero).
func NewSite(baseURL string, client *http.Client, timeout time.Duration) *Site {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Site{api: utils.NewAPI(baseURL, client)}
}

func (s *Site) ListStories(ctx context.Context, q data.ListQuery) (data.ListResult, error) {
	const op = "list stories"

	params := url.Values{}
	setIf(params, "category", q.Category)
	setIf(params, "status", q.Status)
	setIf(params, "sortBy", q.SortBy)
	setIf(params, "sortOrder", q.SortOrder)
	setIf(params, "keyword", q.Keyword)
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp envelope[listPayload]
	if err := s.api.Get(ctx, "/lists", params, &resp); err != nil {
		return data.ListResult{}, classify(op, err)
	}
	if !resp.Success {
		return data.ListResult{}, &FetchError{Kind: KindAPI, Op: op, Message: resp.Message}
	}

	page := resp.Data.CurrentPage
	if page == 0 {
		page = q.Page
	}
	items := resp.Data.Stories
	if items == nil {
		items = []data.StorySummary{}
	}
	return data.ListResult{
		Items:       items,
		CurrentPage: page,
		TotalPages:  resp.Data.TotalPages,
		TotalItems:  resp.Data.TotalHits,
		HasNextPage: page < resp.Data.TotalPages,
	}, nil
}

func (s *Site) GetChapter(ctx context.Context, storySlug, chapter string) (data.ChapterContent, error) {
	const op = "get chapter"

	if storySlug == "" || chapter == "" {
		return data.ChapterContent{}, &FetchError{Kind: KindNotFound, Op: op, Message: "story and chapter are required"}
	}

	path := fmt.Sprintf("/chapters/%s/%s", url.PathEscape(storySlug), url.PathEscape(chapter))
	var resp envelope[data.ChapterContent]
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return data.ChapterContent{}, classify(op, err)
	}
	if !resp.Success {
		return data.ChapterContent{}, &FetchError{Kind: KindAPI, Op: op, Message: resp.Message}
	}
	if resp.Data.Chapter.Name == "" {
		return data.ChapterContent{}, &FetchError{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("chapter %s of %s not found", chapter, storySlug)}
	}
	return resp.Data, nil
}

func (s *Site) ListCategories(ctx context.Context) ([]data.Category, error) {
	const op = "list categories"

	var categories []data.Category
	if err := s.api.Get(ctx, "/categories", nil, &categories); err != nil {
		return nil, classify(op, err)
	}
	return categories, nil
}

// classify maps a transport level error onto the failure taxonomy.
func classify(op string, err error) error {
	var statusErr *utils.StatusError
	switch {
	case errors.As(err, &statusErr):
		fe := &FetchError{Kind: KindAPI, Op: op, Status: statusErr.StatusCode, Err: err}
		if statusErr.StatusCode == http.StatusNotFound {
			fe.Kind = KindNotFound
		}
		var body envelope[json.RawMessage]
		if json.Unmarshal(statusErr.Body, &body) == nil {
			fe.Message = body.Message
		}
		return fe
	case errors.Is(err, utils.ErrDecode):
		return &FetchError{Kind: KindAPI, Op: op, Err: err, Message: "The server sent a malformed response."}
	default:
		return &FetchError{Kind: KindNetwork, Op: op, Err: err}
	}
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
