package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
)

// errStale marks a response issued for a superseded generation. It never
// leaves this package.
var errStale = errors.New("stale result")

// ListSource is the part of the gateway a list needs.
type ListSource interface {
	ListStories(ctx context.Context, query data.ListQuery) (data.ListResult, error)
}

type Mode int

const (
	// Reset replaces all held items with the first response.
	Reset Mode = iota
	// Append extends held items with the next page.
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}
	return "reset"
}

type Outcome int

const (
	// OutcomeStarted means a fetch was issued and must be run and committed.
	OutcomeStarted Outcome = iota
	// OutcomeNothingToLoad means the request was a no-op.
	OutcomeNothingToLoad
	// OutcomeBusy means an append was refused because a fetch is in flight.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeNothingToLoad:
		return "nothing to load"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ListState is the published state of one list. Items is a copy.
type ListState struct {
	Query      data.ListQuery
	Items      []data.StorySummary
	Loading    bool
	Err        error
	Pagination data.PaginationState
}

// ListFetch is one issued list request. Do performs the network call and
// may run on any goroutine; its response goes back through Commit.
type ListFetch struct {
	gen    uint64
	mode   Mode
	query  data.ListQuery
	ctx    context.Context
	source ListSource
}

func (f *ListFetch) Query() data.ListQuery { return f.query }
func (f *ListFetch) Mode() Mode            { return f.mode }

func (f *ListFetch) Do() ListResponse {
	result, err := f.source.ListStories(f.ctx, f.query)
	return ListResponse{gen: f.gen, mode: f.mode, query: f.query, Result: result, Err: err}
}

type ListResponse struct {
	gen    uint64
	mode   Mode
	query  data.ListQuery
	Result data.ListResult
	Err    error
}

// ListController is the paginated list state machine for one logical list
// (a category, popular, latest or a search). It is not safe for concurrent
// use: Request, Commit and the other methods must be called from the
// owner's event loop. Only ListFetch.Do may run elsewhere.
type ListController struct {
	name   string
	source ListSource
	logger *slog.Logger

	gen      uint64
	inflight bool
	cancel   context.CancelFunc

	query      data.ListQuery
	items      []data.StorySummary
	loading    bool
	err        error
	pagination data.PaginationState
}

func NewListController(name string, source ListSource, logger *slog.Logger) *ListController {
	if logger == nil {
		logger = discardLogger()
	}
	return &ListController{
		name:   name,
		source: source,
		logger: logger.With("list", name),
	}
}

// Request issues a fetch for query. A Reset supersedes every in-flight
// request of this list. An Append must target the page right after the
// committed one of the same list and requires a next page.
func (c *ListController) Request(query data.ListQuery, mode Mode) (*ListFetch, Outcome) {
	switch mode {
	case Append:
		if c.inflight {
			return nil, OutcomeBusy
		}
		if !c.pagination.HasNextPage ||
			query.Page != c.pagination.CurrentPage+1 ||
			!query.SameList(c.query) {
			return nil, OutcomeNothingToLoad
		}
	default:
		c.items = nil
		c.pagination = data.PaginationState{PageSize: query.Limit}
	}

	c.supersede()
	if mode == Reset {
		c.query = query
	}
	c.loading = true
	c.err = nil
	c.inflight = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.logger.Debug("list request issued", "mode", mode, "page", query.Page, "gen", c.gen)
	return &ListFetch{gen: c.gen, mode: mode, query: query, ctx: ctx, source: c.source}, OutcomeStarted
}

// LoadMore requests the page after the committed one.
func (c *ListController) LoadMore() (*ListFetch, Outcome) {
	return c.Request(c.query.WithPage(c.pagination.CurrentPage+1), Append)
}

// Commit applies resp if it belongs to the current generation and reports
// whether it did. Superseded responses are dropped silently.
func (c *ListController) Commit(resp ListResponse) bool {
	if err := c.checkGeneration(resp.gen); err != nil {
		c.logger.Debug("list response discarded", "gen", resp.gen, "current", c.gen, "page", resp.query.Page)
		return false
	}

	c.inflight = false
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if resp.Err != nil {
		c.err = resp.Err
		if resp.mode == Reset {
			c.items = nil
			c.pagination = data.PaginationState{PageSize: resp.query.Limit}
		}
		c.logger.Warn("list request failed", "mode", resp.mode, "page", resp.query.Page, "error", resp.Err)
		return true
	}

	c.err = nil
	c.query = resp.query
	if resp.mode == Reset {
		c.items = append([]data.StorySummary(nil), resp.Result.Items...)
	} else {
		c.items = append(c.items, resp.Result.Items...)
	}
	c.pagination = data.PaginationState{
		CurrentPage: resp.Result.CurrentPage,
		TotalPages:  resp.Result.TotalPages,
		TotalItems:  resp.Result.TotalItems,
		HasNextPage: resp.Result.HasNextPage,
		PageSize:    resp.query.Limit,
	}
	return true
}

// Load runs a request to completion on the calling goroutine.
func (c *ListController) Load(ctx context.Context, query data.ListQuery, mode Mode) (Outcome, error) {
	fetch, outcome := c.Request(query, mode)
	if fetch == nil {
		return outcome, nil
	}
	defer cancelWith(ctx, c.cancel)()

	c.Commit(fetch.Do())
	if c.err != nil {
		return outcome, fmt.Errorf("list %s: %w", c.name, c.err)
	}
	return outcome, nil
}

// Release drops all state and invalidates every in-flight request.
func (c *ListController) Release() {
	c.supersede()
	c.query = data.ListQuery{}
	c.items = nil
	c.loading = false
	c.err = nil
	c.pagination = data.PaginationState{}
}

func (c *ListController) State() ListState {
	return ListState{
		Query:      c.query,
		Items:      append([]data.StorySummary(nil), c.items...),
		Loading:    c.loading,
		Err:        c.err,
		Pagination: c.pagination,
	}
}

// ErrorMessage returns the display text of the current error.
func (c *ListController) ErrorMessage() string {
	return sources.Message(c.err)
}

func (c *ListController) supersede() {
	c.gen++
	c.inflight = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *ListController) checkGeneration(gen uint64) error {
	if gen != c.gen {
		return errStale
	}
	return nil
}
