package loader

import (
	"context"
	"log/slog"
	"sync"
)

const (
	NoArticlesMessage = "No articles available."
	LoadErrorMessage  = "Failed to load articles. Please try again later."
)

// View receives the side effects of a load. Implementations render the
// loading indicator, append cards and surface notices.
type View interface {
	SetLoading(loading bool)
	AppendArticles(page int, articles []Article)
	ShowError(message string)
}

type Outcome string

const (
	// OutcomeSkipped means the guard rejected the call: a load was already in
	// flight or the feed is exhausted.
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLoaded    Outcome = "loaded"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "failed"
	// OutcomeDiscarded means a Reset happened while the fetch was in flight.
	OutcomeDiscarded Outcome = "discarded"
)

type State struct {
	Page    int
	Loading bool
	HasMore bool
}

// Controller owns the pagination state of one reader.
type Controller struct {
	fetcher Fetcher

	mu         sync.Mutex
	page       int
	loading    bool
	hasMore    bool
	generation uint64
}

func NewController(fetcher Fetcher) *Controller {
	return &Controller{
		fetcher: fetcher,
		page:    1,
		hasMore: true,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Page: c.page, Loading: c.loading, HasMore: c.hasMore}
}

// Reset rewinds to page 1 and re-enables loading. A fetch already in flight
// completes but its result is discarded, and LoadNext stays guarded until it
// returns.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = 1
	c.hasMore = true
	c.generation++
}

// LoadNext fetches the current page unless a fetch is outstanding or the feed
// is exhausted. Any failure halts pagination until Reset.
func (c *Controller) LoadNext(ctx context.Context, view View) Outcome {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return OutcomeSkipped
	}
	c.loading = true
	page := c.page
	generation := c.generation
	c.mu.Unlock()

	view.SetLoading(true)
	defer view.SetLoading(false)

	articles, err := c.fetcher.FetchPage(ctx, page)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if generation != c.generation {
		slog.Debug("Discarding page loaded before reset", "page", page)
		return OutcomeDiscarded
	}

	if err != nil {
		slog.Error("Error loading articles", "page", page, "error", err)
		c.hasMore = false
		view.ShowError(LoadErrorMessage)
		return OutcomeFailed
	}

	if len(articles) == 0 {
		c.hasMore = false
		if page == 1 {
			view.ShowError(NoArticlesMessage)
		}
		return OutcomeExhausted
	}

	view.AppendArticles(page, articles)
	c.page++

	return OutcomeLoaded
}
