package scraper

import (
	"context"
	"errors"
	"sync"
	"time"
)

const searchPage = `<html><body>
<table class="findList">
  <tr><td><a href="/title/tt0133093/">The Matrix</a></td></tr>
  <tr><td><a href="/title/tt0234215/">The Matrix Reloaded</a></td></tr>
</table>
</body></html>`

const emptySearchPage = `<html><body><div class="findNoResults">No results found</div></body></html>`

const matrixPage = `<html><body>
<h1 data-testid="hero-title-block__title">The Matrix</h1>
<span class="AggregateRatingButton__RatingScore-sc-1ll29m0-1 iTLWoV">8.7</span>
<div data-testid="genres">
  <a><span class="ipc-chip__text">Action</span></a>
  <a><span class="ipc-chip__text">Sci-Fi</span></a>
</div>
<span class="ipc-chip__text">Outside</span>
<span class="GenresAndPlot__TextContainerBreakpointXS_TO_M-cum89p-0 dcFkRD">When a beautiful stranger leads computer hacker Neo to a forbidding underworld...</span>
</body></html>`

const barePage = `<html><body>
<span class="GenresAndPlot__TextContainerBreakpointXS_TO_M-cum89p-0 dcFkRD">A blurb.</span>
</body></html>`

const noBlurbPage = `<html><body>
<h1 data-testid="hero-title-block__title">Untitled</h1>
</body></html>`

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string][]error
	calls   map[string]int
	visited []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: map[string]string{},
		errs:  map[string][]error{},
		calls: map[string]int{},
	}
}

func (f *stubFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, req.URL)
	n := f.calls[req.URL]
	f.calls[req.URL] = n + 1
	if errs := f.errs[req.URL]; n < len(errs) && errs[n] != nil {
		return FetchResponse{}, errs[n]
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return FetchResponse{}, &HTTPStatusError{URL: req.URL, StatusCode: 404, Err: errors.New("Not Found")}
	}
	return FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
}

func noSleepRetrier(policy RetryPolicy) *Retrier {
	r := NewRetrier(policy, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}
