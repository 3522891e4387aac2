package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imdbResolverConfig() ResolverConfig {
	return ResolverConfig{
		BaseURL:         "http://www.imdb.com",
		SearchURL:       "http://www.imdb.com/find",
		ResultsSelector: "table.findList",
	}
}

func TestResolverSearchURLKeepsRawName(t *testing.T) {
	t.Parallel()

	r := NewResolver(imdbResolverConfig(), newStubFetcher(), nil, nil)
	got, err := r.SearchURL("The Matrix\n")
	require.NoError(t, err)
	assert.Equal(t, "http://www.imdb.com/find?q=The+Matrix%0A", got)
}

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages["http://www.imdb.com/find?q=The+Matrix%0A"] = searchPage
	r := NewResolver(imdbResolverConfig(), fetcher, nil, nil)

	got, err := r.Resolve(context.Background(), "The Matrix\n")
	require.NoError(t, err)
	assert.Equal(t, "http://www.imdb.com/title/tt0133093/", got)
}

func TestResolverNotFound(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages["http://www.imdb.com/find?q=zzzz"] = emptySearchPage
	r := NewResolver(imdbResolverConfig(), fetcher, noSleepRetrier(NewExponentialRetryPolicy(3, 0, 0)), nil)

	_, err := r.Resolve(context.Background(), "zzzz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "zzzz", nf.Query)
	assert.Equal(t, 1, fetcher.calls["http://www.imdb.com/find?q=zzzz"], "not-found must not be retried")
}

func TestFirstResultMissingLink(t *testing.T) {
	t.Parallel()

	_, err := FirstResult([]byte(`<table class="findList"><tr><td>none</td></tr></table>`), "table.findList", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolverRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	u := "http://www.imdb.com/find?q=Heat"
	fetcher.pages[u] = searchPage
	fetcher.errs[u] = []error{
		&HTTPStatusError{URL: u, StatusCode: 503},
		&HTTPStatusError{URL: u, StatusCode: 429},
	}
	r := NewResolver(imdbResolverConfig(), fetcher, noSleepRetrier(NewExponentialRetryPolicy(3, 0, 0)), nil)

	got, err := r.Resolve(context.Background(), "Heat")
	require.NoError(t, err)
	assert.Equal(t, "http://www.imdb.com/title/tt0133093/", got)
	assert.Equal(t, 3, fetcher.calls[u])
}

func TestResolverGivesUpOnClientError(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	r := NewResolver(imdbResolverConfig(), fetcher, noSleepRetrier(NewExponentialRetryPolicy(5, 0, 0)), nil)

	_, err := r.Resolve(context.Background(), "Missing")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.StatusCode)
	assert.Equal(t, 1, fetcher.calls["http://www.imdb.com/find?q=Missing"])
}
