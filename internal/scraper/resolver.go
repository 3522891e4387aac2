package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ResolverConfig locates the search endpoint and its results listing.
type ResolverConfig struct {
	// BaseURL is joined with the first result href to form the movie URL.
	BaseURL string
	// SearchURL receives the movie name in the QueryParam parameter.
	SearchURL       string
	QueryParam      string
	ResultsSelector string
	LinkSelector    string
	Headers         http.Header
}

// Resolver maps a free-text movie name to a canonical movie-page URL.
type Resolver struct {
	cfg     ResolverConfig
	fetcher Fetcher
	retrier *Retrier
	logger  *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig, fetcher Fetcher, retrier *Retrier, logger *zap.Logger) *Resolver {
	if cfg.QueryParam == "" {
		cfg.QueryParam = "q"
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = "a"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = NewRetrier(nil, logger)
	}
	return &Resolver{
		cfg:     cfg,
		fetcher: fetcher,
		retrier: retrier,
		logger:  logger,
	}
}

// SearchURL embeds name, untrimmed, into the search endpoint URL.
func (r *Resolver) SearchURL(name string) (string, error) {
	u, err := url.Parse(r.cfg.SearchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	q := u.Query()
	q.Set(r.cfg.QueryParam, name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resolve searches for name and returns the absolute URL of the first result.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	searchURL, err := r.SearchURL(name)
	if err != nil {
		return "", err
	}
	resp, err := r.retrier.Fetch(ctx, r.fetcher, FetchRequest{URL: searchURL, Headers: r.cfg.Headers}, "search")
	if err != nil {
		return "", fmt.Errorf("search %q: %w", name, err)
	}

	href, err := FirstResult(resp.Body, r.cfg.ResultsSelector, r.cfg.LinkSelector)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.Query = name
		}
		return "", err
	}

	pageURL, err := joinURL(r.cfg.BaseURL, href)
	if err != nil {
		return "", fmt.Errorf("resolve result link %q: %w", href, err)
	}
	r.logger.Debug("resolved movie", zap.String("name", strings.TrimSpace(name)), zap.String("url", pageURL))
	return pageURL, nil
}

// FirstResult returns the href of the first link inside the results listing.
func FirstResult(body []byte, resultsSelector, linkSelector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse search page: %w", err)
	}
	results := doc.Find(resultsSelector).First()
	if results.Length() == 0 {
		return "", &NotFoundError{Locator: resultsSelector}
	}
	href, ok := results.Find(linkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", &NotFoundError{Locator: resultsSelector + " " + linkSelector}
	}
	return href, nil
}

func joinURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}
