package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/metrics"
)

// Extractor maps a movie-page URL to a Record using a locator table.
type Extractor struct {
	table   Table
	headers http.Header
	fetcher Fetcher
	retrier *Retrier
	logger  *zap.Logger
}

// NewExtractor constructs an Extractor. An empty table uses DefaultTable.
func NewExtractor(table Table, headers http.Header, fetcher Fetcher, retrier *Retrier, logger *zap.Logger) *Extractor {
	if len(table) == 0 {
		table = DefaultTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = NewRetrier(nil, logger)
	}
	return &Extractor{
		table:   table,
		headers: headers,
		fetcher: fetcher,
		retrier: retrier,
		logger:  logger,
	}
}

// Extract fetches pageURL and parses it. name is the original input line,
// used by fields with the query policy.
func (e *Extractor) Extract(ctx context.Context, name, pageURL string) (Record, Outcome, error) {
	resp, err := e.retrier.Fetch(ctx, e.fetcher, FetchRequest{URL: pageURL, Headers: e.headers}, "page")
	if err != nil {
		return Record{}, OutcomeHardFailure, fmt.Errorf("fetch movie page: %w", err)
	}
	return e.Parse(resp.Body, name, pageURL)
}

// Parse extracts a Record from an already fetched page body.
func (e *Extractor) Parse(body []byte, name, pageURL string) (Record, Outcome, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Record{}, OutcomeHardFailure, fmt.Errorf("parse movie page %s: %w", pageURL, err)
	}

	rec, substituted, err := e.table.Apply(doc, name, pageURL)
	if err != nil {
		return Record{}, OutcomeHardFailure, err
	}
	if len(substituted) == 0 {
		return rec, OutcomeSuccess, nil
	}
	for _, field := range substituted {
		metrics.ObserveFallback(field)
	}
	e.logger.Warn("fields missing; fallback values used",
		zap.String("url", pageURL),
		zap.Strings("fields", substituted),
	)
	return rec, OutcomeSoftFailure, nil
}
