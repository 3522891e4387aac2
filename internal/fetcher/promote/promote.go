// Package promote chains a cheap probe fetch with an optional headless re-fetch.
package promote

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/metrics"
	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

// Fetcher probes with one fetcher and promotes to a headless one when the
// detector says the probe is a client-rendered shell.
type Fetcher struct {
	probe    scraper.Fetcher
	headless scraper.Fetcher
	detector scraper.HeadlessDetector
	logger   *zap.Logger
}

// New builds a promoting Fetcher. headless or detector may be nil, in which
// case every request is served by the probe alone.
func New(probe, headless scraper.Fetcher, detector scraper.HeadlessDetector, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		probe:    probe,
		headless: headless,
		detector: detector,
		logger:   logger,
	}
}

// Fetch implements scraper.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	if request.UseHeadless && f.headless != nil {
		return f.fetchHeadless(ctx, request)
	}

	resp, err := f.probe.Fetch(ctx, request)
	if err != nil {
		return scraper.FetchResponse{}, fmt.Errorf("probe fetch: %w", err)
	}
	if f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(resp) {
		return resp, nil
	}

	rendered, err := f.fetchHeadless(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return scraper.FetchResponse{}, err
		}
		metrics.ObservePromotion("failed")
		f.logger.Warn("headless promotion failed; using probe response",
			zap.String("url", request.URL),
			zap.Error(err),
		)
		return resp, nil
	}
	metrics.ObservePromotion("ok")
	return rendered, nil
}

func (f *Fetcher) fetchHeadless(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	request.UseHeadless = true
	resp, err := f.headless.Fetch(ctx, request)
	if err != nil {
		return scraper.FetchResponse{}, fmt.Errorf("headless fetch: %w", err)
	}
	resp.UsedHeadless = true
	return resp, nil
}
