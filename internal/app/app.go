// Package app wires configuration into the long-lived services of a scrape
// run, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/clock/system"
	"github.com/JakeFAU/movie-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/movie-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/movie-scraper/internal/fetcher/headless"
	"github.com/JakeFAU/movie-scraper/internal/fetcher/promote"
	"github.com/JakeFAU/movie-scraper/internal/headless/detector"
	"github.com/JakeFAU/movie-scraper/internal/id/uuid"
	"github.com/JakeFAU/movie-scraper/internal/pipeline"
	"github.com/JakeFAU/movie-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

// App holds the services built for one CLI invocation.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	driver   *pipeline.Driver
	headless *headless.Fetcher
}

// New builds every service from cfg. It fails fast when a component cannot be
// initialized.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mode, err := pipeline.ParseErrorMode(cfg.Pipeline.OnError)
	if err != nil {
		return nil, fmt.Errorf("pipeline mode: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	fetcher, err := a.buildFetcher()
	if err != nil {
		return nil, err
	}

	initial, maxDelay := cfg.Backoff()
	policy := scraper.NewExponentialRetryPolicy(cfg.MaxAttempts(), initial, maxDelay)
	retrier := scraper.NewRetrier(policy, logger.Named("retry"))

	resolver := scraper.NewResolver(cfg.ResolverConfig(), fetcher, retrier, logger.Named("resolver"))
	extractor := scraper.NewExtractor(cfg.Fields, cfg.RequestHeaders(), fetcher, retrier, logger.Named("extractor"))

	a.driver = pipeline.New(
		pipeline.Config{OnError: mode},
		resolver,
		extractor,
		system.New(),
		uuid.New(),
		logger.Named("pipeline"),
	)

	logger.Debug("services initialized",
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.String("on_error", string(mode)),
		zap.Int("max_attempts", cfg.MaxAttempts()),
	)
	return a, nil
}

// buildFetcher layers the colly probe, optional headless promotion and the
// per-host rate limiter.
func (a *App) buildFetcher() (scraper.Fetcher, error) {
	cfg := a.cfg
	var fetcher scraper.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.RequestTimeout(),
	})

	if cfg.Headless.Enabled {
		hf, err := headless.NewChromedp(headless.Config{
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			WaitSelector:      cfg.Headless.WaitSelector,
			SettleDelay:       time.Duration(cfg.Headless.SettleMs) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.headless = hf

		if cfg.Headless.Always {
			fetcher = hf
		} else {
			det := detector.NewHeuristic(cfg.Headless.PromotionThresh, cfg.Headless.Markers)
			fetcher = promote.New(fetcher, hf, det, a.logger.Named("fetcher"))
		}
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.HTTP.RequestsPerSec,
		Burst:             cfg.HTTP.Burst,
	})
	return ratelimit.Wrap(limiter, fetcher), nil
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the services were built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Run processes the configured input file into the configured output file.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	return a.driver.RunFiles(ctx, a.cfg.Input.Path, a.cfg.Output.Path)
}

// Close releases the headless browser, if any, and flushes the logger.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	//nolint:errcheck // Sync on stderr fails harmlessly on some platforms.
	a.logger.Sync()
}
