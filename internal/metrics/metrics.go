// Package metrics exposes Prometheus collectors for scrape runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry = prometheus.NewRegistry()

	scraperLookupsTotal        *prometheus.CounterVec
	scraperFetchesTotal        *prometheus.CounterVec
	scraperFetchDuration       *prometheus.HistogramVec
	scraperRetriesTotal        *prometheus.CounterVec
	scraperFieldFallbacksTotal *prometheus.CounterVec
	scraperPromotionsTotal     *prometheus.CounterVec
	scraperRateLimitDelay      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		factory := promauto.With(registry)

		scraperLookupsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_lookups_total",
				Help: "Total number of movie names processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scraperFetchesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetches_total",
				Help: "Total number of page fetch attempts, labeled by kind, site and result.",
			},
			[]string{"kind", "site", "result"},
		)

		scraperFetchDuration = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by kind.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		)

		scraperRetriesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_retries_total",
				Help: "Total number of fetch retries, labeled by kind.",
			},
			[]string{"kind"},
		)

		scraperFieldFallbacksTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_field_fallbacks_total",
				Help: "Total number of missing fields replaced by a fallback value, labeled by field.",
			},
			[]string{"field"},
		)

		scraperPromotionsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_headless_promotions_total",
				Help: "Total number of probe responses re-fetched with headless Chrome, labeled by result.",
			},
			[]string{"result"},
		)

		scraperRateLimitDelay = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delay_seconds",
				Help:    "Histogram of politeness delays imposed before a fetch, labeled by site.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)
	})
}

// Registry returns the registry holding every scraper collector.
func Registry() *prometheus.Registry {
	Init()
	return registry
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveLookup counts one processed movie name.
func ObserveLookup(outcome string) {
	Init()
	scraperLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a single fetch attempt.
func ObserveFetch(kind, rawURL string, err error, duration time.Duration) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	scraperFetchesTotal.WithLabelValues(kind, SanitizeSite(rawURL), result).Inc()
	scraperFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRetry counts a retry scheduled by the retry policy.
func ObserveRetry(kind string) {
	Init()
	scraperRetriesTotal.WithLabelValues(kind).Inc()
}

// ObserveFallback counts a field substituted by its fallback value.
func ObserveFallback(field string) {
	Init()
	scraperFieldFallbacksTotal.WithLabelValues(field).Inc()
}

// ObservePromotion counts a headless promotion attempt.
func ObservePromotion(result string) {
	Init()
	scraperPromotionsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitDelay records time spent waiting for a rate limit token.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	Init()
	scraperRateLimitDelay.WithLabelValues(site).Observe(delay.Seconds())
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry()); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
