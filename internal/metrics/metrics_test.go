package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://www.imdb.com/find?q=x", "www.imdb.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if scraperLookupsTotal == nil || scraperFetchesTotal == nil ||
		scraperRetriesTotal == nil || scraperFieldFallbacksTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpers(t *testing.T) {
	ObserveLookup("coverage_outcome")
	if val := testutil.ToFloat64(scraperLookupsTotal.WithLabelValues("coverage_outcome")); val != 1 {
		t.Errorf("expected lookup counter 1, got %f", val)
	}

	ObserveFetch("coverage", "http://www.imdb.com/title/tt1/", errors.New("boom"), time.Millisecond)
	if val := testutil.ToFloat64(scraperFetchesTotal.WithLabelValues("coverage", "www.imdb.com", "error")); val != 1 {
		t.Errorf("expected fetch error counter 1, got %f", val)
	}

	ObserveRetry("coverage")
	ObserveRetry("coverage")
	if val := testutil.ToFloat64(scraperRetriesTotal.WithLabelValues("coverage")); val != 2 {
		t.Errorf("expected retry counter 2, got %f", val)
	}

	ObserveFallback("coverage_field")
	if val := testutil.ToFloat64(scraperFieldFallbacksTotal.WithLabelValues("coverage_field")); val != 1 {
		t.Errorf("expected fallback counter 1, got %f", val)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObservePromotion("coverage")

	path := filepath.Join(t.TempDir(), "scraper.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "scraper_headless_promotions_total") {
		t.Fatalf("expected promotions metric in textfile, got:\n%s", data)
	}

	if err := WriteTextfile(""); err != nil {
		t.Fatalf("expected empty path to be a no-op, got %v", err)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://imdb.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
