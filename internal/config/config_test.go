package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "movies.txt", cfg.Input.Path)
	assert.Equal(t, "results.csv", cfg.Output.Path)
	assert.Equal(t, "http://www.imdb.com", cfg.Site.BaseURL)
	assert.Equal(t, "table.findList", cfg.Site.ResultsSelector)
	assert.Equal(t, scraper.DefaultTable(), cfg.Fields)
	assert.Equal(t, "abort", cfg.Pipeline.OnError)
	assert.Equal(t, 3, cfg.MaxAttempts())
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.Headless.Enabled)
	assert.Nil(t, cfg.RequestHeaders())
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := writeConfig(t, `
input:
  path: in.txt
output:
  path: out.csv
site:
  base_url: https://movies.example
  search_url: https://movies.example/search
  query_param: term
  results_selector: ul.results
fields:
  - field: title
    selector: h1
    policy: query
  - field: description
    selector: p.plot
    policy: fallback
    fallback: "no plot"
  - field: genres
    selector: li
    within: ul.genres
    multiple: true
    join: " / "
    policy: fallback
http:
  timeout_seconds: 45
  max_retries: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
  requests_per_second: 2.5
  headers:
    Accept-Language: en-US
headless:
  enabled: true
  nav_timeout_seconds: 30
  promotion_threshold: 70
pipeline:
  on_error: skip
logging:
  development: false
  level: warn
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "in.txt", cfg.Input.Path)
	assert.Equal(t, "out.csv", cfg.Output.Path)
	assert.Equal(t, 5, cfg.MaxAttempts())
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout())
	initial, maxDelay := cfg.Backoff()
	assert.Equal(t, 100*time.Millisecond, initial)
	assert.Equal(t, 500*time.Millisecond, maxDelay)
	assert.InDelta(t, 2.5, cfg.HTTP.RequestsPerSec, 0.001)
	assert.Equal(t, "en-US", cfg.RequestHeaders().Get("Accept-Language"))
	assert.True(t, cfg.Headless.Enabled)
	assert.Equal(t, 70, cfg.Headless.PromotionThresh)
	assert.Equal(t, "skip", cfg.Pipeline.OnError)
	assert.Equal(t, "warn", cfg.Logging.Level)

	require.Len(t, cfg.Fields, 4)
	fields := fieldsByName(cfg.Fields)
	genres := fields[scraper.FieldGenres]
	assert.Equal(t, "ul.genres", genres.Within)
	assert.True(t, genres.Multiple)
	assert.Equal(t, " / ", genres.Join)
	assert.Equal(t, scraper.PolicyFallback, fields[scraper.FieldDescription].Policy)
	assert.Equal(t, "no plot", fields[scraper.FieldDescription].Fallback)
	assert.Equal(t, "N/A", fields[scraper.FieldScore].Fallback, "undeclared field keeps its default")

	rc := cfg.ResolverConfig()
	assert.Equal(t, "term", rc.QueryParam)
	assert.Equal(t, "ul.results", rc.ResultsSelector)
	assert.Equal(t, "a", rc.LinkSelector)
}

func fieldsByName(table scraper.Table) map[string]scraper.Locator {
	out := make(map[string]scraper.Locator, len(table))
	for _, l := range table {
		out[l.Field] = l
	}
	return out
}

func TestLoadPartialFieldsKeepsFallbacks(t *testing.T) {
	path := writeConfig(t, `
fields:
  - field: description
    selector: span.plot
    policy: fallback
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Fields, 4)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	rec, substituted, err := cfg.Fields.Apply(doc, "The Matrix\n", "http://x/title/tt1/")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix\n", rec.Title)
	assert.Equal(t, "N/A", rec.Score)
	assert.Equal(t, "", rec.Genres)
	assert.Equal(t, "", rec.Description)
	assert.Len(t, substituted, 4)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MOVIESCRAPER_HTTP_MAX_RETRIES", "0")
	t.Setenv("MOVIESCRAPER_PIPELINE_ON_ERROR", "skip")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxAttempts())
	assert.Equal(t, "skip", cfg.Pipeline.OnError)
}

func TestLoadFlagOverrides(t *testing.T) {
	path := writeConfig(t, "output:\n  path: from-file.csv\n")

	flags := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
	flags.String("input", "movies.txt", "")
	flags.String("output", "results.csv", "")
	flags.String("on-error", "abort", "")
	require.NoError(t, flags.Parse([]string{"--input", "films.txt", "--on-error", "skip"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "films.txt", cfg.Input.Path)
	assert.Equal(t, "skip", cfg.Pipeline.OnError)
	// Unset flags do not shadow the file.
	assert.Equal(t, "from-file.csv", cfg.Output.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"relative base url": "site:\n  base_url: /imdb\n",
		"bad on_error":      "pipeline:\n  on_error: retry\n",
		"zero timeout":      "http:\n  timeout_seconds: 0\n",
		"negative retries":  "http:\n  max_retries: -1\n",
		"unknown policy":    "fields:\n  - field: title\n    selector: h1\n    policy: maybe\n",
		"always w/o enable": "headless:\n  always: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), nil)
			require.Error(t, err)
		})
	}
}

func TestValidateEmptySelectors(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	cfg.Site.ResultsSelector = " "
	require.ErrorContains(t, cfg.Validate(), "results_selector")

	cfg, _ = Load("", nil)
	cfg.Input.Path = ""
	require.ErrorContains(t, cfg.Validate(), "input.path")
}
