// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/movie-scraper/internal/pipeline"
	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

// EnvPrefix prefixes every environment override, e.g. MOVIESCRAPER_HTTP_MAX_RETRIES.
const EnvPrefix = "MOVIESCRAPER"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Input    FileConfig     `mapstructure:"input"`
	Output   FileConfig     `mapstructure:"output"`
	Site     SiteConfig     `mapstructure:"site"`
	Fields   scraper.Table  `mapstructure:"fields"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// FileConfig names an input or output file.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// SiteConfig describes the movie database search flow.
type SiteConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	SearchURL          string `mapstructure:"search_url"`
	QueryParam         string `mapstructure:"query_param"`
	ResultsSelector    string `mapstructure:"results_selector"`
	ResultLinkSelector string `mapstructure:"result_link_selector"`
}

// HTTPConfig configures the probe fetcher and retry behavior.
type HTTPConfig struct {
	UserAgent        string            `mapstructure:"user_agent"`
	TimeoutSeconds   int               `mapstructure:"timeout_seconds"`
	MaxRetries       int               `mapstructure:"max_retries"`
	BackoffInitialMs int               `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int               `mapstructure:"backoff_max_ms"`
	RespectRobots    bool              `mapstructure:"respect_robots"`
	RequestsPerSec   float64           `mapstructure:"requests_per_second"`
	Burst            int               `mapstructure:"burst"`
	Headers          map[string]string `mapstructure:"headers"`
}

// HeadlessConfig configures rendering through headless Chrome.
type HeadlessConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Always skips the probe and renders every page.
	Always          bool     `mapstructure:"always"`
	NavTimeoutSec   int      `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int      `mapstructure:"promotion_threshold"`
	Markers         []string `mapstructure:"markers"`
	WaitSelector    string   `mapstructure:"wait_selector"`
	SettleMs        int      `mapstructure:"settle_ms"`
}

// PipelineConfig controls the driver.
type PipelineConfig struct {
	OnError string `mapstructure:"on_error"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the end-of-run metrics dump.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"input":            "input.path",
	"output":           "output.path",
	"on-error":         "pipeline.on_error",
	"headless":         "headless.enabled",
	"dev":              "logging.development",
	"log-level":        "logging.level",
	"metrics-textfile": "metrics.textfile",
}

// Load builds a Config from disk, environment and, when flags is non-nil, any
// flags the user set explicitly.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Fields = scraper.DefaultTable().Merge(cfg.Fields)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "movies.txt")
	v.SetDefault("output.path", "results.csv")
	v.SetDefault("site.base_url", "http://www.imdb.com")
	v.SetDefault("site.search_url", "http://www.imdb.com/find")
	v.SetDefault("site.query_param", "q")
	v.SetDefault("site.results_selector", "table.findList")
	v.SetDefault("site.result_link_selector", "a")
	v.SetDefault("http.user_agent", "movie-scraper/1.0")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.always", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("headless.wait_selector", "body")
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("pipeline.on_error", string(pipeline.ErrorModeAbort))
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.textfile", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input.Path) == "" {
		return fmt.Errorf("input.path must be set")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path must be set")
	}
	if err := validateAbsURL("site.base_url", c.Site.BaseURL); err != nil {
		return err
	}
	if err := validateAbsURL("site.search_url", c.Site.SearchURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Site.ResultsSelector) == "" {
		return fmt.Errorf("site.results_selector must be set")
	}
	if err := c.Fields.Validate(); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffInitialMs < 0 || c.HTTP.BackoffMaxMs < 0 {
		return fmt.Errorf("http backoff values must be >= 0")
	}
	if c.HTTP.RequestsPerSec < 0 {
		return fmt.Errorf("http.requests_per_second must be >= 0")
	}
	if c.Headless.Always && !c.Headless.Enabled {
		return fmt.Errorf("headless.always requires headless.enabled")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	if _, err := pipeline.ParseErrorMode(c.Pipeline.OnError); err != nil {
		return fmt.Errorf("pipeline.on_error: %w", err)
	}
	return nil
}

func validateAbsURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// MaxAttempts is the retry budget including the first attempt.
func (c Config) MaxAttempts() int {
	return c.HTTP.MaxRetries + 1
}

// Backoff returns the initial and maximum retry delays.
func (c Config) Backoff() (time.Duration, time.Duration) {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// RequestHeaders returns the configured extra request headers.
func (c Config) RequestHeaders() http.Header {
	if len(c.HTTP.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(c.HTTP.Headers))
	for k, v := range c.HTTP.Headers {
		h.Set(k, v)
	}
	return h
}

// ResolverConfig projects the site section onto the resolver's settings.
func (c Config) ResolverConfig() scraper.ResolverConfig {
	return scraper.ResolverConfig{
		BaseURL:         c.Site.BaseURL,
		SearchURL:       c.Site.SearchURL,
		QueryParam:      c.Site.QueryParam,
		ResultsSelector: c.Site.ResultsSelector,
		LinkSelector:    c.Site.ResultLinkSelector,
		Headers:         c.RequestHeaders(),
	}
}
