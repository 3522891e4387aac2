package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/config"
	"github.com/JakeFAU/movie-scraper/internal/pipeline"
)

type fakeApp struct {
	cfg     config.Config
	summary pipeline.Summary
	err     error
	ran     bool
	closed  bool
}

func (f *fakeApp) Close()                { f.closed = true }
func (f *fakeApp) Logger() *zap.Logger   { return zap.NewNop() }
func (f *fakeApp) Config() config.Config { return f.cfg }
func (f *fakeApp) Run(context.Context) (pipeline.Summary, error) {
	f.ran = true
	return f.summary, f.err
}

// withFakeApp swaps the app factory; tests using it must not run in parallel.
func withFakeApp(t *testing.T, fake *fakeApp) *config.Config {
	t.Helper()
	var captured config.Config
	orig := newApp
	newApp = func(cfg config.Config, _ *zap.Logger) (App, error) {
		captured = cfg
		fake.cfg = cfg
		return fake, nil
	}
	t.Cleanup(func() { newApp = orig })
	return &captured
}

func TestScrapeCommandBindsFlags(t *testing.T) {
	fake := &fakeApp{summary: pipeline.Summary{RunID: "r1", Succeeded: 2, Processed: 2}}
	captured := withFakeApp(t, fake)

	out := filepath.Join(t.TempDir(), "out.csv")
	code := execute(context.Background(), []string{
		"scrape", "--input", "films.txt", "--output", out, "--on-error", "skip", "--log-level", "error",
	})

	assert.Equal(t, 0, code)
	assert.True(t, fake.ran)
	assert.True(t, fake.closed)
	assert.Equal(t, "films.txt", captured.Input.Path)
	assert.Equal(t, out, captured.Output.Path)
	assert.Equal(t, "skip", captured.Pipeline.OnError)
}

func TestScrapeCommandFailureExitCode(t *testing.T) {
	fake := &fakeApp{err: errors.New("line 2: not found")}
	withFakeApp(t, fake)

	code := execute(context.Background(), []string{"scrape", "--log-level", "error"})
	assert.Equal(t, 1, code)
	assert.True(t, fake.closed, "services released on the error path")
}

func TestScrapeCommandWritesMetricsTextfile(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	path := filepath.Join(t.TempDir(), "scrape.prom")
	code := execute(context.Background(), []string{"scrape", "--metrics-textfile", path, "--log-level", "error"})
	require.Equal(t, 0, code)

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestConfigErrorSkipsApp(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	code := execute(context.Background(), []string{"scrape", "--on-error", "retry", "--log-level", "error"})
	assert.Equal(t, 1, code)
	assert.False(t, fake.ran)
}

func TestScrapeRendersSummary(t *testing.T) {
	fake := &fakeApp{summary: pipeline.Summary{RunID: "r1", Processed: 1, Succeeded: 1}}
	withFakeApp(t, fake)

	s := &session{}
	root := newRootCmd(s)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"scrape", "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), "r1")
}

func TestVersionCommand(t *testing.T) {
	s := &session{}
	root := newRootCmd(s)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "moviescraper dev\n", buf.String())
	assert.Nil(t, s.app)
}
