package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/logging"
	"github.com/JakeFAU/movie-scraper/internal/metrics"
	"github.com/JakeFAU/movie-scraper/internal/scraper"
)

// ErrorMode decides what a hard failure does to the run.
type ErrorMode string

// Supported error modes.
const (
	ErrorModeAbort ErrorMode = "abort"
	ErrorModeSkip  ErrorMode = "skip"
)

// ParseErrorMode validates a configured error mode.
func ParseErrorMode(raw string) (ErrorMode, error) {
	switch mode := ErrorMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ErrorModeAbort, nil
	case ErrorModeAbort, ErrorModeSkip:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown error mode %q (want abort or skip)", raw)
	}
}

// Resolver maps a movie name to its page URL.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Extractor maps a page URL to a record.
type Extractor interface {
	Extract(ctx context.Context, name, pageURL string) (scraper.Record, scraper.Outcome, error)
}

// Config controls Driver behavior.
type Config struct {
	OnError ErrorMode
}

// LineError wraps a hard failure with the input position that caused it.
type LineError struct {
	Line int
	Name string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Line, strings.TrimRight(e.Name, "\r\n"), e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Driver orchestrates Resolver and Extractor over an input list.
type Driver struct {
	cfg       Config
	resolver  Resolver
	extractor Extractor
	clock     scraper.Clock
	ids       scraper.IDGenerator
	logger    *zap.Logger
}

// New constructs a Driver.
func New(
	cfg Config,
	resolver Resolver,
	extractor Extractor,
	clock scraper.Clock,
	ids scraper.IDGenerator,
	logger *zap.Logger,
) *Driver {
	if cfg.OnError == "" {
		cfg.OnError = ErrorModeAbort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg,
		resolver:  resolver,
		extractor: extractor,
		clock:     clock,
		ids:       ids,
		logger:    logger,
	}
}

// RunFiles truncates outputPath, reads names from inputPath and runs the
// pipeline. Both files are closed on every exit path.
func (d *Driver) RunFiles(ctx context.Context, inputPath, outputPath string) (summary Summary, err error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create output %s: %w", outputPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output %s: %w", outputPath, cerr))
		}
	}()

	in, err := os.Open(inputPath)
	if err != nil {
		openErr := fmt.Errorf("open input %s: %w", inputPath, err)
		// The output keeps its header even when there is nothing to read.
		if herr := writeRow(csv.NewWriter(out), scraper.Header); herr != nil {
			return Summary{}, errors.Join(openErr, herr)
		}
		return Summary{}, openErr
	}
	defer func() {
		if cerr := in.Close(); cerr != nil {
			d.logger.Warn("close input failed", zap.String("path", inputPath), zap.Error(cerr))
		}
	}()

	return d.Run(ctx, in, out)
}

// Run writes the header and one row per input line to out.
func (d *Driver) Run(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	summary := Summary{Started: d.clock.Now()}
	runID, err := d.ids.NewID()
	if err != nil {
		return summary, fmt.Errorf("generate run id: %w", err)
	}
	summary.RunID = runID
	logger := logging.ForRun(d.logger, runID)

	w := csv.NewWriter(out)
	defer w.Flush()
	if err := writeRow(w, scraper.Header); err != nil {
		return summary, err
	}

	logger.Info("scrape run started", zap.String("on_error", string(d.cfg.OnError)))
	reader := bufio.NewReader(in)
	for line := 1; ; line++ {
		name, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return d.finish(&summary, logger, fmt.Errorf("read input line %d: %w", line, readErr))
		}
		if name != "" {
			if err := d.process(ctx, w, logger, &summary, line, name); err != nil {
				return d.finish(&summary, logger, err)
			}
		}
		if readErr != nil {
			break
		}
	}

	return d.finish(&summary, logger, nil)
}

func (d *Driver) process(
	ctx context.Context,
	w *csv.Writer,
	logger *zap.Logger,
	summary *Summary,
	line int,
	name string,
) error {
	summary.Processed++
	logger = logger.With(zap.Int("line", line), zap.String("name", strings.TrimSpace(name)))

	rec, outcome, err := d.lookup(ctx, name)
	if err != nil {
		summary.Failed++
		metrics.ObserveLookup(string(scraper.OutcomeHardFailure))
		lineErr := &LineError{Line: line, Name: name, Err: err}
		if d.cfg.OnError == ErrorModeSkip && ctx.Err() == nil {
			logger.Warn("lookup failed; skipping line", zap.Error(err))
			summary.Skipped = append(summary.Skipped, lineErr)
			return nil
		}
		return lineErr
	}

	if err := writeRow(w, rec.Row()); err != nil {
		return err
	}
	metrics.ObserveLookup(string(outcome))
	switch outcome {
	case scraper.OutcomeSoftFailure:
		summary.Degraded++
	default:
		summary.Succeeded++
	}
	logger.Info("movie written", zap.String("url", rec.Link), zap.String("outcome", string(outcome)))
	return nil
}

func (d *Driver) lookup(ctx context.Context, name string) (scraper.Record, scraper.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return scraper.Record{}, scraper.OutcomeHardFailure, fmt.Errorf("run canceled: %w", err)
	}
	pageURL, err := d.resolver.Resolve(ctx, name)
	if err != nil {
		return scraper.Record{}, scraper.OutcomeHardFailure, fmt.Errorf("resolve: %w", err)
	}
	rec, outcome, err := d.extractor.Extract(ctx, name, pageURL)
	if err != nil {
		return scraper.Record{}, scraper.OutcomeHardFailure, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return rec, outcome, nil
}

func (d *Driver) finish(summary *Summary, logger *zap.Logger, err error) (Summary, error) {
	summary.Finished = d.clock.Now()
	if err != nil {
		summary.Aborted = true
		summary.Err = err
		logger.Error("scrape run aborted",
			zap.Int("rows_written", summary.Written()),
			zap.Error(err),
		)
		return *summary, err
	}
	logger.Info("scrape run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("degraded", summary.Degraded),
		zap.Int("failed", summary.Failed),
	)
	return *summary, nil
}

// writeRow writes and flushes one row so that an abort leaves every completed
// row on disk.
func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	return nil
}
