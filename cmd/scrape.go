package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/metrics"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs the pipeline over
// the configured input file.
func newScrapeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every movie listed in the input file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.app == nil {
				return errors.New("application services not initialized")
			}
			return runScrape(cmd, s.app)
		},
	}
	cmd.Flags().String("input", "movies.txt", "file with one movie name per line")
	cmd.Flags().String("output", "results.csv", "CSV file to create")
	cmd.Flags().String("on-error", "abort", "what to do when a name cannot be scraped: abort or skip")
	cmd.Flags().Bool("headless", false, "re-fetch client-rendered pages with headless Chrome")
	cmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file when the run ends")
	return cmd
}

func runScrape(cmd *cobra.Command, a App) error {
	logger := a.Logger()
	cfg := a.Config()

	summary, runErr := a.Run(cmd.Context())
	summary.Render(cmd.OutOrStdout())

	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("failed to write metrics", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("scrape %s: %w", cfg.Input.Path, runErr)
	}
	logger.Info("scrape finished",
		zap.String("output", cfg.Output.Path),
		zap.Int("rows", summary.Written()),
	)
	return nil
}
