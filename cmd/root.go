// Package cmd defines and implements the CLI commands for the moviescraper executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-scraper/internal/app"
	"github.com/JakeFAU/movie-scraper/internal/config"
	"github.com/JakeFAU/movie-scraper/internal/logging"
	"github.com/JakeFAU/movie-scraper/internal/pipeline"
)

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Run(ctx context.Context) (pipeline.Summary, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(cfg, logger)
}

// session carries the services built for one invocation so Execute can
// release them on every exit path.
type session struct {
	configPath string
	app        App
}

// newRootCmd creates and configures the root command.
func newRootCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moviescraper",
		Short: "Look up movies on IMDb and collect their details into a CSV file.",
		Long: `moviescraper reads movie names one per line, resolves each name through
the site's search page, scrapes title, rating, genres and plot from the
movie page, and writes one CSV row per name.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flags are parsed but before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(s.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&s.configPath, "config", "", "config file (YAML)")
	cmd.PersistentFlags().Bool("dev", true, "use the development (console) logger")
	cmd.PersistentFlags().String("log-level", "", "minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newScrapeCmd(s))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute is the main entry point. It returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) int {
	s := &session{}
	root := newRootCmd(s)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var logger *zap.Logger
	if s.app != nil {
		logger = s.app.Logger()
		defer s.app.Close()
	} else if logger, _ = logging.New(true, ""); logger == nil {
		logger = zap.NewNop()
	}
	if err != nil {
		logger.Error("command execution failed", zap.Error(err))
		return 1
	}
	return 0
}
