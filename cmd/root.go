// Package cmd holds the cobra command tree for the ocean-news binary.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/app"
	"github.com/JakeFAU/ocean-news/internal/config"
	"github.com/JakeFAU/ocean-news/internal/logging"
	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/orchestrator"
	"github.com/JakeFAU/ocean-news/internal/storage/postgres"
)

type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands need from the application container. Tests swap in
// a fake through newApp.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Handler() http.Handler
	News() NewsService
	AttemptLog() AttemptLog
}

// NewsService is satisfied by *orchestrator.Orchestrator.
type NewsService interface {
	Get(ctx context.Context) news.Result
	Status(ctx context.Context) (orchestrator.Status, error)
}

// AttemptLog is satisfied by *postgres.AttemptStore.
type AttemptLog interface {
	Recent(ctx context.Context, day string, limit int) ([]news.FetchAttempt, error)
}

type runtime struct {
	*app.App
}

func (r runtime) News() NewsService { return r.Orchestrator() }

func (r runtime) AttemptLog() AttemptLog {
	if store := r.Attempts(); store != nil {
		return store
	}
	return nil
}

var _ AttemptLog = (*postgres.AttemptStore)(nil)

// newApp is the application factory. It is a variable so tests can replace
// it.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logging.Sync(logger)
		return nil, err
	}
	return runtime{App: a}, nil
}

func appFrom(cmd *cobra.Command) (App, error) {
	a, ok := cmd.Context().Value(appKey).(App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "ocean-news",
		Short: "Serves a daily, ocean-relevant news feed.",
		Long: `ocean-news fetches ocean and marine news from an upstream API at most a
few times a day, filters it for relevance and serves a fixed-size feed that
never fails, falling back to curated stories when the upstream is unavailable.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfgPath)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(App); ok && a != nil {
				a.Close()
				logging.Sync(a.Logger())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd(), newRefreshCmd(), newQuotaCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
