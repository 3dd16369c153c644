// Package app builds and holds the long-lived services of the news service,
// acting as its dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/api"
	"github.com/JakeFAU/ocean-news/internal/clock/system"
	"github.com/JakeFAU/ocean-news/internal/config"
	"github.com/JakeFAU/ocean-news/internal/id/uuid"
	"github.com/JakeFAU/ocean-news/internal/kv"
	"github.com/JakeFAU/ocean-news/internal/kv/memory"
	"github.com/JakeFAU/ocean-news/internal/kv/redisstore"
	"github.com/JakeFAU/ocean-news/internal/lock"
	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/orchestrator"
	"github.com/JakeFAU/ocean-news/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/ocean-news/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/ocean-news/internal/publisher/pubsub"
	"github.com/JakeFAU/ocean-news/internal/quota"
	"github.com/JakeFAU/ocean-news/internal/relevance"
	"github.com/JakeFAU/ocean-news/internal/relevance/gemini"
	"github.com/JakeFAU/ocean-news/internal/source"
	"github.com/JakeFAU/ocean-news/internal/storage/gcs"
	"github.com/JakeFAU/ocean-news/internal/storage/local"
	memoryarchive "github.com/JakeFAU/ocean-news/internal/storage/memory"
	"github.com/JakeFAU/ocean-news/internal/storage/postgres"
)

// App holds the shared services. It is built once at startup and closed on
// shutdown.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	shared       *redisstore.Store
	store        kv.Store
	quota        *quota.Tracker
	orchestrator *orchestrator.Orchestrator
	attempts     *postgres.AttemptStore
	closers      []func() error
}

// New wires every component from cfg. Optional side channels (archive,
// pubsub, attempt log) fail startup when configured but unreachable; the
// shared store never does, since its outage is a supported serving mode.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{cfg: cfg, logger: logger}
	clock := system.New()
	ids := uuid.NewGenerator()

	local := memory.New()
	var lockStore kv.Store = local
	a.store = local
	if cfg.Cache.URL != "" {
		shared, err := redisstore.New(redisstore.Config{
			URL:         cfg.Cache.URL,
			Token:       cfg.Cache.Token,
			DialTimeout: cfg.Cache.DialTimeout,
			OpTimeout:   cfg.Cache.OpTimeout,
			RetryAfter:  cfg.Cache.RetryAfter,
		}, logger.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("init shared store: %w", err)
		}
		a.shared = shared
		a.closers = append(a.closers, shared.Close)
		a.store = kv.NewLayered(shared, local, logger.Named("kv"))
		lockStore = shared
	} else {
		logger.Warn("cache.url not set; running on the in-process store only")
	}

	tracker, err := quota.New(a.store, clock, quota.Config{
		MaxFetches: cfg.News.MaxDailyFetches,
	}, logger.Named("quota"))
	if err != nil {
		return nil, fmt.Errorf("init quota: %w", err)
	}
	a.quota = tracker

	policy := lock.FailOpen
	if cfg.Cache.LockPolicy == "fail_closed" {
		policy = lock.FailClosed
	}
	locker := lock.New(lockStore, policy, ids.Token, logger.Named("lock"))

	pipeline, err := a.buildPipeline(ctx)
	if err != nil {
		return nil, err
	}

	deps := orchestrator.Deps{
		Store:  a.store,
		Quota:  tracker,
		Locker: locker,
		Filter: pipeline,
		Clock:  clock,
		IDs:    ids,
		Logger: logger.Named("orchestrator"),
	}
	if cfg.NewsEnabled() {
		fetcher, err := source.New(source.Config{
			APIKey:       cfg.News.APIKey,
			PrimaryURL:   cfg.News.PrimaryURL,
			SecondaryURL: cfg.News.SecondaryURL,
			Query:        cfg.News.Query,
			Category:     cfg.News.Category,
			Language:     cfg.News.Language,
			Max:          cfg.News.MaxResults,
			UserAgent:    cfg.News.UserAgent,
			Timeout:      cfg.News.FetchTimeout,
		}, nil, logger.Named("source"))
		if err != nil {
			return nil, fmt.Errorf("init news source: %w", err)
		}
		deps.Fetcher = fetcher
	} else {
		logger.Warn("news api key not set; serving curated fallback only")
	}

	if deps.Archive, err = a.buildArchive(ctx); err != nil {
		return nil, err
	}
	if deps.Publisher, err = a.buildPublisher(ctx); err != nil {
		return nil, err
	}
	if cfg.DB.DSN != "" {
		attempts, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			Table:           cfg.DB.Table,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init attempt log: %w", err)
		}
		a.closers = append(a.closers, func() error { attempts.Close(); return nil })
		if cfg.DB.AutoMigrate {
			if err := attempts.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		a.attempts = attempts
		deps.Attempts = attempts
	}

	orch, err := orchestrator.New(orchestrator.Config{
		ArticleCount:  cfg.News.ArticleCount,
		SnapshotTTL:   cfg.News.SnapshotTTL,
		LockTTL:       cfg.News.LockTTL,
		LockWait:      cfg.News.LockWait,
		ArchivePrefix: cfg.Archive.Prefix,
		RefreshTopic:  cfg.PubSub.EventName,
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	a.orchestrator = orch

	logger.Info("application services initialized",
		zap.Bool("shared_store", a.shared != nil),
		zap.Bool("news_api", cfg.NewsEnabled()),
		zap.Bool("classifier", cfg.ClassifierEnabled()),
		zap.String("archive", cfg.Archive.Backend),
		zap.String("pubsub", cfg.PubSub.Backend),
		zap.Bool("attempt_log", a.attempts != nil),
	)
	return a, nil
}

func (a *App) buildPipeline(ctx context.Context) (*relevance.Pipeline, error) {
	cfg := a.cfg.Classifier
	var classifier relevance.Classifier
	if a.cfg.ClassifierEnabled() {
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, a.logger.Named("gemini"))
		if err != nil {
			return nil, fmt.Errorf("init classifier: %w", err)
		}
		classifier = c
	} else {
		a.logger.Warn("classifier api key not set; relevance filter is keyword-only")
	}
	decisions, err := relevance.NewDecisionCache(cfg.DecisionCacheSize)
	if err != nil {
		return nil, err
	}
	pacer := ratelimit.New(ratelimit.Config{Interval: cfg.BatchInterval, Burst: 1})
	return relevance.NewPipeline(relevance.Config{
		MaxUncached: cfg.MaxUncached,
		BatchSize:   cfg.BatchSize,
		MinScore:    cfg.MinScore,
		BackfillCap: cfg.BackfillCap,
	}, classifier, decisions, pacer, a.logger.Named("relevance")), nil
}

func (a *App) buildArchive(ctx context.Context) (news.BlobStore, error) {
	cfg := a.cfg.Archive
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return memoryarchive.NewArchive(), nil
	case "local":
		archive, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return archive, nil
	case "gcs":
		gcsCfg := gcs.Config{Bucket: cfg.Bucket, Endpoint: cfg.Endpoint}
		client, err := gcs.NewClient(ctx, gcsCfg)
		if err != nil {
			return nil, err
		}
		archive, err := gcs.New(client, gcsCfg, a.logger.Named("archive"))
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.closers = append(a.closers, archive.Close)
		return archive, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context) (news.Publisher, error) {
	cfg := a.cfg.PubSub
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return memorypublisher.New(), nil
	case "pubsub":
		pub, err := gcppublisher.New(ctx, gcppublisher.Config{
			ProjectID: cfg.ProjectID,
			TopicID:   cfg.TopicID,
		}, a.logger.Named("pubsub"))
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown pubsub backend %q", cfg.Backend)
	}
}

// Config returns the configuration the services were built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Orchestrator returns the news pipeline entry point.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// Attempts returns the attempt log, or nil when no database is configured.
func (a *App) Attempts() *postgres.AttemptStore { return a.attempts }

// Handler builds the HTTP surface.
func (a *App) Handler() http.Handler {
	var pinger api.Pinger
	if a.shared != nil {
		pinger = a.shared
	}
	return api.NewServer(a.orchestrator, pinger, api.Options{
		RequestTimeout: a.cfg.Server.RequestTimeout,
		ArticleCount:   a.cfg.News.ArticleCount,
	}, a.logger.Named("api")).Handler()
}

// Close shuts down services in reverse construction order.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("service close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
