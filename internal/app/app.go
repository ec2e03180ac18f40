// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/crawlscope/crawlscope/internal/analyzer"
	"github.com/crawlscope/crawlscope/internal/clock/system"
	"github.com/crawlscope/crawlscope/internal/config"
	"github.com/crawlscope/crawlscope/internal/database"
	"github.com/crawlscope/crawlscope/internal/extract"
	"github.com/crawlscope/crawlscope/internal/fetch"
	uuidgen "github.com/crawlscope/crawlscope/internal/id/uuid"
	"github.com/crawlscope/crawlscope/internal/metrics"
	mempublisher "github.com/crawlscope/crawlscope/internal/publisher/memory"
	pspublisher "github.com/crawlscope/crawlscope/internal/publisher/pubsub"
	"github.com/crawlscope/crawlscope/internal/render"
	"github.com/crawlscope/crawlscope/internal/robots"
	"github.com/crawlscope/crawlscope/internal/storage/gcs"
	"github.com/crawlscope/crawlscope/internal/storage/local"
	memblob "github.com/crawlscope/crawlscope/internal/storage/memory"
)

// App holds the shared, long-lived services: the pipeline and its
// collaborators, the report store, the snapshot store, and the publisher.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	pipeline  *analyzer.Pipeline
	store     analyzer.Store
	publisher analyzer.Publisher
	engine    *render.ChromedpEngine

	pubsubPub *pspublisher.Publisher
}

// NewApp builds the service graph from configuration. It fails fast when a
// configured backend cannot be initialized, with one exception: a missing
// browser engine only disables rendering.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, store: store}
	if err := a.initPublisher(ctx, cfg); err != nil {
		_ = store.Close()
		return nil, err
	}

	var engine render.Engine = render.NoopEngine{}
	if cfg.Probe.Enabled {
		chromeEngine, err := render.NewChromedpEngine(render.EngineConfig{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.ProbeTimeout(),
			DomainQPS: cfg.Probe.DomainQPS,
		}, logger)
		if err != nil {
			logger.Warn("browser engine unavailable, probes will degrade", zap.Error(err))
		} else {
			a.engine = chromeEngine
			engine = chromeEngine
		}
	} else {
		logger.Info("render probe disabled by configuration")
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:   cfg.Crawler.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BackoffBase: time.Duration(cfg.Fetch.BackoffInitialMs) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.Fetch.BackoffMaxMs) * time.Millisecond,
	}, logger)

	a.pipeline = analyzer.NewPipeline(
		robots.New(nil, cfg.Crawler.UserAgent, logger),
		extract.NewWalker(fetcher, cfg.Crawler.MaxPages, logger),
		render.NewProber(engine, nil, cfg.Probe.JSRatio, logger),
		blobs,
		system.Clock{},
		uuidgen.Generator{},
		analyzer.PipelineConfig{
			RunTimeout:   cfg.RunTimeout(),
			ProbeTimeout: cfg.ProbeTimeout(),
		},
		logger,
	)

	return a, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the report store.
func (a *App) Store() analyzer.Store {
	return a.store
}

// Analyze runs the pipeline for one URL, persists the report, and publishes
// a completion event. The only caller-visible error before persistence is
// an invalid target URL.
func (a *App) Analyze(ctx context.Context, rawURL string) (analyzer.AnalysisReport, error) {
	report, err := a.pipeline.Run(ctx, rawURL)
	if err != nil {
		return analyzer.AnalysisReport{}, err
	}
	if err := a.store.Save(ctx, report); err != nil {
		return analyzer.AnalysisReport{}, fmt.Errorf("save report: %w", err)
	}
	if a.publisher != nil {
		if _, err := a.publisher.Publish(ctx, a.cfg.Publisher.Topic, report.Row()); err != nil {
			a.logger.Warn("publish failed", zap.Error(err))
		}
	}
	return report, nil
}

// Close shuts down the service graph.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.engine.Close()
	if a.pubsubPub != nil {
		if err := a.pubsubPub.Close(); err != nil {
			a.logger.Warn("error closing pubsub publisher", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing report store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (analyzer.Store, error) {
	switch cfg.Database.Provider {
	case "sqlite":
		logger.Info("using sqlite report store", zap.String("path", cfg.Database.Path))
		store, err := database.OpenSQLite(cfg.Database.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return store, nil
	case "postgres":
		logger.Info("connecting to postgres report store")
		store, err := database.NewPostgresStore(ctx, database.PostgresConfig{
			DSN:   cfg.Database.DSN,
			Table: cfg.Database.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres: %w", err)
		}
		return store, nil
	case "memory":
		logger.Info("using in-memory report store, reports are not durable")
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}
}

func newBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (analyzer.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		logger.Info("using gcs snapshot store", zap.String("bucket", cfg.Storage.GCSBucket))
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "local":
		logger.Info("using local snapshot store", zap.String("base_dir", cfg.Storage.BaseDir))
		return local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
	case "memory":
		return memblob.NewBlobStore(), nil
	case "none":
		logger.Info("snapshot storage disabled, page bodies are discarded")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func (a *App) initPublisher(ctx context.Context, cfg config.Config) error {
	switch cfg.Publisher.Provider {
	case "pubsub":
		a.logger.Info("connecting to pub/sub", zap.String("topic", cfg.Publisher.Topic))
		client, err := newPubSubClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return fmt.Errorf("initialize pubsub client: %w", err)
		}
		pub, err := pspublisher.New(client)
		if err != nil {
			return err
		}
		a.pubsubPub = pub
		a.publisher = pub
	case "memory":
		a.publisher = mempublisher.New()
	case "none":
		a.publisher = nil
	default:
		return fmt.Errorf("unknown publisher provider: %s", cfg.Publisher.Provider)
	}
	return nil
}

func newPubSubClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("publisher.project_id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	return client, nil
}
