// Package cmd provides CLI commands for the quicknotes tool.
package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shaurya-ahuja/quicknotes-ai/config"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/actions"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/diarize"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/index"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/observability"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/pipeline"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/query"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/store"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/summarize"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/transcribe"
)

// App wires configuration, backends, and the processing components. One App
// serves one CLI invocation.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Store   store.Store
	Indexer *index.Indexer
	Queue   *index.ReindexQueue // nil when Redis is not configured
	Metrics *observability.Metrics

	transcriber model.Transcriber
	generator   model.Generator

	redisClient *redis.Client
}

// NewApp builds and initializes the application from configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}
	if err := app.Init(ctx, cfg); err != nil {
		return nil, err
	}
	return app, nil
}

// Init wires the application into an existing App value. Commands hold the
// App pointer from construction; Init fills it in once configuration is
// loaded. The vector index is loaded from the store so earlier meetings
// stay searchable.
func (a *App) Init(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(&logging.Config{
		Level:      logging.Level(cfg.Logging.Level),
		JSONFormat: cfg.Logging.JSON,
	})

	var st store.Store
	if cfg.MemoryStore {
		st = store.NewMemoryStore()
	} else {
		pgStore, err := store.NewPostgresStore(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect store: %w", err)
		}
		st = pgStore
	}

	ollama := model.NewOllamaClient(model.OllamaConfig{
		BaseURL:       cfg.Models.OllamaURL,
		GenerateModel: cfg.Models.GenerateModel,
		EmbedModel:    cfg.Models.EmbedModel,
	})
	whisper := model.NewWhisperClient(model.WhisperConfig{
		BaseURL: cfg.Models.WhisperURL,
		Model:   cfg.Models.WhisperModel,
	})

	metrics := observability.NewNopMetrics()
	indexer := index.NewIndexer(ollama, st, index.Config{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
	}, logger).WithMetrics(metrics)
	if err := indexer.Load(ctx); err != nil {
		logger.Warn("index load failed, starting empty", logging.Err(err))
	}

	a.Config = cfg
	a.Logger = logger
	a.Store = st
	a.Indexer = indexer
	a.Metrics = metrics
	a.transcriber = whisper
	a.generator = ollama

	if cfg.Redis.Addr != "" {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.Queue = index.NewReindexQueue(a.redisClient, logger)
	}

	return nil
}

// Pipeline builds the meeting processing pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	var enqueuer pipeline.ReindexEnqueuer
	if a.Queue != nil {
		enqueuer = a.Queue
	}
	return pipeline.New(
		a.Store,
		transcribe.NewStage(a.transcriber, transcribe.Config{LanguageHint: a.Config.Models.LanguageHint}, a.Logger),
		diarize.NewStage(diarize.Config{}, a.Logger),
		summarize.NewStage(a.generator, summarize.Config{}, a.Logger),
		actions.NewExtractor(),
		a.Indexer,
		enqueuer,
		a.Metrics,
		a.Logger,
	)
}

// QueryEngine builds the question answering engine.
func (a *App) QueryEngine() *query.Engine {
	return query.NewEngine(a.Indexer, a.generator, a.Store, a.Metrics, a.Logger)
}

// reindexMeeting loads a meeting and rebuilds its index entry. It is the
// unit of work for both the reindex command and the queue worker.
func (a *App) reindexMeeting(ctx context.Context, meetingID string) error {
	m, err := a.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	return a.Indexer.Index(ctx, m.ID, m.IndexableText())
}

// Close releases connections.
func (a *App) Close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
