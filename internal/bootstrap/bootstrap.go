package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/physai/textbook-rag/internal/config"
	"github.com/physai/textbook-rag/internal/core/ports"
	"github.com/physai/textbook-rag/internal/core/usecase"
	"github.com/physai/textbook-rag/internal/infrastructure/encoder/hashing"
	"github.com/physai/textbook-rag/internal/infrastructure/generator/openai"
	"github.com/physai/textbook-rag/internal/infrastructure/queue/nats"
	"github.com/physai/textbook-rag/internal/infrastructure/repository/postgres"
	"github.com/physai/textbook-rag/internal/infrastructure/resilience"
	"github.com/physai/textbook-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Catalog   ports.Catalog
	QueryUC   ports.QueryService
	ReindexUC ports.SectionReindexer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewCatalogRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	encoder, err := hashing.New(cfg.EmbeddingDimension)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init encoder: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	index, err := qdrant.New(
		cfg.QdrantURL,
		cfg.QdrantCollection,
		cfg.EmbeddingDimension,
		executor,
		qdrant.WithAPIKey(cfg.QdrantAPIKey),
		qdrant.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init vector index: %w", err)
	}
	// The collection and encoder must agree on dimensionality or every
	// search would silently miss.
	if encoder.Dimension() != cfg.EmbeddingDimension {
		_ = db.Close()
		return nil, fmt.Errorf("encoder dimension %d does not match index dimension %d", encoder.Dimension(), cfg.EmbeddingDimension)
	}

	var generator ports.AnswerGenerator
	if cfg.OpenAIAPIKey != "" {
		generator, err = openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init answer generator: %w", err)
		}
	} else {
		logger.Warn("openai_api_key_missing", "detail", "responses will use the fallback text")
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init reindex queue: %w", err)
	}

	queryUC := usecase.NewQueryUseCase(encoder, index, catalog, generator, logger)
	reindexUC := usecase.NewReindexUseCase(encoder, index, catalog, logger)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Catalog:   catalog,
		QueryUC:   queryUC,
		ReindexUC: reindexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
