package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/physai/textbook-rag/internal/bootstrap"
	"github.com/physai/textbook-rag/internal/config"
	"github.com/physai/textbook-rag/internal/observability/logging"
	"github.com/physai/textbook-rag/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	indexerMetrics := metrics.NewIndexerMetrics("indexer")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.IndexerMetricsPort,
		Handler: indexerMetrics.Handler(),
	}
	go func() {
		logger.Info("indexer_metrics_listening", "port", cfg.IndexerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("indexer_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("indexer_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSectionReindex(ctx, func(handlerCtx context.Context, sectionID string) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		indexerMetrics.StartSection()
		start := time.Now()
		chunkCount, reindexErr := app.ReindexUC.ReindexSection(jobCtx, sectionID)
		indexerMetrics.FinishSection("indexer", time.Since(start), reindexErr)
		if reindexErr == nil {
			indexerMetrics.ObserveIndexedChunks("indexer", chunkCount)
		}
		return reindexErr
	})
	if err != nil {
		log.Fatalf("indexer subscribe error: %v", err)
	}
}
