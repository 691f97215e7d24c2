// Command reindex rebuilds the knowledge-base vector index from the
// document directory. Run it after editing the knowledge base; the API
// server picks up the persisted index on next start.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ragchat/internal/config"
	"ragchat/internal/infra/llm"
	"ragchat/internal/infra/rag"
	"ragchat/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("reindex failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	client, err := llm.NewClient(llm.Config{
		APIKey:            cfg.OpenAI.APIKey,
		Model:             cfg.OpenAI.Model,
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		Temperature:       cfg.OpenAI.Temperature,
		MaxTokens:         cfg.OpenAI.MaxTokens,
		Timeout:           cfg.OpenAI.Timeout,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	store, err := rag.NewStore(rag.StoreConfig{
		PersistDir: cfg.RAG.PersistDir,
		Embed:      client.Embed,
	})
	if err != nil {
		return err
	}

	splitter, err := rag.NewSplitter(cfg.OpenAI.Model, cfg.RAG.ChunkTokens, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	chunks, err := rag.Index(ctx, cfg.RAG.DataDir, splitter, store)
	if err != nil {
		return err
	}

	logger.Info("reindex complete",
		slog.String("data_dir", cfg.RAG.DataDir),
		slog.String("persist_dir", cfg.RAG.PersistDir),
		slog.Int("chunks", chunks))
	return nil
}
