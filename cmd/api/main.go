// Command api runs the RAG chat HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ragchat/internal/config"
	hhttp "ragchat/internal/handler/http"
	"ragchat/internal/handler/http/middleware"
	"ragchat/internal/infra/llm"
	"ragchat/internal/infra/rag"
	"ragchat/internal/observability/logging"
	"ragchat/internal/observability/metrics"
	chatUC "ragchat/internal/usecase/chat"
	"ragchat/pkg/ratelimit"
	"ragchat/pkg/respcache"
)

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	logger := logging.New()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(logger, cfg); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.New()

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

	var cache *respcache.Cache
	if cfg.Cache.Enabled {
		cache, err = respcache.New(respcache.Config{
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		})
		if err != nil {
			return err
		}
		registry.RegisterCache(cache)
	}

	var retriever chatUC.Retriever
	if cfg.RAG.Enabled {
		store, err := rag.NewStore(rag.StoreConfig{
			PersistDir: cfg.RAG.PersistDir,
			Embed:      client.Embed,
		})
		if err != nil {
			return err
		}
		if store.Count() == 0 {
			splitter, err := rag.NewSplitter(cfg.OpenAI.Model, cfg.RAG.ChunkTokens, cfg.RAG.ChunkOverlap)
			if err != nil {
				return err
			}
			if _, err := rag.Index(ctx, cfg.RAG.DataDir, splitter, store); err != nil {
				logger.Warn("knowledge-base indexing failed, serving without context",
					slog.Any("error", err))
			}
		}
		retriever, err = rag.NewRetriever(store, cfg.RAG.MinSimilarity)
		if err != nil {
			return err
		}
	}

	svc, err := chatUC.NewService(chatUC.ServiceConfig{
		Generator:    client,
		Retriever:    retriever,
		Cache:        cache,
		SystemPrompt: cfg.SystemPrompt,
		TopK:         cfg.RAG.TopK,
	})
	if err != nil {
		return err
	}

	var guard *ratelimit.Guard
	var sweep *middleware.DDoSGuard
	var ipExtractor middleware.IPExtractor = &middleware.RemoteAddrExtractor{}
	if cfg.Guard.Enabled {
		guard, err = ratelimit.NewGuard(ratelimit.GuardConfig{
			Window:             cfg.Guard.Window,
			MaxRequests:        cfg.Guard.MaxRequests,
			BlockDuration:      cfg.Guard.BlockDuration,
			MaxBlockDuration:   cfg.Guard.MaxBlockDuration,
			ExponentialBackoff: cfg.Guard.ExponentialBackoff,
			Whitelist:          cfg.Guard.Whitelist,
			Metrics:            ratelimit.NewPrometheusGuardMetrics(registry.Registerer()),
		})
		if err != nil {
			return err
		}

		proxyCfg, err := middleware.LoadTrustedProxyConfig()
		if err != nil {
			return err
		}
		if proxyCfg.Enabled {
			ipExtractor = middleware.NewTrustedProxyExtractor(*proxyCfg)
		}
		sweep = middleware.NewDDoSGuard(guard, ipExtractor, nil)
	}

	handler := hhttp.NewRouter(hhttp.RouterConfig{
		Logger:      logger,
		ChatService: svc,
		Cache:       cache,
		Guard:       guard,
		IPExtractor: ipExtractor,
		Metrics:     registry,
		APIKey:      cfg.APIKey,
		Version:     version(),
		Checkers: []hhttp.HealthChecker{
			hhttp.BreakerChecker{CheckerName: "openai", IsOpen: client.BreakerOpen},
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr),
			slog.String("version", version()),
			slog.Bool("cache", cfg.Cache.Enabled),
			slog.Bool("rate_limiting", cfg.Guard.Enabled),
			slog.Bool("rag", cfg.RAG.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sweep != nil {
		g.Go(func() error {
			sweep.StartSweep(ctx, cfg.Guard.SweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
