// Command worker consumes batch generation tasks from the Redpanda
// queue and persists generated question batches.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ai "github.com/prepforge/prepai/internal/adapter/ai"
	"github.com/prepforge/prepai/internal/adapter/ai/openrouter"
	"github.com/prepforge/prepai/internal/adapter/ai/prompt"
	"github.com/prepforge/prepai/internal/adapter/ai/stub"
	"github.com/prepforge/prepai/internal/adapter/queue/redpanda"
	"github.com/prepforge/prepai/internal/adapter/repo/postgres"
	"github.com/prepforge/prepai/internal/config"
	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
	"github.com/prepforge/prepai/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	// dedicated /metrics endpoint so Prometheus can scrape worker-side
	// generation metrics
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sessionRepo := postgres.NewSessionRepo(pool)
	questionRepo := postgres.NewQuestionRepo(pool)

	aicl, err := buildAIClient(cfg)
	if err != nil {
		slog.Error("ai client init failed", slog.Any("error", err))
		os.Exit(1)
	}

	classifier, err := prompt.LoadKeywordClassifier(cfg.ClassifierConfigPath)
	if err != nil {
		slog.Error("classifier config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	gen := usecase.NewGenerateService(aicl, prompt.NewBuilder(classifier), ai.NewResponseParser(), cfg.AnalysisMaxAttempts, cfg.AnalysisRetryDelay)
	batch := usecase.NewBatchService(sessionRepo, questionRepo, gen)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, batch, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker shut down")
}

// buildAIClient returns the OpenRouter client, or the deterministic stub
// in dev environments without credentials.
func buildAIClient(cfg config.Config) (domain.AIClient, error) {
	if len(cfg.OpenRouterAPIKeys) == 0 && cfg.IsDev() {
		slog.Warn("no OpenRouter keys configured, using stub AI client")
		return stub.New(), nil
	}
	return openrouter.New(cfg)
}
