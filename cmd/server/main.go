// Command server starts the interview prep HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	ai "github.com/prepforge/prepai/internal/adapter/ai"
	"github.com/prepforge/prepai/internal/adapter/ai/openrouter"
	"github.com/prepforge/prepai/internal/adapter/ai/prompt"
	"github.com/prepforge/prepai/internal/adapter/ai/stub"
	httpserver "github.com/prepforge/prepai/internal/adapter/httpserver"
	"github.com/prepforge/prepai/internal/adapter/queue/redpanda"
	"github.com/prepforge/prepai/internal/adapter/repo/postgres"
	"github.com/prepforge/prepai/internal/app"
	"github.com/prepforge/prepai/internal/config"
	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
	"github.com/prepforge/prepai/internal/service/ratelimiter"
	"github.com/prepforge/prepai/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sessionRepo := postgres.NewSessionRepo(pool)
	questionRepo := postgres.NewQuestionRepo(pool)

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	limiter := ratelimiter.NewRedisLuaLimiter(rdb, pool, map[string]ratelimiter.BucketConfig{
		httpserver.BucketCreateSession: ratelimiter.NewBucketConfigFromPerMinute(cfg.GenerateRatePerMin),
		httpserver.BucketAnalyze:       ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
		httpserver.BucketModelAnswer:   ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
	})
	if err := limiter.WarmFromPostgres(ctx); err != nil {
		slog.Warn("failed to warm rate limit buckets", slog.Any("error", err))
	}

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
	sessions := usecase.NewSessionService(sessionRepo, questionRepo, producer, gen)

	kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
	if err != nil {
		slog.Error("kafka client init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer kafkaClient.Close()

	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(pool, app.RedisAdapter{C: rdb}, kafkaClient)

	srv := httpserver.NewServer(cfg, sessions, limiter, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
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
