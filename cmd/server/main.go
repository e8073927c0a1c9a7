// Command server starts the internship recommender HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	rediscache "github.com/fairyhunter13/internship-recommender/internal/adapter/cache/redis"
	httpserver "github.com/fairyhunter13/internship-recommender/internal/adapter/httpserver"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/ratelimiter"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/recommender"
	tikaext "github.com/fairyhunter13/internship-recommender/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/internship-recommender/internal/app"
	"github.com/fairyhunter13/internship-recommender/internal/config"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
	"github.com/fairyhunter13/internship-recommender/internal/intake"
	"github.com/fairyhunter13/internship-recommender/internal/usecase"
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

	classifiers, err := config.LoadClassifiers(cfg.ClassifierTablesPath)
	if err != nil {
		slog.Error("classifier tables load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Redis backs the fallback cache and the submit limiter; it connects lazily.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}()
	cache := rediscache.New(rdb, cfg.CacheTTL)
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(cfg.SubmitPerMin))

	recClient := recommender.New(cfg)
	slog.Info("recommender client initialized", slog.String("base_url", cfg.RecommenderBaseURL))

	var (
		extractor domain.TextExtractor
		tikaPing  app.Pinger
	)
	if cfg.TikaURL != "" {
		t := tikaext.New(cfg)
		extractor, tikaPing = t, t
	}

	builder := usecase.NewBuilder(classifiers.Normalizer(), classifiers.Extractor(), nil)
	recSvc := usecase.NewRecommendService(builder, recClient, cache, cfg.FallbackSampleEnabled)
	submitter := usecase.NewSubmitter(recSvc)

	sessions := intake.NewStore()
	go sessions.RunPeriodic(ctx, cfg.SessionTTL, cfg.SessionSweepInterval)
	slog.Info("session sweeper started", slog.Duration("ttl", cfg.SessionTTL), slog.Duration("interval", cfg.SessionSweepInterval))

	redisCheck, tikaCheck, recCheck := app.BuildReadinessChecks(cache, tikaPing, recClient)

	srv := httpserver.NewServer(cfg, sessions, submitter, limiter, extractor, redisCheck, tikaCheck, recCheck)
	handler := app.BuildRouter(cfg, srv)

	if cfg.HTTPWriteTimeout <= cfg.SubmitWorstCase() {
		slog.Warn("http write timeout can cut off slow submissions",
			slog.Duration("write_timeout", cfg.HTTPWriteTimeout),
			slog.Duration("submit_worst_case", cfg.SubmitWorstCase()))
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown
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
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.Any("error", err))
	}
	stop()
}
