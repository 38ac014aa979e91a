// Command server starts the video generation API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/generator"
	httpserver "github.com/fairyhunter13/video-gen-api/internal/adapter/httpserver"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/observability"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/localstore"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/redisstore"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/worker"
	"github.com/fairyhunter13/video-gen-api/internal/app"
	"github.com/fairyhunter13/video-gen-api/internal/config"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/queue"
	"github.com/fairyhunter13/video-gen-api/internal/service/ratelimiter"
	"github.com/fairyhunter13/video-gen-api/internal/service/scheduler"
	"github.com/fairyhunter13/video-gen-api/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, rate limit and job instrumentation.
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

	// Atomic store: Redis when reachable, in-process otherwise. The
	// in-process store always exists as the per-call fallback.
	ctx := context.Background()
	local := localstore.New()
	var atomic domain.AtomicStore = local
	var fallback domain.AtomicStore
	var redisPing func(context.Context) error

	rdb, err := redisstore.Connect(ctx, cfg.RedisURL, cfg.RedisMaxConnections)
	if err != nil {
		slog.Warn("redis unavailable, using in-process store",
			slog.String("url", cfg.RedisURL),
			slog.Any("error", err))
	} else {
		rstore := redisstore.New(rdb)
		atomic = rstore
		fallback = local
		redisPing = rstore.Ping
		defer func() { _ = rdb.Close() }()
	}

	// Resource store with the static test users
	store := memstore.New()

	// Services
	limiter := ratelimiter.New(atomic, fallback, logger)
	sched := scheduler.New(queue.New(atomic, fallback, cfg.QueueCapacity, logger), logger)

	// Usecases
	jobSvc := usecase.NewJobService(store, sched, logger)
	videoSvc := usecase.NewVideoService(store, logger)
	accountSvc := usecase.NewAccountService(store, limiter)

	// Worker
	if cfg.WorkerEnabled {
		w := worker.New(store, sched, atomic, generator.NewMock(logger), cfg.WorkerPollInterval(), logger)
		w.Start()
		defer w.Stop()
	} else {
		slog.Info("worker disabled, jobs will stay queued")
	}

	// HTTP server
	hub := httpserver.NewDashboardHub(store, sched, limiter, logger)
	srv := httpserver.NewServer(cfg, store, jobSvc, videoSvc, accountSvc, limiter, hub)
	srv.RedisPing = redisPing

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.String("addr", cfg.Addr()))
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
