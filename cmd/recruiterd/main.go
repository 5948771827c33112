// Command recruiterd runs the recruiting pipeline daemon: the worker pool
// executing pipeline jobs, the scheduler's discovery and maintenance
// passes, and the operational HTTP API.
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

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/api"
	"github.com/bbischke-nelo/airecruiter2-sub000/backoff"
	"github.com/bbischke-nelo/airecruiter2-sub000/clients"
	"github.com/bbischke-nelo/airecruiter2-sub000/middleware"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
	"github.com/bbischke-nelo/airecruiter2-sub000/scheduler"
	"github.com/bbischke-nelo/airecruiter2-sub000/session"
	"github.com/bbischke-nelo/airecruiter2-sub000/store/postgres"
	"github.com/bbischke-nelo/airecruiter2-sub000/worker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("recruiterd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := recruiter.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// ──────────────────────────────────────────────────
	// Stores
	// ──────────────────────────────────────────────────

	st, err := postgres.New(ctx, cfg.PostgresDSN, postgres.WithLogger(logger))
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close() //nolint:errcheck
	tracker := session.NewRedisTracker(rdb)

	// ──────────────────────────────────────────────────
	// Queue, pipeline, workers
	// ──────────────────────────────────────────────────

	strategy, err := backoff.Parse(cfg.RetryStrategy, cfg.RetryBaseDelay, cfg.RetryMaxDelay)
	if err != nil {
		return err
	}
	qmOpts := []queue.Option{
		queue.WithLogger(logger),
		queue.WithBackoff(strategy),
	}
	if cfg.ClaimRateLimit > 0 {
		qmOpts = append(qmOpts, queue.WithClaimRateLimit(rate.Limit(cfg.ClaimRateLimit), cfg.Concurrency))
	}
	qm, err := queue.New(st, nil, qmOpts...)
	if err != nil {
		return err
	}

	hr := clients.NewHR(cfg.HRBaseURL,
		clients.WithHRToken(cfg.HRAPIToken),
		clients.WithHRLogger(logger),
	)
	llm := clients.NewLLM(cfg.LLMBaseURL,
		clients.WithLLMAPIKey(cfg.LLMAPIKey),
		clients.WithLLMModel(cfg.LLMModel),
		clients.WithLLMLogger(logger),
	)
	docs, err := clients.NewFSDocumentStore(cfg.DocumentRoot)
	if err != nil {
		return err
	}

	p := pipeline.New(qm, st, tracker, hr, llm, hr, docs,
		pipeline.WithLogger(logger),
		pipeline.WithSessionTTL(cfg.SessionTTL),
	)
	registry, err := p.Registry()
	if err != nil {
		return err
	}
	qm.Bind(registry)

	executor := worker.NewExecutor(registry, qm, logger,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.Timeout(registry, logger),
		middleware.Metrics(),
		middleware.Tracing(),
	)
	pool := worker.NewPool(qm, executor, logger,
		worker.WithPoolConcurrency(cfg.Concurrency),
		worker.WithPollInterval(cfg.PollInterval),
	)

	sched, err := scheduler.New(st, qm, tracker,
		scheduler.WithLogger(logger),
		scheduler.WithDiscoverySchedule(cfg.DiscoverySchedule),
		scheduler.WithMaintenanceSchedule(cfg.MaintenanceSchedule),
		scheduler.WithStuckJobThreshold(cfg.StuckJobThreshold),
		scheduler.WithStuckEntityThreshold(cfg.StuckEntityThreshold),
		scheduler.WithCompletedRetention(cfg.CompletedRetention),
		scheduler.WithRequisitionSyncInterval(cfg.RequisitionSyncInterval),
	)
	if err != nil {
		return err
	}

	// ──────────────────────────────────────────────────
	// HTTP surface
	// ──────────────────────────────────────────────────

	handler := api.New(qm, st,
		api.WithLogger(logger),
		api.WithPool(pool),
		api.WithScheduler(sched),
	).Handler()

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ──────────────────────────────────────────────────
	// Start and wait for shutdown
	// ──────────────────────────────────────────────────

	if err := pool.Start(ctx); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	logger.Info("recruiterd started",
		slog.String("addr", cfg.APIAddr),
		slog.Int("concurrency", cfg.Concurrency),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop", slog.String("error", err.Error()))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Error("pool stop", slog.String("error", err.Error()))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.String("error", err.Error()))
	}

	logger.Info("recruiterd stopped")
	return nil
}
