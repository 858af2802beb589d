package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/api"
	"github.com/notifyhub/weekly-dispatch/internal/config"
	"github.com/notifyhub/weekly-dispatch/internal/db"
	"github.com/notifyhub/weekly-dispatch/internal/dispatch"
	"github.com/notifyhub/weekly-dispatch/internal/logger"
	"github.com/notifyhub/weekly-dispatch/internal/metrics"
	"github.com/notifyhub/weekly-dispatch/internal/provider"
	"github.com/notifyhub/weekly-dispatch/internal/ratelimiter"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
	"github.com/notifyhub/weekly-dispatch/internal/service"
	"github.com/notifyhub/weekly-dispatch/internal/window"
	"github.com/notifyhub/weekly-dispatch/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}
	zl.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	onResult, onStep, onRun := m.Hooks()

	users := repository.NewPgUserRepository(pool)
	outcomes := repository.NewPgOutcomeRepository(pool)
	gen := provider.NewHTTPGenerator(cfg.GeneratorURL, cfg.ProviderTimeout)
	del := provider.NewWebhookDeliverer(cfg.DeliveryURL, cfg.ProviderTimeout)
	limiter := ratelimiter.New(cfg.GenerationRateLimit, cfg.DeliveryRateLimit)

	orch := dispatch.NewOrchestrator(gen, del, outcomes, limiter, cfg.StepTimeout, zl,
		dispatch.WithStepHook(onStep))
	driver := dispatch.NewDriver(users, orch, window.NewMatcher(cfg.MatchTolerance),
		cfg.DispatchWorkers, cfg.RunTimeout, zl, dispatch.Hooks{OnResult: onResult, OnRun: onRun})
	schedules := service.NewScheduleService(users, dispatch.NewOutcomeLog(outcomes, zl), zl)

	// ---- optional in-process trigger ----
	// Context for background runs; cancelled on shutdown signal.
	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	var trigger *worker.CronTrigger
	if cfg.CronSpec != "" {
		trigger, err = worker.NewCronTrigger(cfg.CronSpec, driver.RunOnce, zl)
		if err != nil {
			zl.Fatal("invalid CRON_SPEC", zap.Error(err))
		}
		trigger.Start(bgCtx)
	}

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Dispatcher: driver,
		Schedules:  schedules,
		DB:         pool,
		Gatherer:   reg,
		CronSecret: cfg.CronSecret,
		Logger:     zl,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		zl.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Int("workers", cfg.DispatchWorkers),
			zap.Int("match_tolerance_min", cfg.MatchTolerance),
			zap.Bool("cron_trigger", trigger != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	// 1. Stop accepting new HTTP requests; an in-flight trigger run finishes.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop scheduled fires and let a running one drain.
	if trigger != nil {
		trigger.Stop(shutdownCtx)
	}
	cancelBg()

	zl.Info("server stopped cleanly")
}
