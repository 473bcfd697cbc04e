package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/knowflow/permd/internal/app"
	"github.com/knowflow/permd/internal/audit"
	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/engine"
	"github.com/knowflow/permd/internal/grants"
	"github.com/knowflow/permd/internal/platform/cache"
	"github.com/knowflow/permd/internal/platform/db"
	"github.com/knowflow/permd/internal/roles"
	"github.com/knowflow/permd/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	permCatalog := catalog.New()
	roleCatalog, err := roles.Load(permCatalog, cfg.RoleCatalogPath)
	if err != nil {
		logger.Error("load role catalog", slog.Any("error", err))
		os.Exit(1)
	}

	grantRepo := grants.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)
	permCache := engine.NewCache(redisClient, cfg.PermissionCacheTTL)
	engineSvc := engine.NewService(permCatalog, roleCatalog, grantRepo, permCache, auditRepo, logger, engine.ServiceConfig{
		DefaultRole: cfg.DefaultRole,
	})

	warmupJob := jobs.NewCacheWarmupJob(engineSvc, grantRepo, logger, nil)
	sweepJob := jobs.NewAuditSweepJob(auditRepo, logger, nil, cfg.AuditRetention)

	warmupTask, err := jobs.NewCacheWarmupTask(jobs.CacheWarmupPayload{WindowMinutes: 60, MaxUsers: 500})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewAuditSweepTask(jobs.AuditSweepPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAuditSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 2 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
