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

	"github.com/hibiken/asynq"

	"github.com/knowflow/permd/internal/app"
	"github.com/knowflow/permd/internal/audit"
	"github.com/knowflow/permd/internal/catalog"
	"github.com/knowflow/permd/internal/engine"
	"github.com/knowflow/permd/internal/grants"
	"github.com/knowflow/permd/internal/observability"
	"github.com/knowflow/permd/internal/platform/cache"
	"github.com/knowflow/permd/internal/platform/db"
	"github.com/knowflow/permd/internal/roles"
	"github.com/knowflow/permd/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		// Checks keep working without Redis; every one recomputes.
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	permCatalog := catalog.New()
	roleCatalog, err := roles.Load(permCatalog, cfg.RoleCatalogPath)
	if err != nil {
		// Cyclic or invalid role definitions are configuration bugs;
		// refusing to start beats discovering them mid-request.
		logger.Error("load role catalog", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := roleCatalog.Lookup(cfg.AdminRole); err != nil {
		logger.Error("admin role not in catalog", slog.String("role", cfg.AdminRole), slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.DefaultRole != "" {
		if _, err := roleCatalog.Lookup(cfg.DefaultRole); err != nil {
			logger.Error("default role not in catalog", slog.String("role", cfg.DefaultRole), slog.Any("error", err))
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics()

	grantRepo := grants.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)
	permCache := engine.NewCache(redisClient, cfg.PermissionCacheTTL)
	engineSvc := engine.NewService(permCatalog, roleCatalog, grantRepo, permCache, auditRepo, logger, engine.ServiceConfig{
		DefaultRole:      cfg.DefaultRole,
		DecisionObserver: metrics.RecordDecision,
	})
	guard := engine.Middleware{Service: engineSvc, Logger: logger, AdminRole: cfg.AdminRole}
	permHandler := engine.NewHandler(logger, engineSvc, guard)
	auditHandler := audit.NewHandler(logger, audit.NewService(auditRepo))

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobsClient, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PermissionHandler: permHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
		Guard:             guard,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("permission service listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
