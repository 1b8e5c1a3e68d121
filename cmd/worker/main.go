package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/hesabyar/hesabyar/internal/app"
	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/inventory"
	jobmetrics "github.com/hesabyar/hesabyar/internal/jobs"
	"github.com/hesabyar/hesabyar/internal/platform/cache"
	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/internal/shared"
	"github.com/hesabyar/hesabyar/jobs"
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
	loc, _ := cfg.Location()
	lowStock, _ := cfg.LowStock()
	today := shared.Today(loc)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	chequesService := cheques.NewService(cheques.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceConfig{LowStockThreshold: lowStock})
	reportsService := reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.ReportCacheTTL, logger), reports.Config{
		Cheques: chequesService,
		Stock:   inventoryService,
		Logger:  logger,
	})
	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Queues:      cfg.WorkerQueues,
		Location:    loc,
		Jobs: jobs.Handlers{
			ReportsWarmup:      &jobs.ReportsWarmupJob{Reports: reportsService, Logger: logger, Metrics: metrics, Today: today},
			ChequesDueScan:     &jobs.ChequesDueScanJob{Cheques: chequesService, Logger: logger, Metrics: metrics, Today: today},
			IdempotencyCleanup: &jobs.IdempotencyCleanupJob{Store: shared.NewIdempotencyStore(pool), Logger: logger, Metrics: metrics},
		},
		Schedule: jobs.DefaultSchedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
