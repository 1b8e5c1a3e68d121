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
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/hesabyar/hesabyar/internal/app"
	"github.com/hesabyar/hesabyar/internal/cheques"
	"github.com/hesabyar/hesabyar/internal/expenses"
	"github.com/hesabyar/hesabyar/internal/fees"
	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/invoices"
	"github.com/hesabyar/hesabyar/internal/observability"
	"github.com/hesabyar/hesabyar/internal/partners"
	"github.com/hesabyar/hesabyar/internal/platform/cache"
	"github.com/hesabyar/hesabyar/internal/platform/db"
	"github.com/hesabyar/hesabyar/internal/purchases"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/internal/shared"
	"github.com/hesabyar/hesabyar/jobs"
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
	loc, _ := cfg.Location()
	lowStock, _ := cfg.LowStock()
	today := shared.Today(loc)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.SchemaAutoMigrate {
		if err := db.EnsureSchema(ctx, dbpool); err != nil {
			logger.Error("ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Reports fall back to uncached computation when Redis is unavailable.
	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	partnersService := partners.NewService(partners.NewRepository(dbpool))
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), inventory.ServiceConfig{LowStockThreshold: lowStock})
	chequesService := cheques.NewService(cheques.NewRepository(dbpool))
	feesService := fees.NewService(fees.NewRepository(dbpool))
	expensesService := expenses.NewService(expenses.NewRepository(dbpool))
	purchasesService := purchases.NewService(purchases.NewRepository(dbpool), partnersService, logger)

	invoicesService := invoices.NewService(invoices.NewRepository(dbpool), partnersService, inventoryService, chequesService,
		invoices.ServiceConfig{Logger: logger, Today: today, Metrics: metrics})

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportCache, reports.Config{
		Cheques:      chequesService,
		Stock:        inventoryService,
		OpenInvoices: invoicesService,
		Logger:       logger,
		SalesDays:    cfg.DashboardSalesDays,
	})
	invalidator := reports.NewInvalidator(reportCache, logger)
	invoicesService.Subscribe(invalidator)
	expensesService.OnChange(invalidator.ExpensesChanged)
	inventoryService.OnChange(invalidator.CatalogChanged)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		PartnersHandler:  partners.NewHandler(logger, partnersService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		InvoicesHandler:  invoices.NewHandler(logger, invoicesService, idempotencyStore),
		PurchasesHandler: purchases.NewHandler(logger, purchasesService),
		ChequesHandler:   cheques.NewHandler(logger, chequesService),
		ExpensesHandler:  expenses.NewHandler(logger, expensesService),
		FeesHandler:      fees.NewHandler(logger, feesService),
		ReportsHandler:   reports.NewHandler(logger, reportsService, today),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
