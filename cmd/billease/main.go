package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billease/billease/internal/app"
	"github.com/billease/billease/internal/audit"
	"github.com/billease/billease/internal/bank"
	"github.com/billease/billease/internal/documents"
	"github.com/billease/billease/internal/gst"
	"github.com/billease/billease/internal/masterdata/items"
	"github.com/billease/billease/internal/masterdata/parties"
	"github.com/billease/billease/internal/observability"
	"github.com/billease/billease/internal/partybalance"
	"github.com/billease/billease/internal/payroll"
	"github.com/billease/billease/internal/platform/db"
	"github.com/billease/billease/internal/platform/rdb"
	"github.com/billease/billease/internal/shared"
	"github.com/billease/billease/internal/stock"
	"github.com/billease/billease/jobs"
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

	dbpool, err := db.New(ctx, cfg.Postgres("billease-api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := rdb.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locker := shared.NewLocker(redisClient, cfg.FilingLockTTL)

	jobClient := jobs.NewClient(cfg.Redis().AsynqOpt(), logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	itemService := items.NewService(items.NewRepository(dbpool), auditLogger, logger)
	partyService := parties.NewService(parties.NewRepository(dbpool), auditLogger, logger)
	stockService := stock.NewService(stock.NewRepository(dbpool), auditLogger, idempotencyStore, metrics, logger,
		stock.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	balanceService := partybalance.NewService(partybalance.NewRepository(dbpool), metrics)
	documentService := documents.NewService(documents.NewRepository(dbpool), auditLogger, idempotencyStore, logger)
	gstService := gst.NewService(gst.NewRepository(dbpool), locker, auditLogger, metrics, logger)
	bankService := bank.NewService(bank.NewRepository(dbpool), jobClient, auditLogger, metrics, logger, cfg.ReconcileDateTolerance)
	payrollService := payroll.NewService(payroll.NewRepository(dbpool), auditLogger, metrics, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		ItemsHandler:        items.NewHandler(logger, itemService),
		PartiesHandler:      parties.NewHandler(logger, partyService),
		StockHandler:        stock.NewHandler(logger, stockService),
		PartyBalanceHandler: partybalance.NewHandler(logger, balanceService),
		DocumentsHandler:    documents.NewHandler(logger, documentService),
		GSTHandler:          gst.NewHandler(logger, gstService),
		BankHandler:         bank.NewHandler(logger, bankService),
		PayrollHandler:      payroll.NewHandler(logger, payrollService),
		JobHandler:          jobs.NewHandler(inspector, logger),
		AuditHandler:        audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
