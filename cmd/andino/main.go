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

	"github.com/andino-erp/andino-erp/internal/accounts"
	"github.com/andino-erp/andino-erp/internal/app"
	"github.com/andino-erp/andino-erp/internal/catalog"
	"github.com/andino-erp/andino-erp/internal/contacts"
	"github.com/andino-erp/andino-erp/internal/invoicing"
	"github.com/andino-erp/andino-erp/internal/journal"
	"github.com/andino-erp/andino-erp/internal/orgconfig"
	"github.com/andino-erp/andino-erp/internal/payments"
	"github.com/andino-erp/andino-erp/internal/platform/cache"
	"github.com/andino-erp/andino-erp/internal/platform/db"
	"github.com/andino-erp/andino-erp/internal/purchasing"
	"github.com/andino-erp/andino-erp/internal/retention"
	"github.com/andino-erp/andino-erp/internal/treasury"
	"github.com/andino-erp/andino-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := cache.NewClient(cfg.RedisAddr)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	balanceCache := cache.NewBalances(redisClient, cfg.BalanceCacheTTL)

	accountsService := accounts.NewService(accounts.NewRepository(dbpool))
	journalService := journal.NewService(journal.NewRepository(dbpool))
	treasuryService := treasury.NewService(treasury.NewRepository(dbpool), balanceCache)
	purchasingService := purchasing.NewService(purchasing.NewRepository(dbpool))
	invoicingService := invoicing.NewService(invoicing.NewRepository(dbpool))
	paymentsService := payments.NewService(payments.NewRepository(dbpool), balanceCache)
	retentionService := retention.NewService(retention.NewRepository(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountsHandler:   accounts.NewHandler(logger, accountsService),
		JournalHandler:    journal.NewHandler(logger, journalService),
		TreasuryHandler:   treasury.NewHandler(logger, treasuryService),
		PurchasingHandler: purchasing.NewHandler(logger, purchasingService),
		InvoicingHandler:  invoicing.NewHandler(logger, invoicingService),
		PaymentsHandler:   payments.NewHandler(logger, paymentsService),
		RetentionHandler:  retention.NewHandler(logger, retentionService),
		ContactsHandler:   contacts.NewHandler(logger, contacts.NewRepository(dbpool)),
		CatalogHandler:    catalog.NewHandler(logger, catalog.NewRepository(dbpool)),
		OrgConfigHandler:  orgconfig.NewHandler(logger, orgconfig.NewRepository(dbpool)),
		JobHandler:        jobs.NewHandler(inspector, logger),
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
