package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropflowhq/dropflow-backend/internal/cron"
	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/internal/payments"
	"github.com/dropflowhq/dropflow-backend/internal/payouts"
	"github.com/dropflowhq/dropflow-backend/internal/profit"
	"github.com/dropflowhq/dropflow-backend/internal/suppliers"
	"github.com/dropflowhq/dropflow-backend/pkg/config"
	"github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/metrics"
	"github.com/dropflowhq/dropflow-backend/pkg/migrate"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
	"github.com/dropflowhq/dropflow-backend/pkg/redis"
	"github.com/dropflowhq/dropflow-backend/pkg/square"
	"github.com/dropflowhq/dropflow-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "fulfillment-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "fulfillment-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	gdb, err := db.NewClient(cfg.DB)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, gdb); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	verifier, err := payments.NewVerifier(payments.Params{
		Stripe: stripeClient,
		Square: squareClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment verifier", err)
		os.Exit(1)
	}

	calculator, err := profit.NewCalculator(cfg.Fulfillment.DefaultMargin)
	if err != nil {
		logg.Error(context.Background(), "failed to create profit calculator", err)
		os.Exit(1)
	}

	supplierRepo := suppliers.NewRepository(gdb)
	dispatcher, err := suppliers.NewDispatcher(suppliers.Params{
		DB:          gdb,
		Repo:        supplierRepo,
		Gateway:     suppliers.StaticGateway{},
		Outbox:      outboxService,
		Logger:      logg,
		Metrics:     pipelineMetrics,
		MaxAttempts: cfg.Fulfillment.DispatchMaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier dispatcher", err)
		os.Exit(1)
	}

	payoutRepo := payouts.NewRepository(gdb)
	initiator, err := payouts.NewInitiator(payouts.Params{
		DB:        gdb,
		Repo:      payoutRepo,
		Processor: stripeClient,
		Outbox:    outboxService,
		Logger:    logg,
		Metrics:   pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout initiator", err)
		os.Exit(1)
	}
	reconciler, err := payouts.NewReconciler(payoutRepo, stripeClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer reconciler", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.Params{
		DB:              gdb,
		Repo:            fulfillment.NewRepository(gdb),
		SupplierOrders:  supplierRepo,
		Verifier:        verifier,
		Calculator:      calculator,
		Dispatcher:      dispatcher,
		Payouts:         initiator,
		Transfers:       payoutRepo,
		Outbox:          outboxService,
		Logger:          logg,
		Metrics:         pipelineMetrics,
		BatchSize:       cfg.Fulfillment.BatchSize,
		StaleClaimAfter: cfg.Fulfillment.StaleClaimAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	fulfillmentJob, err := cron.NewFulfillmentJob(cron.FulfillmentJobParams{
		Logger:    logg,
		Processor: fulfillmentService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment job", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewTransferReconcileJob(cron.TransferReconcileJobParams{
		Logger:     logg,
		Reconciler: reconciler,
		Limit:      cfg.Cron.JobsLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer reconcile job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(gdb),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("fulfillment-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(fulfillmentJob, reconcileJob, retentionJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting fulfillment worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "fulfillment worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "fulfillment worker shutting down gracefully")
}
