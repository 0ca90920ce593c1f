package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/summitpay/internal/bootstrap"
	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	infraRedis "github.com/cassiomorais/summitpay/internal/infrastructure/redis"
	"github.com/cassiomorais/summitpay/internal/repository/postgres"
	"github.com/cassiomorais/summitpay/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const cleanupInterval = time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "summitpay-worker", "summitpay_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	svc := app.Services()
	workerCfg := app.Config.Worker

	relay := service.NewOutboxRelay(
		svc.Outbox, svc.TxManager,
		infraRedis.NewStreamProducer(app.Redis),
		int(workerCfg.BatchSize), app.Metrics, app.Logger,
	)

	app.Logger.Info().
		Str("instance", app.Config.InstanceID).
		Dur("sync_interval", workerCfg.SyncInterval).
		Str("stream", infraRedis.TransactionStream).
		Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Periodic Summit jobs. Leases keep replicas from running the same job.
	g.Go(func() error {
		return runScheduler(gCtx, app.Logger, svc.Sync, workerCfg.SyncInterval)
	})

	// 2. Outbox relay to Redis Streams.
	g.Go(func() error {
		return relay.Run(gCtx, workerCfg.OutboxPollInterval)
	})

	// 3. Expired idempotency keys and old published events.
	g.Go(func() error {
		return runCleanup(gCtx, app.Logger, svc.Idempotency, svc.Outbox, workerCfg.OutboxRetention)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runScheduler(ctx context.Context, logger zerolog.Logger, sync *service.SyncService, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sync.RunAll(ctx); err != nil {
			if errors.Is(err, domainErrors.ErrJobAlreadyRunning) {
				logger.Debug().Err(err).Msg("Some jobs are running on another instance")
			} else {
				logger.Warn().Err(err).Msg("Scheduled Summit jobs finished with errors")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runCleanup(
	ctx context.Context,
	logger zerolog.Logger,
	keys *postgres.IdempotencyRepository,
	events *postgres.OutboxRepository,
	retention time.Duration,
) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if n, err := keys.Cleanup(ctx); err != nil {
			logger.Error().Err(err).Msg("Idempotency cleanup failed")
		} else if n > 0 {
			logger.Info().Int64("deleted", n).Msg("Expired idempotency keys removed")
		}

		if retention <= 0 {
			continue
		}
		if n, err := events.DeletePublished(ctx, time.Now().Add(-retention)); err != nil {
			logger.Error().Err(err).Msg("Outbox cleanup failed")
		} else if n > 0 {
			logger.Info().Int64("deleted", n).Dur("retention", retention).Msg("Published outbox events removed")
		}
	}
}
