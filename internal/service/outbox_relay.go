package service

import (
	"context"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// EventPublisher delivers outbox entries to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, entry *outbox.Entry) (string, error)
}

// OutboxRelay moves pending outbox entries to the event stream.
type OutboxRelay struct {
	outboxRepo outbox.Repository
	txManager  TransactionManager
	publisher  EventPublisher
	batchSize  int
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func NewOutboxRelay(
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	publisher EventPublisher,
	batchSize int,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		txManager:  txManager,
		publisher:  publisher,
		batchSize:  batchSize,
		metrics:    metrics,
		logger:     observability.Component(logger, "outbox_relay"),
	}
}

// RelayOnce publishes one batch and returns how many entries were published.
// Entries that fail stay pending until their retries run out.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := r.outboxRepo.GetPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if _, err := r.publisher.Publish(txCtx, entry); err != nil {
				logger := observability.WithReference(r.logger, entry.Reference)
				logger.Error().Err(err).
					Str("outbox_id", entry.ID.String()).
					Str("event_type", entry.EventType).
					Bool("exhausted", entry.Exhausted()).
					Msg("Failed to publish outbox event")
				r.metrics.RecordOutboxPublish(entry.EventType, "error")
				if err := r.outboxRepo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				continue
			}
			if err := r.outboxRepo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			r.metrics.RecordOutboxPublish(entry.EventType, "success")
			published++
		}
		return nil
	})
	return published, err
}

// Run relays batches every interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if n, err := r.RelayOnce(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Outbox relay error")
		} else if n > 0 {
			r.logger.Debug().Int("published", n).Msg("Outbox events published")
		}
	}
}
