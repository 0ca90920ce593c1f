package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/redis/go-redis/v9"
)

// TransactionStream carries transaction lifecycle events for downstream consumers
// (order fulfilment, notifications).
const TransactionStream = "summit:transactions"

// defaultMaxLen bounds the stream; older entries are trimmed approximately.
const defaultMaxLen = 100_000

type StreamProducer struct {
	client redis.Cmdable
	stream string
}

func NewStreamProducer(client redis.Cmdable) *StreamProducer {
	return &StreamProducer{client: client, stream: TransactionStream}
}

// Publish appends an outbox entry to the stream and returns the stream ID.
func (p *StreamProducer) Publish(ctx context.Context, entry *outbox.Entry) (string, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: defaultMaxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":       entry.ID.String(),
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID.String(),
			"reference":      entry.Reference,
			"event_type":     entry.EventType,
			"payload":        string(payload),
			"created_at":     entry.CreatedAt.Unix(),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish %s to %s: %w", entry.EventType, p.stream, err)
	}
	return id, nil
}
