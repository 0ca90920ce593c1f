package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *OutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, reference, event_type, payload, status, retry_count, max_retries, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.AggregateType, entry.AggregateID, entry.Reference, entry.EventType, payload,
		string(entry.Status), entry.RetryCount, entry.MaxRetries, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry %s for %s: %w", entry.EventType, entry.Reference, err)
	}
	return nil
}

// GetPending must run inside a transaction for the row locks to hold until the
// relay marks the entries.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, aggregate_type, aggregate_id, reference, event_type, payload, status, retry_count, max_retries, created_at, published_at
		 FROM outbox WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, string(outbox.StatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []*outbox.Entry
	for rows.Next() {
		e := &outbox.Entry{}
		var (
			payload []byte
			status  string
		)
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Reference, &e.EventType, &payload, &status,
			&e.RetryCount, &e.MaxRetries, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.Status = outbox.Status(status)
		e.Payload = map[string]any{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal outbox payload %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox SET status = $1, published_at = NOW() WHERE id = $2`,
		string(outbox.StatusPublished), id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1,
		        status = CASE WHEN retry_count + 1 >= max_retries THEN $1 ELSE $2 END
		 WHERE id = $3`,
		string(outbox.StatusFailed), string(outbox.StatusPending), id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// DeletePublished removes entries that reached the stream before the cutoff.
// Failed entries are kept for inspection.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`DELETE FROM outbox WHERE status = $1 AND published_at < $2`,
		string(outbox.StatusPublished), before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete published outbox entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
