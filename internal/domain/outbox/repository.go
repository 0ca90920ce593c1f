package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert creates a new outbox entry, normally inside the caller's transaction
	Insert(ctx context.Context, entry *Entry) error

	// GetPending returns pending entries up to limit, skipping rows locked by another relay
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkFailed increments the retry count and fails the entry once retries run out
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// DeletePublished removes entries published before the cutoff.
	DeletePublished(ctx context.Context, before time.Time) (int64, error)
}
