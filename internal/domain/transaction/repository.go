package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction persistence
type Repository interface {
	// Create stores a new transaction with its lines
	Create(ctx context.Context, tx *Transaction, lines []*Line) error

	// FindByReference returns every transaction for provider and reference.
	// Callers decide what zero or several matches mean.
	FindByReference(ctx context.Context, provider, reference string) ([]*Transaction, error)

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// LockByID retrieves a transaction and holds a row lock until the surrounding
	// database transaction ends
	LockByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// Update persists state, message and provider fields
	Update(ctx context.Context, tx *Transaction) error

	// List lists transactions with filters, oldest first, ordered by
	// (created_at, id)
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// GetLines returns the order lines of a transaction
	GetLines(ctx context.Context, transactionID uuid.UUID) ([]*Line, error)

	// MarkAdditionalInfoSent sets the additional-info flag
	MarkAdditionalInfoSent(ctx context.Context, id uuid.UUID) error

	// AddEvent adds a transaction event for audit trail
	AddEvent(ctx context.Context, event *Event) error
}

// ListFilter defines filters for listing transactions
type ListFilter struct {
	Provider           string
	States             []State
	AdditionalInfoSent *bool
	After              *Cursor
	Limit              int
}

// Cursor is a keyset position. A page listed with After holds only
// transactions sorting strictly after it.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter positions the next page after tx.
func CursorAfter(tx *Transaction) *Cursor {
	return &Cursor{CreatedAt: tx.CreatedAt, ID: tx.ID}
}
