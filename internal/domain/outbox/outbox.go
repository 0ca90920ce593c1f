package outbox

import (
	"time"

	"github.com/google/uuid"
)

const (
	AggregateTransaction = "transaction"

	EventStateChanged       = "transaction.state_changed"
	EventAdditionalInfoSent = "transaction.additional_info_sent"
)

// Entry is an event written in the same database transaction as the change it
// describes and relayed to the event stream afterwards. Reference is the store
// reference of the Summit transaction so consumers can route events without
// decoding the payload.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	Reference     string
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

const defaultMaxRetries = 5

func NewEntry(aggregateType string, aggregateID uuid.UUID, reference, eventType string, payload map[string]any) *Entry {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Reference:     reference,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		MaxRetries:    defaultMaxRetries,
		CreatedAt:     time.Now(),
	}
}

// StateChanged records a transaction moving between states. data carries the
// transition details and is merged over the identifying fields.
func StateChanged(transactionID uuid.UUID, reference, amount string, data map[string]any) *Entry {
	payload := map[string]any{
		"transaction_id": transactionID.String(),
		"reference":      reference,
		"amount":         amount,
	}
	for k, v := range data {
		payload[k] = v
	}
	return NewEntry(AggregateTransaction, transactionID, reference, EventStateChanged, payload)
}

// AdditionalInfoSent records that the order lines were pushed to Summit.
func AdditionalInfoSent(transactionID uuid.UUID, reference string, items int) *Entry {
	return NewEntry(AggregateTransaction, transactionID, reference, EventAdditionalInfoSent, map[string]any{
		"transaction_id": transactionID.String(),
		"reference":      reference,
		"items":          items,
	})
}

// Exhausted reports whether another failure would mark the entry failed.
func (e *Entry) Exhausted() bool {
	return e.RetryCount+1 >= e.MaxRetries
}
