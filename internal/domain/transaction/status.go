package transaction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProviderStatus is a status token reported by Summit on return or webhook.
type ProviderStatus string

const (
	StatusCommit         ProviderStatus = "commit"
	StatusCreate         ProviderStatus = "create"
	StatusCancel         ProviderStatus = "cancel"
	StatusIdentification ProviderStatus = "identification"
	// StatusUnrecognized stands for anything outside the known set, including an absent status.
	StatusUnrecognized ProviderStatus = ""
)

const (
	MessageAwaitingIdentification = "Awaiting Identification"
	MessageUnrecognizedStatus     = "Received unrecognized status from Summit"
)

// ParseProviderStatus maps a raw token onto the closed status set.
func ParseProviderStatus(raw string) ProviderStatus {
	switch s := ProviderStatus(strings.TrimSpace(raw)); s {
	case StatusCommit, StatusCreate, StatusCancel, StatusIdentification:
		return s
	default:
		return StatusUnrecognized
	}
}

// Transition is the outcome of a provider status.
type Transition struct {
	Status  ProviderStatus
	State   State
	Message string
}

// Recognized is false when the status fell through to the error branch.
func (t Transition) Recognized() bool {
	return t.Status != StatusUnrecognized
}

// TransitionFor is total over ProviderStatus.
func TransitionFor(status ProviderStatus) Transition {
	switch status {
	case StatusCommit:
		return Transition{Status: status, State: StateDone}
	case StatusCreate:
		return Transition{Status: status, State: StatePending}
	case StatusCancel:
		return Transition{Status: status, State: StateCancel}
	case StatusIdentification:
		return Transition{Status: status, State: StatePending, Message: MessageAwaitingIdentification}
	default:
		return Transition{Status: StatusUnrecognized, State: StateError, Message: MessageUnrecognizedStatus}
	}
}

// Order statuses returned by the order-status poll.
const (
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// StateForOrderStatus maps a polled order status. ok is false for statuses
// that must leave the transaction untouched.
func StateForOrderStatus(status string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case OrderStatusCompleted:
		return StateDone, true
	case OrderStatusCancelled:
		return StateCancel, true
	default:
		return "", false
	}
}

// InvalidParameter describes a field whose reported value disagrees with the stored one.
type InvalidParameter struct {
	Field    string
	Received string
	Expected string
}

// AmountMismatches compares a reported amount to the stored one at two-decimal
// precision. A missing or unparsable amount counts as a mismatch.
func (t *Transaction) AmountMismatches(reported string) []InvalidParameter {
	expected := t.Amount.StringFixed(2)
	got, err := decimal.NewFromString(strings.TrimSpace(reported))
	if err == nil && got.Round(2).Equal(t.Amount.Round(2)) {
		return nil
	}
	return []InvalidParameter{{Field: "amount", Received: reported, Expected: expected}}
}
