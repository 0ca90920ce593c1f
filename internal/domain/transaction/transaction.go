package transaction

import (
	"strings"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderSummit is the only provider code this service handles.
const ProviderSummit = "summit"

// State represents the transaction state
type State string

const (
	StateDraft      State = "draft"
	StatePending    State = "pending"
	StateAuthorized State = "authorized"
	StateDone       State = "done"
	StateCancel     State = "cancel"
	StateError      State = "error"
)

// OpenStates are the states still awaiting a final answer from the provider.
var OpenStates = []State{StateDraft, StatePending, StateAuthorized}

// Transaction is a payment attempt against the provider, correlated by Reference.
type Transaction struct {
	ID                   uuid.UUID
	Reference            string
	Provider             string
	Amount               decimal.Decimal
	Currency             string
	State                State
	StateMessage         string
	ProviderPaymentID    *string
	SelectedInstallments *int
	RedirectURL          *string
	InstallmentOptions   installment.Schedule
	AdditionalInfoSent   bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Line is an order line summarised for the provider.
type Line struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	ProductName   string
	Quantity      decimal.Decimal
	PriceTotal    decimal.Decimal
}

// Event is an audit record of a state change.
type Event struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	EventType     string
	EventData     map[string]any
	CreatedAt     time.Time
}

// NewTransaction creates a draft transaction
func NewTransaction(reference string, amount decimal.Decimal, currency string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errors.NewValidationError("reference", "cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Transaction{
		ID:        uuid.New(),
		Reference: reference,
		Provider:  ProviderSummit,
		Amount:    amount.Round(2),
		Currency:  strings.ToUpper(currency),
		State:     StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyProviderStatus applies the transition table for a provider status and
// reports whether state or message changed. It is not guarded by the current
// state: the last status received wins.
func (t *Transaction) ApplyProviderStatus(raw string) (Transition, bool) {
	tr := TransitionFor(ParseProviderStatus(raw))
	return tr, t.apply(tr.State, tr.Message)
}

// ApplyOrderStatus applies a polled order status. Unmapped statuses leave the
// transaction untouched.
func (t *Transaction) ApplyOrderStatus(status string) bool {
	state, ok := StateForOrderStatus(status)
	if !ok {
		return false
	}
	return t.apply(state, "")
}

func (t *Transaction) apply(state State, message string) bool {
	if t.State == state && t.StateMessage == message {
		return false
	}
	t.State = state
	t.StateMessage = message
	t.UpdatedAt = time.Now()
	return true
}

// IsTerminal checks if the transaction reached done or cancel
func (t *Transaction) IsTerminal() bool {
	return t.State == StateDone || t.State == StateCancel
}

// IsOpen reports whether the provider can still move the transaction.
func (t *Transaction) IsOpen() bool {
	for _, s := range OpenStates {
		if t.State == s {
			return true
		}
	}
	return false
}

// SetRedirect stores the link returned by the provider along with the options quoted for it.
func (t *Transaction) SetRedirect(url string, options installment.Schedule) {
	t.RedirectURL = &url
	t.InstallmentOptions = options
	t.UpdatedAt = time.Now()
}

// SelectInstallments records the customer's choice. Zero clears it.
func (t *Transaction) SelectInstallments(count int) error {
	if count < 0 {
		return errors.NewValidationError("selected_installments", "must not be negative")
	}
	if count == 0 {
		t.SelectedInstallments = nil
		return nil
	}
	if !t.InstallmentOptions.IsEmpty() && !t.InstallmentOptions.Offers(count) {
		return errors.NewValidationError("selected_installments", "not among the quoted options")
	}
	t.SelectedInstallments = &count
	return nil
}
