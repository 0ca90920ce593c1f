package transaction_test

import (
	"testing"

	"github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(t *testing.T, state transaction.State) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewTransaction("R1", decimal.RequireFromString("100.00"), "EUR")
	require.NoError(t, err)
	tx.State = state
	return tx
}

func TestNewTransaction_Valid(t *testing.T) {
	tx, err := transaction.NewTransaction(" S0042 ", decimal.RequireFromString("149.999"), "eur")
	require.NoError(t, err)
	assert.Equal(t, "S0042", tx.Reference)
	assert.Equal(t, transaction.ProviderSummit, tx.Provider)
	assert.Equal(t, transaction.StateDraft, tx.State)
	assert.Equal(t, "150.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "EUR", tx.Currency)
	assert.False(t, tx.AdditionalInfoSent)
}

func TestNewTransaction_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		amount    string
		currency  string
		field     string
	}{
		{"empty reference", "  ", "10", "EUR", "reference"},
		{"zero amount", "R1", "0", "EUR", "amount"},
		{"negative amount", "R1", "-5", "EUR", "amount"},
		{"bad currency", "R1", "10", "EU", "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transaction.NewTransaction(tt.reference, decimal.RequireFromString(tt.amount), tt.currency)
			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestTransitionFor_Table(t *testing.T) {
	tests := []struct {
		raw     string
		state   transaction.State
		message string
	}{
		{"commit", transaction.StateDone, ""},
		{"create", transaction.StatePending, ""},
		{"cancel", transaction.StateCancel, ""},
		{"identification", transaction.StatePending, transaction.MessageAwaitingIdentification},
		{"", transaction.StateError, transaction.MessageUnrecognizedStatus},
		{"COMMIT", transaction.StateError, transaction.MessageUnrecognizedStatus},
		{"refunded", transaction.StateError, transaction.MessageUnrecognizedStatus},
	}

	for _, tt := range tests {
		t.Run("status_"+tt.raw, func(t *testing.T) {
			tr := transaction.TransitionFor(transaction.ParseProviderStatus(tt.raw))
			assert.Equal(t, tt.state, tr.State)
			assert.Equal(t, tt.message, tr.Message)
		})
	}
}

func TestApplyProviderStatus_NotGuardedByState(t *testing.T) {
	tx := newTx(t, transaction.StateDone)

	tr, changed := tx.ApplyProviderStatus("create")
	assert.True(t, changed)
	assert.True(t, tr.Recognized())
	assert.Equal(t, transaction.StatePending, tx.State)
}

func TestApplyProviderStatus_ClearsMessage(t *testing.T) {
	tx := newTx(t, transaction.StatePending)
	tx.StateMessage = transaction.MessageAwaitingIdentification

	_, changed := tx.ApplyProviderStatus("commit")
	assert.True(t, changed)
	assert.Equal(t, transaction.StateDone, tx.State)
	assert.Empty(t, tx.StateMessage)
}

func TestApplyProviderStatus_RepeatedUnknownReassertsError(t *testing.T) {
	tx := newTx(t, transaction.StatePending)

	tr, changed := tx.ApplyProviderStatus("weird")
	assert.True(t, changed)
	assert.False(t, tr.Recognized())

	_, changed = tx.ApplyProviderStatus("weird")
	assert.False(t, changed)
	assert.Equal(t, transaction.StateError, tx.State)

	_, changed = tx.ApplyProviderStatus("commit")
	assert.True(t, changed)
	assert.Equal(t, transaction.StateDone, tx.State)
}

func TestApplyOrderStatus(t *testing.T) {
	tests := []struct {
		status  string
		state   transaction.State
		changed bool
	}{
		{"completed", transaction.StateDone, true},
		{"cancelled", transaction.StateCancel, true},
		{"in_progress", transaction.StatePending, false},
		{"", transaction.StatePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			tx := newTx(t, transaction.StatePending)
			assert.Equal(t, tt.changed, tx.ApplyOrderStatus(tt.status))
			assert.Equal(t, tt.state, tx.State)
		})
	}
}

func TestApplyOrderStatus_Unchanged(t *testing.T) {
	tx := newTx(t, transaction.StateDone)
	assert.False(t, tx.ApplyOrderStatus("completed"))
}

func TestAmountMismatches(t *testing.T) {
	tx := newTx(t, transaction.StatePending)

	assert.Empty(t, tx.AmountMismatches("100.00"))
	assert.Empty(t, tx.AmountMismatches("100"))
	assert.Empty(t, tx.AmountMismatches("100.004"))

	mismatches := tx.AmountMismatches("99.99")
	require.Len(t, mismatches, 1)
	assert.Equal(t, transaction.InvalidParameter{Field: "amount", Received: "99.99", Expected: "100.00"}, mismatches[0])

	assert.Len(t, tx.AmountMismatches(""), 1)
	assert.Len(t, tx.AmountMismatches("abc"), 1)
}

func TestIsTerminalAndOpen(t *testing.T) {
	assert.True(t, newTx(t, transaction.StateDone).IsTerminal())
	assert.True(t, newTx(t, transaction.StateCancel).IsTerminal())
	assert.False(t, newTx(t, transaction.StateError).IsTerminal())

	assert.True(t, newTx(t, transaction.StateAuthorized).IsOpen())
	assert.False(t, newTx(t, transaction.StateError).IsOpen())
}

func TestSelectInstallments(t *testing.T) {
	tx := newTx(t, transaction.StateDraft)
	tx.SetRedirect("https://pktest.takoleasy.si/pay/1", installment.NewSchedule(
		installment.Option{Count: 6, PerInstallmentValue: decimal.RequireFromString("16.67")},
		installment.Option{Count: 12, PerInstallmentValue: decimal.RequireFromString("8.34")},
	))

	require.NoError(t, tx.SelectInstallments(12))
	require.NotNil(t, tx.SelectedInstallments)
	assert.Equal(t, 12, *tx.SelectedInstallments)

	assert.Error(t, tx.SelectInstallments(7))
	assert.Error(t, tx.SelectInstallments(-1))

	require.NoError(t, tx.SelectInstallments(0))
	assert.Nil(t, tx.SelectedInstallments)
}
