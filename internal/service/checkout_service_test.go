package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	checkout  *CheckoutService
	api       *testutil.MockSummitAPI
	txRepo    *testutil.MockTransactionRepository
	txManager *testutil.MockTransactionManager
}

func setupCheckout() *checkoutFixture {
	f := &checkoutFixture{
		api: &testutil.MockSummitAPI{
			GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
				return testutil.InstallmentResponse(testutil.Schedule(3, "40.00", 6, "20.00")), nil
			},
		},
		txRepo:    testutil.NewMockTransactionRepository(),
		txManager: testutil.NewMockTransactionManager(),
	}
	links := newPaymentLinkService(f.api, "https://shop.example")
	f.checkout = NewCheckoutService(f.txRepo, f.txManager, links, zerolog.Nop())
	return f
}

func checkoutRequest(reference string) CheckoutRequest {
	return CheckoutRequest{
		Reference: reference,
		Amount:    decimal.RequireFromString("120"),
		Currency:  "eur",
		Lines: []CheckoutLine{
			{ProductName: "Chair", Quantity: decimal.NewFromInt(2), PriceTotal: decimal.RequireFromString("80")},
			{ProductName: "Lamp", Quantity: decimal.NewFromInt(1), PriceTotal: decimal.RequireFromString("40")},
		},
	}
}

func TestCheckout_Success(t *testing.T) {
	f := setupCheckout()
	req := checkoutRequest("C1")
	req.SelectedInstallments = 6

	tx, err := f.checkout.Checkout(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "C1", tx.Reference)
	assert.Equal(t, "EUR", tx.Currency)
	assert.Equal(t, transaction.StateDraft, tx.State)
	require.NotNil(t, tx.RedirectURL)
	assert.Equal(t, "https://pktest.takoleasy.si/pay/C1", *tx.RedirectURL)
	assert.Equal(t, []int{3, 6}, tx.InstallmentOptions.Counts())
	require.NotNil(t, tx.SelectedInstallments)
	assert.Equal(t, 6, *tx.SelectedInstallments)

	stored := f.txRepo.Stored(tx.ID)
	require.NotNil(t, stored.RedirectURL)
	assert.Equal(t, *tx.RedirectURL, *stored.RedirectURL)

	lines, err := f.txRepo.GetLines(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	events := f.txRepo.Events(tx.ID)
	require.Len(t, events, 1)
	assert.Equal(t, "transaction.created", events[0].EventType)
	assert.Equal(t, 1, f.txManager.Calls)
}

func TestCheckout_LogTaggedWithComponent(t *testing.T) {
	var buf bytes.Buffer
	f := setupCheckout()
	links := newPaymentLinkService(f.api, "https://shop.example")
	f.checkout = NewCheckoutService(f.txRepo, f.txManager, links, zerolog.New(&buf))

	_, err := f.checkout.Checkout(context.Background(), checkoutRequest("C7"))

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"component":"checkout"`)
	assert.Contains(t, buf.String(), `"reference":"C7"`)
}

func TestCheckout_UnquotedInstallmentChoice(t *testing.T) {
	f := setupCheckout()
	req := checkoutRequest("C2")
	req.SelectedInstallments = 12

	_, err := f.checkout.Checkout(context.Background(), req)

	var ve *domainErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "selected_installments", ve.Field)
}

func TestCheckout_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CheckoutRequest)
		field  string
	}{
		{"empty reference", func(r *CheckoutRequest) { r.Reference = "" }, "reference"},
		{"zero amount", func(r *CheckoutRequest) { r.Amount = decimal.Zero }, "amount"},
		{"bad currency", func(r *CheckoutRequest) { r.Currency = "EURO" }, "currency"},
		{"empty product", func(r *CheckoutRequest) { r.Lines[1].ProductName = "" }, "lines[1].product_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupCheckout()
			req := checkoutRequest("C3")
			tt.mutate(&req)

			_, err := f.checkout.Checkout(context.Background(), req)

			var ve *domainErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, f.txManager.Calls)
			assert.Zero(t, f.api.Calls("GetWebCreditLink"))
		})
	}
}

func TestCheckout_DuplicateReference(t *testing.T) {
	f := setupCheckout()
	_, err := f.checkout.Checkout(context.Background(), checkoutRequest("C4"))
	require.NoError(t, err)

	_, err = f.checkout.Checkout(context.Background(), checkoutRequest("C4"))

	assert.ErrorIs(t, err, domainErrors.ErrDuplicateReference)
	assert.Equal(t, 1, f.api.Calls("GetWebCreditLink"))
}

func TestCheckout_LinkFailureLeavesDraft(t *testing.T) {
	f := setupCheckout()
	f.api.GetWebCreditLinkFunc = func(ctx context.Context, p summit.CreditLinkParams) (*summit.WebCreditLinkResponse, error) {
		return nil, domainErrors.NewConnectionError(errors.New("timeout"))
	}

	tx, err := f.checkout.Checkout(context.Background(), checkoutRequest("C5"))

	assert.Nil(t, tx)
	assert.ErrorIs(t, err, domainErrors.ErrConnection)

	matches, err := f.txRepo.FindByReference(context.Background(), transaction.ProviderSummit, "C5")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, transaction.StateDraft, matches[0].State)
	assert.Nil(t, matches[0].RedirectURL)
}

func TestGetByReference(t *testing.T) {
	f := setupCheckout()
	created, err := f.checkout.Checkout(context.Background(), checkoutRequest("C6"))
	require.NoError(t, err)

	found, err := f.checkout.GetByReference(context.Background(), "C6")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.checkout.GetByReference(context.Background(), "nope")
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)

	_, err = f.checkout.GetByReference(context.Background(), "")
	assert.ErrorIs(t, err, domainErrors.ErrMissingReference)
}
