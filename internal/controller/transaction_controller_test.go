package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/service"
	"github.com/cassiomorais/summitpay/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCheckout struct {
	CheckoutFunc       func(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error)
	GetByReferenceFunc func(ctx context.Context, reference string) (*transaction.Transaction, error)
}

func (m *mockCheckout) Checkout(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error) {
	return m.CheckoutFunc(ctx, req)
}

func (m *mockCheckout) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return m.GetByReferenceFunc(ctx, reference)
}

func postTransaction(t *testing.T, h *TransactionController, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h.Create(w, req)
	return w
}

func TestTransactionController_Create_Success(t *testing.T) {
	var got service.CheckoutRequest
	h := NewTransactionController(&mockCheckout{
		CheckoutFunc: func(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error) {
			got = req
			tx := testutil.NewTestTransaction(req.Reference, req.Amount.String(), transaction.StatePending)
			redirect := "https://pktest.takoleasy.si/pay/C1"
			selected := req.SelectedInstallments
			tx.RedirectURL = &redirect
			tx.SelectedInstallments = &selected
			tx.InstallmentOptions = testutil.Schedule(3, "40.00", 6, "20.00")
			return tx, nil
		},
	})

	w := postTransaction(t, h, map[string]any{
		"reference":             "S100",
		"amount":                "120",
		"selected_installments": 6,
		"lines": []map[string]any{
			{"product_name": "Chair", "quantity": 2, "price_total": "100.00"},
			{"product_name": "Shipping", "quantity": "1", "price_total": 20},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "S100", got.Reference)
	assert.Equal(t, "EUR", got.Currency)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(120)))
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Chair", got.Lines[0].ProductName)
	assert.True(t, got.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, got.Lines[1].PriceTotal.Equal(decimal.NewFromInt(20)))

	var resp TransactionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "S100", resp.Reference)
	assert.Equal(t, "120.00", resp.Amount)
	assert.Equal(t, "pending", resp.State)
	require.NotNil(t, resp.RedirectURL)
	assert.Equal(t, "https://pktest.takoleasy.si/pay/C1", *resp.RedirectURL)
	require.NotNil(t, resp.SelectedInstallments)
	assert.Equal(t, 6, *resp.SelectedInstallments)
	assert.Len(t, resp.InstallmentOptions, 2)
}

func TestTransactionController_Create_KeepsCurrency(t *testing.T) {
	var got service.CheckoutRequest
	h := NewTransactionController(&mockCheckout{
		CheckoutFunc: func(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error) {
			got = req
			return testutil.NewTestTransaction(req.Reference, "10", transaction.StateDraft), nil
		},
	})

	w := postTransaction(t, h, map[string]any{"reference": "S1", "amount": 10, "currency": "USD"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "USD", got.Currency)
}

func TestTransactionController_Create_InvalidBody(t *testing.T) {
	h := NewTransactionController(&mockCheckout{
		CheckoutFunc: func(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error) {
			t.Fatal("checkout must not run for an invalid request")
			return nil, nil
		},
	})

	w := postTransaction(t, h, map[string]any{"amount": "10"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "validation_error", resp.Code)
}

func TestTransactionController_Create_ServiceErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"duplicate", domainErrors.ErrDuplicateReference, http.StatusConflict, "duplicate_reference"},
		{"validation", domainErrors.NewValidationError("selected_installments", "not offered"), http.StatusBadRequest, "validation_error"},
		{"provider refused", domainErrors.NewDomainError("invalid_provider_response", "Summit did not return a payment link", domainErrors.ErrInvalidProviderResponse), http.StatusBadGateway, "invalid_provider_response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTransactionController(&mockCheckout{
				CheckoutFunc: func(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error) {
					return nil, tt.err
				},
			})

			w := postTransaction(t, h, map[string]any{"reference": "S1", "amount": "10"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestTransactionController_Get(t *testing.T) {
	stored := testutil.NewTestTransaction("S7", "55.5", transaction.StateDone)
	h := NewTransactionController(&mockCheckout{
		GetByReferenceFunc: func(ctx context.Context, reference string) (*transaction.Transaction, error) {
			if reference == "S7" {
				return stored, nil
			}
			return nil, domainErrors.ErrTransactionNotFound
		},
	})

	r := chi.NewRouter()
	r.Get("/api/v1/transactions/{reference}", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/S7", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp TransactionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, stored.ID.String(), resp.ID)
	assert.Equal(t, "55.50", resp.Amount)
	assert.Equal(t, "done", resp.State)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
