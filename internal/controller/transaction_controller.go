package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/service"
	"github.com/go-chi/chi/v5"
)

// Checkout is the part of the checkout service the API needs.
type Checkout interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*transaction.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
}

// TransactionController exposes checkout to the storefront.
type TransactionController struct {
	checkout Checkout
}

func NewTransactionController(checkout Checkout) *TransactionController {
	return &TransactionController{checkout: checkout}
}

// Create handles POST /api/v1/transactions
func (h *TransactionController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	checkoutReq, err := toCheckoutRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.checkout.Checkout(r.Context(), checkoutReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromTransaction(tx))
}

// Get handles GET /api/v1/transactions/{reference}
func (h *TransactionController) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.checkout.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTransaction(tx))
}

func toCheckoutRequest(req CreateTransactionRequest) (service.CheckoutRequest, error) {
	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		return service.CheckoutRequest{}, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	out := service.CheckoutRequest{
		Reference:            req.Reference,
		Amount:               amount,
		Currency:             currency,
		SelectedInstallments: req.SelectedInstallments,
		Lines:                make([]service.CheckoutLine, 0, len(req.Lines)),
	}
	for i, l := range req.Lines {
		qty, err := parseDecimal(fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		if err != nil {
			return service.CheckoutRequest{}, err
		}
		total, err := parseDecimal(fmt.Sprintf("lines[%d].price_total", i), l.PriceTotal)
		if err != nil {
			return service.CheckoutRequest{}, err
		}
		out.Lines = append(out.Lines, service.CheckoutLine{
			ProductName: l.ProductName,
			Quantity:    qty,
			PriceTotal:  total,
		})
	}
	return out, nil
}
