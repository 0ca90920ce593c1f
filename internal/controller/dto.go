package controller

import (
	"encoding/json"
	"time"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// --- Request DTOs ---
// Amounts arrive as JSON numbers or numeric strings and are parsed into
// decimals before reaching the service layer.

// CreateTransactionRequest starts a Summit checkout.
type CreateTransactionRequest struct {
	Reference            string                   `json:"reference" validate:"required,max=64"`
	Amount               json.Number              `json:"amount" validate:"required,numeric"`
	Currency             string                   `json:"currency" validate:"omitempty,len=3,alpha"`
	SelectedInstallments int                      `json:"selected_installments" validate:"gte=0"`
	Lines                []TransactionLineRequest `json:"lines" validate:"dive"`
}

// TransactionLineRequest is an order line included in the order summary.
type TransactionLineRequest struct {
	ProductName string      `json:"product_name" validate:"required,max=255"`
	Quantity    json.Number `json:"quantity" validate:"required,numeric"`
	PriceTotal  json.Number `json:"price_total" validate:"required,numeric"`
}

// --- Response DTOs ---

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                   string                      `json:"id"`
	Reference            string                      `json:"reference"`
	Provider             string                      `json:"provider"`
	Amount               string                      `json:"amount"`
	Currency             string                      `json:"currency"`
	State                string                      `json:"state"`
	StateMessage         string                      `json:"state_message,omitempty"`
	RedirectURL          *string                     `json:"redirect_url,omitempty"`
	SelectedInstallments *int                        `json:"selected_installments,omitempty"`
	InstallmentOptions   []InstallmentOptionResponse `json:"installment_options"`
	AdditionalInfoSent   bool                        `json:"additional_info_sent"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

type InstallmentOptionResponse struct {
	Count               int    `json:"count"`
	PerInstallmentValue string `json:"per_installment_value"`
}

// WidgetResponse carries the storefront display settings, plus a quote when
// a price was given.
type WidgetResponse struct {
	WidgetID             string                      `json:"widget_id"`
	InstallmentsSize     int                         `json:"installments_size"`
	DisplayCatalogPrices bool                        `json:"display_catalog_prices"`
	DisplayProductPrices bool                        `json:"display_product_prices"`
	CheckoutTitle        string                      `json:"checkout_title"`
	Description          string                      `json:"description"`
	InstructionsURL      string                      `json:"instructions_url"`
	Price                string                      `json:"price,omitempty"`
	MinInstallment       string                      `json:"min_installment,omitempty"`
	Installments         []InstallmentOptionResponse `json:"installments,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromTransaction converts a domain transaction to API response.
func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   t.ID.String(),
		Reference:            t.Reference,
		Provider:             t.Provider,
		Amount:               t.Amount.StringFixed(2),
		Currency:             t.Currency,
		State:                string(t.State),
		StateMessage:         t.StateMessage,
		RedirectURL:          t.RedirectURL,
		SelectedInstallments: t.SelectedInstallments,
		InstallmentOptions:   fromSchedule(t.InstallmentOptions),
		AdditionalInfoSent:   t.AdditionalInfoSent,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

func fromSchedule(s installment.Schedule) []InstallmentOptionResponse {
	out := make([]InstallmentOptionResponse, 0, len(s))
	for _, o := range s {
		out = append(out, InstallmentOptionResponse{
			Count:               o.Count,
			PerInstallmentValue: o.PerInstallmentValue.StringFixed(2),
		})
	}
	return out
}

func widgetFromConfig(d config.DisplayConfig) *WidgetResponse {
	return &WidgetResponse{
		WidgetID:             d.WidgetID,
		InstallmentsSize:     d.InstallmentsSize,
		DisplayCatalogPrices: d.DisplayCatalogPrices,
		DisplayProductPrices: d.DisplayProductPrices,
		CheckoutTitle:        d.CheckoutTitle,
		Description:          d.Description,
		InstructionsURL:      d.InstructionsURL,
	}
}

// parseDecimal parses a request amount.
func parseDecimal(field string, n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, domainErrors.NewValidationError(field, "must be a decimal number")
	}
	return d, nil
}
