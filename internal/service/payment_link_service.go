package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Callback paths Summit sends the customer back to.
const (
	ReturnPath = "/payment/summit/return"
	CancelPath = "/payment/summit/cancel"
)

// Quoter returns the installment schedule for a price.
type Quoter interface {
	Quote(ctx context.Context, price decimal.Decimal) (installment.Schedule, error)
}

// LinkRequest holds the values needed to start a Summit checkout.
type LinkRequest struct {
	Reference string
	Amount    decimal.Decimal
}

// PaymentLink is where the customer is sent to pay.
type PaymentLink struct {
	RedirectURL        string
	PaymentURL         string
	InstallmentOptions installment.Schedule
}

// PaymentLinkService asks Summit for a credit link. It persists nothing.
type PaymentLinkService struct {
	api     SummitAPI
	quoter  Quoter
	baseURL string
	logger  zerolog.Logger
}

func NewPaymentLinkService(api SummitAPI, quoter Quoter, baseURL string, logger zerolog.Logger) *PaymentLinkService {
	return &PaymentLinkService{
		api:     api,
		quoter:  quoter,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  observability.Component(logger, "payment_link"),
	}
}

// Generate requests the link for req and attaches the current installment
// options for the amount.
func (s *PaymentLinkService) Generate(ctx context.Context, req LinkRequest) (*PaymentLink, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, domainErrors.NewValidationError("reference", "cannot be empty")
	}
	if !req.Amount.IsPositive() {
		return nil, domainErrors.NewValidationError("amount", "must be greater than 0")
	}

	successURL, err := s.callbackURL(ReturnPath)
	if err != nil {
		return nil, err
	}
	errorURL, err := s.callbackURL(CancelPath)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.GetWebCreditLink(ctx, summit.CreditLinkParams{
		Reference:  reference,
		Amount:     req.Amount,
		SuccessURL: successURL,
		ErrorURL:   errorURL,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.Error().Str("reference", reference).Str("service_status", resp.ServiceStatus).Msg("Summit refused the credit link")
		return nil, domainErrors.NewDomainError(
			"invalid_provider_response",
			"Summit did not return a payment link",
			fmt.Errorf("%w: serviceStatus=%q", domainErrors.ErrInvalidProviderResponse, resp.ServiceStatus),
		)
	}

	options, err := s.quoter.Quote(ctx, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("quote installments: %w", err)
	}

	return &PaymentLink{
		RedirectURL:        resp.Data.URL,
		PaymentURL:         resp.Data.URL,
		InstallmentOptions: options,
	}, nil
}

func (s *PaymentLinkService) callbackURL(path string) (string, error) {
	u, err := url.Parse(s.baseURL + path)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: base url %q is not absolute", domainErrors.ErrInvalidInput, s.baseURL)
	}
	return u.String(), nil
}
