package service

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LinkGenerator produces a Summit payment link.
type LinkGenerator interface {
	Generate(ctx context.Context, req LinkRequest) (*PaymentLink, error)
}

// CheckoutLine is an order line submitted with a checkout.
type CheckoutLine struct {
	ProductName string
	Quantity    decimal.Decimal
	PriceTotal  decimal.Decimal
}

// CheckoutRequest holds the input for starting a Summit payment.
type CheckoutRequest struct {
	Reference            string
	Amount               decimal.Decimal
	Currency             string
	SelectedInstallments int
	Lines                []CheckoutLine
}

// CheckoutService creates the transaction record and obtains its payment link.
type CheckoutService struct {
	txRepo    transaction.Repository
	txManager TransactionManager
	links     LinkGenerator
	logger    zerolog.Logger
}

func NewCheckoutService(txRepo transaction.Repository, txManager TransactionManager, links LinkGenerator, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		txRepo:    txRepo,
		txManager: txManager,
		links:     links,
		logger:    observability.Component(logger, "checkout"),
	}
}

// Checkout stores a draft transaction, requests the link and records it on the
// transaction. Any link failure is returned so the checkout does not proceed;
// the draft stays behind for inspection.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*transaction.Transaction, error) {
	tx, err := transaction.NewTransaction(req.Reference, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	lines := make([]*transaction.Line, 0, len(req.Lines))
	for i, l := range req.Lines {
		if l.ProductName == "" {
			return nil, domainErrors.NewValidationError(fmt.Sprintf("lines[%d].product_name", i), "cannot be empty")
		}
		lines = append(lines, &transaction.Line{
			ID:          uuid.New(),
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			PriceTotal:  l.PriceTotal.Round(2),
		})
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.txRepo.Create(txCtx, tx, lines); err != nil {
			return err
		}
		return s.txRepo.AddEvent(txCtx, &transaction.Event{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			EventType:     "transaction.created",
			EventData: map[string]any{
				"reference": tx.Reference,
				"amount":    tx.Amount.StringFixed(2),
				"currency":  tx.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	link, err := s.links.Generate(ctx, LinkRequest{Reference: tx.Reference, Amount: tx.Amount})
	if err != nil {
		s.logger.Error().Err(err).Str("reference", tx.Reference).Msg("Failed to generate Summit payment link")
		return nil, err
	}

	tx.SetRedirect(link.RedirectURL, link.InstallmentOptions)
	if req.SelectedInstallments > 0 {
		if err := tx.SelectInstallments(req.SelectedInstallments); err != nil {
			return nil, err
		}
	}
	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("store payment link: %w", err)
	}

	s.logger.Info().Str("reference", tx.Reference).Str("amount", tx.Amount.StringFixed(2)).Msg("Summit checkout started")
	return tx, nil
}

// GetByReference returns the single Summit transaction for reference.
func (s *CheckoutService) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return resolveOne(ctx, s.txRepo, reference)
}

// resolveOne enforces that a reference identifies exactly one transaction.
func resolveOne(ctx context.Context, repo transaction.Repository, reference string) (*transaction.Transaction, error) {
	if reference == "" {
		return nil, domainErrors.ErrMissingReference
	}
	matches, err := repo.FindByReference(ctx, transaction.ProviderSummit, reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrTransactionNotFound, reference)
		}
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrTransactionNotFound, reference)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s (%d matches)", domainErrors.ErrAmbiguousReference, reference, len(matches))
	}
}
