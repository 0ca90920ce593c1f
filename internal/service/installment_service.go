package service

import (
	"context"
	"fmt"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/cassiomorais/summitpay/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// InstallmentService quotes installment schedules and keeps the catalog cache fresh.
type InstallmentService struct {
	api     SummitAPI
	catalog catalog.Repository
	retry   RetryPolicy
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewInstallmentService(
	api SummitAPI,
	catalogRepo catalog.Repository,
	retryPolicy RetryPolicy,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *InstallmentService {
	return &InstallmentService{
		api:     api,
		catalog: catalogRepo,
		retry:   retryPolicy,
		metrics: metrics,
		logger:  observability.Component(logger, "installments"),
	}
}

// Quote returns the schedule Summit offers for price, ordered by count. A
// provider answer without a schedule yields an empty schedule, not an error.
func (s *InstallmentService) Quote(ctx context.Context, price decimal.Decimal) (installment.Schedule, error) {
	if !price.IsPositive() {
		return installment.Schedule{}, nil
	}
	resp, err := s.api.GetInstallmentInfo(ctx, price)
	if err != nil {
		return nil, err
	}
	return resp.Schedule(), nil
}

// RefreshResult counts what a catalog refresh did.
type RefreshResult struct {
	Updated int
	Kept    int
	Failed  int
}

// RefreshCatalog re-quotes every item priced at or below ceiling. Items whose
// quote comes back empty keep their cached schedule. Per-item failures are
// logged and counted; only failing to list the catalog aborts the run.
func (s *InstallmentService) RefreshCatalog(ctx context.Context, ceiling decimal.Decimal) (RefreshResult, error) {
	var result RefreshResult
	if !ceiling.IsPositive() {
		ceiling = catalog.DefaultPriceCeiling
	}

	items, err := s.catalog.ListEligible(ctx, ceiling)
	if err != nil {
		return result, fmt.Errorf("list eligible catalog items: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		schedule, err := retry.DoWithResult(ctx, s.retry.connectionRetry(s.logger, "installment_info"), func() (installment.Schedule, error) {
			return s.Quote(ctx, item.ListPrice)
		})
		if err != nil {
			result.Failed++
			s.metrics.RecordInstallmentRefresh("error")
			s.logger.Error().Err(err).Str("item_id", item.ID.String()).Str("price", item.ListPrice.StringFixed(2)).Msg("Failed to quote installments")
			continue
		}

		if !item.ApplyQuote(schedule) {
			result.Kept++
			s.metrics.RecordInstallmentRefresh("empty")
			s.logger.Debug().Str("item_id", item.ID.String()).Msg("Empty installment quote, keeping cached schedule")
			continue
		}

		if err := s.catalog.UpdateInstallments(ctx, item); err != nil {
			result.Failed++
			s.metrics.RecordInstallmentRefresh("error")
			s.logger.Error().Err(err).Str("item_id", item.ID.String()).Msg("Failed to store installments")
			continue
		}
		result.Updated++
		s.metrics.RecordInstallmentRefresh("updated")
	}

	s.logger.Info().Int("updated", result.Updated).Int("kept", result.Kept).Int("failed", result.Failed).Msg("Catalog installments refreshed")
	return result, nil
}
