package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Job names, also used as lease keys and metric labels.
const (
	JobOrderStatuses    = "order_statuses"
	JobOrderInformation = "order_information"
	JobInstallments     = "installments"
)

// SyncOptions configures the periodic jobs.
type SyncOptions struct {
	BatchSize    int
	PriceCeiling decimal.Decimal
	Retry        RetryPolicy
}

// SyncService runs the periodic Summit jobs. Each job holds a lease so two
// runs of the same job never overlap.
type SyncService struct {
	api          SummitAPI
	txRepo       transaction.Repository
	outboxRepo   outbox.Repository
	txManager    TransactionManager
	reconciler   *Reconciler
	installments *InstallmentService
	locker       JobLocker
	opts         SyncOptions
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

func NewSyncService(
	api SummitAPI,
	txRepo transaction.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	reconciler *Reconciler,
	installments *InstallmentService,
	locker JobLocker,
	opts SyncOptions,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *SyncService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if !opts.PriceCeiling.IsPositive() {
		opts.PriceCeiling = catalog.DefaultPriceCeiling
	}
	return &SyncService{
		api:          api,
		txRepo:       txRepo,
		outboxRepo:   outboxRepo,
		txManager:    txManager,
		reconciler:   reconciler,
		installments: installments,
		locker:       locker,
		opts:         opts,
		metrics:      metrics,
		logger:       observability.Component(logger, "sync"),
	}
}

// JobStats counts the items a job handled.
type JobStats struct {
	Processed int
	Changed   int
	Failed    int
}

// SyncOrderStatuses polls Summit for every open transaction and applies
// completed and cancelled statuses. Unchanged statuses cause no writes.
func (s *SyncService) SyncOrderStatuses(ctx context.Context) (JobStats, error) {
	var stats JobStats
	err := s.runJob(ctx, JobOrderStatuses, func(ctx context.Context) error {
		filter := transaction.ListFilter{
			Provider: transaction.ProviderSummit,
			States:   transaction.OpenStates,
		}
		return s.eachTransaction(ctx, filter, func(tx *transaction.Transaction) {
			stats.Processed++

			resp, err := retry.DoWithResult(ctx, s.opts.Retry.connectionRetry(s.logger, "order_status"), func() (*summit.OrderStatusResponse, error) {
				return s.api.GetOrderStatus(ctx, tx.Reference)
			})
			if err != nil {
				stats.Failed++
				s.metrics.RecordSyncItem(JobOrderStatuses, "error")
				s.logger.Error().Err(err).Str("reference", tx.Reference).Msg("Failed to fetch Summit order status")
				return
			}

			changed, err := s.reconciler.ApplyOrderStatus(ctx, tx, resp.Status())
			if err != nil {
				stats.Failed++
				s.metrics.RecordSyncItem(JobOrderStatuses, "error")
				s.logger.Error().Err(err).Str("reference", tx.Reference).Msg("Failed to apply Summit order status")
				return
			}
			if changed {
				stats.Changed++
				s.metrics.RecordSyncItem(JobOrderStatuses, "changed")
			} else {
				s.metrics.RecordSyncItem(JobOrderStatuses, "unchanged")
			}
		})
	})
	return stats, err
}

// PushAdditionalOrderInfo sends the order summary of open transactions that
// have not been accepted by Summit yet. The flag is set only when Summit
// answers with status "0", so rejected pushes are retried on the next run.
func (s *SyncService) PushAdditionalOrderInfo(ctx context.Context) (JobStats, error) {
	var stats JobStats
	err := s.runJob(ctx, JobOrderInformation, func(ctx context.Context) error {
		notSent := false
		filter := transaction.ListFilter{
			Provider:           transaction.ProviderSummit,
			States:             transaction.OpenStates,
			AdditionalInfoSent: &notSent,
		}
		return s.eachTransaction(ctx, filter, func(tx *transaction.Transaction) {
			stats.Processed++

			accepted, err := s.pushOrderInfo(ctx, tx)
			switch {
			case err != nil:
				stats.Failed++
				s.metrics.RecordSyncItem(JobOrderInformation, "error")
				s.logger.Error().Err(err).Str("reference", tx.Reference).Msg("Failed to push order information")
			case accepted:
				stats.Changed++
				s.metrics.RecordSyncItem(JobOrderInformation, "accepted")
			default:
				s.metrics.RecordSyncItem(JobOrderInformation, "rejected")
				s.logger.Warn().Str("reference", tx.Reference).Msg("Summit did not accept order information")
			}
		})
	})
	return stats, err
}

// eachTransaction calls fn for every transaction matching filter, one page of
// BatchSize at a time. Pages follow a keyset cursor, so rows whose state
// changed mid-run neither shift later pages nor get listed twice.
func (s *SyncService) eachTransaction(ctx context.Context, filter transaction.ListFilter, fn func(tx *transaction.Transaction)) error {
	filter.Limit = s.opts.BatchSize
	for {
		page, err := s.txRepo.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		for _, tx := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(tx)
		}
		if len(page) < filter.Limit {
			return nil
		}
		filter.After = transaction.CursorAfter(page[len(page)-1])
	}
}

// PushOrderInfo sends the order summary of a single transaction by reference.
func (s *SyncService) PushOrderInfo(ctx context.Context, reference string) (bool, error) {
	tx, err := resolveOne(ctx, s.txRepo, reference)
	if err != nil {
		return false, err
	}
	return s.pushOrderInfo(ctx, tx)
}

func (s *SyncService) pushOrderInfo(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	lines, err := s.txRepo.GetLines(ctx, tx.ID)
	if err != nil {
		return false, fmt.Errorf("load order lines: %w", err)
	}

	resp, err := retry.DoWithResult(ctx, s.opts.Retry.connectionRetry(s.logger, "order_additional_info"), func() (*summit.AdditionalInfoResponse, error) {
		return s.api.SendOrderAdditionalInfo(ctx, summit.OrderInfo{
			Reference:            tx.Reference,
			Amount:               tx.Amount,
			Items:                ItemSummaries(lines),
			SelectedInstallments: tx.SelectedInstallments,
		})
	})
	if err != nil {
		return false, err
	}
	if !resp.Accepted() {
		return false, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.txRepo.MarkAdditionalInfoSent(txCtx, tx.ID); err != nil {
			return err
		}
		return s.outboxRepo.Insert(txCtx, outbox.AdditionalInfoSent(tx.ID, tx.Reference, len(lines)))
	})
	if err != nil {
		return false, fmt.Errorf("mark additional info sent: %w", err)
	}
	tx.AdditionalInfoSent = true
	return true, nil
}

// ItemSummaries renders order lines the way Summit expects them in Artikli.
func ItemSummaries(lines []*transaction.Line) []string {
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		items = append(items, fmt.Sprintf("Product name: %s | Quantity: %s | Item total: %s",
			l.ProductName, l.Quantity.String(), l.PriceTotal.StringFixed(2)))
	}
	return items
}

// RefreshInstallments re-quotes the catalog.
func (s *SyncService) RefreshInstallments(ctx context.Context) (RefreshResult, error) {
	var result RefreshResult
	err := s.runJob(ctx, JobInstallments, func(ctx context.Context) error {
		var err error
		result, err = s.installments.RefreshCatalog(ctx, s.opts.PriceCeiling)
		return err
	})
	return result, err
}

// RunAll runs every job in turn. A failing job does not stop the others; the
// returned error joins all failures.
func (s *SyncService) RunAll(ctx context.Context) error {
	var errs []error
	if _, err := s.SyncOrderStatuses(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", JobOrderStatuses, err))
	}
	if _, err := s.PushAdditionalOrderInfo(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", JobOrderInformation, err))
	}
	if _, err := s.RefreshInstallments(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", JobInstallments, err))
	}
	return errors.Join(errs...)
}

func (s *SyncService) runJob(ctx context.Context, job string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	logger := s.logger.With().Str("job", job).Logger()

	release, err := s.locker.TryLock(ctx, job)
	if err != nil {
		result := "error"
		if errors.Is(err, domainErrors.ErrJobAlreadyRunning) {
			result = "skipped"
			logger.Info().Msg("Job already running elsewhere, skipping")
		} else {
			logger.Error().Err(err).Msg("Failed to acquire job lease")
		}
		s.metrics.ObserveSyncJob(job, result, time.Since(start).Seconds())
		return err
	}
	defer func() {
		// The lease must be released even if the job's context was cancelled.
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			logger.Warn().Err(relErr).Msg("Failed to release job lease")
		}
	}()

	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			logger.Error().Err(err).Dur("took", time.Since(start)).Msg("Job failed")
		} else {
			logger.Info().Dur("took", time.Since(start)).Msg("Job finished")
		}
		s.metrics.ObserveSyncJob(job, result, time.Since(start).Seconds())
	}()

	return fn(ctx)
}
