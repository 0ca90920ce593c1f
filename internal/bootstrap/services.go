package bootstrap

import (
	"github.com/cassiomorais/summitpay/internal/infrastructure/redis"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/internal/repository/postgres"
	"github.com/cassiomorais/summitpay/internal/service"
	"github.com/shopspring/decimal"
)

// Services is the service graph shared by the API and the worker.
type Services struct {
	Summit       *summit.Client
	TxManager    *postgres.TxManager
	Transactions *postgres.TransactionRepository
	Catalog      *postgres.CatalogRepository
	Outbox       *postgres.OutboxRepository
	Idempotency  *postgres.IdempotencyRepository

	Reconciler   *service.Reconciler
	Installments *service.InstallmentService
	Links        *service.PaymentLinkService
	Checkout     *service.CheckoutService
	Sync         *service.SyncService
}

func (a *App) Services() *Services {
	cfg := a.Config
	logger := a.Logger

	client := summit.NewClient(
		summit.CredentialsFromConfig(cfg.Summit),
		summit.WithHosts(cfg.Summit.TestHost, cfg.Summit.ProductionHost),
		summit.WithTimeout(cfg.Summit.RequestTimeout),
		summit.WithCircuitBreaker(cfg.Summit.CircuitBreakerThreshold, cfg.Summit.CircuitBreakerTimeout),
		summit.WithMetrics(a.Metrics),
		summit.WithLogger(logger),
	)

	s := &Services{
		Summit:       client,
		TxManager:    postgres.NewTxManager(a.Pool),
		Transactions: postgres.NewTransactionRepository(a.Pool),
		Catalog:      postgres.NewCatalogRepository(a.Pool),
		Outbox:       postgres.NewOutboxRepository(a.Pool),
		Idempotency:  postgres.NewIdempotencyRepository(a.Pool),
	}

	retryPolicy := service.RetryPolicy{
		Attempts: cfg.Worker.RetryAttempts,
		Delay:    cfg.Worker.RetryDelay,
	}

	s.Reconciler = service.NewReconciler(
		s.Transactions, s.Outbox, s.TxManager,
		summit.NewVerifier(cfg.Summit.WebhookSecret),
		service.ReconcilerOptions{EnforceStatusOrdering: cfg.Summit.EnforceStatusOrdering},
		a.Metrics, logger,
	)
	s.Installments = service.NewInstallmentService(client, s.Catalog, retryPolicy, a.Metrics, logger)
	s.Links = service.NewPaymentLinkService(client, s.Installments, cfg.Summit.BaseURL, logger)
	s.Checkout = service.NewCheckoutService(s.Transactions, s.TxManager, s.Links, logger)
	s.Sync = service.NewSyncService(
		client, s.Transactions, s.Outbox, s.TxManager,
		s.Reconciler, s.Installments,
		redis.NewJobLocker(a.Redis, cfg.Worker.JobLockTTL),
		service.SyncOptions{
			BatchSize:    int(cfg.Worker.BatchSize),
			PriceCeiling: decimal.NewFromFloat(cfg.Summit.InstallmentPriceCeiling),
			Retry:        retryPolicy,
		},
		a.Metrics, logger,
	)
	return s
}
