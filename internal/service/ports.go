package service

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SummitAPI is the subset of the Summit client the services call.
type SummitAPI interface {
	GetWebCreditLink(ctx context.Context, params summit.CreditLinkParams) (*summit.WebCreditLinkResponse, error)
	GetInstallmentInfo(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error)
	SendOrderAdditionalInfo(ctx context.Context, info summit.OrderInfo) (*summit.AdditionalInfoResponse, error)
	GetOrderStatus(ctx context.Context, reference string) (*summit.OrderStatusResponse, error)
}

// SignatureVerifier checks a webhook signature header against the raw body.
type SignatureVerifier interface {
	Verify(header string, body []byte) bool
}

// JobLocker grants at most one concurrent run per job name. The returned
// function releases the lease.
type JobLocker interface {
	TryLock(ctx context.Context, job string) (func(context.Context) error, error)
}

// RetryPolicy configures retries of provider calls made by background jobs.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// connectionRetry retries only connection failures. Protocol errors and
// rejected requests are not retried.
func (p RetryPolicy) connectionRetry(logger zerolog.Logger, op string) retry.Config {
	return retry.Config{
		MaxAttempts:  p.Attempts,
		InitialDelay: p.Delay,
		MaxDelay:     30 * time.Second,
		RetryIf: func(err error) bool {
			return errors.Is(err, domainErrors.ErrConnection)
		},
		OnRetry: func(n uint, err error) {
			logger.Debug().Err(err).Uint("attempt", n+1).Str("op", op).Msg("Retrying Summit call")
		},
	}
}
