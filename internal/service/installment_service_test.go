package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstallmentService(api SummitAPI, repo catalog.Repository) *InstallmentService {
	return NewInstallmentService(api, repo, RetryPolicy{Attempts: 2, Delay: time.Millisecond}, nil, zerolog.Nop())
}

func TestQuote_OrdersByCount(t *testing.T) {
	api := &testutil.MockSummitAPI{
		GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
			assert.Equal(t, "240.00", amount.StringFixed(2))
			return testutil.InstallmentResponse(testutil.Schedule(12, "20.00", 3, "80.00", 6, "40.00")), nil
		},
	}
	svc := newInstallmentService(api, testutil.NewMockCatalogRepository())

	schedule, err := svc.Quote(context.Background(), decimal.RequireFromString("240"))

	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 12}, schedule.Counts())
}

func TestQuote_NonPositivePriceSkipsProvider(t *testing.T) {
	api := &testutil.MockSummitAPI{}
	svc := newInstallmentService(api, testutil.NewMockCatalogRepository())

	for _, price := range []string{"0", "-10"} {
		schedule, err := svc.Quote(context.Background(), decimal.RequireFromString(price))
		require.NoError(t, err)
		assert.True(t, schedule.IsEmpty())
	}
	assert.Zero(t, api.Calls("GetInstallmentInfo"))
}

func TestQuote_NotOKYieldsEmptySchedule(t *testing.T) {
	api := &testutil.MockSummitAPI{
		GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
			resp := testutil.InstallmentResponse(testutil.Schedule(3, "10.00"))
			resp.ServiceStatus = "ERROR"
			return resp, nil
		},
	}
	svc := newInstallmentService(api, testutil.NewMockCatalogRepository())

	schedule, err := svc.Quote(context.Background(), decimal.NewFromInt(30))

	require.NoError(t, err)
	assert.True(t, schedule.IsEmpty())
}

func TestQuote_PropagatesErrors(t *testing.T) {
	api := &testutil.MockSummitAPI{
		GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
			return nil, domainErrors.NewConnectionError(errors.New("timeout"))
		},
	}
	svc := newInstallmentService(api, testutil.NewMockCatalogRepository())

	_, err := svc.Quote(context.Background(), decimal.NewFromInt(30))

	assert.ErrorIs(t, err, domainErrors.ErrConnection)
}

func TestRefreshCatalog(t *testing.T) {
	cheap := testutil.NewTestItem("Chair", "300.00")
	empty := testutil.NewTestItem("Stool", "20.00")
	cached := testutil.Schedule(3, "6.00")
	empty.Installments = cached
	broken := testutil.NewTestItem("Desk", "900.00")
	expensive := testutil.NewTestItem("Car", "20000.00")
	repo := testutil.NewMockCatalogRepository(cheap, empty, broken, expensive)

	api := &testutil.MockSummitAPI{
		GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
			switch amount.StringFixed(2) {
			case "300.00":
				return testutil.InstallmentResponse(testutil.Schedule(3, "100.00", 6, "50.00")), nil
			case "20.00":
				return testutil.InstallmentResponse(nil), nil
			default:
				return nil, domainErrors.ErrProtocol
			}
		},
	}
	svc := newInstallmentService(api, repo)

	result, err := svc.RefreshCatalog(context.Background(), decimal.Zero)

	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Updated: 1, Kept: 1, Failed: 1}, result)
	assert.Equal(t, 3, api.Calls("GetInstallmentInfo"))

	stored := repo.Item(cheap.ID)
	assert.Equal(t, []int{3, 6}, stored.Installments.Counts())
	require.NotNil(t, stored.MinInstallment)
	assert.Equal(t, "50.00", stored.MinInstallment.StringFixed(2))

	assert.Equal(t, cached, repo.Item(empty.ID).Installments)
	assert.Nil(t, repo.Item(expensive.ID).MinInstallment)
}

func TestRefreshCatalog_RespectsCeiling(t *testing.T) {
	repo := testutil.NewMockCatalogRepository(
		testutil.NewTestItem("Chair", "300.00"),
		testutil.NewTestItem("Sofa", "1500.00"),
	)
	api := &testutil.MockSummitAPI{}
	svc := newInstallmentService(api, repo)

	_, err := svc.RefreshCatalog(context.Background(), decimal.NewFromInt(1000))

	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("GetInstallmentInfo"))
}

func TestRefreshCatalog_StoreFailureCounted(t *testing.T) {
	repo := testutil.NewMockCatalogRepository(testutil.NewTestItem("Chair", "300.00"))
	repo.UpdateInstallmentsFunc = func(ctx context.Context, item *catalog.Item) error {
		return errors.New("db down")
	}
	api := &testutil.MockSummitAPI{
		GetInstallmentInfoFunc: func(ctx context.Context, amount decimal.Decimal) (*summit.InstallmentInfoResponse, error) {
			return testutil.InstallmentResponse(testutil.Schedule(3, "100.00")), nil
		},
	}
	svc := newInstallmentService(api, repo)

	result, err := svc.RefreshCatalog(context.Background(), decimal.Zero)

	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Failed: 1}, result)
}

func TestRefreshCatalog_ListFailureAborts(t *testing.T) {
	repo := testutil.NewMockCatalogRepository()
	repo.ListEligibleFunc = func(ctx context.Context, ceiling decimal.Decimal) ([]*catalog.Item, error) {
		return nil, errors.New("db down")
	}
	svc := newInstallmentService(&testutil.MockSummitAPI{}, repo)

	_, err := svc.RefreshCatalog(context.Background(), decimal.Zero)

	assert.Error(t, err)
}
