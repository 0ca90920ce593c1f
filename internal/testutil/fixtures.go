package testutil

import (
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewTestTransaction returns a Summit transaction in state with amount given as text.
func NewTestTransaction(reference, amount string, state transaction.State) *transaction.Transaction {
	now := time.Now()
	return &transaction.Transaction{
		ID:        uuid.New(),
		Reference: reference,
		Provider:  transaction.ProviderSummit,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "EUR",
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewTestLine(name, quantity, total string) *transaction.Line {
	return &transaction.Line{
		ID:          uuid.New(),
		ProductName: name,
		Quantity:    decimal.RequireFromString(quantity),
		PriceTotal:  decimal.RequireFromString(total),
	}
}

func NewTestItem(name, price string) *catalog.Item {
	return &catalog.Item{
		ID:        uuid.New(),
		Name:      name,
		ListPrice: decimal.RequireFromString(price),
		UpdatedAt: time.Now(),
	}
}

// Schedule builds a schedule from count/value pairs, e.g. Schedule(3, "40.00", 6, "20.00").
func Schedule(pairs ...any) installment.Schedule {
	options := make([]installment.Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		options = append(options, installment.Option{
			Count:               pairs[i].(int),
			PerInstallmentValue: decimal.RequireFromString(pairs[i+1].(string)),
		})
	}
	return installment.NewSchedule(options...)
}

func CreditLinkResponse(url string) *summit.WebCreditLinkResponse {
	resp := &summit.WebCreditLinkResponse{ServiceStatus: summit.ServiceStatusOK}
	resp.Data.URL = url
	return resp
}

// InstallmentResponse answers OK with the given schedule.
func InstallmentResponse(s installment.Schedule) *summit.InstallmentInfoResponse {
	resp := &summit.InstallmentInfoResponse{ServiceStatus: summit.ServiceStatusOK}
	for _, o := range s {
		resp.Data.InstallmentInfoList = append(resp.Data.InstallmentInfoList, summit.InstallmentInfo{
			InstallmentNr:    summit.Count(o.Count),
			InstallmentValue: o.PerInstallmentValue,
		})
	}
	return resp
}

func AdditionalInfoResponse(status string) *summit.AdditionalInfoResponse {
	resp := &summit.AdditionalInfoResponse{}
	resp.Data.Status = summit.StatusCode(status)
	return resp
}

func OrderStatusResponse(status string) *summit.OrderStatusResponse {
	resp := &summit.OrderStatusResponse{ServiceStatus: summit.ServiceStatusOK}
	resp.Data.Status = status
	return resp
}

func IntPtr(v int) *int {
	return &v
}
