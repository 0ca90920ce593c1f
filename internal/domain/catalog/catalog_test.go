package catalog

import (
	"testing"

	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_Eligible(t *testing.T) {
	tests := []struct {
		price    string
		eligible bool
	}{
		{"99.90", true},
		{"15000", true},
		{"15000.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			item := &Item{ListPrice: decimal.RequireFromString(tt.price)}
			assert.Equal(t, tt.eligible, item.Eligible(DefaultPriceCeiling))
		})
	}
}

func TestItem_ApplyQuote(t *testing.T) {
	item := &Item{Name: "Washing machine", ListPrice: decimal.RequireFromString("600")}

	applied := item.ApplyQuote(installment.NewSchedule(
		installment.Option{Count: 6, PerInstallmentValue: decimal.RequireFromString("100")},
		installment.Option{Count: 24, PerInstallmentValue: decimal.RequireFromString("25")},
	))

	require.True(t, applied)
	require.NotNil(t, item.MinInstallment)
	assert.Equal(t, "25", item.MinInstallment.String())
	assert.Len(t, item.Installments, 2)
}

func TestItem_ApplyQuote_EmptyKeepsPrevious(t *testing.T) {
	item := &Item{ListPrice: decimal.RequireFromString("600")}
	item.ApplyQuote(installment.NewSchedule(installment.Option{Count: 3, PerInstallmentValue: decimal.RequireFromString("200")}))

	applied := item.ApplyQuote(installment.Schedule{})

	assert.False(t, applied)
	assert.Len(t, item.Installments, 1)
	assert.Equal(t, "200", item.MinInstallment.String())
}
