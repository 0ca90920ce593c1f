package catalog

import (
	"context"
	"time"

	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPriceCeiling is the highest list price Summit quotes installments for.
var DefaultPriceCeiling = decimal.NewFromInt(15000)

// Item is a sellable product with its cached installment quote.
type Item struct {
	ID             uuid.UUID
	Name           string
	ListPrice      decimal.Decimal
	Installments   installment.Schedule
	MinInstallment *decimal.Decimal
	UpdatedAt      time.Time
}

// Eligible reports whether the item's price is within ceiling.
func (i *Item) Eligible(ceiling decimal.Decimal) bool {
	return i.ListPrice.LessThanOrEqual(ceiling)
}

// ApplyQuote replaces the cached schedule and minimum. An empty quote keeps the
// previous values and returns false.
func (i *Item) ApplyQuote(s installment.Schedule) bool {
	min, ok := s.Min()
	if !ok {
		return false
	}
	i.Installments = s
	i.MinInstallment = &min
	i.UpdatedAt = time.Now()
	return true
}

// Repository defines the interface for catalog persistence
type Repository interface {
	// ListEligible returns items whose list price is at most ceiling
	ListEligible(ctx context.Context, ceiling decimal.Decimal) ([]*Item, error)

	// UpdateInstallments overwrites the cached schedule and minimum of an item
	UpdateInstallments(ctx context.Context, item *Item) error
}
