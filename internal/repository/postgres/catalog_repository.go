package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/summitpay/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogRepository implements catalog.Repository using PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *CatalogRepository) ListEligible(ctx context.Context, ceiling decimal.Decimal) ([]*catalog.Item, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, name, list_price::text, installments, min_installment::text, updated_at
		 FROM catalog_items WHERE list_price <= $1
		 ORDER BY id`, ceiling.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible catalog items: %w", err)
	}
	defer rows.Close()

	var items []*catalog.Item
	for rows.Next() {
		item := &catalog.Item{}
		var (
			price    string
			schedule []byte
			minimum  *string
		)
		if err := rows.Scan(&item.ID, &item.Name, &price, &schedule, &minimum, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		if item.ListPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse list price: %w", err)
		}
		if item.Installments, err = installment.Unmarshal(schedule); err != nil {
			return nil, fmt.Errorf("parse installments of %s: %w", item.ID, err)
		}
		if minimum != nil {
			d, err := decimal.NewFromString(*minimum)
			if err != nil {
				return nil, fmt.Errorf("parse min installment: %w", err)
			}
			item.MinInstallment = &d
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CatalogRepository) UpdateInstallments(ctx context.Context, item *catalog.Item) error {
	schedule, err := item.Installments.Marshal()
	if err != nil {
		return fmt.Errorf("marshal installments: %w", err)
	}
	var minimum *string
	if item.MinInstallment != nil {
		s := item.MinInstallment.StringFixed(2)
		minimum = &s
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE catalog_items SET installments = $1, min_installment = $2, updated_at = $3 WHERE id = $4`,
		schedule, minimum, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update catalog installments: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domainErrors.ErrCatalogItemNotFound, item.ID)
	}
	return nil
}
