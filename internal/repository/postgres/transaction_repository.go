package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const transactionColumns = `id, reference, provider, amount::text, currency, state, state_message,
	provider_payment_id, selected_installments, redirect_url, installment_options,
	additional_info_sent, created_at, updated_at`

// TransactionRepository implements transaction.Repository using PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts the transaction and its lines. Run it inside TxManager when
// lines are given so both land together.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction, lines []*transaction.Line) error {
	options, err := t.InstallmentOptions.Marshal()
	if err != nil {
		return fmt.Errorf("marshal installment options: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO transactions
		 (id, reference, provider, amount, currency, state, state_message,
		  provider_payment_id, selected_installments, redirect_url, installment_options,
		  additional_info_sent, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, t.Reference, t.Provider, t.Amount.StringFixed(2), t.Currency, string(t.State), t.StateMessage,
		t.ProviderPaymentID, t.SelectedInstallments, t.RedirectURL, options,
		t.AdditionalInfoSent, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domainErrors.ErrDuplicateReference, t.Reference)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	for _, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.TransactionID = t.ID
		_, err := r.db(ctx).Exec(ctx,
			`INSERT INTO transaction_lines (id, transaction_id, product_name, quantity, price_total)
			 VALUES ($1, $2, $3, $4, $5)`,
			l.ID, l.TransactionID, l.ProductName, l.Quantity.String(), l.PriceTotal.StringFixed(2),
		)
		if err != nil {
			return fmt.Errorf("insert transaction line: %w", err)
		}
	}
	return nil
}

func (r *TransactionRepository) FindByReference(ctx context.Context, provider, reference string) ([]*transaction.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE provider = $1 AND reference = $2
		 ORDER BY created_at ASC`, provider, reference,
	)
	if err != nil {
		return nil, fmt.Errorf("find transactions by reference: %w", err)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (r *TransactionRepository) LockByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	options, err := t.InstallmentOptions.Marshal()
	if err != nil {
		return fmt.Errorf("marshal installment options: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactions SET
		  state=$1, state_message=$2, provider_payment_id=$3, selected_installments=$4,
		  redirect_url=$5, installment_options=$6, updated_at=$7
		 WHERE id=$8`,
		string(t.State), t.StateMessage, t.ProviderPaymentID, t.SelectedInstallments,
		t.RedirectURL, options, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, f transaction.ListFilter) ([]*transaction.Transaction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Provider != "" {
		where = append(where, "provider = "+arg(f.Provider))
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		where = append(where, "state = ANY("+arg(states)+")")
	}
	if f.AdditionalInfoSent != nil {
		where = append(where, "additional_info_sent = "+arg(*f.AdditionalInfoSent))
	}
	if f.After != nil {
		where = append(where, "(created_at, id) > ("+arg(f.After.CreatedAt)+", "+arg(f.After.ID)+")")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) GetLines(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Line, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_id, product_name, quantity::text, price_total::text
		 FROM transaction_lines WHERE transaction_id = $1 ORDER BY product_name ASC, id ASC`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []*transaction.Line
	for rows.Next() {
		l := &transaction.Line{}
		var qty, total string
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.ProductName, &qty, &total); err != nil {
			return nil, fmt.Errorf("scan transaction line: %w", err)
		}
		if l.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse line quantity: %w", err)
		}
		if l.PriceTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse line total: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *TransactionRepository) MarkAdditionalInfoSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactions SET additional_info_sent = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark additional info sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) AddEvent(ctx context.Context, event *transaction.Event) error {
	data, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO transaction_events (id, transaction_id, event_type, event_data, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		event.ID, event.TransactionID, event.EventType, data,
	)
	if err != nil {
		return fmt.Errorf("insert transaction event: %w", err)
	}
	return nil
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(s scanner) (*transaction.Transaction, error) {
	t := &transaction.Transaction{}
	var (
		amount  string
		state   string
		options []byte
	)
	err := s.Scan(
		&t.ID, &t.Reference, &t.Provider, &amount, &t.Currency, &state, &t.StateMessage,
		&t.ProviderPaymentID, &t.SelectedInstallments, &t.RedirectURL, &options,
		&t.AdditionalInfoSent, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.State = transaction.State(state)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.InstallmentOptions, err = installment.Unmarshal(options); err != nil {
		return nil, fmt.Errorf("parse installment options: %w", err)
	}
	return t, nil
}
