package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendaria/pos-api/internal/domain/budget"
)

const (
	insertBudgetSQL = `INSERT INTO budgets (id, status, note, created_at)
		VALUES ($1, $2, $3, $4)`

	insertBudgetItemSQL = `INSERT INTO budget_items
		(budget_id, product_id, service_id, name, quantity, unit_price)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`

	getBudgetByIDSQL = `SELECT id, status, COALESCE(converted_sale_id, ''), note, created_at
		FROM budgets WHERE id = $1`

	listBudgetItemsSQL = `SELECT COALESCE(product_id, ''), COALESCE(service_id, ''),
		name, quantity, unit_price
		FROM budget_items WHERE budget_id = $1 ORDER BY id`

	// The status guard makes the open → converted transition one-way even
	// under concurrent conversion attempts.
	markConvertedSQL = `UPDATE budgets
		SET status = 'converted', converted_sale_id = $2
		WHERE id = $1 AND status = 'open'`
)

var _ budget.Repository = (*BudgetRepository)(nil)

// BudgetRepository implements budget.Repository backed by PostgreSQL.
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository returns a BudgetRepository that uses the given pool.
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// Create persists a budget and its lines in one transaction.
func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning budget transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, insertBudgetSQL, b.ID, string(b.Status), b.Note, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting budget %q: %w", b.ID, err)
	}

	for _, l := range b.Lines {
		_, err = tx.Exec(ctx, insertBudgetItemSQL,
			b.ID, l.ProductID, l.ServiceID, l.Name, l.Quantity, l.UnitPrice)
		if err != nil {
			return fmt.Errorf("inserting line for budget %q: %w", b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing budget %q: %w", b.ID, err)
	}
	return nil
}

// GetByID returns a budget with its lines.
func (r *BudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	var (
		b      budget.Budget
		status string
	)
	err := r.pool.QueryRow(ctx, getBudgetByIDSQL, id).Scan(
		&b.ID, &status, &b.ConvertedSaleID, &b.Note, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, budget.ErrNotFound
		}
		return nil, fmt.Errorf("getting budget %q: %w", id, err)
	}
	b.Status = budget.Status(status)

	rows, err := r.pool.Query(ctx, listBudgetItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing lines for budget %q: %w", id, err)
	}
	b.Lines, err = pgx.CollectRows(rows, scanBudgetLine)
	if err != nil {
		return nil, fmt.Errorf("scanning lines for budget %q: %w", id, err)
	}
	return &b, nil
}

// MarkConverted flips the budget to converted, guarded on it still being
// open. budget.ErrNotOpen is returned when the guard does not match.
func (r *BudgetRepository) MarkConverted(ctx context.Context, id, saleID string) error {
	tag, err := r.pool.Exec(ctx, markConvertedSQL, id, saleID)
	if err != nil {
		return fmt.Errorf("marking budget %q converted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return budget.ErrNotOpen
	}
	return nil
}

func scanBudgetLine(row pgx.CollectableRow) (budget.Line, error) {
	var l budget.Line
	err := row.Scan(&l.ProductID, &l.ServiceID, &l.Name, &l.Quantity, &l.UnitPrice)
	return l, err
}
