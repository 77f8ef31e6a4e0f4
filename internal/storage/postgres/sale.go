package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendaria/pos-api/internal/domain/discount"
	"github.com/vendaria/pos-api/internal/domain/sale"
)

const (
	insertSaleSQL = `INSERT INTO sales
		(id, created_at, subtotal, discount_type, discount_value, total,
		 payment_method, note, source_budget_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))`

	insertSaleItemSQL = `INSERT INTO sale_items
		(sale_id, product_id, service_id, quantity, unit_price, total_price, unit_cost)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)`

	getSaleByIDSQL = `SELECT id, created_at, subtotal, discount_type, discount_value,
		total, payment_method, note, COALESCE(source_budget_id, ''), voided
		FROM sales WHERE id = $1`

	listSaleItemsSQL = `SELECT sale_id, COALESCE(product_id, ''), COALESCE(service_id, ''),
		quantity, unit_price, total_price, unit_cost
		FROM sale_items WHERE sale_id = $1 ORDER BY id`
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements sale.Repository backed by PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// CreateWithItems persists the sale header and all items in one transaction.
// Any failure rolls everything back, so the commit pipeline never observes a
// sale without its items or vice versa.
func (r *SaleRepository) CreateWithItems(ctx context.Context, s *sale.Sale, items []sale.Item) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning sale transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, insertSaleSQL,
		s.ID, s.CreatedAt, s.Subtotal, string(s.DiscountType), s.DiscountValue,
		s.Total, s.PaymentMethod, s.Note, s.SourceBudgetID,
	)
	if err != nil {
		return fmt.Errorf("inserting sale %q: %w", s.ID, err)
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, insertSaleItemSQL,
			it.SaleID, it.ProductID, it.ServiceID,
			it.Quantity, it.UnitPrice, it.TotalPrice, it.UnitCost,
		)
		if err != nil {
			return fmt.Errorf("inserting item for sale %q: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing sale %q: %w", s.ID, err)
	}
	return nil
}

// GetByID returns a sale and its items.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*sale.Sale, []sale.Item, error) {
	var (
		s   sale.Sale
		typ string
	)
	err := r.pool.QueryRow(ctx, getSaleByIDSQL, id).Scan(
		&s.ID, &s.CreatedAt, &s.Subtotal, &typ, &s.DiscountValue,
		&s.Total, &s.PaymentMethod, &s.Note, &s.SourceBudgetID, &s.Voided,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, sale.ErrNotFound
		}
		return nil, nil, fmt.Errorf("getting sale %q: %w", id, err)
	}
	s.DiscountType = discount.Type(typ)

	rows, err := r.pool.Query(ctx, listSaleItemsSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items for sale %q: %w", id, err)
	}
	items, err := pgx.CollectRows(rows, scanSaleItem)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning items for sale %q: %w", id, err)
	}
	return &s, items, nil
}

func scanSaleItem(row pgx.CollectableRow) (sale.Item, error) {
	var it sale.Item
	err := row.Scan(&it.SaleID, &it.ProductID, &it.ServiceID,
		&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.UnitCost)
	return it, err
}
