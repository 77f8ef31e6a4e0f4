package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendaria/pos-api/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, price, cost, stock FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, cost, stock FROM products WHERE id = $1`

	getServiceByIDSQL = `SELECT id, name, price FROM services WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, price, cost, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price,
		    cost = EXCLUDED.cost, stock = EXCLUDED.stock`

	upsertServiceSQL = `INSERT INTO services (id, name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price`

	// Single-statement conditional decrement. The CTE captures the stock
	// before the update so the caller can tell whether the floor clamped
	// the requested quantity, without a separate read that would race.
	decrementStockSQL = `WITH prev AS (
			SELECT stock FROM products WHERE id = $1 FOR UPDATE
		)
		UPDATE products p
		SET stock = GREATEST(p.stock - $2, 0)
		FROM prev
		WHERE p.id = $1
		RETURNING p.stock, prev.stock`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListProducts returns all products ordered by ID.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single product by its identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetService returns a single service by its identifier.
func (r *CatalogRepository) GetService(ctx context.Context, id string) (*catalog.ServiceItem, error) {
	var s catalog.ServiceItem
	err := r.pool.QueryRow(ctx, getServiceByIDSQL, id).Scan(&s.ID, &s.Name, &s.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	return &s, nil
}

// UpsertProduct inserts or replaces a product row. Used by the seed and
// ingest tools.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Cost, p.Stock)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertService inserts or replaces a service row. Used by the seed tool.
func (r *CatalogRepository) UpsertService(ctx context.Context, s catalog.ServiceItem) error {
	_, err := r.pool.Exec(ctx, upsertServiceSQL, s.ID, s.Name, s.Price)
	if err != nil {
		return fmt.Errorf("upserting service %q: %w", s.ID, err)
	}
	return nil
}

// DecrementStock applies stock = max(0, stock - qty) atomically and reports
// the remaining stock and whether the decrement was clamped at the floor.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, qty int) (int, bool, error) {
	var remaining, before int
	err := r.pool.QueryRow(ctx, decrementStockSQL, productID, qty).Scan(&remaining, &before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, catalog.ErrNotFound
		}
		return 0, false, fmt.Errorf("decrementing stock for product %q: %w", productID, err)
	}
	return remaining, before < qty, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p    catalog.Product
		cost *decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &cost, &p.Stock)
	p.Cost = cost
	return p, err
}
