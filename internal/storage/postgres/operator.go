package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendaria/pos-api/internal/domain/operator"
)

const (
	getOperatorByHashSQL = `SELECT id, name, key_hash, max_discount_pct, active
		FROM operators WHERE key_hash = $1 AND active`

	getOperatorByIDSQL = `SELECT id, name, key_hash, max_discount_pct, active
		FROM operators WHERE id = $1`

	upsertOperatorSQL = `INSERT INTO operators (id, name, key_hash, max_discount_pct, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, key_hash = EXCLUDED.key_hash,
		    max_discount_pct = EXCLUDED.max_discount_pct, active = TRUE`
)

var _ operator.Repository = (*OperatorRepository)(nil)

// OperatorRepository implements operator.Repository backed by PostgreSQL.
type OperatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository returns an OperatorRepository that uses the given pool.
func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// FindByKeyHash looks up an active operator by the HMAC-SHA256 hash of their
// API key.
func (r *OperatorRepository) FindByKeyHash(ctx context.Context, hash string) (*operator.Operator, error) {
	return r.get(ctx, getOperatorByHashSQL, hash)
}

// GetByID returns an operator by identifier.
func (r *OperatorRepository) GetByID(ctx context.Context, id string) (*operator.Operator, error) {
	return r.get(ctx, getOperatorByIDSQL, id)
}

// Upsert inserts or replaces an operator row. Used by the seed tool.
func (r *OperatorRepository) Upsert(ctx context.Context, op operator.Operator) error {
	_, err := r.pool.Exec(ctx, upsertOperatorSQL, op.ID, op.Name, op.KeyHash, op.MaxDiscountPct)
	if err != nil {
		return fmt.Errorf("upserting operator %q: %w", op.ID, err)
	}
	return nil
}

func (r *OperatorRepository) get(ctx context.Context, query, arg string) (*operator.Operator, error) {
	var op operator.Operator
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&op.ID, &op.Name, &op.KeyHash, &op.MaxDiscountPct, &op.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, operator.ErrNotFound
		}
		return nil, fmt.Errorf("getting operator: %w", err)
	}
	return &op, nil
}
