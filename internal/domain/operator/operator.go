// Package operator holds the till operators that authenticate against the
// API and carry per-operator discount limits.
package operator

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no operator matches the lookup.
var ErrNotFound = errors.New("operator not found")

// Operator is an authenticated till user.
type Operator struct {
	ID   string
	Name string
	// KeyHash is the hex HMAC-SHA256 of the operator's API key.
	KeyHash string
	// MaxDiscountPct caps percentage discounts this operator may grant.
	// Zero means no explicit cap; the discount policy falls back to its
	// conservative default.
	MaxDiscountPct decimal.Decimal
	Active         bool
}

// Repository provides operator lookups.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Operator, error)
	GetByID(ctx context.Context, id string) (*Operator, error)
}

// Limits adapts a Repository into the discount policy's limit source.
type Limits struct {
	Repo Repository
}

// MaxDiscountPercentage returns the operator's percentage cap. An unknown
// operator yields zero, which the policy maps to its default cap.
func (l Limits) MaxDiscountPercentage(ctx context.Context, operatorID string) (decimal.Decimal, error) {
	if operatorID == "" {
		return decimal.Zero, nil
	}
	op, err := l.Repo.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return op.MaxDiscountPct, nil
}
