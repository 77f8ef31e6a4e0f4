package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog item does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Product is a stocked catalog item available for sale.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	// Cost is the acquisition cost used for margin snapshots. Nil when the
	// catalog has no cost on record for this product.
	Cost  *decimal.Decimal
	Stock int
}

// ServiceItem is a sellable service. Services carry no stock.
type ServiceItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Repository defines the catalog operations the sale pipeline depends on.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetService(ctx context.Context, id string) (*ServiceItem, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// DecrementStock atomically applies stock = max(0, stock - qty) in a
	// single conditional statement so concurrent sales of the same product
	// cannot double-count availability. It returns the remaining stock and
	// whether the decrement was clamped at zero (requested more than was
	// available).
	DecrementStock(ctx context.Context, productID string, qty int) (remaining int, clamped bool, err error)
}
