// Package sale implements the commit pipeline that turns a cart or an
// accepted budget into a persisted sale, its line items, and the implied
// inventory decrements.
package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vendaria/pos-api/internal/domain/discount"
)

// ErrNotFound is returned when the requested sale does not exist.
var ErrNotFound = errors.New("sale not found")

// Sale is the immutable header record of one committed sale.
type Sale struct {
	ID             string
	CreatedAt      time.Time
	Subtotal       decimal.Decimal
	DiscountType   discount.Type
	DiscountValue  decimal.Decimal
	Total          decimal.Decimal
	PaymentMethod  string
	Note           string
	SourceBudgetID string
	Voided         bool
}

// Item is one sale line. Exactly one of ProductID and ServiceID is set.
// UnitCost is a snapshot of the product's cost at commit time and must never
// change afterwards; margin reports depend on it.
type Item struct {
	SaleID     string
	ProductID  string
	ServiceID  string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	UnitCost   decimal.Decimal
}

// Repository defines persistence for sales.
type Repository interface {
	// CreateWithItems persists the sale header and all of its items
	// atomically: either everything is stored or nothing is.
	CreateWithItems(ctx context.Context, s *Sale, items []Item) error
	GetByID(ctx context.Context, id string) (*Sale, []Item, error)
}
