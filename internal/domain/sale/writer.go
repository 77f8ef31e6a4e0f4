package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vendaria/pos-api/internal/domain/cart"
	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/domain/discount"
)

// Totals holds the computed money fields of a sale at commit time.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountType  discount.Type
	DiscountValue decimal.Decimal
	Total         decimal.Decimal
}

// Meta carries the non-monetary sale attributes.
type Meta struct {
	PaymentMethod  string
	Note           string
	SourceBudgetID string
}

// Writer creates the sale header and one item per cart line, snapshotting
// the unit cost of each product for later margin reporting.
type Writer struct {
	sales   Repository
	catalog catalog.Repository
	now     func() time.Time
	newID   func() string
}

// NewWriter creates a Writer backed by the given repositories.
func NewWriter(sales Repository, cat catalog.Repository) *Writer {
	return &Writer{
		sales:   sales,
		catalog: cat,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Write persists the sale and its items. The header and every item are
// written in one atomic repository call; a failure leaves no partial state
// behind and is fatal to the commit.
func (w *Writer) Write(ctx context.Context, lines []cart.Line, totals Totals, meta Meta) (*Sale, []Item, error) {
	if len(lines) == 0 {
		return nil, nil, errors.New("no lines to write")
	}

	s := &Sale{
		ID:             w.newID(),
		CreatedAt:      w.now(),
		Subtotal:       totals.Subtotal,
		DiscountType:   totals.DiscountType,
		DiscountValue:  totals.DiscountValue,
		Total:          totals.Total,
		PaymentMethod:  meta.PaymentMethod,
		Note:           meta.Note,
		SourceBudgetID: meta.SourceBudgetID,
	}

	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		item := Item{
			SaleID:     s.ID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			UnitCost:   w.costSnapshot(ctx, l),
		}
		switch l.Kind {
		case cart.KindService:
			item.ServiceID = l.ItemID
		default:
			item.ProductID = l.ItemID
		}
		items = append(items, item)
	}

	if err := w.sales.CreateWithItems(ctx, s, items); err != nil {
		return nil, nil, errors.Wrap(err, "create sale")
	}
	return s, items, nil
}

// costSnapshot resolves the unit cost for a line: the cart's cost basis when
// present, otherwise the product's current cost from the catalog. A missing
// cost defaults to zero; that is worth a warning but never blocks the sale.
func (w *Writer) costSnapshot(ctx context.Context, l cart.Line) decimal.Decimal {
	if l.CostBasis != nil {
		return *l.CostBasis
	}
	if l.Kind != cart.KindProduct {
		return decimal.Zero
	}

	p, err := w.catalog.GetProduct(ctx, l.ItemID)
	if err != nil {
		zctx.From(ctx).Warn("cost lookup failed, snapshotting zero",
			zap.String("product_id", l.ItemID),
			zap.Error(err),
		)
		return decimal.Zero
	}
	if p.Cost == nil {
		zctx.From(ctx).Warn("product has no cost on record, snapshotting zero",
			zap.String("product_id", l.ItemID),
		)
		return decimal.Zero
	}
	return *p.Cost
}
