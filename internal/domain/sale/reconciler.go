package sale

import (
	"context"
	"fmt"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vendaria/pos-api/internal/domain/cart"
	"github.com/vendaria/pos-api/internal/domain/catalog"
)

// StockIssue records a per-product failure while applying inventory
// decrements. Issues are collected and reported alongside the committed sale;
// they never abort the pipeline or roll back the sale.
type StockIssue struct {
	ProductID string
	Err       error
}

func (i StockIssue) Error() string {
	return fmt.Sprintf("stock reconcile failed for product %s: %v", i.ProductID, i.Err)
}

// Reconciler applies the inventory decrement implied by a committed sale.
// Each product line is handled independently with an atomic conditional
// decrement floored at zero, so concurrent sales of the same product cannot
// drive stock negative or double-count availability.
type Reconciler struct {
	catalog catalog.Repository

	// OnClamp, when set, is invoked each time a decrement hits the zero
	// floor (the sale requested more units than were on hand).
	OnClamp func(ctx context.Context, productID string)

	// OnIssue, when set, is invoked for each collected decrement failure.
	OnIssue func(ctx context.Context, issue StockIssue)
}

// NewReconciler creates a Reconciler backed by the given catalog.
func NewReconciler(cat catalog.Repository) *Reconciler {
	return &Reconciler{catalog: cat}
}

// Apply decrements stock for every product line and returns the issues
// encountered. Service lines carry no stock and are skipped. Failures are
// logged and collected; the loop always runs to completion.
func (r *Reconciler) Apply(ctx context.Context, lines []cart.Line) []StockIssue {
	var issues []StockIssue
	for _, l := range lines {
		if l.Kind != cart.KindProduct {
			continue
		}
		remaining, clamped, err := r.catalog.DecrementStock(ctx, l.ItemID, l.Quantity)
		if err != nil {
			zctx.From(ctx).Warn("stock decrement failed",
				zap.String("product_id", l.ItemID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			issue := StockIssue{ProductID: l.ItemID, Err: err}
			issues = append(issues, issue)
			if r.OnIssue != nil {
				r.OnIssue(ctx, issue)
			}
			continue
		}
		if clamped {
			zctx.From(ctx).Warn("stock decrement clamped at zero",
				zap.String("product_id", l.ItemID),
				zap.Int("quantity", l.Quantity),
			)
			if r.OnClamp != nil {
				r.OnClamp(ctx, l.ItemID)
			}
		}
		zctx.From(ctx).Debug("stock decremented",
			zap.String("product_id", l.ItemID),
			zap.Int("quantity", l.Quantity),
			zap.Int("remaining", remaining),
		)
	}
	return issues
}
