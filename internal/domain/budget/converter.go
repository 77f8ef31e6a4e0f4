package budget

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vendaria/pos-api/internal/domain/cart"
	"github.com/vendaria/pos-api/internal/domain/sale"
)

// StatusUpdateError reports that the sale was committed and stock was
// decremented, but the budget could not be flipped to converted. The system
// is in a recoverable but inconsistent state: the operator must update the
// budget manually. Callers must surface this distinctly from commit failures
// because the sale itself succeeded.
type StatusUpdateError struct {
	BudgetID string
	SaleID   string
	Err      error
}

func (e *StatusUpdateError) Error() string {
	return fmt.Sprintf("sale %s created, but budget %s status update failed: %v",
		e.SaleID, e.BudgetID, e.Err)
}

func (e *StatusUpdateError) Unwrap() error { return e.Err }

// Converter turns an open budget into a sale through the shared commit
// pipeline and then marks the budget converted.
type Converter struct {
	budgets  Repository
	pipeline *sale.Pipeline
}

// NewConverter creates a Converter.
func NewConverter(budgets Repository, pipeline *sale.Pipeline) *Converter {
	return &Converter{budgets: budgets, pipeline: pipeline}
}

// Convert commits the budget's lines as a sale and flips the budget to
// converted. Lines are built from the stored quote, so prices reflect the
// quote rather than the current catalog. Budgets that are not open are
// rejected up front; a conversion that loses the race on the final status
// update still returns the committed result together with a
// StatusUpdateError.
func (c *Converter) Convert(ctx context.Context, budgetID, paymentMethod, note string) (*sale.Result, error) {
	b, err := c.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return nil, errors.Wrap(err, "load budget")
	}

	switch b.Status {
	case StatusOpen:
	case StatusConverted:
		return nil, ErrAlreadyConverted
	case StatusCanceled:
		return nil, ErrCanceled
	default:
		return nil, errors.Errorf("unknown budget status: %q", b.Status)
	}

	lines := make([]cart.Line, 0, len(b.Lines))
	for _, l := range b.Lines {
		line := cart.Line{
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
		if l.ServiceID != "" {
			line.ItemID = l.ServiceID
			line.Kind = cart.KindService
		} else {
			line.ItemID = l.ProductID
			line.Kind = cart.KindProduct
		}
		lines = append(lines, line)
	}

	result, err := c.pipeline.CommitQuoted(ctx, sale.QuotedRequest{
		Lines:          lines,
		PaymentMethod:  paymentMethod,
		Note:           note,
		SourceBudgetID: b.ID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "commit budget lines")
	}

	if err := c.budgets.MarkConverted(ctx, b.ID, result.Sale.ID); err != nil {
		zctx.From(ctx).Error("budget status update failed after sale commit",
			zap.String("budget_id", b.ID),
			zap.String("sale_id", result.Sale.ID),
			zap.Error(err),
		)
		return result, &StatusUpdateError{BudgetID: b.ID, SaleID: result.Sale.ID, Err: err}
	}

	return result, nil
}
