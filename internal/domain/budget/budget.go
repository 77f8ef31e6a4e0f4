// Package budget holds customer quotes and their one-way conversion into
// sales.
package budget

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a budget. The only transitions are
// open → converted (via the Converter) and open → canceled (external);
// nothing leaves converted or canceled.
type Status string

const (
	StatusOpen      Status = "open"
	StatusConverted Status = "converted"
	StatusCanceled  Status = "canceled"
)

var (
	// ErrNotFound is returned when the requested budget does not exist.
	ErrNotFound = errors.New("budget not found")
	// ErrAlreadyConverted is returned when converting a budget that was
	// already converted.
	ErrAlreadyConverted = errors.New("budget already converted")
	// ErrCanceled is returned when converting a canceled budget.
	ErrCanceled = errors.New("budget is canceled")
	// ErrNotOpen is returned by the repository when a conditional status
	// update finds the budget no longer open.
	ErrNotOpen = errors.New("budget is not open")
)

// Budget is a quote given to a customer prior to sale.
type Budget struct {
	ID              string
	Status          Status
	ConvertedSaleID string
	Note            string
	CreatedAt       time.Time
	Lines           []Line
}

// Line is one quoted item. Prices reflect the quote, not the current
// catalog. Exactly one of ProductID and ServiceID is set.
type Line struct {
	ProductID string
	ServiceID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns the sum of unit price times quantity over all lines.
func (b *Budget) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Repository defines persistence for budgets.
type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, id string) (*Budget, error)

	// MarkConverted flips the budget to converted and records the sale it
	// produced. The update is conditional on the budget still being open;
	// ErrNotOpen is returned otherwise.
	MarkConverted(ctx context.Context, id, saleID string) error
}
