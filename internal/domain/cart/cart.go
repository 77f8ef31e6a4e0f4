// Package cart holds the in-memory representation of the items being sold.
// A Cart lives for the duration of one checkout session and is discarded on
// commit or cancel; it never touches storage.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind distinguishes stocked products from services.
type Kind string

const (
	// KindProduct is a stocked catalog product.
	KindProduct Kind = "product"
	// KindService is a sellable service with no stock.
	KindService Kind = "service"
)

// Line is a single cart entry.
type Line struct {
	ItemID    string
	Kind      Kind
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	// CostBasis is the unit cost snapshot carried into the sale item.
	// Nil means the cost is looked up from the catalog at commit time.
	CostBasis *decimal.Decimal
	// StockCeiling is the maximum sellable quantity given current inventory.
	// Nil means unknown (services, or stock not loaded).
	StockCeiling *int
}

// OutOfStockError indicates an AddLine would push a line past its stock
// ceiling.
type OutOfStockError struct {
	ItemID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("item %s is out of stock", e.ItemID)
}

// InsufficientStockError indicates a SetQuantity request above the line's
// stock ceiling. The line's previous quantity is preserved.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// Cart aggregates the lines of one in-progress sale.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddLine adds the given line to the cart. When a line for the same item and
// kind already exists its quantity is incremented instead, capped at the
// line's stock ceiling. A new line with a non-positive quantity is added with
// quantity 1.
func (c *Cart) AddLine(l Line) error {
	add := l.Quantity
	if add <= 0 {
		add = 1
	}

	for i := range c.lines {
		if c.lines[i].ItemID != l.ItemID || c.lines[i].Kind != l.Kind {
			continue
		}
		next := c.lines[i].Quantity + add
		if ceiling, ok := lineCeiling(c.lines[i]); ok && next > ceiling {
			return &OutOfStockError{ItemID: l.ItemID}
		}
		c.lines[i].Quantity = next
		return nil
	}

	if ceiling, ok := lineCeiling(l); ok && add > ceiling {
		return &OutOfStockError{ItemID: l.ItemID}
	}
	l.Quantity = add
	c.lines = append(c.lines, l)
	return nil
}

// SetQuantity sets the quantity of an existing line. A non-positive quantity
// removes the line. A quantity above the stock ceiling is rejected with
// InsufficientStockError and the existing quantity is preserved.
func (c *Cart) SetQuantity(itemID string, kind Kind, n int) error {
	for i := range c.lines {
		if c.lines[i].ItemID != itemID || c.lines[i].Kind != kind {
			continue
		}
		if n <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		if ceiling, ok := lineCeiling(c.lines[i]); ok && n > ceiling {
			return &InsufficientStockError{ItemID: itemID, Requested: n, Available: ceiling}
		}
		c.lines[i].Quantity = n
		return nil
	}
	return fmt.Errorf("no cart line for item %s", itemID)
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Lines returns a copy of the current cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

func lineCeiling(l Line) (int, bool) {
	if l.Kind != KindProduct || l.StockCeiling == nil {
		return 0, false
	}
	return *l.StockCeiling, true
}
