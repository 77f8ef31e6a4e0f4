package discount

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies for a sale.
type Type string

const (
	// TypeNone means no discount is applied.
	TypeNone Type = "none"
	// TypePercentage applies a percentage of the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary amount capped by the subtotal.
	TypeFixed Type = "fixed"
)

// DefaultMaxPercentage is the conservative per-operator percentage cap used
// when the limits collaborator has no cap on record.
var DefaultMaxPercentage = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// InvalidDiscountError indicates a requested discount violates policy. It is
// user-correctable and always blocks the commit before any write happens.
type InvalidDiscountError struct {
	Reason string
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("invalid discount: %s", e.Reason)
}

// LimitSource supplies the per-operator percentage cap. Implemented by the
// operator repository; a nil source or a zero cap falls back to
// DefaultMaxPercentage.
type LimitSource interface {
	MaxDiscountPercentage(ctx context.Context, operatorID string) (decimal.Decimal, error)
}

// Applied is the outcome of a successfully validated discount.
type Applied struct {
	// Amount is the monetary discount subtracted from the subtotal.
	Amount decimal.Decimal
	// Total is subtotal minus Amount.
	Total decimal.Decimal
}

// Policy validates requested discounts against the operator cap and the order
// subtotal. It performs no writes.
type Policy struct {
	limits LimitSource
}

// NewPolicy creates a Policy backed by the given limit source. The source may
// be nil, in which case every operator gets DefaultMaxPercentage.
func NewPolicy(limits LimitSource) *Policy {
	return &Policy{limits: limits}
}

// Apply validates the requested discount and computes the applied amount and
// resulting total. Validation order: sign, then operator cap, then bounds.
func (p *Policy) Apply(ctx context.Context, operatorID string, typ Type, value, subtotal decimal.Decimal) (Applied, error) {
	switch typ {
	case TypeNone:
		return Applied{Amount: decimal.Zero, Total: subtotal}, nil
	case TypePercentage, TypeFixed:
	default:
		return Applied{}, errors.Errorf("unsupported discount type: %q", typ)
	}

	if value.IsNegative() {
		return Applied{}, &InvalidDiscountError{Reason: "negative"}
	}

	if typ == TypePercentage {
		limit, err := p.maxPercentage(ctx, operatorID)
		if err != nil {
			return Applied{}, errors.Wrap(err, "operator discount limit")
		}
		if value.GreaterThan(limit) {
			return Applied{}, &InvalidDiscountError{Reason: "exceeds operator limit"}
		}
		if value.GreaterThan(hundred) {
			return Applied{}, &InvalidDiscountError{Reason: "over 100%"}
		}
		amount := subtotal.Mul(value).Div(hundred).Round(2)
		return Applied{Amount: amount, Total: subtotal.Sub(amount)}, nil
	}

	if value.GreaterThan(subtotal) {
		return Applied{}, &InvalidDiscountError{Reason: "exceeds subtotal"}
	}
	amount := value.Round(2)
	return Applied{Amount: amount, Total: subtotal.Sub(amount)}, nil
}

func (p *Policy) maxPercentage(ctx context.Context, operatorID string) (decimal.Decimal, error) {
	if p == nil || p.limits == nil {
		return DefaultMaxPercentage, nil
	}
	limit, err := p.limits.MaxDiscountPercentage(ctx, operatorID)
	if err != nil {
		return decimal.Zero, err
	}
	if limit.IsZero() {
		return DefaultMaxPercentage, nil
	}
	return limit, nil
}
