package sale

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vendaria/pos-api/internal/domain/cart"
	"github.com/vendaria/pos-api/internal/domain/discount"
)

// ErrEmptyCart is returned when a commit is attempted with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutRequest is the input for a direct point-of-sale commit.
type CheckoutRequest struct {
	OperatorID    string
	Lines         []cart.Line
	DiscountType  discount.Type
	DiscountValue decimal.Decimal
	PaymentMethod string
	Note          string
}

// QuotedRequest is the input for committing lines whose prices and totals
// were fixed earlier, e.g. the lines of an accepted budget. No discount
// policy runs on this path; the quote is taken as-is.
type QuotedRequest struct {
	Lines          []cart.Line
	PaymentMethod  string
	Note           string
	SourceBudgetID string
}

// Result is the outcome of a committed sale. StockIssues holds the non-fatal
// per-product reconcile failures; when it is non-empty the sale itself still
// succeeded and the operator should correct inventory manually.
type Result struct {
	Sale        *Sale
	Items       []Item
	StockIssues []StockIssue
}

// Pipeline is the single commit path shared by direct checkout and budget
// conversion. The steps run strictly in order: discount validation (checkout
// only), sale + items write, stock reconciliation. Each step consumes output
// of the previous one, so the ordering is load-bearing.
type Pipeline struct {
	policy     *discount.Policy
	writer     *Writer
	reconciler *Reconciler

	// OnCommit, when set, is invoked once per successfully committed sale.
	OnCommit func(ctx context.Context, s *Sale)
}

// NewPipeline assembles the commit pipeline from its three stages.
func NewPipeline(policy *discount.Policy, writer *Writer, reconciler *Reconciler) *Pipeline {
	return &Pipeline{
		policy:     policy,
		writer:     writer,
		reconciler: reconciler,
	}
}

// Checkout validates the discount against the operator's cap, then commits
// the cart lines. Discount errors block the commit before any write.
func (p *Pipeline) Checkout(ctx context.Context, req CheckoutRequest) (*Result, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := subtotal(req.Lines)

	typ := req.DiscountType
	if typ == "" {
		typ = discount.TypeNone
	}
	applied, err := p.policy.Apply(ctx, req.OperatorID, typ, req.DiscountValue, subtotal)
	if err != nil {
		return nil, err
	}

	totals := Totals{
		Subtotal:      subtotal,
		DiscountType:  typ,
		DiscountValue: req.DiscountValue,
		Total:         applied.Total,
	}
	return p.commit(ctx, req.Lines, totals, Meta{
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	})
}

// CommitQuoted commits lines at their quoted prices with no discount step.
func (p *Pipeline) CommitQuoted(ctx context.Context, req QuotedRequest) (*Result, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	sub := subtotal(req.Lines)
	totals := Totals{
		Subtotal:      sub,
		DiscountType:  discount.TypeNone,
		DiscountValue: decimal.Zero,
		Total:         sub,
	}
	return p.commit(ctx, req.Lines, totals, Meta{
		PaymentMethod:  req.PaymentMethod,
		Note:           req.Note,
		SourceBudgetID: req.SourceBudgetID,
	})
}

// commit runs the write and reconcile stages. The sale and all of its items
// must be fully persisted before any stock is touched.
func (p *Pipeline) commit(ctx context.Context, lines []cart.Line, totals Totals, meta Meta) (*Result, error) {
	s, items, err := p.writer.Write(ctx, lines, totals, meta)
	if err != nil {
		return nil, err
	}

	issues := p.reconciler.Apply(ctx, lines)

	if p.OnCommit != nil {
		p.OnCommit(ctx, s)
	}
	return &Result{Sale: s, Items: items, StockIssues: issues}, nil
}

func subtotal(lines []cart.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}
