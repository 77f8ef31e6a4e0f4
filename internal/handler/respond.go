package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vendaria/pos-api/internal/domain/sale"
)

// writeJSON encodes a response body built by fn and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// writeInternalError logs the error and responds with a generic 500 body so
// storage details never leak to clients.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.InexactFloat64())
}

// encodeSale writes a committed sale, its items, and any non-fatal warnings.
func encodeSale(e *jx.Encoder, s *sale.Sale, items []sale.Item, warnings []string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("createdAt")
	e.Str(s.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("subtotal")
	encodeMoney(e, s.Subtotal)
	e.FieldStart("discountType")
	e.Str(string(s.DiscountType))
	e.FieldStart("discountValue")
	encodeMoney(e, s.DiscountValue)
	e.FieldStart("total")
	encodeMoney(e, s.Total)
	e.FieldStart("paymentMethod")
	e.Str(s.PaymentMethod)
	if s.Note != "" {
		e.FieldStart("note")
		e.Str(s.Note)
	}
	if s.SourceBudgetID != "" {
		e.FieldStart("sourceBudgetId")
		e.Str(s.SourceBudgetID)
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		if it.ProductID != "" {
			e.FieldStart("productId")
			e.Str(it.ProductID)
		}
		if it.ServiceID != "" {
			e.FieldStart("serviceId")
			e.Str(it.ServiceID)
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, it.UnitPrice)
		e.FieldStart("totalPrice")
		encodeMoney(e, it.TotalPrice)
		e.FieldStart("unitCost")
		encodeMoney(e, it.UnitCost)
		e.ObjEnd()
	}
	e.ArrEnd()

	if len(warnings) > 0 {
		e.FieldStart("warnings")
		e.ArrStart()
		for _, wmsg := range warnings {
			e.Str(wmsg)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// stockWarnings converts collected reconcile issues into operator-facing
// warning strings.
func stockWarnings(issues []sale.StockIssue) []string {
	if len(issues) == 0 {
		return nil
	}
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Error()+"; correct inventory manually")
	}
	return out
}
