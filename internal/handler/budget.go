package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/vendaria/pos-api/internal/domain/budget"
	"github.com/vendaria/pos-api/internal/domain/catalog"
)

type budgetReq struct {
	Items []checkoutItemReq `json:"items"`
	Note  string            `json:"note"`
}

// createBudget stores a quote with prices frozen at the current catalog
// values. Stock is not checked or reserved; that happens at conversion.
func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	lines := make([]budget.Line, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
			return
		}
		line, err := h.buildBudgetLine(r, item)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity, "item not found")
				return
			}
			writeInternalError(w, r, err)
			return
		}
		lines = append(lines, line)
	}

	b := &budget.Budget{
		ID:        uuid.New().String(),
		Status:    budget.StatusOpen,
		Note:      req.Note,
		CreatedAt: time.Now(),
		Lines:     lines,
	}
	if err := h.budgets.Create(r.Context(), b); err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeBudget(e, b)
	})
}

func (h *Handler) buildBudgetLine(r *http.Request, item checkoutItemReq) (budget.Line, error) {
	switch {
	case item.ProductID != "" && item.ServiceID == "":
		p, err := h.catalog.GetProduct(r.Context(), item.ProductID)
		if err != nil {
			return budget.Line{}, err
		}
		return budget.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		}, nil
	case item.ServiceID != "" && item.ProductID == "":
		s, err := h.catalog.GetService(r.Context(), item.ServiceID)
		if err != nil {
			return budget.Line{}, err
		}
		return budget.Line{
			ServiceID: s.ID,
			Name:      s.Name,
			Quantity:  item.Quantity,
			UnitPrice: s.Price,
		}, nil
	default:
		return budget.Line{}, errors.Wrap(catalog.ErrNotFound, "exactly one of productId and serviceId must be set")
	}
}

func (h *Handler) getBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.budgets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, budget.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeBudget(e, b)
	})
}

type convertReq struct {
	PaymentMethod string `json:"paymentMethod"`
	Note          string `json:"note"`
}

// convertBudget turns an open budget into a committed sale. A conversion that
// commits the sale but loses the final status update still responds 200 with
// the sale and a warning, since the money has already moved.
func (h *Handler) convertBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req convertReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "paymentMethod required")
		return
	}

	result, err := h.converter.Convert(r.Context(), id, req.PaymentMethod, req.Note)
	if err != nil {
		var statusErr *budget.StatusUpdateError
		switch {
		case errors.As(err, &statusErr):
			warnings := stockWarnings(result.StockIssues)
			warnings = append(warnings, "sale created, but budget status update failed; update the budget manually")
			writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
				encodeSale(e, result.Sale, result.Items, warnings)
			})
			return
		case errors.Is(err, budget.ErrNotFound):
			writeError(w, http.StatusNotFound, "budget not found")
			return
		case errors.Is(err, budget.ErrAlreadyConverted):
			writeError(w, http.StatusConflict, "budget already converted")
			return
		case errors.Is(err, budget.ErrCanceled):
			writeError(w, http.StatusConflict, "budget is canceled")
			return
		default:
			writeInternalError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSale(e, result.Sale, result.Items, stockWarnings(result.StockIssues))
	})
}

func encodeBudget(e *jx.Encoder, b *budget.Budget) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(b.ID)
	e.FieldStart("status")
	e.Str(string(b.Status))
	e.FieldStart("createdAt")
	e.Str(b.CreatedAt.UTC().Format(time.RFC3339))
	if b.Note != "" {
		e.FieldStart("note")
		e.Str(b.Note)
	}
	if b.ConvertedSaleID != "" {
		e.FieldStart("convertedSaleId")
		e.Str(b.ConvertedSaleID)
	}
	e.FieldStart("total")
	encodeMoney(e, b.Total())

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range b.Lines {
		e.ObjStart()
		if l.ProductID != "" {
			e.FieldStart("productId")
			e.Str(l.ProductID)
		}
		if l.ServiceID != "" {
			e.FieldStart("serviceId")
			e.Str(l.ServiceID)
		}
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, l.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
