package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/vendaria/pos-api/internal/domain/cart"
	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/domain/discount"
	"github.com/vendaria/pos-api/internal/domain/sale"
)

type checkoutItemReq struct {
	ProductID string `json:"productId"`
	ServiceID string `json:"serviceId"`
	Quantity  int    `json:"quantity"`
}

type checkoutDiscountReq struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type checkoutReq struct {
	Items         []checkoutItemReq    `json:"items"`
	Discount      *checkoutDiscountReq `json:"discount"`
	PaymentMethod string               `json:"paymentMethod"`
	Note          string               `json:"note"`
}

// checkout commits a cart as a sale: build lines against live stock ceilings,
// validate the discount against the operator's cap, persist sale + items,
// decrement stock.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "paymentMethod required")
		return
	}

	c := cart.New()
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
			return
		}
		line, err := h.buildLine(r, item)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity, "item not found")
				return
			}
			writeInternalError(w, r, err)
			return
		}
		if err := c.AddLine(line); err != nil {
			var oos *cart.OutOfStockError
			if errors.As(err, &oos) {
				writeError(w, http.StatusUnprocessableEntity, oos.Error())
				return
			}
			writeInternalError(w, r, err)
			return
		}
	}

	commit := sale.CheckoutRequest{
		Lines:         c.Lines(),
		DiscountType:  discount.TypeNone,
		DiscountValue: decimal.Zero,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}
	if op, ok := OperatorFromContext(r.Context()); ok {
		commit.OperatorID = op.ID
	}
	if req.Discount != nil {
		commit.DiscountType = discount.Type(req.Discount.Type)
		commit.DiscountValue = req.Discount.Value
	}

	result, err := h.pipeline.Checkout(r.Context(), commit)
	if err != nil {
		var invalid *discount.InvalidDiscountError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, invalid.Error())
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSale(e, result.Sale, result.Items, stockWarnings(result.StockIssues))
	})
}

// buildLine resolves one request item against the catalog. Product lines get
// the live stock as their ceiling; service lines have none.
func (h *Handler) buildLine(r *http.Request, item checkoutItemReq) (cart.Line, error) {
	switch {
	case item.ProductID != "" && item.ServiceID == "":
		p, err := h.catalog.GetProduct(r.Context(), item.ProductID)
		if err != nil {
			return cart.Line{}, err
		}
		stock := p.Stock
		return cart.Line{
			ItemID:       p.ID,
			Kind:         cart.KindProduct,
			Name:         p.Name,
			UnitPrice:    p.Price,
			Quantity:     item.Quantity,
			CostBasis:    p.Cost,
			StockCeiling: &stock,
		}, nil
	case item.ServiceID != "" && item.ProductID == "":
		s, err := h.catalog.GetService(r.Context(), item.ServiceID)
		if err != nil {
			return cart.Line{}, err
		}
		return cart.Line{
			ItemID:    s.ID,
			Kind:      cart.KindService,
			Name:      s.Name,
			UnitPrice: s.Price,
			Quantity:  item.Quantity,
		}, nil
	default:
		return cart.Line{}, errors.Wrap(catalog.ErrNotFound, "exactly one of productId and serviceId must be set")
	}
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, items, err := h.sales.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sale.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sale not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSale(e, s, items, nil)
	})
}
