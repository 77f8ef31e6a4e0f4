package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/vendaria/pos-api/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.ObjEnd()
}
