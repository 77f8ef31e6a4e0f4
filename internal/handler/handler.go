// Package handler exposes the POS API over HTTP: catalog reads, point-of-sale
// checkout, sale lookups, and budget creation/conversion.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendaria/pos-api/internal/domain/budget"
	"github.com/vendaria/pos-api/internal/domain/catalog"
	"github.com/vendaria/pos-api/internal/domain/sale"
)

// Handler wires the domain services to the HTTP routes. Business logic lives
// in the domain packages; this layer only decodes requests, builds carts, and
// maps domain errors onto status codes.
type Handler struct {
	catalog   catalog.Repository
	sales     sale.Repository
	pipeline  *sale.Pipeline
	budgets   budget.Repository
	converter *budget.Converter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cat catalog.Repository,
	sales sale.Repository,
	pipeline *sale.Pipeline,
	budgets budget.Repository,
	converter *budget.Converter,
) *Handler {
	return &Handler{
		catalog:   cat,
		sales:     sales,
		pipeline:  pipeline,
		budgets:   budgets,
		converter: converter,
	}
}

// Routes returns the API router. auth guards every route; it is applied here
// rather than in the server mux so the health endpoints stay open.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth)

	r.Get("/products", h.listProducts)
	r.Post("/sales", h.checkout)
	r.Get("/sales/{id}", h.getSale)
	r.Post("/budgets", h.createBudget)
	r.Get("/budgets/{id}", h.getBudget)
	r.Post("/budgets/{id}/convert", h.convertBudget)

	return r
}
