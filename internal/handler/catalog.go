package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/catalog"
)

type addonPayload struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type productPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
	Addons   []addonPayload  `json:"addons,omitempty"`
}

func newProductPayload(p catalog.Product) productPayload {
	out := productPayload{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
	}
	for _, a := range p.Addons {
		out.Addons = append(out.Addons, addonPayload{ID: a.ID, Name: a.Name, Price: a.Price})
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]productPayload, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductPayload(p))
	}
	respondJSON(w, http.StatusOK, resp)
}
