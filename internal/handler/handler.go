// Package handler exposes the HTTP API: checkout and quoting, order
// lookup, the kitchen board, status commands, and back-office CRUD for
// coupons and delivery zones.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pedidolocal/storefront/internal/domain/catalog"
	"github.com/pedidolocal/storefront/internal/domain/coupon"
	"github.com/pedidolocal/storefront/internal/domain/order"
	"github.com/pedidolocal/storefront/internal/domain/zone"
)

// Handler routes API requests to the order service and the back-office
// repositories.
type Handler struct {
	orders  *order.Service
	catalog catalog.Repository
	coupons coupon.Repository
	zones   zone.Repository
}

// New creates the API handler.
func New(orders *order.Service, catalogRepo catalog.Repository, couponRepo coupon.Repository, zoneRepo zone.Repository) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalogRepo,
		coupons: couponRepo,
		zones:   zoneRepo,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("POST /api/quote", h.quote)

	mux.HandleFunc("POST /api/orders", h.checkout)
	mux.HandleFunc("GET /api/orders/board", h.board)
	mux.HandleFunc("GET /api/orders/{code}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{code}/status", h.changeStatus)

	mux.HandleFunc("GET /api/coupons", h.listCoupons)
	mux.HandleFunc("POST /api/coupons", h.createCoupon)
	mux.HandleFunc("GET /api/coupons/{code}", h.getCoupon)
	mux.HandleFunc("PUT /api/coupons/{code}", h.updateCoupon)
	mux.HandleFunc("DELETE /api/coupons/{code}", h.deleteCoupon)

	mux.HandleFunc("GET /api/zones", h.listZones)
	mux.HandleFunc("POST /api/zones", h.createZone)
	mux.HandleFunc("GET /api/zones/{id}", h.getZone)
	mux.HandleFunc("PUT /api/zones/{id}", h.updateZone)
	mux.HandleFunc("DELETE /api/zones/{id}", h.deleteZone)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, errorResponse{Error: msg})
}

// respondDomainError maps domain errors onto HTTP status codes. Unknown
// errors become 500 with a generic body; the detail goes to the log
// only.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidTransition *order.InvalidTransitionError
		productNotFound   *order.ProductNotFoundError
		addonNotFound     *order.AddonNotFoundError
		invalidQuantity   *order.InvalidQuantityError
	)
	switch {
	case errors.As(err, &invalidTransition):
		respondError(w, http.StatusUnprocessableEntity, invalidTransition.Error())
	case errors.As(err, &productNotFound):
		respondError(w, http.StatusBadRequest, productNotFound.Error())
	case errors.As(err, &addonNotFound):
		respondError(w, http.StatusBadRequest, addonNotFound.Error())
	case errors.As(err, &invalidQuantity):
		respondError(w, http.StatusBadRequest, invalidQuantity.Error())
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, coupon.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, zone.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrConflict),
		errors.Is(err, coupon.ErrDuplicateCode):
		respondError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
