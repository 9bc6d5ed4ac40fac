package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/order"
	"github.com/pedidolocal/storefront/internal/domain/pricing"
)

type addressPayload struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
}

type courierPayload struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type checkoutItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	AddonIDs  []string `json:"addon_ids,omitempty"`
}

type checkoutRequest struct {
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Address       addressPayload        `json:"address"`
	Items         []checkoutItemRequest `json:"items"`
	PaymentMethod string                `json:"payment_method"`
	CouponCode    string                `json:"coupon_code,omitempty"`
}

func (req checkoutRequest) toDomain() order.CheckoutRequest {
	items := make([]order.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			AddonIDs:  item.AddonIDs,
		}
	}
	return order.CheckoutRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address: order.Address{
			Street:       req.Address.Street,
			Number:       req.Address.Number,
			Complement:   req.Address.Complement,
			Neighborhood: req.Address.Neighborhood,
		},
		Items:         items,
		PaymentMethod: pricing.PaymentMethod(req.PaymentMethod),
		CouponCode:    req.CouponCode,
	}
}

type quoteResponse struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
	CouponApplied bool            `json:"coupon_applied"`
	CouponReason  string          `json:"coupon_reason,omitempty"`
	ZoneMatched   bool            `json:"zone_matched"`
}

func newQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		DeliveryFee:   q.DeliveryFee,
		Total:         q.Total,
		CouponApplied: q.CouponApplied,
		CouponReason:  string(q.CouponReason),
		ZoneMatched:   q.ZoneMatched,
	}
}

type statusLogPayload struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

type orderResponse struct {
	Code          string           `json:"code"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	Address       addressPayload   `json:"address"`
	Items         []order.LineItem `json:"items"`
	PaymentMethod string           `json:"payment_method"`
	CouponCode    string           `json:"coupon_code,omitempty"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Discount      decimal.Decimal  `json:"discount"`
	DeliveryFee   decimal.Decimal  `json:"delivery_fee"`
	Total         decimal.Decimal  `json:"total"`
	Status        string           `json:"status"`
	CancelReason  string           `json:"cancel_reason,omitempty"`
	Courier       *courierPayload  `json:"courier,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`

	StatusLog []statusLogPayload `json:"status_log,omitempty"`
}

func newOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		Code:          o.Code,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Address: addressPayload{
			Street:       o.Address.Street,
			Number:       o.Address.Number,
			Complement:   o.Address.Complement,
			Neighborhood: o.Address.Neighborhood,
		},
		Items:         o.Items,
		PaymentMethod: string(o.PaymentMethod),
		CouponCode:    o.CouponCode,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.Total,
		Status:        string(o.Status),
		CancelReason:  o.CancelReason,
		CreatedAt:     o.CreatedAt,
	}
	if o.Courier != nil {
		resp.Courier = &courierPayload{Name: o.Courier.Name, Phone: o.Courier.Phone}
	}
	for _, entry := range o.StatusLog {
		resp.StatusLog = append(resp.StatusLog, statusLogPayload{
			Status: string(entry.Status),
			At:     entry.At,
			Note:   entry.Note,
		})
	}
	return resp
}

type checkoutResponse struct {
	Order orderResponse `json:"order"`
	Quote quoteResponse `json:"quote"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.orders.Quote(r.Context(), req.toDomain())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, q, err := h.orders.Checkout(r.Context(), req.toDomain())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, checkoutResponse{
		Order: newOrderResponse(o),
		Quote: newQuoteResponse(q),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.orders.Board(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make(map[string][]orderResponse, len(grouped))
	for _, s := range order.AllStatuses() {
		bucket := make([]orderResponse, 0, len(grouped[s]))
		for i := range grouped[s] {
			bucket = append(bucket, newOrderResponse(&grouped[s][i]))
		}
		resp[string(s)] = bucket
	}
	respondJSON(w, http.StatusOK, resp)
}

type statusRequest struct {
	Status       string          `json:"status"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	Courier      *courierPayload `json:"courier,omitempty"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	domainReq := order.TransitionRequest{
		Target:       order.Status(req.Status),
		CancelReason: req.CancelReason,
	}
	if req.Courier != nil {
		domainReq.Courier = &order.Courier{Name: req.Courier.Name, Phone: req.Courier.Phone}
	}

	o, err := h.orders.Transition(r.Context(), r.PathValue("code"), domainReq)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderResponse(o))
}
