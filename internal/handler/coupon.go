package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/coupon"
)

type couponPayload struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discount_type"`
	Value         decimal.Decimal  `json:"value"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	MaxUsage      int              `json:"max_usage"`
	UsageCount    int              `json:"usage_count"`
	Active        bool             `json:"active"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	CreatedAt     time.Time        `json:"created_at,omitzero"`
}

func newCouponPayload(rule coupon.Rule) couponPayload {
	return couponPayload{
		Code:          rule.Code,
		DiscountType:  string(rule.DiscountType),
		Value:         rule.Value,
		MinOrderValue: rule.MinOrderValue,
		MaxUsage:      rule.MaxUsage,
		UsageCount:    rule.UsageCount,
		Active:        rule.Active,
		EndDate:       rule.EndDate,
		CreatedAt:     rule.CreatedAt,
	}
}

func (p couponPayload) toDomain() *coupon.Rule {
	return &coupon.Rule{
		Code:          p.Code,
		DiscountType:  coupon.DiscountType(p.DiscountType),
		Value:         p.Value,
		MinOrderValue: p.MinOrderValue,
		MaxUsage:      p.MaxUsage,
		Active:        p.Active,
		EndDate:       p.EndDate,
	}
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.coupons.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]couponPayload, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, newCouponPayload(rule))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	rule, err := h.coupons.FindByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCouponPayload(*rule))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule := req.toDomain()
	if err := h.coupons.Create(r.Context(), rule); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := h.coupons.FindByCode(r.Context(), rule.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newCouponPayload(*created))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule := req.toDomain()
	rule.Code = r.PathValue("code")
	if err := h.coupons.Update(r.Context(), rule); err != nil {
		respondDomainError(w, r, err)
		return
	}

	updated, err := h.coupons.FindByCode(r.Context(), rule.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCouponPayload(*updated))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), r.PathValue("code")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
