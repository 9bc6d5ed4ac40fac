package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/zone"
)

type zonePayload struct {
	ID              string           `json:"id,omitempty"`
	Name            string           `json:"name"`
	Neighborhoods   []string         `json:"neighborhoods"`
	Fee             decimal.Decimal  `json:"fee"`
	FreeDeliveryMin *decimal.Decimal `json:"free_delivery_min,omitempty"`
}

func newZonePayload(z zone.Zone) zonePayload {
	return zonePayload{
		ID:              z.ID,
		Name:            z.Name,
		Neighborhoods:   z.Neighborhoods,
		Fee:             z.Fee,
		FreeDeliveryMin: z.FreeDeliveryMin,
	}
}

func (p zonePayload) toDomain() *zone.Zone {
	return &zone.Zone{
		ID:              p.ID,
		Name:            p.Name,
		Neighborhoods:   p.Neighborhoods,
		Fee:             p.Fee,
		FreeDeliveryMin: p.FreeDeliveryMin,
	}
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zones.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]zonePayload, 0, len(zones))
	for _, z := range zones {
		resp = append(resp, newZonePayload(z))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) getZone(w http.ResponseWriter, r *http.Request) {
	z, err := h.zones.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newZonePayload(*z))
}

func (h *Handler) createZone(w http.ResponseWriter, r *http.Request) {
	var req zonePayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || len(req.Neighborhoods) == 0 {
		respondError(w, http.StatusBadRequest, "name and neighborhoods required")
		return
	}

	z := req.toDomain()
	if err := h.zones.Create(r.Context(), z); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newZonePayload(*z))
}

func (h *Handler) updateZone(w http.ResponseWriter, r *http.Request) {
	var req zonePayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	z := req.toDomain()
	z.ID = r.PathValue("id")
	if err := h.zones.Update(r.Context(), z); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newZonePayload(*z))
}

func (h *Handler) deleteZone(w http.ResponseWriter, r *http.Request) {
	if err := h.zones.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
