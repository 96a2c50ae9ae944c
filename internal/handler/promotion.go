package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
)

type createPromotionRequest struct {
	Code                      string    `json:"code,omitempty"`
	DiscountType              string    `json:"discountType"`
	DiscountValue             float64   `json:"discountValue"`
	EligibleProductIDs        []string  `json:"eligibleProductIds,omitempty"`
	EligibleProductCategories []string  `json:"eligibleProductCategories,omitempty"`
	ExpirationDate            time.Time `json:"expirationDate"`
	UsageLimit                int       `json:"usageLimit"`
	IsActive                  *bool     `json:"isActive,omitempty"` // defaults to true
}

type updatePromotionRequest struct {
	Code                      *string    `json:"code,omitempty"`
	DiscountType              *string    `json:"discountType,omitempty"`
	DiscountValue             *float64   `json:"discountValue,omitempty"`
	EligibleProductIDs        []string   `json:"eligibleProductIds,omitempty"`
	EligibleProductCategories []string   `json:"eligibleProductCategories,omitempty"`
	ExpirationDate            *time.Time `json:"expirationDate,omitempty"`
	UsageLimit                *int       `json:"usageLimit,omitempty"`
	IsActive                  *bool      `json:"isActive,omitempty"`
}

type promotionResponse struct {
	ID                        string    `json:"id"`
	Code                      string    `json:"code"`
	DiscountType              string    `json:"discountType"`
	DiscountValue             float64   `json:"discountValue"`
	EligibleProductIDs        []string  `json:"eligibleProductIds"`
	EligibleProductCategories []string  `json:"eligibleProductCategories"`
	ExpirationDate            time.Time `json:"expirationDate"`
	UsageLimit                int       `json:"usageLimit"`
	UsedCount                 int       `json:"usedCount"`
	IsActive                  bool      `json:"isActive"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// CreatePromotion handles POST /promotions.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid request body"))
		return
	}
	if err := validateDiscountFields(req.DiscountType, req.DiscountValue, req.UsageLimit, req.ExpirationDate); err != nil {
		writeError(w, r, err)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	p, err := h.promotions.Create(r.Context(), promotion.CreateParams{
		Code:                      req.Code,
		DiscountType:              discount.Type(req.DiscountType),
		DiscountValue:             decimal.NewFromFloat(req.DiscountValue),
		EligibleProductIDs:        req.EligibleProductIDs,
		EligibleProductCategories: req.EligibleProductCategories,
		ExpirationDate:            req.ExpirationDate,
		UsageLimit:                req.UsageLimit,
		IsActive:                  isActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromotionResponse(p))
}

// ListPromotions handles GET /promotions. The optional isActive query
// parameter filters by active state.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	filter, err := activeFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	promotions, err := h.promotions.List(r.Context(), promotion.ListFilter{IsActive: filter})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]promotionResponse, len(promotions))
	for i := range promotions {
		resp[i] = toPromotionResponse(&promotions[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPromotion handles GET /promotions/{id}.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promotions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

// UpdatePromotion handles PUT /promotions/{id}. Absent fields are left
// unchanged; eligibility lists are replaced wholesale when present.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var req updatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid request body"))
		return
	}
	if req.DiscountType != nil && !discount.Type(*req.DiscountType).Valid() {
		writeError(w, r, badRequest("discountType must be \"percentage\" or \"fixed\""))
		return
	}

	var discountType *discount.Type
	if req.DiscountType != nil {
		t := discount.Type(*req.DiscountType)
		discountType = &t
	}

	p, err := h.promotions.Update(r.Context(), chi.URLParam(r, "id"), promotion.UpdateParams{
		Code:                      req.Code,
		DiscountType:              discountType,
		DiscountValue:             optDecimal(req.DiscountValue),
		EligibleProductIDs:        req.EligibleProductIDs,
		EligibleProductCategories: req.EligibleProductCategories,
		ExpirationDate:            req.ExpirationDate,
		UsageLimit:                req.UsageLimit,
		IsActive:                  req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

// DeletePromotion handles DELETE /promotions/{id}.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promotions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPromotionResponse(p *promotion.Promotion) promotionResponse {
	ids := p.EligibleProductIDs
	if ids == nil {
		ids = []string{}
	}
	categories := p.EligibleProductCategories
	if categories == nil {
		categories = []string{}
	}
	return promotionResponse{
		ID:                        p.ID,
		Code:                      p.Code,
		DiscountType:              string(p.DiscountType),
		DiscountValue:             p.DiscountValue.InexactFloat64(),
		EligibleProductIDs:        ids,
		EligibleProductCategories: categories,
		ExpirationDate:            p.ExpirationDate,
		UsageLimit:                p.UsageLimit,
		UsedCount:                 p.UsedCount,
		IsActive:                  p.IsActive,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}
