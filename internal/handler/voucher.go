package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

type createVoucherRequest struct {
	Code              string    `json:"code,omitempty"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     float64   `json:"discountValue"`
	ExpirationDate    time.Time `json:"expirationDate"`
	UsageLimit        int       `json:"usageLimit"`
	MinimumOrderValue *float64  `json:"minimumOrderValue,omitempty"`
	IsActive          *bool     `json:"isActive,omitempty"` // defaults to true
}

type updateVoucherRequest struct {
	Code              *string    `json:"code,omitempty"`
	DiscountType      *string    `json:"discountType,omitempty"`
	DiscountValue     *float64   `json:"discountValue,omitempty"`
	ExpirationDate    *time.Time `json:"expirationDate,omitempty"`
	UsageLimit        *int       `json:"usageLimit,omitempty"`
	MinimumOrderValue *float64   `json:"minimumOrderValue,omitempty"`
	IsActive          *bool      `json:"isActive,omitempty"`
}

type voucherResponse struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     float64   `json:"discountValue"`
	ExpirationDate    time.Time `json:"expirationDate"`
	UsageLimit        int       `json:"usageLimit"`
	UsedCount         int       `json:"usedCount"`
	MinimumOrderValue *float64  `json:"minimumOrderValue,omitempty"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateVoucher handles POST /vouchers.
func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
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

	v, err := h.vouchers.Create(r.Context(), voucher.CreateParams{
		Code:              req.Code,
		DiscountType:      discount.Type(req.DiscountType),
		DiscountValue:     decimal.NewFromFloat(req.DiscountValue),
		ExpirationDate:    req.ExpirationDate,
		UsageLimit:        req.UsageLimit,
		MinimumOrderValue: optDecimal(req.MinimumOrderValue),
		IsActive:          isActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(v))
}

// ListVouchers handles GET /vouchers. The optional isActive query parameter
// filters by active state.
func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	filter, err := activeFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vouchers, err := h.vouchers.List(r.Context(), voucher.ListFilter{IsActive: filter})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]voucherResponse, len(vouchers))
	for i := range vouchers {
		resp[i] = toVoucherResponse(&vouchers[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetVoucher handles GET /vouchers/{id}.
func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.vouchers.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// UpdateVoucher handles PUT /vouchers/{id}. Absent fields are left unchanged.
func (h *Handler) UpdateVoucher(w http.ResponseWriter, r *http.Request) {
	var req updateVoucherRequest
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

	v, err := h.vouchers.Update(r.Context(), chi.URLParam(r, "id"), voucher.UpdateParams{
		Code:              req.Code,
		DiscountType:      discountType,
		DiscountValue:     optDecimal(req.DiscountValue),
		ExpirationDate:    req.ExpirationDate,
		UsageLimit:        req.UsageLimit,
		MinimumOrderValue: optDecimal(req.MinimumOrderValue),
		IsActive:          req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// DeleteVoucher handles DELETE /vouchers/{id}.
func (h *Handler) DeleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.vouchers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toVoucherResponse(v *voucher.Voucher) voucherResponse {
	resp := voucherResponse{
		ID:             v.ID,
		Code:           v.Code,
		DiscountType:   string(v.DiscountType),
		DiscountValue:  v.DiscountValue.InexactFloat64(),
		ExpirationDate: v.ExpirationDate,
		UsageLimit:     v.UsageLimit,
		UsedCount:      v.UsedCount,
		IsActive:       v.IsActive,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	if v.MinimumOrderValue != nil {
		f := v.MinimumOrderValue.InexactFloat64()
		resp.MinimumOrderValue = &f
	}
	return resp
}

// validateDiscountFields checks the shared create-time fields of vouchers and
// promotions.
func validateDiscountFields(discountType string, value float64, usageLimit int, expiration time.Time) error {
	if !discount.Type(discountType).Valid() {
		return badRequest("discountType must be \"percentage\" or \"fixed\"")
	}
	if value < 0 {
		return badRequest("discountValue must not be negative")
	}
	if usageLimit <= 0 {
		return badRequest("usageLimit must be positive")
	}
	if expiration.IsZero() {
		return badRequest("expirationDate is required")
	}
	return nil
}

func optDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// activeFilter parses the optional isActive query parameter.
func activeFilter(r *http.Request) (*bool, error) {
	switch v := r.URL.Query().Get("isActive"); v {
	case "":
		return nil, nil
	case "true":
		t := true
		return &t, nil
	case "false":
		f := false
		return &f, nil
	default:
		return nil, badRequest("isActive must be \"true\" or \"false\"")
	}
}
