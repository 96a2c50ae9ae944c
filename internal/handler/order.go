package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/order"
)

type lineItemDTO struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type applyDiscountsRequest struct {
	OrderID        string        `json:"orderId,omitempty"`
	Items          []lineItemDTO `json:"items"`
	VoucherCodes   []string      `json:"voucherCodes,omitempty"`
	PromotionCodes []string      `json:"promotionCodes,omitempty"`
}

type codeDiscountDTO struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

type breakdownDTO struct {
	VoucherDiscounts   []codeDiscountDTO `json:"voucherDiscounts"`
	PromotionDiscounts []codeDiscountDTO `json:"promotionDiscounts"`
}

type applyDiscountsResponse struct {
	OrderID           string       `json:"orderId"`
	Subtotal          float64      `json:"subtotal"`
	AppliedVouchers   []string     `json:"appliedVouchers"`
	AppliedPromotions []string     `json:"appliedPromotions"`
	TotalDiscount     float64      `json:"totalDiscount"`
	FinalAmount       float64      `json:"finalAmount"`
	Breakdown         breakdownDTO `json:"breakdown"`
}

type orderResponse struct {
	OrderID           string        `json:"orderId"`
	Items             []lineItemDTO `json:"items"`
	Subtotal          float64       `json:"subtotal"`
	AppliedVouchers   []string      `json:"appliedVouchers"`
	AppliedPromotions []string      `json:"appliedPromotions"`
	TotalDiscount     float64       `json:"totalDiscount"`
	FinalAmount       float64       `json:"finalAmount"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// ApplyDiscounts handles POST /orders/apply-discounts.
func (h *Handler) ApplyDiscounts(w http.ResponseWriter, r *http.Request) {
	var req applyDiscountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid request body"))
		return
	}

	items := make([]order.LineItem, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeError(w, r, badRequest("items[].productId is required"))
			return
		}
		if item.Quantity <= 0 {
			writeError(w, r, badRequest("items[].quantity must be positive"))
			return
		}
		if item.Price < 0 {
			writeError(w, r, badRequest("items[].price must not be negative"))
			return
		}
		items[i] = order.LineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Category:    item.Category,
			UnitPrice:   decimal.NewFromFloat(item.Price),
			Quantity:    item.Quantity,
		}
	}

	result, err := h.orders.ApplyDiscounts(r.Context(), order.Request{
		OrderID:        req.OrderID,
		Items:          items,
		VoucherCodes:   req.VoucherCodes,
		PromotionCodes: req.PromotionCodes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, applyDiscountsResponse{
		OrderID:           result.OrderID,
		Subtotal:          result.Subtotal.InexactFloat64(),
		AppliedVouchers:   result.AppliedVouchers,
		AppliedPromotions: result.AppliedPromotions,
		TotalDiscount:     result.TotalDiscount.InexactFloat64(),
		FinalAmount:       result.FinalAmount.InexactFloat64(),
		Breakdown: breakdownDTO{
			VoucherDiscounts:   toCodeDiscountDTOs(result.Breakdown.VoucherDiscounts),
			PromotionDiscounts: toCodeDiscountDTOs(result.Breakdown.PromotionDiscounts),
		},
	})
}

// GetOrder handles GET /orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders handles GET /orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func toCodeDiscountDTOs(in []order.CodeDiscount) []codeDiscountDTO {
	out := make([]codeDiscountDTO, len(in))
	for i, cd := range in {
		out[i] = codeDiscountDTO{Code: cd.Code, Discount: cd.Discount.InexactFloat64()}
	}
	return out
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Category:    item.Category,
			Price:       item.UnitPrice.InexactFloat64(),
			Quantity:    item.Quantity,
		}
	}
	return orderResponse{
		OrderID:           o.OrderID,
		Items:             items,
		Subtotal:          o.Subtotal.InexactFloat64(),
		AppliedVouchers:   o.AppliedVouchers,
		AppliedPromotions: o.AppliedPromotions,
		TotalDiscount:     o.TotalDiscount.InexactFloat64(),
		FinalAmount:       o.FinalAmount.InexactFloat64(),
		CreatedAt:         o.CreatedAt,
	}
}
