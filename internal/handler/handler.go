// Package handler exposes the pricing engine and code management over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promokit/promo-pricing/internal/domain/order"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

// Handler routes HTTP requests to the domain services.
type Handler struct {
	vouchers   *voucher.Service
	promotions *promotion.Service
	orders     *order.Service
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	vouchers *voucher.Service,
	promotions *promotion.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		vouchers:   vouchers,
		promotions: promotions,
		orders:     orders,
	}
}

// Routes builds the API router. Mutating voucher and promotion endpoints are
// wrapped with requireAPIKey; pricing and read endpoints stay open.
func (h *Handler) Routes(requireAPIKey func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Post("/apply-discounts", h.ApplyDiscounts)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
	})

	r.Route("/vouchers", func(r chi.Router) {
		r.Get("/", h.ListVouchers)
		r.Get("/{id}", h.GetVoucher)
		r.Group(func(r chi.Router) {
			r.Use(requireAPIKey)
			r.Post("/", h.CreateVoucher)
			r.Put("/{id}", h.UpdateVoucher)
			r.Delete("/{id}", h.DeleteVoucher)
		})
	})

	r.Route("/promotions", func(r chi.Router) {
		r.Get("/", h.ListPromotions)
		r.Get("/{id}", h.GetPromotion)
		r.Group(func(r chi.Router) {
			r.Use(requireAPIKey)
			r.Post("/", h.CreatePromotion)
			r.Put("/{id}", h.UpdatePromotion)
			r.Delete("/{id}", h.DeletePromotion)
		})
	})

	return r
}
