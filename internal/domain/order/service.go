package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

// maxDiscountPercent is the fixed ceiling on the combined discount relative
// to the order subtotal.
const maxDiscountPercent = 50

var hundred = decimal.NewFromInt(100)

// Service is the discount engine. It orchestrates code de-duplication,
// per-code validation via the voucher and promotion directories, discount
// accumulation, the global cap, usage commit, and order persistence.
type Service struct {
	vouchers   voucher.Directory
	promotions promotion.Directory
	orders     Repository
	newOrderID func() string
}

// NewService creates the pricing engine with the required collaborators.
func NewService(vouchers voucher.Directory, promotions promotion.Directory, orders Repository) *Service {
	return &Service{
		vouchers:   vouchers,
		promotions: promotions,
		orders:     orders,
		newOrderID: func() string { return uuid.New().String() },
	}
}

// ApplyDiscounts runs one pricing pass over the request.
//
// Vouchers are applied first, in the order supplied, each one discounting the
// amount left over by its predecessors. Promotions follow, each discounting
// the sum of its eligible items at original prices, untouched by the voucher
// compounding. The combined discount is then capped at half the subtotal;
// breakdown entries keep their pre-cap amounts.
//
// The run is all-or-nothing up to the usage commit: any duplicate code or
// failed validation aborts before any usage counter moves. Once all codes
// validate, every applied code has its usage incremented, including codes
// whose discount was effectively wasted by the cap.
func (s *Service) ApplyDiscounts(ctx context.Context, req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if hasDuplicates(req.VoucherCodes) {
		return nil, &DuplicateCodesError{Kind: KindVoucher}
	}
	if hasDuplicates(req.PromotionCodes) {
		return nil, &DuplicateCodesError{Kind: KindPromotion}
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = s.newOrderID()
	}

	// Fixed for the whole run: minimum-order checks and the global cap use
	// the undiscounted subtotal.
	subtotal := subtotalOf(req.Items)

	var (
		appliedVouchers    = make([]string, 0, len(req.VoucherCodes))
		appliedPromotions  = make([]string, 0, len(req.PromotionCodes))
		voucherDiscounts   = make([]CodeDiscount, 0, len(req.VoucherCodes))
		promotionDiscounts = make([]CodeDiscount, 0, len(req.PromotionCodes))
		totalDiscount      = decimal.Zero
		remaining          = subtotal
	)

	for _, code := range req.VoucherCodes {
		v, err := s.vouchers.Validate(ctx, code, subtotal)
		if err != nil {
			if isVoucherRejection(err) {
				return nil, &InvalidCodeError{Kind: KindVoucher, Code: code, Reason: err}
			}
			return nil, errors.Wrapf(err, "validate voucher %s", code)
		}

		// Sequential vouchers compound on what the previous ones left.
		amount, err := discount.Compute(v.DiscountType, v.DiscountValue, remaining)
		if err != nil {
			return nil, errors.Wrapf(err, "voucher %s", code)
		}

		canonical := strings.ToUpper(code)
		appliedVouchers = append(appliedVouchers, canonical)
		voucherDiscounts = append(voucherDiscounts, CodeDiscount{Code: canonical, Discount: amount})
		totalDiscount = totalDiscount.Add(amount)
		remaining = remaining.Sub(amount)
	}

	promoItems := make([]promotion.Item, len(req.Items))
	for i, item := range req.Items {
		promoItems[i] = promotion.Item{ProductID: item.ProductID, Category: item.Category}
	}

	for _, code := range req.PromotionCodes {
		p, err := s.promotions.Validate(ctx, code, promoItems)
		if err != nil {
			if isPromotionRejection(err) {
				return nil, &InvalidCodeError{Kind: KindPromotion, Code: code, Reason: err}
			}
			return nil, errors.Wrapf(err, "validate promotion %s", code)
		}

		// Promotions discount their eligible items at original prices,
		// independent of the voucher-reduced remaining amount.
		eligible := decimal.Zero
		for i, item := range req.Items {
			if p.AppliesTo(promoItems[i]) {
				eligible = eligible.Add(lineTotal(item))
			}
		}

		amount, err := discount.Compute(p.DiscountType, p.DiscountValue, eligible)
		if err != nil {
			return nil, errors.Wrapf(err, "promotion %s", code)
		}

		canonical := strings.ToUpper(code)
		appliedPromotions = append(appliedPromotions, canonical)
		promotionDiscounts = append(promotionDiscounts, CodeDiscount{Code: canonical, Discount: amount})
		totalDiscount = totalDiscount.Add(amount)
		remaining = remaining.Sub(amount)
	}

	// Global cap. Breakdown entries deliberately keep their pre-cap amounts.
	maxDiscount := subtotal.Mul(decimal.NewFromInt(maxDiscountPercent)).Div(hundred)
	if totalDiscount.GreaterThan(maxDiscount) {
		totalDiscount = maxDiscount
	}

	finalAmount := subtotal.Sub(totalDiscount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	// All validations passed; commit usage for every applied code. Increment
	// failures from here on are propagated but not rolled back.
	for _, code := range appliedVouchers {
		if err := s.vouchers.IncrementUsage(ctx, code); err != nil {
			return nil, errors.Wrapf(err, "commit voucher usage %s", code)
		}
	}
	for _, code := range appliedPromotions {
		if err := s.promotions.IncrementUsage(ctx, code); err != nil {
			return nil, errors.Wrapf(err, "commit promotion usage %s", code)
		}
	}

	o := &Order{
		OrderID:           orderID,
		Items:             req.Items,
		Subtotal:          subtotal,
		AppliedVouchers:   appliedVouchers,
		AppliedPromotions: appliedPromotions,
		TotalDiscount:     totalDiscount,
		FinalAmount:       finalAmount,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &Result{
		OrderID:           orderID,
		Subtotal:          subtotal,
		AppliedVouchers:   appliedVouchers,
		AppliedPromotions: appliedPromotions,
		TotalDiscount:     totalDiscount,
		FinalAmount:       finalAmount,
		Breakdown: Breakdown{
			VoucherDiscounts:   voucherDiscounts,
			PromotionDiscounts: promotionDiscounts,
		},
	}, nil
}

// GetOrder returns a previously persisted order by its id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrders returns all persisted orders, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// subtotalOf returns the sum of unitPrice * quantity across all items.
func subtotalOf(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(lineTotal(item))
	}
	return sum
}

func lineTotal(item LineItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// hasDuplicates reports whether codes contains an exact (case-sensitive)
// duplicate. Mixed-case variants of the same code pass this check and only
// collide later at the directory.
func hasDuplicates(codes []string) bool {
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		seen[code] = struct{}{}
	}
	return len(seen) != len(codes)
}

// isVoucherRejection reports whether err is one of the voucher directory's
// validation failure reasons, as opposed to an infrastructure error.
func isVoucherRejection(err error) bool {
	var minErr *voucher.MinimumOrderError
	return errors.Is(err, voucher.ErrNotFound) ||
		errors.Is(err, voucher.ErrInactive) ||
		errors.Is(err, voucher.ErrExpired) ||
		errors.Is(err, voucher.ErrUsageLimitExceeded) ||
		errors.As(err, &minErr)
}

// isPromotionRejection is the promotion counterpart of isVoucherRejection.
func isPromotionRejection(err error) bool {
	return errors.Is(err, promotion.ErrNotFound) ||
		errors.Is(err, promotion.ErrInactive) ||
		errors.Is(err, promotion.ErrExpired) ||
		errors.Is(err, promotion.ErrUsageLimitExceeded) ||
		errors.Is(err, promotion.ErrNoEligibleItems)
}
