// Package order holds the pricing engine that combines vouchers and
// promotions against a cart of line items, and the resulting order records.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyItems is returned when a pricing request carries no line items.
var ErrEmptyItems = errors.New("items required")

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("Order not found")

// CodeKind distinguishes voucher and promotion codes in errors.
type CodeKind string

const (
	KindVoucher   CodeKind = "voucher"
	KindPromotion CodeKind = "promotion"
)

// DuplicateCodesError indicates the caller supplied the same code more than
// once within one code list. Detection happens on the raw caller-supplied
// casing, before canonicalization, so "save20" and "SAVE20" do not trip it
// even though they resolve to the same stored code.
type DuplicateCodesError struct {
	Kind CodeKind
}

func (e *DuplicateCodesError) Error() string {
	return fmt.Sprintf("Duplicate %s codes are not allowed", e.Kind)
}

// InvalidCodeError indicates a directory rejected a requested code. It
// carries the offending code and the directory's reason.
type InvalidCodeError struct {
	Kind   CodeKind
	Code   string
	Reason error
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("Invalid %s %s: %s", e.Kind, e.Code, e.Reason)
}

func (e *InvalidCodeError) Unwrap() error { return e.Reason }

// LineItem is an immutable input to a pricing run. The JSON tags double as
// the storage shape for the order's JSONB items column.
type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    string          `json:"category,omitempty"`
	UnitPrice   decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Request is the input to a pricing run. Codes are applied in the order
// supplied. An empty OrderID means a fresh identifier is generated.
type Request struct {
	OrderID        string
	Items          []LineItem
	VoucherCodes   []string
	PromotionCodes []string
}

// CodeDiscount records the discount a single code contributed.
type CodeDiscount struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Breakdown lists per-code discounts. Entries keep their pre-cap amounts, so
// they may sum to more than the capped total discount.
type Breakdown struct {
	VoucherDiscounts   []CodeDiscount
	PromotionDiscounts []CodeDiscount
}

// Result is the priced outcome of a pricing run. Applied code lists carry
// canonical uppercase codes in application order.
type Result struct {
	OrderID           string
	Subtotal          decimal.Decimal
	AppliedVouchers   []string
	AppliedPromotions []string
	TotalDiscount     decimal.Decimal
	FinalAmount       decimal.Decimal
	Breakdown         Breakdown
}

// Order is the persisted record of a pricing run.
type Order struct {
	OrderID           string
	Items             []LineItem
	Subtotal          decimal.Decimal
	AppliedVouchers   []string
	AppliedPromotions []string
	TotalDiscount     decimal.Decimal
	FinalAmount       decimal.Decimal
	CreatedAt         time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order with the given id, or ErrNotFound.
	GetByID(ctx context.Context, orderID string) (*Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
}
