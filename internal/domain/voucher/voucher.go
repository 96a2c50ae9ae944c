// Package voucher holds order-level discount codes validated against the
// cart subtotal.
package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
)

// Validation failure reasons. The exact strings are part of the API contract:
// the HTTP boundary and the pricing engine's error messages are built from
// them, so they must stay stable.
var (
	ErrNotFound           = errors.New("Voucher not found")
	ErrInactive           = errors.New("Voucher is not active")
	ErrExpired            = errors.New("Voucher has expired")
	ErrUsageLimitExceeded = errors.New("Voucher usage limit exceeded")
	ErrCodeExists         = errors.New("Voucher code already exists")
)

// MinimumOrderError indicates the order subtotal is below the voucher's
// minimum order value.
type MinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("Minimum order value of %s required", e.Minimum)
}

// Voucher is a standalone discount code. Codes are stored canonicalized to
// uppercase; lookups are case-insensitive.
type Voucher struct {
	ID                string
	Code              string
	DiscountType      discount.Type
	DiscountValue     decimal.Decimal
	ExpirationDate    time.Time
	UsageLimit        int
	UsedCount         int
	MinimumOrderValue *decimal.Decimal // nil when the voucher has no minimum
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ListFilter narrows List results.
type ListFilter struct {
	IsActive *bool
}

// Repository provides persistence for vouchers.
type Repository interface {
	Create(ctx context.Context, v *Voucher) error
	List(ctx context.Context, filter ListFilter) ([]Voucher, error)
	GetByID(ctx context.Context, id string) (*Voucher, error)
	// FindByCode looks up a voucher by code, case-insensitively.
	// Returns ErrNotFound when no voucher matches.
	FindByCode(ctx context.Context, code string) (*Voucher, error)
	Update(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, id string) error
	// IncrementUsage bumps the usage counter, keyed by canonical uppercase code.
	IncrementUsage(ctx context.Context, code string) error
}

// Directory is the voucher collaborator consumed by the pricing engine.
type Directory interface {
	// Validate checks a code against the fixed order subtotal and returns the
	// voucher when it may be applied. Failure reasons are the sentinel errors
	// above, in the order: not found, inactive, expired, usage limit,
	// minimum order value.
	Validate(ctx context.Context, code string, orderSubtotal decimal.Decimal) (*Voucher, error)
	IncrementUsage(ctx context.Context, code string) error
}
