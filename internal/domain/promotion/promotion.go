// Package promotion holds discount codes restricted to specific products or
// categories, validated against item-level eligibility.
package promotion

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
)

// Validation failure reasons. The exact strings are part of the API contract
// and must stay stable.
var (
	ErrNotFound           = errors.New("Promotion not found")
	ErrInactive           = errors.New("Promotion is not active")
	ErrExpired            = errors.New("Promotion has expired")
	ErrUsageLimitExceeded = errors.New("Promotion usage limit exceeded")
	ErrNoEligibleItems    = errors.New("Promotion does not apply to any items in the order")
	ErrCodeExists         = errors.New("Promotion code already exists")
)

// Promotion is a discount code with optional product and category
// restrictions. Empty restriction sets mean the promotion applies to every
// line item.
type Promotion struct {
	ID                        string
	Code                      string
	DiscountType              discount.Type
	DiscountValue             decimal.Decimal
	EligibleProductIDs        []string
	EligibleProductCategories []string
	ExpirationDate            time.Time
	UsageLimit                int
	UsedCount                 int
	IsActive                  bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Item is the view of an order line item used for eligibility checks.
type Item struct {
	ProductID string
	Category  string // empty when the item has no category
}

// AppliesTo reports whether the promotion's eligibility rules match the item.
// The product-id set and the category set are independent alternatives, not
// combined: an item matching either set is eligible, and when both sets are
// empty the promotion is universal. An item matching neither non-empty set is
// ineligible even though only one of the sets might name it.
func (p *Promotion) AppliesTo(item Item) bool {
	if len(p.EligibleProductIDs) > 0 && slices.Contains(p.EligibleProductIDs, item.ProductID) {
		return true
	}
	if len(p.EligibleProductCategories) > 0 && item.Category != "" &&
		slices.Contains(p.EligibleProductCategories, item.Category) {
		return true
	}
	return len(p.EligibleProductIDs) == 0 && len(p.EligibleProductCategories) == 0
}

// ListFilter narrows List results.
type ListFilter struct {
	IsActive *bool
}

// Repository provides persistence for promotions.
type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	List(ctx context.Context, filter ListFilter) ([]Promotion, error)
	GetByID(ctx context.Context, id string) (*Promotion, error)
	// FindByCode looks up a promotion by code, case-insensitively.
	// Returns ErrNotFound when no promotion matches.
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id string) error
	// IncrementUsage bumps the usage counter, keyed by canonical uppercase code.
	IncrementUsage(ctx context.Context, code string) error
}

// Directory is the promotion collaborator consumed by the pricing engine.
type Directory interface {
	// Validate checks a code against the order's items and returns the
	// promotion when it may be applied. Failure reasons are the sentinel
	// errors above, in the order: not found, inactive, expired, usage limit,
	// no eligible items.
	Validate(ctx context.Context, code string, items []Item) (*Promotion, error)
	IncrementUsage(ctx context.Context, code string) error
}
