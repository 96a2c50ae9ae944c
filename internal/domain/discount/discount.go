// Package discount holds the discount type enum and the per-rule discount
// math shared by vouchers and promotions.
package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the applicable amount.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the applicable amount.
	TypeFixed Type = "fixed"
)

// Valid reports whether t is a known discount type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Compute converts a discount specification (type + value) and an applicable
// base amount into a discount amount.
//
// Percentage discounts are base*value/100, exact, with no clamp at 100%: a
// value above 100 yields a discount exceeding the base and is only reined in
// by the order-level cap. Fixed discounts never exceed the base they are
// applied against. The result is never negative.
func Compute(t Type, value, base decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case TypePercentage:
		return floorAtZero(base.Mul(value).Div(hundred)), nil
	case TypeFixed:
		return floorAtZero(decimal.Min(value, base)), nil
	default:
		return zero, errors.Errorf("unsupported discount type: %q", t)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
