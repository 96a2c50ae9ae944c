package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// RepoDirectory implements Directory by looking up vouchers from a Repository
// and running the status checks against an injectable clock.
type RepoDirectory struct {
	repo Repository
	now  func() time.Time
}

// NewRepoDirectory creates a RepoDirectory backed by the given Repository.
func NewRepoDirectory(repo Repository) *RepoDirectory {
	return &RepoDirectory{repo: repo, now: time.Now}
}

// Validate looks up the voucher for the given code and checks, in order:
// existence, active flag, expiration, usage limit, and the minimum order
// value against the supplied subtotal. The first failing check wins.
func (d *RepoDirectory) Validate(ctx context.Context, code string, orderSubtotal decimal.Decimal) (*Voucher, error) {
	v, err := d.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup voucher")
	}

	if !v.IsActive {
		return nil, ErrInactive
	}
	if v.ExpirationDate.Before(d.now()) {
		return nil, ErrExpired
	}
	if v.UsedCount >= v.UsageLimit {
		return nil, ErrUsageLimitExceeded
	}
	if v.MinimumOrderValue != nil && v.MinimumOrderValue.IsPositive() &&
		orderSubtotal.LessThan(*v.MinimumOrderValue) {
		return nil, &MinimumOrderError{Minimum: *v.MinimumOrderValue}
	}

	return v, nil
}

// IncrementUsage records one use of the voucher. Callers pass the canonical
// uppercase code.
func (d *RepoDirectory) IncrementUsage(ctx context.Context, code string) error {
	if err := d.repo.IncrementUsage(ctx, code); err != nil {
		return errors.Wrap(err, "increment voucher usage")
	}
	return nil
}
