package promotion

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// RepoDirectory implements Directory by looking up promotions from a
// Repository and running the status and eligibility checks against an
// injectable clock.
type RepoDirectory struct {
	repo Repository
	now  func() time.Time
}

// NewRepoDirectory creates a RepoDirectory backed by the given Repository.
func NewRepoDirectory(repo Repository) *RepoDirectory {
	return &RepoDirectory{repo: repo, now: time.Now}
}

// Validate looks up the promotion for the given code and checks, in order:
// existence, active flag, expiration, usage limit, and whether at least one
// of the supplied items is eligible. The first failing check wins.
func (d *RepoDirectory) Validate(ctx context.Context, code string, items []Item) (*Promotion, error) {
	p, err := d.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}

	if !p.IsActive {
		return nil, ErrInactive
	}
	if p.ExpirationDate.Before(d.now()) {
		return nil, ErrExpired
	}
	if p.UsedCount >= p.UsageLimit {
		return nil, ErrUsageLimitExceeded
	}
	if !slices.ContainsFunc(items, p.AppliesTo) {
		return nil, ErrNoEligibleItems
	}

	return p, nil
}

// IncrementUsage records one use of the promotion. Callers pass the canonical
// uppercase code.
func (d *RepoDirectory) IncrementUsage(ctx context.Context, code string) error {
	if err := d.repo.IncrementUsage(ctx, code); err != nil {
		return errors.Wrap(err, "increment promotion usage")
	}
	return nil
}
