package voucher

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/codes"
	"github.com/promokit/promo-pricing/internal/domain/discount"
)

// CreateParams holds the caller-supplied fields for a new voucher.
type CreateParams struct {
	Code              string // empty means auto-generate
	DiscountType      discount.Type
	DiscountValue     decimal.Decimal
	ExpirationDate    time.Time
	UsageLimit        int
	MinimumOrderValue *decimal.Decimal
	IsActive          bool
}

// UpdateParams holds a partial voucher update; nil fields are left unchanged.
type UpdateParams struct {
	Code              *string
	DiscountType      *discount.Type
	DiscountValue     *decimal.Decimal
	ExpirationDate    *time.Time
	UsageLimit        *int
	MinimumOrderValue *decimal.Decimal
	IsActive          *bool
}

// Service provides voucher management on top of a Repository.
type Service struct {
	repo    Repository
	genCode codes.Generator
}

// NewService creates a voucher Service. genCode supplies codes for vouchers
// created without one.
func NewService(repo Repository, genCode codes.Generator) *Service {
	return &Service{repo: repo, genCode: genCode}
}

// Create stores a new voucher. The code is canonicalized to uppercase and
// auto-generated when absent. Returns ErrCodeExists when the code is taken.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Voucher, error) {
	code := params.Code
	if code == "" {
		code = s.genCode()
	}
	code = canonicalize(code)

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, ErrCodeExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check code uniqueness")
	}

	v := &Voucher{
		ID:                uuid.New().String(),
		Code:              code,
		DiscountType:      params.DiscountType,
		DiscountValue:     params.DiscountValue,
		ExpirationDate:    params.ExpirationDate,
		UsageLimit:        params.UsageLimit,
		UsedCount:         0,
		MinimumOrderValue: params.MinimumOrderValue,
		IsActive:          params.IsActive,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, errors.Wrap(err, "create voucher")
	}
	return v, nil
}

// List returns vouchers, newest first, optionally filtered by active state.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Voucher, error) {
	return s.repo.List(ctx, filter)
}

// GetByID returns the voucher with the given id, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Voucher, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode returns the voucher with the given code (case-insensitive), or
// ErrNotFound.
func (s *Service) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	return s.repo.FindByCode(ctx, code)
}

// Update applies a partial update to the voucher with the given id. A code
// change is canonicalized and guarded against collisions with other vouchers.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*Voucher, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Code != nil {
		code := canonicalize(*params.Code)
		existing, err := s.repo.FindByCode(ctx, code)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrCodeExists
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "check code uniqueness")
		}
		v.Code = code
	}
	if params.DiscountType != nil {
		v.DiscountType = *params.DiscountType
	}
	if params.DiscountValue != nil {
		v.DiscountValue = *params.DiscountValue
	}
	if params.ExpirationDate != nil {
		v.ExpirationDate = *params.ExpirationDate
	}
	if params.UsageLimit != nil {
		v.UsageLimit = *params.UsageLimit
	}
	if params.MinimumOrderValue != nil {
		v.MinimumOrderValue = params.MinimumOrderValue
	}
	if params.IsActive != nil {
		v.IsActive = *params.IsActive
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, errors.Wrap(err, "update voucher")
	}
	return v, nil
}

// Delete removes the voucher with the given id, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// canonicalize maps a caller-supplied code to its stored form.
func canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
