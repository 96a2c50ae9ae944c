package promotion

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

// CreateParams holds the caller-supplied fields for a new promotion.
type CreateParams struct {
	Code                      string // empty means auto-generate
	DiscountType              discount.Type
	DiscountValue             decimal.Decimal
	EligibleProductIDs        []string
	EligibleProductCategories []string
	ExpirationDate            time.Time
	UsageLimit                int
	IsActive                  bool
}

// UpdateParams holds a partial promotion update; nil fields are left unchanged.
type UpdateParams struct {
	Code                      *string
	DiscountType              *discount.Type
	DiscountValue             *decimal.Decimal
	EligibleProductIDs        []string
	EligibleProductCategories []string
	ExpirationDate            *time.Time
	UsageLimit                *int
	IsActive                  *bool
}

// Service provides promotion management on top of a Repository.
type Service struct {
	repo    Repository
	genCode codes.Generator
}

// NewService creates a promotion Service. genCode supplies codes for
// promotions created without one.
func NewService(repo Repository, genCode codes.Generator) *Service {
	return &Service{repo: repo, genCode: genCode}
}

// Create stores a new promotion. The code is canonicalized to uppercase and
// auto-generated when absent. Returns ErrCodeExists when the code is taken.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Promotion, error) {
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

	p := &Promotion{
		ID:                        uuid.New().String(),
		Code:                      code,
		DiscountType:              params.DiscountType,
		DiscountValue:             params.DiscountValue,
		EligibleProductIDs:        params.EligibleProductIDs,
		EligibleProductCategories: params.EligibleProductCategories,
		ExpirationDate:            params.ExpirationDate,
		UsageLimit:                params.UsageLimit,
		UsedCount:                 0,
		IsActive:                  params.IsActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create promotion")
	}
	return p, nil
}

// List returns promotions, newest first, optionally filtered by active state.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Promotion, error) {
	return s.repo.List(ctx, filter)
}

// GetByID returns the promotion with the given id, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Promotion, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode returns the promotion with the given code (case-insensitive), or
// ErrNotFound.
func (s *Service) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	return s.repo.FindByCode(ctx, code)
}

// Update applies a partial update to the promotion with the given id. A code
// change is canonicalized and guarded against collisions with other
// promotions. Eligibility slices replace the stored sets when non-nil.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
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
		p.Code = code
	}
	if params.DiscountType != nil {
		p.DiscountType = *params.DiscountType
	}
	if params.DiscountValue != nil {
		p.DiscountValue = *params.DiscountValue
	}
	if params.EligibleProductIDs != nil {
		p.EligibleProductIDs = params.EligibleProductIDs
	}
	if params.EligibleProductCategories != nil {
		p.EligibleProductCategories = params.EligibleProductCategories
	}
	if params.ExpirationDate != nil {
		p.ExpirationDate = *params.ExpirationDate
	}
	if params.UsageLimit != nil {
		p.UsageLimit = *params.UsageLimit
	}
	if params.IsActive != nil {
		p.IsActive = *params.IsActive
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update promotion")
	}
	return p, nil
}

// Delete removes the promotion with the given id, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
