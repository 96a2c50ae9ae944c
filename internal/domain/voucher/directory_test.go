package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/promo-pricing/internal/domain/discount"
)

type mockRepo struct {
	voucher       *Voucher
	findErr       error
	incremented   []string
	incrementErr  error
	createErr     error
	lastCreated   *Voucher
	byID          map[string]*Voucher
	updateErr     error
	lastUpdated   *Voucher
	deleteErr     error
	findByCodeMap map[string]*Voucher
}

func (m *mockRepo) Create(_ context.Context, v *Voucher) error {
	m.lastCreated = v
	return m.createErr
}

func (m *mockRepo) List(_ context.Context, _ ListFilter) ([]Voucher, error) {
	return nil, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Voucher, error) {
	if v, ok := m.byID[id]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Voucher, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.findByCodeMap != nil {
		if v, ok := m.findByCodeMap[code]; ok {
			return v, nil
		}
		return nil, ErrNotFound
	}
	if m.voucher == nil {
		return nil, ErrNotFound
	}
	return m.voucher, nil
}

func (m *mockRepo) Update(_ context.Context, v *Voucher) error {
	m.lastUpdated = v
	return m.updateErr
}

func (m *mockRepo) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

func (m *mockRepo) IncrementUsage(_ context.Context, code string) error {
	m.incremented = append(m.incremented, code)
	return m.incrementErr
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T { return &v }

func TestRepoDirectory_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := fixedNow.Add(30 * 24 * time.Hour)
	past := fixedNow.Add(-time.Hour)

	base := func() *Voucher {
		return &Voucher{
			ID:             "v1",
			Code:           "SAVE20",
			DiscountType:   discount.TypePercentage,
			DiscountValue:  d("20"),
			ExpirationDate: future,
			UsageLimit:     10,
			UsedCount:      0,
			IsActive:       true,
		}
	}

	tests := []struct {
		name     string
		voucher  func() *Voucher
		subtotal decimal.Decimal
		wantErr  error
	}{
		{
			name:     "valid voucher passes",
			voucher:  base,
			subtotal: d("250"),
		},
		{
			name: "inactive",
			voucher: func() *Voucher {
				v := base()
				v.IsActive = false
				return v
			},
			subtotal: d("250"),
			wantErr:  ErrInactive,
		},
		{
			name: "expired",
			voucher: func() *Voucher {
				v := base()
				v.ExpirationDate = past
				return v
			},
			subtotal: d("250"),
			wantErr:  ErrExpired,
		},
		{
			name: "usage limit reached",
			voucher: func() *Voucher {
				v := base()
				v.UsedCount = 10
				return v
			},
			subtotal: d("250"),
			wantErr:  ErrUsageLimitExceeded,
		},
		{
			name: "below minimum order value",
			voucher: func() *Voucher {
				v := base()
				v.MinimumOrderValue = ptr(d("300"))
				return v
			},
			subtotal: d("250"),
			wantErr:  &MinimumOrderError{Minimum: d("300")},
		},
		{
			name: "minimum order value met",
			voucher: func() *Voucher {
				v := base()
				v.MinimumOrderValue = ptr(d("200"))
				return v
			},
			subtotal: d("250"),
		},
		{
			name: "zero minimum order value is treated as unset",
			voucher: func() *Voucher {
				v := base()
				v.MinimumOrderValue = ptr(d("0"))
				return v
			},
			subtotal: d("0"),
		},
		{
			name: "inactive wins over expired",
			voucher: func() *Voucher {
				v := base()
				v.IsActive = false
				v.ExpirationDate = past
				return v
			},
			subtotal: d("250"),
			wantErr:  ErrInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := NewRepoDirectory(&mockRepo{voucher: tt.voucher()})
			dir.now = func() time.Time { return fixedNow }

			v, err := dir.Validate(context.Background(), "SAVE20", tt.subtotal)

			if tt.wantErr != nil {
				require.Error(t, err)
				var wantMin *MinimumOrderError
				if errors.As(tt.wantErr, &wantMin) {
					var gotMin *MinimumOrderError
					require.ErrorAs(t, err, &gotMin)
					assert.True(t, wantMin.Minimum.Equal(gotMin.Minimum))
					assert.Equal(t, "Minimum order value of 300 required", err.Error())
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.Equal(t, "SAVE20", v.Code)
		})
	}
}

func TestRepoDirectory_Validate_NotFound(t *testing.T) {
	dir := NewRepoDirectory(&mockRepo{})

	_, err := dir.Validate(context.Background(), "MISSING", d("100"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Voucher not found", err.Error())
}

func TestRepoDirectory_Validate_RepoError(t *testing.T) {
	dir := NewRepoDirectory(&mockRepo{findErr: errors.New("connection reset")})

	_, err := dir.Validate(context.Background(), "SAVE20", d("100"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "lookup voucher")
}

func TestRepoDirectory_IncrementUsage(t *testing.T) {
	repo := &mockRepo{}
	dir := NewRepoDirectory(repo)

	require.NoError(t, dir.IncrementUsage(context.Background(), "SAVE20"))
	assert.Equal(t, []string{"SAVE20"}, repo.incremented)
}
