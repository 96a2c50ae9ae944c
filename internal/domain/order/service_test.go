package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

// --- Mock implementations ---

type mockVoucherDirectory struct {
	vouchers      map[string]*voucher.Voucher // keyed by canonical code
	validateErr   map[string]error            // keyed by raw code
	validateCalls []string
	incremented   []string
	incrementErr  error
}

func (m *mockVoucherDirectory) Validate(_ context.Context, code string, _ decimal.Decimal) (*voucher.Voucher, error) {
	m.validateCalls = append(m.validateCalls, code)
	if err, ok := m.validateErr[code]; ok {
		return nil, err
	}
	v, ok := m.vouchers[canonical(code)]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	return v, nil
}

func (m *mockVoucherDirectory) IncrementUsage(_ context.Context, code string) error {
	m.incremented = append(m.incremented, code)
	return m.incrementErr
}

type mockPromotionDirectory struct {
	promotions    map[string]*promotion.Promotion
	validateErr   map[string]error
	validateCalls []string
	incremented   []string
}

func (m *mockPromotionDirectory) Validate(_ context.Context, code string, items []promotion.Item) (*promotion.Promotion, error) {
	m.validateCalls = append(m.validateCalls, code)
	if err, ok := m.validateErr[code]; ok {
		return nil, err
	}
	p, ok := m.promotions[canonical(code)]
	if !ok {
		return nil, promotion.ErrNotFound
	}
	return p, nil
}

func (m *mockPromotionDirectory) IncrementUsage(_ context.Context, code string) error {
	m.incremented = append(m.incremented, code)
	return nil
}

type mockOrderRepo struct {
	lastOrder *Order
	createErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.createErr
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	return nil, ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	return nil, nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func canonical(code string) string {
	out := []byte(code)
	for i, c := range out {
		if 'a' <= c && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func percentVoucher(code string, value string) *voucher.Voucher {
	return &voucher.Voucher{
		Code:          code,
		DiscountType:  discount.TypePercentage,
		DiscountValue: d(value),
	}
}

func fixedVoucher(code string, value string) *voucher.Voucher {
	return &voucher.Voucher{
		Code:          code,
		DiscountType:  discount.TypeFixed,
		DiscountValue: d(value),
	}
}

// testCart is the worked example cart: subtotal 250.
func testCart() []LineItem {
	return []LineItem{
		{ProductID: "p1", ProductName: "Laptop", Category: "electronics", UnitPrice: d("100"), Quantity: 2},
		{ProductID: "p2", ProductName: "T-Shirt", Category: "clothing", UnitPrice: d("50"), Quantity: 1},
	}
}

func newEngine(vd *mockVoucherDirectory, pd *mockPromotionDirectory, repo *mockOrderRepo) *Service {
	if vd.vouchers == nil {
		vd.vouchers = map[string]*voucher.Voucher{}
	}
	if pd.promotions == nil {
		pd.promotions = map[string]*promotion.Promotion{}
	}
	return NewService(vd, pd, repo)
}

// --- Tests ---

func TestApplyDiscounts_EmptyItems(t *testing.T) {
	svc := newEngine(&mockVoucherDirectory{}, &mockPromotionDirectory{}, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestApplyDiscounts_NoCodes(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newEngine(&mockVoucherDirectory{}, &mockPromotionDirectory{}, repo)

	result, err := svc.ApplyDiscounts(context.Background(), Request{Items: testCart()})

	require.NoError(t, err)
	assert.True(t, d("250").Equal(result.Subtotal))
	assert.True(t, decimal.Zero.Equal(result.TotalDiscount))
	assert.True(t, d("250").Equal(result.FinalAmount))
	assert.Empty(t, result.AppliedVouchers)
	assert.Empty(t, result.AppliedPromotions)
	require.NotNil(t, repo.lastOrder)
	assert.NotEmpty(t, repo.lastOrder.OrderID)
}

func TestApplyDiscounts_CallerSuppliedOrderID(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newEngine(&mockVoucherDirectory{}, &mockPromotionDirectory{}, repo)

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		OrderID: "ord-42",
		Items:   testCart(),
	})

	require.NoError(t, err)
	assert.Equal(t, "ord-42", result.OrderID)
	assert.Equal(t, "ord-42", repo.lastOrder.OrderID)
}

func TestApplyDiscounts_DuplicateVoucherCodes(t *testing.T) {
	vd := &mockVoucherDirectory{}
	pd := &mockPromotionDirectory{}
	svc := newEngine(vd, pd, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SAVE20", "SAVE20"},
	})

	var dupErr *DuplicateCodesError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, KindVoucher, dupErr.Kind)
	assert.Equal(t, "Duplicate voucher codes are not allowed", err.Error())

	// Nothing may reach the directories before the duplicate check passes.
	assert.Empty(t, vd.validateCalls)
	assert.Empty(t, pd.validateCalls)
	assert.Empty(t, vd.incremented)
}

func TestApplyDiscounts_DuplicatePromotionCodes(t *testing.T) {
	svc := newEngine(&mockVoucherDirectory{}, &mockPromotionDirectory{}, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:          testCart(),
		PromotionCodes: []string{"ELECTRO10", "ELECTRO10"},
	})

	var dupErr *DuplicateCodesError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, KindPromotion, dupErr.Kind)
}

func TestApplyDiscounts_MixedCaseCodesAreNotDuplicates(t *testing.T) {
	// "save20" and "SAVE20" differ in the raw input, so the duplicate check
	// lets them through; both resolve to the same stored voucher and get
	// applied twice. Observed behavior of the duplicate detection working on
	// raw casing while lookups canonicalize.
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SAVE20": percentVoucher("SAVE20", "20"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"save20", "SAVE20"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"SAVE20", "SAVE20"}, result.AppliedVouchers)
	assert.Equal(t, []string{"save20", "SAVE20"}, vd.validateCalls)
	// 20% of 250 = 50, then 20% of the remaining 200 = 40.
	assert.True(t, d("90").Equal(result.TotalDiscount))
}

func TestApplyDiscounts_PercentageVoucher(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SAVE20": percentVoucher("SAVE20", "20"),
	}}
	repo := &mockOrderRepo{}
	svc := newEngine(vd, &mockPromotionDirectory{}, repo)

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SAVE20"},
	})

	require.NoError(t, err)
	assert.True(t, d("50").Equal(result.TotalDiscount))
	assert.True(t, d("200").Equal(result.FinalAmount))
	assert.Equal(t, []string{"SAVE20"}, result.AppliedVouchers)
	require.Len(t, result.Breakdown.VoucherDiscounts, 1)
	assert.True(t, d("50").Equal(result.Breakdown.VoucherDiscounts[0].Discount))
}

func TestApplyDiscounts_FixedVoucher(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"FLAT30": fixedVoucher("FLAT30", "30"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"FLAT30"},
	})

	require.NoError(t, err)
	assert.True(t, d("30").Equal(result.TotalDiscount))
	assert.True(t, d("220").Equal(result.FinalAmount))
}

func TestApplyDiscounts_SequentialVouchersCompound(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"HALF1": percentVoucher("HALF1", "50"),
		"HALF2": percentVoucher("HALF2", "50"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"HALF1", "HALF2"},
	})

	require.NoError(t, err)
	// First voucher takes 50% of 250 = 125; the second takes 50% of the
	// remaining 125 = 62.5. The raw total of 187.5 trips the 50% cap.
	require.Len(t, result.Breakdown.VoucherDiscounts, 2)
	assert.True(t, d("125").Equal(result.Breakdown.VoucherDiscounts[0].Discount))
	assert.True(t, d("62.5").Equal(result.Breakdown.VoucherDiscounts[1].Discount))
	assert.True(t, d("125").Equal(result.TotalDiscount))
	assert.True(t, d("125").Equal(result.FinalAmount))
}

func TestApplyDiscounts_CapClampsTotalNotBreakdown(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SIXTY": percentVoucher("SIXTY", "60"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SIXTY"},
	})

	require.NoError(t, err)
	// 60% of 250 = 150, above the 125 ceiling.
	assert.True(t, d("125").Equal(result.TotalDiscount))
	assert.True(t, d("125").Equal(result.FinalAmount))
	// Breakdown keeps the pre-cap amount.
	assert.True(t, d("150").Equal(result.Breakdown.VoucherDiscounts[0].Discount))
}

func TestApplyDiscounts_PromotionEligibleAmount(t *testing.T) {
	pd := &mockPromotionDirectory{promotions: map[string]*promotion.Promotion{
		"ELECTRO10": {
			Code:                      "ELECTRO10",
			DiscountType:              discount.TypePercentage,
			DiscountValue:             d("10"),
			EligibleProductCategories: []string{"electronics"},
		},
	}}
	svc := newEngine(&mockVoucherDirectory{}, pd, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:          testCart(),
		PromotionCodes: []string{"ELECTRO10"},
	})

	require.NoError(t, err)
	// Eligible base is the electronics line only: 100*2 = 200, not 250.
	assert.True(t, d("20").Equal(result.TotalDiscount))
	assert.True(t, d("230").Equal(result.FinalAmount))
	assert.Equal(t, []string{"ELECTRO10"}, result.AppliedPromotions)
}

func TestApplyDiscounts_PromotionIgnoresVoucherCompounding(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SAVE20": percentVoucher("SAVE20", "20"),
	}}
	pd := &mockPromotionDirectory{promotions: map[string]*promotion.Promotion{
		"ALL10": {
			Code:          "ALL10",
			DiscountType:  discount.TypePercentage,
			DiscountValue: d("10"),
		},
	}}
	svc := newEngine(vd, pd, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:          testCart(),
		VoucherCodes:   []string{"SAVE20"},
		PromotionCodes: []string{"ALL10"},
	})

	require.NoError(t, err)
	// The promotion takes 10% of the full 250, not of the 200 the voucher
	// left behind.
	require.Len(t, result.Breakdown.PromotionDiscounts, 1)
	assert.True(t, d("25").Equal(result.Breakdown.PromotionDiscounts[0].Discount))
	assert.True(t, d("75").Equal(result.TotalDiscount))
	assert.True(t, d("175").Equal(result.FinalAmount))
}

func TestApplyDiscounts_InvalidVoucherAborts(t *testing.T) {
	vd := &mockVoucherDirectory{}
	repo := &mockOrderRepo{}
	svc := newEngine(vd, &mockPromotionDirectory{}, repo)

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"BOGUS"},
	})

	var invErr *InvalidCodeError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, KindVoucher, invErr.Kind)
	assert.Equal(t, "BOGUS", invErr.Code)
	assert.Equal(t, "Invalid voucher BOGUS: Voucher not found", err.Error())
	assert.ErrorIs(t, err, voucher.ErrNotFound)

	assert.Empty(t, vd.incremented)
	assert.Nil(t, repo.lastOrder)
}

func TestApplyDiscounts_SecondVoucherFailingCommitsNothing(t *testing.T) {
	vd := &mockVoucherDirectory{
		vouchers: map[string]*voucher.Voucher{
			"SAVE20": percentVoucher("SAVE20", "20"),
		},
		validateErr: map[string]error{
			"EXPIRED1": voucher.ErrExpired,
		},
	}
	repo := &mockOrderRepo{}
	svc := newEngine(vd, &mockPromotionDirectory{}, repo)

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SAVE20", "EXPIRED1"},
	})

	require.Error(t, err)
	assert.Equal(t, "Invalid voucher EXPIRED1: Voucher has expired", err.Error())
	// The first voucher validated fine, but commit is deferred until all
	// validations succeed, so its usage must not move.
	assert.Empty(t, vd.incremented)
	assert.Nil(t, repo.lastOrder)
}

func TestApplyDiscounts_InvalidPromotionAborts(t *testing.T) {
	pd := &mockPromotionDirectory{validateErr: map[string]error{
		"NOPE": promotion.ErrNoEligibleItems,
	}}
	svc := newEngine(&mockVoucherDirectory{}, pd, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:          testCart(),
		PromotionCodes: []string{"NOPE"},
	})

	var invErr *InvalidCodeError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, KindPromotion, invErr.Kind)
	assert.Equal(t, "Invalid promotion NOPE: Promotion does not apply to any items in the order", err.Error())
}

func TestApplyDiscounts_MinimumOrderReasonSurfaces(t *testing.T) {
	vd := &mockVoucherDirectory{validateErr: map[string]error{
		"BIG500": &voucher.MinimumOrderError{Minimum: d("500")},
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"BIG500"},
	})

	require.Error(t, err)
	assert.Equal(t, "Invalid voucher BIG500: Minimum order value of 500 required", err.Error())
}

func TestApplyDiscounts_DirectoryInfraErrorIsNotInvalidCode(t *testing.T) {
	vd := &mockVoucherDirectory{validateErr: map[string]error{
		"SAVE20": errors.New("connection refused"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SAVE20"},
	})

	require.Error(t, err)
	var invErr *InvalidCodeError
	assert.False(t, errors.As(err, &invErr))
	assert.Contains(t, err.Error(), "validate voucher SAVE20")
}

func TestApplyDiscounts_UsageCommittedUppercaseVouchersFirst(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SAVE20": percentVoucher("SAVE20", "20"),
	}}
	pd := &mockPromotionDirectory{promotions: map[string]*promotion.Promotion{
		"ALL10": {
			Code:          "ALL10",
			DiscountType:  discount.TypePercentage,
			DiscountValue: d("10"),
		},
	}}
	svc := newEngine(vd, pd, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:          testCart(),
		VoucherCodes:   []string{"save20"},
		PromotionCodes: []string{"all10"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"SAVE20"}, vd.incremented)
	assert.Equal(t, []string{"ALL10"}, pd.incremented)
}

func TestApplyDiscounts_CapWastedCodeStillIncrements(t *testing.T) {
	// Two 50% vouchers: the second one's discount is fully absorbed by the
	// cap, yet its usage is still committed.
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"HALF1": percentVoucher("HALF1", "50"),
		"HALF2": percentVoucher("HALF2", "50"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	_, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"HALF1", "HALF2"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"HALF1", "HALF2"}, vd.incremented)
}

func TestApplyDiscounts_FinalAmountNeverNegative(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"MEGA": percentVoucher("MEGA", "200"),
	}}
	svc := newEngine(vd, &mockPromotionDirectory{}, &mockOrderRepo{})

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"MEGA"},
	})

	require.NoError(t, err)
	// 200% of 250 = 500, capped at 125; final amount stays well above zero
	// here, but the clamp itself is exercised via the cap.
	assert.True(t, d("125").Equal(result.TotalDiscount))
	assert.False(t, result.FinalAmount.IsNegative())
}

func TestApplyDiscounts_PersistsOrder(t *testing.T) {
	vd := &mockVoucherDirectory{vouchers: map[string]*voucher.Voucher{
		"SAVE20": percentVoucher("SAVE20", "20"),
	}}
	repo := &mockOrderRepo{}
	svc := newEngine(vd, &mockPromotionDirectory{}, repo)

	result, err := svc.ApplyDiscounts(context.Background(), Request{
		Items:        testCart(),
		VoucherCodes: []string{"SAVE20"},
	})

	require.NoError(t, err)
	require.NotNil(t, repo.lastOrder)
	assert.Equal(t, result.OrderID, repo.lastOrder.OrderID)
	assert.Len(t, repo.lastOrder.Items, 2)
	assert.True(t, d("250").Equal(repo.lastOrder.Subtotal))
	assert.True(t, d("50").Equal(repo.lastOrder.TotalDiscount))
	assert.True(t, d("200").Equal(repo.lastOrder.FinalAmount))
	assert.Equal(t, []string{"SAVE20"}, repo.lastOrder.AppliedVouchers)
}

func TestApplyDiscounts_OrderCreateError(t *testing.T) {
	repo := &mockOrderRepo{createErr: errors.New("db write failed")}
	svc := newEngine(&mockVoucherDirectory{}, &mockPromotionDirectory{}, repo)

	_, err := svc.ApplyDiscounts(context.Background(), Request{Items: testCart()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}
