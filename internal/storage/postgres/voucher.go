package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

const (
	voucherColumns = `id, code, discount_type, discount_value, expiration_date,
		usage_limit, used_count, minimum_order_value, is_active, created_at, updated_at`

	insertVoucherSQL = `INSERT INTO vouchers (id, code, discount_type, discount_value,
		expiration_date, usage_limit, used_count, minimum_order_value, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	listVouchersSQL = `SELECT ` + voucherColumns + ` FROM vouchers
		ORDER BY created_at DESC`

	listVouchersByActiveSQL = `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE is_active = $1 ORDER BY created_at DESC`

	getVoucherByIDSQL = `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	getVoucherByCodeSQL = `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE UPPER(code) = UPPER($1)`

	updateVoucherSQL = `UPDATE vouchers SET code = $2, discount_type = $3,
		discount_value = $4, expiration_date = $5, usage_limit = $6,
		minimum_order_value = $7, is_active = $8, updated_at = now()
		WHERE id = $1`

	deleteVoucherSQL = `DELETE FROM vouchers WHERE id = $1`

	incrementVoucherUsageSQL = `UPDATE vouchers
		SET used_count = used_count + 1, updated_at = now() WHERE code = $1`
)

var _ voucher.Repository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.Repository backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// Create inserts a new voucher row.
func (r *VoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	_, err := r.pool.Exec(ctx, insertVoucherSQL,
		v.ID, v.Code, string(v.DiscountType), v.DiscountValue,
		v.ExpirationDate, v.UsageLimit, v.UsedCount,
		nullDecimal(v.MinimumOrderValue), v.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "creating voucher %q", v.Code)
	}
	return nil
}

// List returns vouchers, newest first, optionally filtered by active state.
func (r *VoucherRepository) List(ctx context.Context, filter voucher.ListFilter) ([]voucher.Voucher, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if filter.IsActive != nil {
		rows, err = r.pool.Query(ctx, listVouchersByActiveSQL, *filter.IsActive)
	} else {
		rows, err = r.pool.Query(ctx, listVouchersSQL)
	}
	if err != nil {
		return nil, errors.Wrap(err, "listing vouchers")
	}

	vouchers, err := pgx.CollectRows(rows, scanVoucher)
	if err != nil {
		return nil, errors.Wrap(err, "listing vouchers")
	}
	return vouchers, nil
}

// GetByID looks up a voucher by its id.
// Returns voucher.ErrNotFound when no row matches.
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*voucher.Voucher, error) {
	return r.queryOne(ctx, getVoucherByIDSQL, id)
}

// FindByCode looks up a voucher by its code, case-insensitively.
// Returns voucher.ErrNotFound when no row matches.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	return r.queryOne(ctx, getVoucherByCodeSQL, code)
}

// Update overwrites the mutable columns of an existing voucher.
func (r *VoucherRepository) Update(ctx context.Context, v *voucher.Voucher) error {
	tag, err := r.pool.Exec(ctx, updateVoucherSQL,
		v.ID, v.Code, string(v.DiscountType), v.DiscountValue,
		v.ExpirationDate, v.UsageLimit,
		nullDecimal(v.MinimumOrderValue), v.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "updating voucher %q", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}

// Delete removes a voucher row.
func (r *VoucherRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteVoucherSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting voucher %q", id)
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}

// IncrementUsage atomically increments the usage counter for the given
// canonical code.
func (r *VoucherRepository) IncrementUsage(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementVoucherUsageSQL, code)
	if err != nil {
		return errors.Wrapf(err, "incrementing usage for voucher %q", code)
	}
	return nil
}

func (r *VoucherRepository) queryOne(ctx context.Context, sql string, arg any) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "finding voucher")
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, errors.Wrap(err, "finding voucher")
	}
	return &v, nil
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var (
		v            voucher.Voucher
		discountType string
		minOrder     decimal.NullDecimal
	)
	err := row.Scan(
		&v.ID, &v.Code, &discountType, &v.DiscountValue, &v.ExpirationDate,
		&v.UsageLimit, &v.UsedCount, &minOrder, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	v.DiscountType = discount.Type(discountType)
	if minOrder.Valid {
		v.MinimumOrderValue = &minOrder.Decimal
	}
	return v, err
}

// nullDecimal maps an optional decimal to its NULL-aware SQL parameter form.
func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
