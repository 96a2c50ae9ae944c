package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/promo-pricing/internal/domain/discount"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
)

const (
	promotionColumns = `id, code, discount_type, discount_value, expiration_date,
		usage_limit, used_count, eligible_product_ids, eligible_product_categories,
		is_active, created_at, updated_at`

	insertPromotionSQL = `INSERT INTO promotions (id, code, discount_type, discount_value,
		expiration_date, usage_limit, used_count, eligible_product_ids,
		eligible_product_categories, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	listPromotionsSQL = `SELECT ` + promotionColumns + ` FROM promotions
		ORDER BY created_at DESC`

	listPromotionsByActiveSQL = `SELECT ` + promotionColumns + ` FROM promotions
		WHERE is_active = $1 ORDER BY created_at DESC`

	getPromotionByIDSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	getPromotionByCodeSQL = `SELECT ` + promotionColumns + ` FROM promotions
		WHERE UPPER(code) = UPPER($1)`

	updatePromotionSQL = `UPDATE promotions SET code = $2, discount_type = $3,
		discount_value = $4, expiration_date = $5, usage_limit = $6,
		eligible_product_ids = $7, eligible_product_categories = $8,
		is_active = $9, updated_at = now()
		WHERE id = $1`

	deletePromotionSQL = `DELETE FROM promotions WHERE id = $1`

	incrementPromotionUsageSQL = `UPDATE promotions
		SET used_count = used_count + 1, updated_at = now() WHERE code = $1`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// Create inserts a new promotion row.
func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	_, err := r.pool.Exec(ctx, insertPromotionSQL,
		p.ID, p.Code, string(p.DiscountType), p.DiscountValue,
		p.ExpirationDate, p.UsageLimit, p.UsedCount,
		p.EligibleProductIDs, p.EligibleProductCategories, p.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "creating promotion %q", p.Code)
	}
	return nil
}

// List returns promotions, newest first, optionally filtered by active state.
func (r *PromotionRepository) List(ctx context.Context, filter promotion.ListFilter) ([]promotion.Promotion, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if filter.IsActive != nil {
		rows, err = r.pool.Query(ctx, listPromotionsByActiveSQL, *filter.IsActive)
	} else {
		rows, err = r.pool.Query(ctx, listPromotionsSQL)
	}
	if err != nil {
		return nil, errors.Wrap(err, "listing promotions")
	}

	promotions, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, errors.Wrap(err, "listing promotions")
	}
	return promotions, nil
}

// GetByID looks up a promotion by its id.
// Returns promotion.ErrNotFound when no row matches.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	return r.queryOne(ctx, getPromotionByIDSQL, id)
}

// FindByCode looks up a promotion by its code, case-insensitively.
// Returns promotion.ErrNotFound when no row matches.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	return r.queryOne(ctx, getPromotionByCodeSQL, code)
}

// Update overwrites the mutable columns of an existing promotion.
func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	tag, err := r.pool.Exec(ctx, updatePromotionSQL,
		p.ID, p.Code, string(p.DiscountType), p.DiscountValue,
		p.ExpirationDate, p.UsageLimit,
		p.EligibleProductIDs, p.EligibleProductCategories, p.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "updating promotion %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

// Delete removes a promotion row.
func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromotionSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting promotion %q", id)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

// IncrementUsage atomically increments the usage counter for the given
// canonical code.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementPromotionUsageSQL, code)
	if err != nil {
		return errors.Wrapf(err, "incrementing usage for promotion %q", code)
	}
	return nil
}

func (r *PromotionRepository) queryOne(ctx context.Context, sql string, arg any) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "finding promotion")
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, errors.Wrap(err, "finding promotion")
	}
	return &p, nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p            promotion.Promotion
		discountType string
	)
	err := row.Scan(
		&p.ID, &p.Code, &discountType, &p.DiscountValue, &p.ExpirationDate,
		&p.UsageLimit, &p.UsedCount,
		&p.EligibleProductIDs, &p.EligibleProductCategories,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	p.DiscountType = discount.Type(discountType)
	return p, err
}
