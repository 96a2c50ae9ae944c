package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/promo-pricing/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (order_id, items, subtotal,
		applied_vouchers, applied_promotions, total_discount, final_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT order_id, items, subtotal, applied_vouchers,
		applied_promotions, total_discount, final_amount, created_at
		FROM orders WHERE order_id = $1`

	listOrdersSQL = `SELECT order_id, items, subtotal, applied_vouchers,
		applied_promotions, total_discount, final_amount, created_at
		FROM orders ORDER BY created_at DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items are serialized to JSON for the
// JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.OrderID, itemsJSON, o.Subtotal,
		o.AppliedVouchers, o.AppliedPromotions,
		o.TotalDiscount, o.FinalAmount,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.OrderID)
	}
	return nil
}

// GetByID returns the order with the given id.
// Returns order.ErrNotFound when no row matches.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "finding order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "finding order")
	}
	return &o, nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.OrderID, &itemsJSON, &o.Subtotal,
		&o.AppliedVouchers, &o.AppliedPromotions,
		&o.TotalDiscount, &o.FinalAmount, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, errors.Wrap(err, "unmarshaling order items")
	}
	return o, nil
}
