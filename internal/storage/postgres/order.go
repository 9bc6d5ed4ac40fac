package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedidolocal/storefront/internal/domain/order"
	"github.com/pedidolocal/storefront/internal/domain/pricing"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Line items are serialized to a JSONB column; the status history lives
// in the append-only order_status_log table.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, code, customer_name, customer_phone, street, number, complement,
	neighborhood, items, payment_method, coupon_code, subtotal, discount,
	delivery_fee, total, status, cancel_reason, courier_name, courier_phone, created_at`

// Create persists the order, its initial status log entries, and, when
// consumeCoupon is non-empty, takes one coupon use — all in one
// transaction. The conditional increment failing rolls everything back
// and surfaces coupon.ErrUsageLimitReached.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, consumeCoupon string) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if consumeCoupon != "" {
		if err := consumeUse(ctx, tx, consumeCoupon); err != nil {
			return err
		}
	}

	var courierName, courierPhone string
	if o.Courier != nil {
		courierName, courierPhone = o.Courier.Name, o.Courier.Phone
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		o.ID, o.Code, o.CustomerName, o.CustomerPhone,
		o.Address.Street, o.Address.Number, o.Address.Complement, o.Address.Neighborhood,
		itemsJSON, string(o.PaymentMethod), o.CouponCode,
		o.Subtotal, o.Discount, o.DeliveryFee, o.Total,
		string(o.Status), o.CancelReason, courierName, courierPhone, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.Code)
	}

	for _, entry := range o.StatusLog {
		if err := insertLogEntry(ctx, tx, o.Code, entry); err != nil {
			return err
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// GetByCode loads an order with its full status history.
func (r *OrderRepository) GetByCode(ctx context.Context, code string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE code = $1`, code)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", code)
	}

	logRows, err := r.pool.Query(ctx, `
		SELECT status, note, created_at
		FROM order_status_log
		WHERE order_code = $1
		ORDER BY id`, code)
	if err != nil {
		return nil, errors.Wrapf(err, "query status log for %q", code)
	}
	defer logRows.Close()

	for logRows.Next() {
		var (
			entry  order.StatusLogEntry
			status string
		)
		if err := logRows.Scan(&status, &entry.Note, &entry.At); err != nil {
			return nil, errors.Wrap(err, "scan status log entry")
		}
		entry.Status = order.Status(status)
		o.StatusLog = append(o.StatusLog, entry)
	}
	if err := logRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate status log")
	}

	return o, nil
}

// List returns all orders, newest first, without status logs.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateStatus writes the new status and appends the log entry, but
// only while the stored status still equals expected. A zero-row update
// means another request moved the order first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, expected order.Status, entry order.StatusLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	var courierName, courierPhone string
	if o.Courier != nil {
		courierName, courierPhone = o.Courier.Name, o.Courier.Phone
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, cancel_reason = $4, courier_name = $5, courier_phone = $6
		WHERE code = $1 AND status = $2`,
		o.Code, string(expected),
		string(o.Status), o.CancelReason, courierName, courierPhone,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q status", o.Code)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrConflict
	}

	if err := insertLogEntry(ctx, tx, o.Code, entry); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

func insertLogEntry(ctx context.Context, tx pgx.Tx, code string, entry order.StatusLogEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_code, status, note, created_at)
		VALUES ($1, $2, $3, $4)`,
		code, string(entry.Status), entry.Note, entry.At,
	)
	if err != nil {
		return errors.Wrapf(err, "insert status log for %q", code)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		paymentMethod string
		status        string
		courierName   string
		courierPhone  string
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.CustomerName, &o.CustomerPhone,
		&o.Address.Street, &o.Address.Number, &o.Address.Complement, &o.Address.Neighborhood,
		&itemsJSON, &paymentMethod, &o.CouponCode,
		&o.Subtotal, &o.Discount, &o.DeliveryFee, &o.Total,
		&status, &o.CancelReason, &courierName, &courierPhone, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	o.PaymentMethod = pricing.PaymentMethod(paymentMethod)
	o.Status = order.Status(status)
	if courierName != "" || courierPhone != "" {
		o.Courier = &order.Courier{Name: courierName, Phone: courierPhone}
	}
	return &o, nil
}
