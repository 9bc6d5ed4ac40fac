package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are canonicalized to upper case on write so lookups stay
// case-insensitive without expression indexes.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository using the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `code, discount_type, value, min_order_value, max_usage, usage_count, active, end_date, created_at`

// FindByCode looks up a coupon by code, case-insensitively. It returns
// the rule regardless of active/expiry state; eligibility is the
// domain's call, not the query's.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = UPPER(TRIM($1))`, code)

	rule, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return rule, nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query coupons")
	}
	defer rows.Close()

	var rules []coupon.Rule
	for rows.Next() {
		rule, err := scanCoupon(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan coupon")
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// Create inserts a new rule. Duplicate codes (case-insensitive) map to
// coupon.ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, rule *coupon.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO coupons (code, discount_type, value, min_order_value, max_usage, active, end_date)
		VALUES (UPPER(TRIM($1)), $2, $3, $4, $5, $6, $7)`,
		rule.Code, string(rule.DiscountType), rule.Value,
		nullDecimal(rule.MinOrderValue), rule.MaxUsage, rule.Active, rule.EndDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return coupon.ErrDuplicateCode
		}
		return errors.Wrapf(err, "create coupon %q", rule.Code)
	}
	return nil
}

// Update rewrites a rule's mutable fields. The usage count is not
// touched here; it only moves through ConsumeUse.
func (r *CouponRepository) Update(ctx context.Context, rule *coupon.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE coupons
		SET discount_type = $2, value = $3, min_order_value = $4,
		    max_usage = $5, active = $6, end_date = $7
		WHERE code = UPPER(TRIM($1))`,
		rule.Code, string(rule.DiscountType), rule.Value,
		nullDecimal(rule.MinOrderValue), rule.MaxUsage, rule.Active, rule.EndDate,
	)
	if err != nil {
		return errors.Wrapf(err, "update coupon %q", rule.Code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE code = UPPER(TRIM($1))`, code)
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// consumeUse is the single conditional read-modify-write guarding the
// usage limit: the increment and the limit check happen in one
// statement, so two concurrent checkouts can never both take the last
// use. Runs inside the order-creation transaction.
func consumeUse(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE code = UPPER(TRIM($1))
		  AND (max_usage = 0 OR usage_count < max_usage)`, code)
	if err != nil {
		return errors.Wrapf(err, "consume coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func scanCoupon(row pgx.Row) (*coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		minOrder     decimal.NullDecimal
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &minOrder,
		&rule.MaxUsage, &rule.UsageCount, &rule.Active, &rule.EndDate, &rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.DiscountType = coupon.DiscountType(strings.ToLower(discountType))
	if minOrder.Valid {
		v := minOrder.Decimal
		rule.MinOrderValue = &v
	}
	return &rule, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
