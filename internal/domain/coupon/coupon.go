package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrUsageLimitReached is returned by the storage layer when the
	// conditional usage increment finds the coupon exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrDuplicateCode is returned when creating a coupon whose code
	// already exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInvalidRule is returned when a rule fails creation-time validation.
	ErrInvalidRule = errors.New("invalid coupon rule")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Codes compare case-insensitively; the storage layer canonicalizes them
// to upper case.
type Rule struct {
	Code          string
	DiscountType  DiscountType
	Value         decimal.Decimal
	MinOrderValue *decimal.Decimal
	MaxUsage      int
	UsageCount    int
	Active        bool
	EndDate       *time.Time
	CreatedAt     time.Time
}

// Validate checks creation-time constraints. Percentage values above 100
// are rejected here so the pricing path never sees a discount larger
// than the subtotal it derives from.
func (r *Rule) Validate() error {
	if r.Code == "" {
		return errors.Wrap(ErrInvalidRule, "code required")
	}
	switch r.DiscountType {
	case DiscountPercentage:
		if r.Value.IsNegative() || r.Value.GreaterThan(decimal.NewFromInt(100)) {
			return errors.Wrap(ErrInvalidRule, "percentage must be between 0 and 100")
		}
	case DiscountFixed:
		if r.Value.IsNegative() {
			return errors.Wrap(ErrInvalidRule, "fixed value must not be negative")
		}
	default:
		return errors.Wrapf(ErrInvalidRule, "unsupported discount type %q", r.DiscountType)
	}
	if r.MaxUsage < 0 {
		return errors.Wrap(ErrInvalidRule, "max usage must not be negative")
	}
	return nil
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, code string) error
}
