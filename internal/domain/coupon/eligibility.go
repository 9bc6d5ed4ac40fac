package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason explains why a coupon produced no discount. An empty Reason
// means the coupon is eligible. Checkout never hard-fails on an
// ineligible coupon; the reason travels with the quote so the caller
// can explain the number shown.
type Reason string

const (
	// ReasonNone marks an eligible coupon.
	ReasonNone Reason = ""
	// ReasonNotFound marks an unknown coupon code.
	ReasonNotFound Reason = "not_found"
	// ReasonInactive marks a coupon toggled off by an admin.
	ReasonInactive Reason = "inactive"
	// ReasonExpired marks a coupon past its end date. Expiry is lazy:
	// it is evaluated here against the supplied clock, never by a
	// background job.
	ReasonExpired Reason = "expired"
	// ReasonUsageLimitReached marks an exhausted coupon.
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	// ReasonBelowMinimumOrder marks a subtotal under the coupon's floor.
	ReasonBelowMinimumOrder Reason = "below_minimum_order"
)

// Evaluate checks a rule's eligibility against a subtotal at a given
// instant. A nil rule evaluates to ReasonNotFound. Checks run in a
// fixed order so a coupon failing several produces a stable reason.
func Evaluate(rule *Rule, subtotal decimal.Decimal, now time.Time) Reason {
	if rule == nil {
		return ReasonNotFound
	}
	if !rule.Active {
		return ReasonInactive
	}
	if rule.EndDate != nil && now.After(*rule.EndDate) {
		return ReasonExpired
	}
	if rule.MaxUsage > 0 && rule.UsageCount >= rule.MaxUsage {
		return ReasonUsageLimitReached
	}
	if rule.MinOrderValue != nil && subtotal.LessThan(*rule.MinOrderValue) {
		return ReasonBelowMinimumOrder
	}
	return ReasonNone
}
