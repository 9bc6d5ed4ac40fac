// Package pricing implements the checkout total calculation as a pure
// function over cart contents, an optional coupon rule, an optional
// delivery zone, and the payment method. All arithmetic runs on
// decimals with no intermediate rounding; only the final figures are
// rounded to 2 places.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/coupon"
	"github.com/pedidolocal/storefront/internal/domain/zone"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCash   PaymentMethod = "cash"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPix, PaymentCredit, PaymentDebit, PaymentCash:
		return true
	}
	return false
}

// Item is one cart line for pricing purposes. Addon prices are charged
// per unit of the line.
type Item struct {
	UnitPrice   decimal.Decimal
	Quantity    int
	AddonPrices []decimal.Decimal
}

// Cart holds the lines to price.
type Cart struct {
	Items []Item
}

// Quote is the full pricing breakdown. Total always satisfies
// total = max(0, subtotal - discount) + deliveryFee, adjusted by the
// payment-method multiplier and rounded to 2 places, and is never
// negative. CouponReason and ZoneMatched carry the diagnostics the
// caller surfaces next to the number.
type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal

	CouponApplied bool
	CouponReason  coupon.Reason
	ZoneMatched   bool
}

var hundred = decimal.NewFromInt(100)

// Calculator computes quotes. PixDiscountPercent is the extra discount
// applied to the post-coupon, post-fee base when paying with PIX; it is
// tenant configuration, not a constant.
type Calculator struct {
	PixDiscountPercent decimal.Decimal
	Now                func() time.Time
}

// NewCalculator returns a Calculator with the given PIX rate and a
// real-time clock.
func NewCalculator(pixPercent decimal.Decimal) *Calculator {
	return &Calculator{PixDiscountPercent: pixPercent, Now: time.Now}
}

// Quote derives the payable total. rule and z may be nil (no coupon
// supplied / no zone covers the address); both degrade to zero amounts
// with the corresponding diagnostic rather than failing.
func (c *Calculator) Quote(cart Cart, rule *coupon.Rule, z *zone.Zone, method PaymentMethod) Quote {
	subtotal := Subtotal(cart)

	q := Quote{Subtotal: subtotal.Round(2)}

	// Coupon discount: zero with a reason unless every eligibility
	// check passes.
	discount := decimal.Zero
	if reason := coupon.Evaluate(rule, subtotal, c.Now()); reason != coupon.ReasonNone {
		q.CouponReason = reason
	} else {
		discount = discountFor(rule, subtotal)
		q.CouponApplied = true
	}

	// Delivery fee: an uncovered neighborhood is not an error, just a
	// zero fee the caller may want to log.
	fee := decimal.Zero
	if z != nil {
		fee = z.FeeFor(subtotal)
		q.ZoneMatched = true
	}

	// Clamp before adding the fee so an oversized discount can never
	// eat into it.
	base := subtotal.Sub(discount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	total := base.Add(fee)

	if method == PaymentPix && c.PixDiscountPercent.IsPositive() {
		total = total.Sub(total.Mul(c.PixDiscountPercent).Div(hundred))
	}

	q.Discount = discount.Round(2)
	q.DeliveryFee = fee.Round(2)
	q.Total = total.Round(2)
	return q
}

// Subtotal returns the sum over cart items of
// (unitPrice + sum(addonPrices)) * quantity, unrounded.
func Subtotal(cart Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range cart.Items {
		unit := item.UnitPrice
		for _, p := range item.AddonPrices {
			unit = unit.Add(p)
		}
		sum = sum.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// discountFor computes the discount amount for an eligible rule.
// Fixed discounts cap at the subtotal so the pre-fee total can reach
// zero but never go negative.
func discountFor(rule *coupon.Rule, subtotal decimal.Decimal) decimal.Decimal {
	switch rule.DiscountType {
	case coupon.DiscountPercentage:
		return subtotal.Mul(rule.Value).Div(hundred)
	case coupon.DiscountFixed:
		return decimal.Min(rule.Value, subtotal)
	default:
		return decimal.Zero
	}
}
