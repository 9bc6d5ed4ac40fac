// Package order holds the order aggregate: the item snapshot frozen at
// checkout, the pricing snapshot, and the status workflow.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/pricing"
)

// ErrNotFound is returned when no order exists for a code.
var ErrNotFound = errors.New("order not found")

// ErrConflict is returned when a conditional status write finds the
// order already moved by a concurrent request.
var ErrConflict = errors.New("order modified concurrently")

// Order represents one delivery purchase. Money fields are computed at
// checkout and persisted as a snapshot; later status changes never
// touch them.
type Order struct {
	ID    string
	Code  string
	Items []LineItem

	CustomerName  string
	CustomerPhone string
	Address       Address

	PaymentMethod pricing.PaymentMethod
	CouponCode    string

	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal

	Status       Status
	CancelReason string
	Courier      *Courier

	CreatedAt time.Time
	StatusLog []StatusLogEntry
}

// LineItem is a snapshot of a product at purchase time. It copies name
// and prices out of the catalog so later catalog edits never affect
// historical orders.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Addons    []ItemAddon     `json:"addons,omitempty"`
}

// ItemAddon is a chosen add-on snapshot, priced per unit.
type ItemAddon struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Address is the delivery destination. Neighborhood drives the zone fee
// lookup.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
}

// Courier identifies who is delivering an order. Both fields are
// independently optional.
type Courier struct {
	Name  string
	Phone string
}

// StatusLogEntry is one row of the append-only transition history.
// Note carries the cancel reason verbatim when Status is cancelled.
type StatusLogEntry struct {
	Status Status
	At     time.Time
	Note   string
}

// Repository defines persistence operations for orders. Implementations
// must make Create consume the coupon atomically (conditional update)
// and make UpdateStatus conditional on the expected current status.
type Repository interface {
	// Create persists the order with its initial status log entry.
	// When consumeCoupon is non-empty it increments that coupon's usage
	// count in the same transaction, guarded by the usage limit;
	// coupon.ErrUsageLimitReached aborts the whole transaction.
	Create(ctx context.Context, o *Order, consumeCoupon string) error

	// GetByCode loads an order with its status log.
	GetByCode(ctx context.Context, code string) (*Order, error)

	// List returns all orders, newest first, without status logs.
	List(ctx context.Context) ([]Order, error)

	// UpdateStatus writes the order's new status, courier, and cancel
	// reason, and appends entry to the log, only if the stored status
	// still equals expected. Returns ErrConflict otherwise.
	UpdateStatus(ctx context.Context, o *Order, expected Status, entry StatusLogEntry) error
}

// GroupByStatus partitions orders into exactly one bucket per status,
// in input order. Every status bucket is present even when empty, and
// every input order lands in exactly one bucket.
func GroupByStatus(orders []Order) map[Status][]Order {
	buckets := make(map[Status][]Order, len(transitions))
	for _, s := range AllStatuses() {
		buckets[s] = []Order{}
	}
	for _, o := range orders {
		buckets[o.Status] = append(buckets[o.Status], o)
	}
	return buckets
}
