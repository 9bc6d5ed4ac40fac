// Package zone models delivery zones: named groups of neighborhoods
// sharing one fee schedule.
package zone

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no zone covers a neighborhood or no zone
// exists for an ID.
var ErrNotFound = errors.New("delivery zone not found")

// Zone maps a set of neighborhood names to a flat delivery fee and an
// optional free-delivery threshold.
type Zone struct {
	ID              string
	Name            string
	Neighborhoods   []string
	Fee             decimal.Decimal
	FreeDeliveryMin *decimal.Decimal
}

// Covers reports whether the zone serves the given neighborhood.
// Comparison is case-insensitive and whitespace-trimmed but otherwise
// exact: no fuzzy matching.
func (z *Zone) Covers(neighborhood string) bool {
	want := strings.TrimSpace(neighborhood)
	for _, n := range z.Neighborhoods {
		if strings.EqualFold(strings.TrimSpace(n), want) {
			return true
		}
	}
	return false
}

// FeeFor returns the delivery fee for the given subtotal: zero when the
// free-delivery threshold is set and met, the flat fee otherwise.
func (z *Zone) FeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if z.FreeDeliveryMin != nil && subtotal.GreaterThanOrEqual(*z.FreeDeliveryMin) {
		return decimal.Zero
	}
	return z.Fee
}

// Repository provides lookup and admin CRUD for delivery zones.
type Repository interface {
	FindByNeighborhood(ctx context.Context, neighborhood string) (*Zone, error)
	Get(ctx context.Context, id string) (*Zone, error)
	List(ctx context.Context) ([]Zone, error)
	Create(ctx context.Context, z *Zone) error
	Update(ctx context.Context, z *Zone) error
	Delete(ctx context.Context, id string) error
}
