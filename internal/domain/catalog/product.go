package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Active   bool
	Addons   []Addon
}

// Addon is an optional extra a customer can attach to a product,
// priced per unit of the parent line item.
type Addon struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// AddonByID returns the addon with the given ID, or false when the
// product does not offer it.
func (p *Product) AddonByID(id string) (Addon, bool) {
	for _, a := range p.Addons {
		if a.ID == id {
			return a, true
		}
	}
	return Addon{}, false
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
