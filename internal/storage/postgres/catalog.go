package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedidolocal/storefront/internal/domain/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository using the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all active products with their addons.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, category
		FROM products
		WHERE active
		ORDER BY category, name`)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []catalog.Product
	ids := make([]string, 0)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		p.Active = true
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}

	if err := r.attachAddons(ctx, products, ids); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByIDs fetches the given products in one query. Missing IDs are
// simply absent from the result; the caller decides whether that is an
// error.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, category, active
		FROM products
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query products by ids")
	}
	defer rows.Close()

	var products []catalog.Product
	found := make([]string, 0, len(ids))
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Active); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
		found = append(found, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}

	if err := r.attachAddons(ctx, products, found); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *CatalogRepository) attachAddons(ctx context.Context, products []catalog.Product, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, name, price
		FROM product_addons
		WHERE product_id = ANY($1)
		ORDER BY name`, ids)
	if err != nil {
		return errors.Wrap(err, "query addons")
	}
	defer rows.Close()

	byProduct := make(map[string][]catalog.Addon)
	for rows.Next() {
		var (
			a         catalog.Addon
			productID string
		)
		if err := rows.Scan(&a.ID, &productID, &a.Name, &a.Price); err != nil {
			return errors.Wrap(err, "scan addon")
		}
		byProduct[productID] = append(byProduct[productID], a)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate addons")
	}

	for i := range products {
		products[i].Addons = byProduct[products[i].ID]
	}
	return nil
}
