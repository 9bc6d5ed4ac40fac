package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/domain/zone"
)

var _ zone.Repository = (*ZoneRepository)(nil)

// ZoneRepository implements zone.Repository backed by PostgreSQL.
// Neighborhoods are stored as a text array on the zone row.
type ZoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository returns a ZoneRepository using the given pool.
func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{pool: pool}
}

const zoneColumns = `id, name, neighborhoods, fee, free_delivery_min`

// FindByNeighborhood returns the first zone whose neighborhood set
// contains the given name, matched case-insensitively after trimming.
func (r *ZoneRepository) FindByNeighborhood(ctx context.Context, neighborhood string) (*zone.Zone, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+zoneColumns+`
		FROM delivery_zones
		WHERE EXISTS (
			SELECT 1 FROM unnest(neighborhoods) AS n
			WHERE LOWER(TRIM(n)) = LOWER(TRIM($1))
		)
		ORDER BY name
		LIMIT 1`, neighborhood)

	z, err := scanZone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, zone.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find zone for %q", neighborhood)
	}
	return z, nil
}

// Get loads a zone by ID.
func (r *ZoneRepository) Get(ctx context.Context, id string) (*zone.Zone, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM delivery_zones WHERE id = $1`, id)

	z, err := scanZone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, zone.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get zone %q", id)
	}
	return z, nil
}

// List returns all zones ordered by name.
func (r *ZoneRepository) List(ctx context.Context) ([]zone.Zone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+zoneColumns+` FROM delivery_zones ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "query zones")
	}
	defer rows.Close()

	var zones []zone.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan zone")
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// Create inserts a zone, assigning an ID when the caller left it empty.
func (r *ZoneRepository) Create(ctx context.Context, z *zone.Zone) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_zones (id, name, neighborhoods, fee, free_delivery_min)
		VALUES ($1, $2, $3, $4, $5)`,
		z.ID, z.Name, z.Neighborhoods, z.Fee, nullDecimal(z.FreeDeliveryMin),
	)
	if err != nil {
		return errors.Wrapf(err, "create zone %q", z.Name)
	}
	return nil
}

// Update rewrites a zone.
func (r *ZoneRepository) Update(ctx context.Context, z *zone.Zone) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE delivery_zones
		SET name = $2, neighborhoods = $3, fee = $4, free_delivery_min = $5
		WHERE id = $1`,
		z.ID, z.Name, z.Neighborhoods, z.Fee, nullDecimal(z.FreeDeliveryMin),
	)
	if err != nil {
		return errors.Wrapf(err, "update zone %q", z.ID)
	}
	if tag.RowsAffected() == 0 {
		return zone.ErrNotFound
	}
	return nil
}

// Delete removes a zone.
func (r *ZoneRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM delivery_zones WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete zone %q", id)
	}
	if tag.RowsAffected() == 0 {
		return zone.ErrNotFound
	}
	return nil
}

func scanZone(row pgx.Row) (*zone.Zone, error) {
	var (
		z       zone.Zone
		freeMin decimal.NullDecimal
	)
	if err := row.Scan(&z.ID, &z.Name, &z.Neighborhoods, &z.Fee, &freeMin); err != nil {
		return nil, err
	}
	if freeMin.Valid {
		v := freeMin.Decimal
		z.FreeDeliveryMin = &v
	}
	return &z, nil
}
