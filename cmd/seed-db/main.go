// Command seed-db loads a demo catalog, delivery zones, and a few
// coupons so a fresh database is immediately usable.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pedidolocal/storefront/internal/storage/postgres"
)

type seedAddon struct {
	id    string
	name  string
	price string
}

type seedProduct struct {
	id       string
	name     string
	price    string
	category string
	addons   []seedAddon
}

var products = []seedProduct{
	{
		id: "marmita-p", name: "Marmita Pequena", price: "18.90", category: "marmitas",
		addons: []seedAddon{
			{id: "extra-arroz", name: "Arroz extra", price: "3.00"},
			{id: "extra-feijao", name: "Feijão extra", price: "3.00"},
		},
	},
	{
		id: "marmita-g", name: "Marmita Grande", price: "25.90", category: "marmitas",
		addons: []seedAddon{
			{id: "extra-carne", name: "Carne extra", price: "7.50"},
			{id: "extra-farofa", name: "Farofa", price: "2.00"},
		},
	},
	{id: "suco-laranja", name: "Suco de Laranja 500ml", price: "8.00", category: "bebidas"},
	{id: "refri-lata", name: "Refrigerante Lata", price: "6.00", category: "bebidas"},
	{id: "pudim", name: "Pudim de Leite", price: "9.50", category: "sobremesas"},
}

type seedZone struct {
	name          string
	neighborhoods []string
	fee           string
	freeMin       string
}

var zones = []seedZone{
	{name: "Centro", neighborhoods: []string{"Centro", "Vila Nova", "Bela Vista"}, fee: "7.90", freeMin: "80"},
	{name: "Zona Sul", neighborhoods: []string{"Jardim das Flores", "Parque Sul"}, fee: "12.90", freeMin: "120"},
	{name: "Zona Norte", neighborhoods: []string{"Santa Rosa", "Monte Alto"}, fee: "15.90", freeMin: ""},
}

type seedCoupon struct {
	code         string
	discountType string
	value        string
	minOrder     string
	maxUsage     int
}

var coupons = []seedCoupon{
	{code: "BEMVINDO", discountType: "percentage", value: "10", minOrder: "30", maxUsage: 0},
	{code: "ALMOCO15", discountType: "percentage", value: "15", minOrder: "50", maxUsage: 200},
	{code: "FRETE10", discountType: "fixed", value: "10", minOrder: "60", maxUsage: 0},
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed")
}

func run(ctx context.Context, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedZones(ctx, pool); err != nil {
		return errors.Wrap(err, "seed zones")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding products", slog.Int("count", len(products)))

	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.id)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO products (id, name, price, category, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category`,
			p.id, p.name, price, p.category,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		for _, a := range p.addons {
			addonPrice, err := decimal.NewFromString(a.price)
			if err != nil {
				return errors.Wrapf(err, "parse price for addon %s", a.id)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO product_addons (id, product_id, name, price)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, price = EXCLUDED.price`,
				a.id, p.id, a.name, addonPrice,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert addon %s", a.id)
			}
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

func seedZones(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding delivery zones", slog.Int("count", len(zones)))

	for _, z := range zones {
		fee, err := decimal.NewFromString(z.fee)
		if err != nil {
			return errors.Wrapf(err, "parse fee for %s", z.name)
		}

		var freeMin *decimal.Decimal
		if z.freeMin != "" {
			v, err := decimal.NewFromString(z.freeMin)
			if err != nil {
				return errors.Wrapf(err, "parse free delivery minimum for %s", z.name)
			}
			freeMin = &v
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO delivery_zones (id, name, neighborhoods, fee, free_delivery_min)
			VALUES (LOWER(REPLACE($1, ' ', '-')), $1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET neighborhoods = EXCLUDED.neighborhoods, fee = EXCLUDED.fee,
			    free_delivery_min = EXCLUDED.free_delivery_min`,
			z.name, z.neighborhoods, fee, freeMin,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert zone %s", z.name)
		}
		slog.Info("upserted zone", slog.String("name", z.name))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		value, err := decimal.NewFromString(c.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for %s", c.code)
		}
		minOrder, err := decimal.NewFromString(c.minOrder)
		if err != nil {
			return errors.Wrapf(err, "parse minimum order for %s", c.code)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO coupons (code, discount_type, value, min_order_value, max_usage, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (code) DO UPDATE
			SET discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			    min_order_value = EXCLUDED.min_order_value, max_usage = EXCLUDED.max_usage`,
			c.code, c.discountType, value, minOrder, c.maxUsage,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code))
	}
	return nil
}
