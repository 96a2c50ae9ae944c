// Command seed-db loads sample vouchers, promotions, and a default API key
// into the database for local development and integration testing.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promokit/promo-pricing/internal/storage/postgres"
)

const (
	upsertVoucherSQL = `INSERT INTO vouchers (id, code, discount_type, discount_value,
		expiration_date, usage_limit, minimum_order_value, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			expiration_date = EXCLUDED.expiration_date,
			usage_limit = EXCLUDED.usage_limit,
			minimum_order_value = EXCLUDED.minimum_order_value,
			is_active = EXCLUDED.is_active,
			updated_at = now()`

	upsertPromotionSQL = `INSERT INTO promotions (id, code, discount_type, discount_value,
		expiration_date, usage_limit, eligible_product_ids, eligible_product_categories, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			expiration_date = EXCLUDED.expiration_date,
			usage_limit = EXCLUDED.usage_limit,
			eligible_product_ids = EXCLUDED.eligible_product_ids,
			eligible_product_categories = EXCLUDED.eligible_product_categories,
			is_active = EXCLUDED.is_active,
			updated_at = now()`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = EXCLUDED.active`
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedVouchers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedVouchers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding sample vouchers")

	expires := time.Now().AddDate(1, 0, 0)
	minOrder := decimal.NewFromInt(100)

	vouchers := []struct {
		id, code     string
		discountType string
		value        decimal.Decimal
		usageLimit   int
		minOrder     decimal.NullDecimal
	}{
		{
			id: "seed-save20", code: "SAVE20",
			discountType: "percentage", value: decimal.NewFromInt(20),
			usageLimit: 1000,
		},
		{
			id: "seed-flat30", code: "FLAT30",
			discountType: "fixed", value: decimal.NewFromInt(30),
			usageLimit: 500,
			minOrder:   decimal.NullDecimal{Decimal: minOrder, Valid: true},
		},
	}

	for _, v := range vouchers {
		_, err := pool.Exec(ctx, upsertVoucherSQL,
			v.id, v.code, v.discountType, v.value, expires, v.usageLimit, v.minOrder, true)
		if err != nil {
			return errors.Wrapf(err, "upsert voucher %s", v.code)
		}
		slog.Info("upserted voucher", slog.String("code", v.code))
	}

	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding sample promotions")

	expires := time.Now().AddDate(1, 0, 0)

	promotions := []struct {
		id, code     string
		discountType string
		value        decimal.Decimal
		usageLimit   int
		productIDs   []string
		categories   []string
	}{
		{
			id: "seed-tech15", code: "TECH15",
			discountType: "percentage", value: decimal.NewFromInt(15),
			usageLimit: 1000,
			categories: []string{"electronics"},
		},
		{
			id: "seed-all10", code: "ALL10",
			discountType: "percentage", value: decimal.NewFromInt(10),
			usageLimit: 1000,
		},
	}

	for _, p := range promotions {
		productIDs := p.productIDs
		if productIDs == nil {
			productIDs = []string{}
		}
		categories := p.categories
		if categories == nil {
			categories = []string{}
		}
		_, err := pool.Exec(ctx, upsertPromotionSQL,
			p.id, p.code, p.discountType, p.value, expires, p.usageLimit,
			productIDs, categories, true)
		if err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.code)
		}
		slog.Info("upserted promotion", slog.String("code", p.code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default admin key", []string{"manage_codes"}, true)
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
