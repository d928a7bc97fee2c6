// Package main provides a CLI tool for seeding the database with demo data
// and printing access tokens for the demo parties.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"bizzplus/internal/config"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/auth"
	"bizzplus/internal/infrastructure/storage/postgres"
	"bizzplus/pkg/logger"
)

type partySeed struct {
	id    id.ID
	name  string
	gstin string
	city  string
}

type skuSeed struct {
	id         id.ID
	code       string
	name       string
	hsn        string
	gstPercent string
	uom        string
	price      string
}

// Fixed ids keep reseeding idempotent.
var (
	manufacturers = []partySeed{
		{id.MustParse("0b8f3c1e-5a8e-4a7e-9a50-000000000001"), "Sunrise Foods Pvt Ltd", "27AABCS1234A1Z5", "Pune"},
		{id.MustParse("0b8f3c1e-5a8e-4a7e-9a50-000000000002"), "Kaveri Home Care", "29AACCK5678B1Z2", "Bengaluru"},
	}
	distributors = []partySeed{
		{id.MustParse("1c9e4d2f-6b9f-4b8f-8b61-000000000001"), "Metro Traders", "27AAEFM9012C1Z8", "Mumbai"},
		{id.MustParse("1c9e4d2f-6b9f-4b8f-8b61-000000000002"), "Deccan Distributors", "36AAGFD3456D1Z1", "Hyderabad"},
	}
	skusByManufacturer = map[int][]skuSeed{
		0: {
			{id.MustParse("2da05e30-7ca0-4c90-9c72-000000000001"), "SF-ATTA-5", "Whole Wheat Atta 5kg", "1101", "5", "BAG", "245.00"},
			{id.MustParse("2da05e30-7ca0-4c90-9c72-000000000002"), "SF-POHA-1", "Thick Poha 1kg", "1904", "5", "PKT", "62.50"},
			{id.MustParse("2da05e30-7ca0-4c90-9c72-000000000003"), "SF-SNACK-200", "Masala Mix 200g", "2106", "12", "PKT", "40.00"},
		},
		1: {
			{id.MustParse("2da05e30-7ca0-4c90-9c72-000000000004"), "KH-DET-1", "Detergent Powder 1kg", "3402", "18", "PKT", "110.00"},
			{id.MustParse("2da05e30-7ca0-4c90-9c72-000000000005"), "KH-FLR-500", "Floor Cleaner 500ml", "3808", "18", "BTL", "95.00"},
		},
	}
	adminUserID = id.MustParse("3eb16f41-8db1-4da1-8d83-000000000001")
)

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedParties(ctx, pool, "manufacturers", manufacturers); err != nil {
		log.Fatalw("failed to seed manufacturers", "error", err)
	}
	if err := seedParties(ctx, pool, "distributors", distributors); err != nil {
		log.Fatalw("failed to seed distributors", "error", err)
	}
	for i, m := range manufacturers {
		if err := seedSKUs(ctx, pool, m.id, skusByManufacturer[i]); err != nil {
			log.Fatalw("failed to seed skus", "manufacturer", m.name, "error", err)
		}
	}
	if err := seedBalances(ctx, pool); err != nil {
		log.Fatalw("failed to seed inventory", "error", err)
	}
	log.Info("demo data seeded")

	if err := printTokens(cfg); err != nil {
		log.Fatalw("failed to mint tokens", "error", err)
	}
}

func seedParties(ctx context.Context, pool *postgres.Pool, table string, parties []partySeed) error {
	for _, p := range parties {
		_, err := pool.Exec(ctx, `
			INSERT INTO `+table+` (id, name, gstin, city)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, p.id, p.name, p.gstin, p.city)
		if err != nil {
			return fmt.Errorf("insert %s %q: %w", table, p.name, err)
		}
	}
	return nil
}

func seedSKUs(ctx context.Context, pool *postgres.Pool, manufacturerID id.ID, skus []skuSeed) error {
	effectiveFrom := time.Now().UTC().AddDate(0, 0, -30)
	for _, s := range skus {
		_, err := pool.Exec(ctx, `
			INSERT INTO skus (id, manufacturer_id, sku_code, name, hsn, gst_percent, uom)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, s.id, manufacturerID, s.code, s.name, s.hsn, decimal.RequireFromString(s.gstPercent), s.uom)
		if err != nil {
			return fmt.Errorf("insert sku %s: %w", s.code, err)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO sku_prices (id, sku_id, price, currency, effective_from)
			SELECT $1, $2, $3, 'INR', $4
			WHERE NOT EXISTS (SELECT 1 FROM sku_prices WHERE sku_id = $2)
		`, id.New(), s.id, decimal.RequireFromString(s.price), effectiveFrom)
		if err != nil {
			return fmt.Errorf("insert price for %s: %w", s.code, err)
		}
	}
	return nil
}

// seedBalances gives the first distributor some opening stock, with one
// low and one empty line so dashboard alerts have something to show.
func seedBalances(ctx context.Context, pool *postgres.Pool) error {
	opening := []string{"120", "8", "0"}
	for i, s := range skusByManufacturer[0] {
		_, err := pool.Exec(ctx, `
			INSERT INTO inventory_balances (id, distributor_id, sku_id, on_hand)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (distributor_id, sku_id) DO NOTHING
		`, id.New(), distributors[0].id, s.id, decimal.RequireFromString(opening[i]))
		if err != nil {
			return fmt.Errorf("insert balance for %s: %w", s.code, err)
		}
	}
	return nil
}

func printTokens(cfg *config.Config) error {
	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtCfg.Issuer = cfg.JWT.Issuer
	}
	// Demo tokens outlive the default access TTL.
	jwtCfg.AccessTokenTTL = 30 * 24 * time.Hour
	svc := auth.NewJWTService(jwtCfg)

	users := []appctx.UserContext{
		{UserID: adminUserID.String(), Email: "admin@bizzplus.local", Role: appctx.RoleAdmin},
	}
	for i, m := range manufacturers {
		users = append(users, appctx.UserContext{
			UserID:    fmt.Sprintf("manufacturer-%d", i+1),
			Email:     fmt.Sprintf("m%d@bizzplus.local", i+1),
			Role:      appctx.RoleManufacturer,
			PartyKind: appctx.RoleManufacturer,
			PartyID:   m.id.String(),
		})
	}
	for i, d := range distributors {
		users = append(users, appctx.UserContext{
			UserID:    fmt.Sprintf("distributor-%d", i+1),
			Email:     fmt.Sprintf("d%d@bizzplus.local", i+1),
			Role:      appctx.RoleDistributor,
			PartyKind: appctx.RoleDistributor,
			PartyID:   d.id.String(),
		})
	}

	for _, u := range users {
		token, expires, err := svc.GenerateAccessToken(u)
		if err != nil {
			return fmt.Errorf("token for %s: %w", u.Email, err)
		}
		fmt.Printf("%-12s %-24s expires %s\n%s\n\n", u.Role, u.Email, expires.Format(time.RFC3339), token)
	}
	return nil
}
