package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kiwari-pos/order-engine/internal/auth"
	"github.com/kiwari-pos/order-engine/internal/config"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/kiwari-pos/order-engine/internal/logger"
	"go.uber.org/zap"
)

// seedProduct is one catalog entry. Duplicates > 0 inserts extra rows for the
// same product, reproducing legacy data the order engine must tolerate.
type seedProduct struct {
	name       string
	price      int64
	stock      *int32
	duplicates int
}

func main() {
	slug := flag.String("slug", "", "Store slug")
	tables := flag.Int("tables", 8, "Number of dining tables")
	flag.Parse()

	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	if *slug == "" {
		*slug = os.Getenv("SEED_STORE_SLUG")
	}
	if *slug == "" {
		*slug = "demo-store"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("unable to ping database", zap.Error(err))
	}

	// Seed in a transaction: all of it or nothing
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	storeID, created, err := seedStore(ctx, tx, *slug)
	if err != nil {
		log.Fatal("seed store", zap.Error(err))
	}

	var customerID uuid.UUID
	if created {
		if customerID, err = seedCatalog(ctx, tx, storeID, int32(*tables)); err != nil {
			log.Fatal("seed catalog", zap.Error(err))
		}
	} else {
		log.Info("store already exists, skipping catalog", zap.String("slug", *slug))
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("commit", zap.Error(err))
	}

	staffToken, err := auth.GenerateToken(cfg.JWTSecret, uuid.New(), storeID, enum.RoleManager)
	if err != nil {
		log.Fatal("generate staff token", zap.Error(err))
	}

	log.Info("seed completed", zap.String("store_id", storeID.String()))
	fmt.Printf("STORE_ID=%s\n", storeID)
	fmt.Printf("STAFF_TOKEN=%s\n", staffToken)
	if customerID != uuid.Nil {
		customerToken, err := auth.GenerateCustomerToken(cfg.JWTSecret, customerID)
		if err != nil {
			log.Fatal("generate customer token", zap.Error(err))
		}
		fmt.Printf("CUSTOMER_TOKEN=%s\n", customerToken)
	}
}

// seedStore returns the store with the given slug, creating it when missing.
func seedStore(ctx context.Context, tx pgx.Tx, slug string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM stores WHERE slug = $1`, slug).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("check store: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO stores (name, slug, delivery_fee, allow_customer_cancel, max_cancellable_status)
		VALUES ($1, $2, 500, true, $3)
		RETURNING id
	`, "Demo Store", slug, enum.OrderStatusAwaitingAcceptance).Scan(&id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert store: %w", err)
	}
	return id, true, nil
}

// seedCatalog inserts products, a combo, dining tables and a customer.
func seedCatalog(ctx context.Context, tx pgx.Tx, storeID uuid.UUID, tables int32) (uuid.UUID, error) {
	stock := func(n int32) *int32 { return &n }
	products := []seedProduct{
		{name: "Cheeseburger", price: 1890, stock: stock(40), duplicates: 1},
		{name: "Fries", price: 790, stock: stock(100)},
		{name: "Soda", price: 600, stock: stock(60)},
		{name: "Extra Cheese", price: 250, stock: stock(200)},
		{name: "Ice Cream", price: 900}, // untracked stock
	}

	rows := make(map[string]uuid.UUID, len(products))
	for _, p := range products {
		productID := uuid.New()
		for i := 0; i <= p.duplicates; i++ {
			// The duplicate row holds a smaller stock so smart lookup has a clear winner
			s := p.stock
			if i > 0 && s != nil {
				s = stock(*s / 4)
			}
			var id uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO store_products (store_id, product_id, name, price, stock)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, storeID, productID, p.name, p.price, s).Scan(&id)
			if err != nil {
				return uuid.Nil, fmt.Errorf("insert product %s: %w", p.name, err)
			}
			if i == 0 {
				rows[p.name] = id
			}
		}
	}

	var comboID uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO combos (store_id, name, price) VALUES ($1, 'Burger Meal', 2990)
		RETURNING id
	`, storeID).Scan(&comboID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert combo: %w", err)
	}
	for i, part := range []struct {
		name string
		qty  int32
	}{{"Cheeseburger", 1}, {"Fries", 1}, {"Soda", 1}} {
		_, err := tx.Exec(ctx, `
			INSERT INTO combo_items (combo_id, store_product_id, quantity, sort_order)
			VALUES ($1, $2, $3, $4)
		`, comboID, rows[part.name], part.qty, i)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert combo item %s: %w", part.name, err)
		}
	}

	for n := int32(1); n <= tables; n++ {
		if _, err := tx.Exec(ctx, `INSERT INTO dining_tables (store_id, number) VALUES ($1, $2)`, storeID, n); err != nil {
			return uuid.Nil, fmt.Errorf("insert table %d: %w", n, err)
		}
	}

	var customerID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO customers (name, phone) VALUES ('Demo Customer', '+5511900000000')
		RETURNING id
	`).Scan(&customerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert customer: %w", err)
	}
	return customerID, nil
}
