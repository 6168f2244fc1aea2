package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/order-engine/internal/database"
)

// stockOf treats a NULL stock as zero. It is never "unlimited".
func stockOf(p database.StoreProduct) int32 {
	if !p.Stock.Valid {
		return 0
	}
	return p.Stock.Int32
}

// pickStoreProduct selects the authoritative row among duplicates. Rows with
// is_available = false are dropped first, so they never win a tie. Among the
// rest the row with the most stock wins, lowest id on ties. ok is false when
// no row is available.
func pickStoreProduct(rows []database.StoreProduct) (database.StoreProduct, bool) {
	var best database.StoreProduct
	found := false
	for _, r := range rows {
		if !r.IsAvailable {
			continue
		}
		if !found {
			best, found = r, true
			continue
		}
		rs, bs := stockOf(r), stockOf(best)
		if rs > bs || (rs == bs && bytes.Compare(r.ID[:], best.ID[:]) < 0) {
			best = r
		}
	}
	return best, found
}

// ResolveStoreProduct finds the stock-bearing row for ref in the store. ref
// is normally a catalog product id; a store product id (possibly a stale
// duplicate) is accepted too and re-resolved through its product id.
func ResolveStoreProduct(ctx context.Context, store OrderStore, storeID, ref uuid.UUID) (database.StoreProduct, error) {
	rows, err := store.ListStoreProductCandidates(ctx, database.ListStoreProductCandidatesParams{
		StoreID:   storeID,
		ProductID: ref,
	})
	if err != nil {
		return database.StoreProduct{}, fmt.Errorf("list store products: %w", err)
	}

	if len(rows) == 0 {
		direct, err := store.GetStoreProduct(ctx, database.GetStoreProductParams{ID: ref, StoreID: storeID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.StoreProduct{}, newDomainError(KindProductUnavailable, "product %s is not sold by this store", ref)
			}
			return database.StoreProduct{}, fmt.Errorf("get store product: %w", err)
		}
		rows, err = store.ListStoreProductCandidates(ctx, database.ListStoreProductCandidatesParams{
			StoreID:   storeID,
			ProductID: direct.ProductID,
		})
		if err != nil {
			return database.StoreProduct{}, fmt.Errorf("list store products: %w", err)
		}
	}

	p, ok := pickStoreProduct(rows)
	if !ok {
		name := ref.String()
		if len(rows) > 0 {
			name = rows[0].Name
		}
		return database.StoreProduct{}, newDomainError(KindProductUnavailable, "%s is unavailable", name)
	}
	return p, nil
}
