package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
)

// stockMovement is a quantity of one store product consumed by a line.
// quantity is int64 so combo multiplication and merging cannot wrap before
// it is compared against stock.
type stockMovement struct {
	product  database.StoreProduct
	quantity int64
}

// clampInt32 narrows a requirement for reporting. Anything above MaxInt32
// can never be served by an int32 stock column anyway.
func clampInt32(n int64) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

// mergeMovements sums movements that hit the same store product, keeping the
// first-seen order so error messages name products deterministically.
func mergeMovements(moves []stockMovement) []stockMovement {
	idx := make(map[uuid.UUID]int, len(moves))
	var out []stockMovement
	for _, m := range moves {
		if i, ok := idx[m.product.ID]; ok {
			out[i].quantity += m.quantity
			continue
		}
		idx[m.product.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// checkStock verifies every movement can be served by its row as read.
func checkStock(moves []stockMovement) error {
	for _, m := range mergeMovements(moves) {
		if have := stockOf(m.product); int64(have) < m.quantity {
			return insufficientStock(m.product.Name, have, clampInt32(m.quantity))
		}
	}
	return nil
}

// consumeStock decrements stock and bumps the sales counter for every
// movement, recording each in the ledger. The decrement is guarded in SQL,
// so a concurrent buyer that got there first surfaces as InsufficientStock.
func consumeStock(ctx context.Context, store OrderStore, orderID, itemID uuid.UUID, moves []stockMovement) error {
	for _, m := range mergeMovements(moves) {
		if m.quantity > math.MaxInt32 {
			return insufficientStock(m.product.Name, stockOf(m.product), math.MaxInt32)
		}
		qty := int32(m.quantity)
		updated, err := store.DecrementStock(ctx, database.AdjustStockParams{
			ID:       m.product.ID,
			Quantity: qty,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				current, getErr := store.GetStoreProduct(ctx, database.GetStoreProductParams{
					ID:      m.product.ID,
					StoreID: m.product.StoreID,
				})
				if getErr != nil {
					return fmt.Errorf("reload store product: %w", getErr)
				}
				return insufficientStock(current.Name, stockOf(current), qty)
			}
			return fmt.Errorf("decrement stock: %w", err)
		}
		if err := recordMovement(ctx, store, orderID, itemID, enum.StockMovementSale, updated.ID, -qty, stockOf(updated)); err != nil {
			return err
		}
	}
	return nil
}

// restoreStock returns quantity units to a store product and reverses the
// sales counter by the same amount.
func restoreStock(ctx context.Context, store OrderStore, orderID, itemID uuid.UUID, kind string, storeProductID uuid.UUID, quantity int32) error {
	updated, err := store.IncrementStock(ctx, database.AdjustStockParams{
		ID:       storeProductID,
		Quantity: quantity,
	})
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return recordMovement(ctx, store, orderID, itemID, kind, updated.ID, quantity, stockOf(updated))
}

func recordMovement(ctx context.Context, store OrderStore, orderID, itemID uuid.UUID, kind string, storeProductID uuid.UUID, delta, after int32) error {
	_, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		StoreProductID: storeProductID,
		OrderID:        pgtype.UUID{Bytes: orderID, Valid: true},
		OrderItemID:    pgtype.UUID{Bytes: itemID, Valid: itemID != uuid.Nil},
		Kind:           kind,
		Delta:          delta,
		StockAfter:     after,
	})
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}
