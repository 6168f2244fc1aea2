package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/order-engine/internal/database"
)

// ExpandCombo resolves every constituent of a combo to its live store product
// and checks that quantity combos can be served. Nothing is decremented here.
func ExpandCombo(ctx context.Context, store OrderStore, storeID, comboID uuid.UUID, quantity int32) (comboLine, error) {
	combo, err := store.GetCombo(ctx, database.GetComboParams{ID: comboID, StoreID: storeID})
	if err != nil {
		return comboLine{}, notFound(err, "combo")
	}
	if !combo.IsActive {
		return comboLine{}, newDomainError(KindProductUnavailable, "combo %s is not active", combo.Name)
	}

	parts, err := store.ListComboItemsByCombo(ctx, combo.ID)
	if err != nil {
		return comboLine{}, fmt.Errorf("list combo items: %w", err)
	}
	if len(parts) == 0 {
		return comboLine{}, newDomainError(KindProductUnavailable, "combo %s has no items", combo.Name)
	}

	moves := make([]stockMovement, 0, len(parts))
	for _, part := range parts {
		ref, err := store.GetStoreProduct(ctx, database.GetStoreProductParams{
			ID:      part.StoreProductID,
			StoreID: storeID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return comboLine{}, newDomainError(KindProductUnavailable, "combo %s references a product no longer sold", combo.Name)
			}
			return comboLine{}, fmt.Errorf("get combo product: %w", err)
		}
		product, err := ResolveStoreProduct(ctx, store, storeID, ref.ProductID)
		if err != nil {
			return comboLine{}, err
		}
		moves = append(moves, stockMovement{product: product, quantity: int64(part.Quantity) * int64(quantity)})
	}

	if err := checkStock(moves); err != nil {
		return comboLine{}, err
	}

	return comboLine{combo: combo, constituents: moves, quantity: quantity}, nil
}
