package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
)

// Totals is what PriceCalculator derives from an order's live line items.
type Totals struct {
	Total    int64
	Quantity int32
}

// DeliveryFee is the fee charged on the order: the fee captured at intake,
// or zero for pickup and table orders.
func DeliveryFee(o database.Order) int64 {
	if o.IsPickup || isTableBound(o) {
		return 0
	}
	return o.DeliveryFee
}

// Recompute derives total and quantity from the non-cancelled line items.
// Addons are billed once per unit of their parent line. The result is
// clamped at zero after the discount.
func Recompute(o database.Order, items []database.OrderItem, addons []database.OrderItemAddon) Totals {
	byItem := make(map[uuid.UUID][]database.OrderItemAddon, len(items))
	for _, a := range addons {
		byItem[a.OrderItemID] = append(byItem[a.OrderItemID], a)
	}

	var sum int64
	var qty int32
	for _, it := range items {
		if it.Status == enum.ItemStatusCancelled {
			continue
		}
		q := int64(it.Quantity)
		sum += it.UnitPrice * q
		for _, a := range byItem[it.ID] {
			sum += a.UnitPrice * q
		}
		qty += it.Quantity
	}

	total := sum + DeliveryFee(o)
	if o.Discount.Valid {
		total -= o.Discount.Int64
	}
	if total < 0 {
		total = 0
	}
	return Totals{Total: total, Quantity: qty}
}

// recomputeTotals reloads the order's lines and persists the derived totals.
// It is the only writer of orders.total and orders.quantity.
func recomputeTotals(ctx context.Context, store OrderStore, o database.Order) (database.Order, error) {
	items, err := store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order items: %w", err)
	}
	addons, err := store.ListOrderItemAddonsByOrder(ctx, o.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order item addons: %w", err)
	}

	t := Recompute(o, items, addons)
	if t.Total == o.Total && t.Quantity == o.Quantity {
		return o, nil
	}
	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       o.ID,
		Total:    t.Total,
		Quantity: t.Quantity,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order totals: %w", err)
	}
	return updated, nil
}
