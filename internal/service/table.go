package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
)

// DeriveTableStatus computes a table's status from its current order. detach
// is true when the table must drop its order reference and return to Free.
// Called and Billing are staff-set and survive recomputation while the order
// is still open.
func DeriveTableStatus(current string, o *database.Order, items []database.OrderItem) (status string, detach bool) {
	if o == nil || isClosed(o.Status) {
		return enum.TableStatusFree, true
	}
	if current == enum.TableStatusCalled || current == enum.TableStatusBilling {
		return current, false
	}
	for _, it := range items {
		if it.Status != enum.ItemStatusCancelled && it.Status != enum.ItemStatusDelivered {
			return enum.TableStatusWaiting, false
		}
	}
	return enum.TableStatusOccupied, false
}

// freeTable clears a table back to its idle state.
func freeTable(ctx context.Context, store OrderStore, t database.DiningTable) (database.DiningTable, error) {
	updated, err := store.UpdateTableState(ctx, database.UpdateTableStateParams{
		ID:     t.ID,
		Status: enum.TableStatusFree,
	})
	if err != nil {
		return database.DiningTable{}, fmt.Errorf("free table: %w", err)
	}
	return updated, nil
}

// syncTable re-derives the status of the table linked to o. It is a no-op for
// orders that are not table-bound or no longer linked to their table.
func syncTable(ctx context.Context, store OrderStore, o database.Order) (*database.DiningTable, error) {
	if !isTableBound(o) {
		return nil, nil
	}
	t, err := store.GetTableByOrder(ctx, o.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get table by order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	status, detach := DeriveTableStatus(t.Status, &o, items)
	if detach {
		freed, err := freeTable(ctx, store, t)
		if err != nil {
			return nil, err
		}
		return &freed, nil
	}
	if status == t.Status {
		return &t, nil
	}

	updated, err := store.UpdateTableState(ctx, database.UpdateTableStateParams{
		ID:             t.ID,
		Status:         status,
		CurrentOrderID: t.CurrentOrderID,
		CustomerName:   t.CustomerName,
		OpenedAt:       t.OpenedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update table state: %w", err)
	}
	return &updated, nil
}

// linkTable attaches o to t and marks the table occupied.
func linkTable(ctx context.Context, store OrderStore, t database.DiningTable, o database.Order, customerName string) (database.DiningTable, error) {
	name := t.CustomerName
	if customerName != "" {
		name = pgtype.Text{String: customerName, Valid: true}
	}
	opened := t.OpenedAt
	if !opened.Valid {
		opened = pgtype.Timestamptz{Time: o.CreatedAt, Valid: true}
	}
	updated, err := store.UpdateTableState(ctx, database.UpdateTableStateParams{
		ID:             t.ID,
		Status:         enum.TableStatusOccupied,
		CurrentOrderID: pgtype.UUID{Bytes: o.ID, Valid: true},
		CustomerName:   name,
		OpenedAt:       opened,
	})
	if err != nil {
		return database.DiningTable{}, fmt.Errorf("link table: %w", err)
	}
	return updated, nil
}
