package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"go.uber.org/zap"
)

// MaxTables bounds ConfigureTables.
const MaxTables = 500

// ListTables returns the store's tables ordered by number.
func (s *OrderService) ListTables(ctx context.Context, storeID uuid.UUID) ([]database.DiningTable, error) {
	var tables []database.DiningTable
	err := s.inTx(ctx, func(store OrderStore) error {
		var err error
		tables, err = store.ListTables(ctx, storeID)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		return nil
	})
	return tables, err
}

// OpenTable seats guests at a free table: it creates an empty dine-in order
// and links it to the table.
func (s *OrderService) OpenTable(ctx context.Context, storeID uuid.UUID, number int32, customerName string) (*OrderResult, error) {
	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		st, err := store.GetStore(ctx, storeID)
		if err != nil {
			return notFound(err, "store")
		}
		if err := checkStoreOpen(st, true); err != nil {
			return err
		}
		table, err := getTable(ctx, store, storeID, number)
		if err != nil {
			return err
		}
		if table.Status != enum.TableStatusFree || table.CurrentOrderID.Valid {
			return newDomainError(KindTableNotFree, "table %d is %s", number, strings.ToLower(table.Status))
		}

		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			StoreID:     st.ID,
			TableNumber: pgtype.Int4{Int32: number, Valid: true},
			Status:      InitialStatus(st, false, nil, true),
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		linked, err := linkTable(ctx, store, table, order, strings.TrimSpace(customerName))
		if err != nil {
			return err
		}

		result, err = loadOrderResult(ctx, store, order)
		if err != nil {
			return err
		}
		result.Table = &linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("table opened",
		zap.String("store_id", storeID.String()),
		zap.Int32("table_number", number),
		zap.String("order_id", result.Order.ID.String()),
	)
	s.publishOrder(ctx, enum.EventOrderCreated, result)
	return result, nil
}

// ReleaseTable completes the table's open order, if any, and frees it.
func (s *OrderService) ReleaseTable(ctx context.Context, storeID uuid.UUID, number int32) (database.DiningTable, error) {
	var freed database.DiningTable
	var closed *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		table, err := getTable(ctx, store, storeID, number)
		if err != nil {
			return err
		}
		closed, err = completeTableOrder(ctx, store, table)
		if err != nil {
			return err
		}
		freed, err = freeTable(ctx, store, table)
		return err
	})
	if err != nil {
		return database.DiningTable{}, err
	}

	if closed != nil {
		s.publishOrder(ctx, enum.EventOrderStatusChanged, closed)
	}
	s.publishTable(ctx, freed)
	return freed, nil
}

// completeTableOrder marks a table's still-open order Completed. It returns
// nil when there was nothing to close.
func completeTableOrder(ctx context.Context, store OrderStore, t database.DiningTable) (*OrderResult, error) {
	order, ok, err := openTableOrder(ctx, store, t)
	if err != nil || !ok {
		return nil, err
	}
	order, err = applyOrderStatus(ctx, store, order, enum.OrderStatusCompleted)
	if err != nil {
		return nil, err
	}
	return loadOrderResult(ctx, store, order)
}

// RenameTable sets the table's display label. An empty label clears it.
func (s *OrderService) RenameTable(ctx context.Context, storeID uuid.UUID, number int32, label string) (database.DiningTable, error) {
	var updated database.DiningTable
	err := s.inTx(ctx, func(store OrderStore) error {
		table, err := getTable(ctx, store, storeID, number)
		if err != nil {
			return err
		}
		updated, err = store.UpdateTableLabel(ctx, database.UpdateTableLabelParams{
			ID:    table.ID,
			Label: optionalText(strings.TrimSpace(label)),
		})
		if err != nil {
			return fmt.Errorf("update table label: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.DiningTable{}, err
	}
	s.publishTable(ctx, updated)
	return updated, nil
}

// ConfigureTables makes tables 1..count exist. Tables numbered above count
// are removed only when free and unlinked; occupied ones are kept.
func (s *OrderService) ConfigureTables(ctx context.Context, storeID uuid.UUID, count int32) ([]database.DiningTable, error) {
	if count < 0 || count > MaxTables {
		return nil, newDomainError(KindInvalidRequest, "count must be between 0 and %d", MaxTables)
	}

	var tables []database.DiningTable
	err := s.inTx(ctx, func(store OrderStore) error {
		if _, err := store.GetStore(ctx, storeID); err != nil {
			return notFound(err, "store")
		}
		existing, err := store.ListTables(ctx, storeID)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}

		have := make(map[int32]bool, len(existing))
		for _, t := range existing {
			have[t.Number] = true
			if t.Number > count {
				if _, err := store.DeleteFreeTable(ctx, t.ID); err != nil {
					return fmt.Errorf("delete table: %w", err)
				}
			}
		}
		for n := int32(1); n <= count; n++ {
			if have[n] {
				continue
			}
			if _, err := store.CreateTable(ctx, database.CreateTableParams{StoreID: storeID, Number: n}); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return newDomainError(KindTableNotFree, "table %d was created concurrently; retry", n)
				}
				return fmt.Errorf("create table: %w", err)
			}
		}

		tables, err = store.ListTables(ctx, storeID)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tables configured",
		zap.String("store_id", storeID.String()),
		zap.Int32("count", count),
		zap.Int("tables", len(tables)),
	)
	return tables, nil
}

// SetTableStatus applies a floor-staff status change. Called and Billing are
// stored as given; Occupied and Waiting re-derive from the linked order; Free
// releases the table.
func (s *OrderService) SetTableStatus(ctx context.Context, storeID uuid.UUID, number int32, status string) (database.DiningTable, error) {
	switch status {
	case enum.TableStatusFree:
		return s.ReleaseTable(ctx, storeID, number)
	case enum.TableStatusOccupied, enum.TableStatusWaiting, enum.TableStatusCalled, enum.TableStatusBilling:
	default:
		return database.DiningTable{}, newDomainError(KindInvalidRequest, "invalid table status %q", status)
	}

	var updated database.DiningTable
	err := s.inTx(ctx, func(store OrderStore) error {
		table, err := getTable(ctx, store, storeID, number)
		if err != nil {
			return err
		}
		order, ok, err := openTableOrder(ctx, store, table)
		if err != nil {
			return err
		}
		if !ok {
			return newDomainError(KindInvalidTransition, "table %d has no open order", number)
		}

		next := status
		if status == enum.TableStatusOccupied || status == enum.TableStatusWaiting {
			items, err := store.ListOrderItemsByOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			next, _ = DeriveTableStatus("", &order, items)
		}

		updated, err = store.UpdateTableState(ctx, database.UpdateTableStateParams{
			ID:             table.ID,
			Status:         next,
			CurrentOrderID: table.CurrentOrderID,
			CustomerName:   table.CustomerName,
			OpenedAt:       table.OpenedAt,
		})
		if err != nil {
			return fmt.Errorf("update table state: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.DiningTable{}, err
	}
	s.publishTable(ctx, updated)
	return updated, nil
}

func getTable(ctx context.Context, store OrderStore, storeID uuid.UUID, number int32) (database.DiningTable, error) {
	t, err := store.GetTableByNumber(ctx, database.GetTableByNumberParams{StoreID: storeID, Number: number})
	if err != nil {
		return database.DiningTable{}, notFound(err, fmt.Sprintf("table %d", number))
	}
	return t, nil
}
