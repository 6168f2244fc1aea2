package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/order-engine/internal/database"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the engine needs inside a transaction.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetStore(ctx context.Context, id uuid.UUID) (database.Store, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	IncrementCustomerCancellations(ctx context.Context, id uuid.UUID) (database.Customer, error)

	ListStoreProductCandidates(ctx context.Context, arg database.ListStoreProductCandidatesParams) ([]database.StoreProduct, error)
	GetStoreProduct(ctx context.Context, arg database.GetStoreProductParams) (database.StoreProduct, error)
	DecrementStock(ctx context.Context, arg database.AdjustStockParams) (database.StoreProduct, error)
	IncrementStock(ctx context.Context, arg database.AdjustStockParams) (database.StoreProduct, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	ListStockMovementsByOrderItem(ctx context.Context, arg database.ListStockMovementsByOrderItemParams) ([]database.StockMovement, error)

	GetCombo(ctx context.Context, arg database.GetComboParams) (database.Combo, error)
	ListComboItemsByCombo(ctx context.Context, comboID uuid.UUID) ([]database.ComboItem, error)

	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrdersByStatus(ctx context.Context, arg database.ListOrdersByStatusParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	UpdateOrderDiscount(ctx context.Context, arg database.UpdateOrderDiscountParams) (database.Order, error)
	AppendOrderNote(ctx context.Context, arg database.AppendOrderNoteParams) (database.Order, error)

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	CreateOrderItemAddon(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error)
	ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemAddon, error)

	GetTableByNumber(ctx context.Context, arg database.GetTableByNumberParams) (database.DiningTable, error)
	GetTableByOrder(ctx context.Context, orderID uuid.UUID) (database.DiningTable, error)
	ListTables(ctx context.Context, storeID uuid.UUID) ([]database.DiningTable, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	DeleteFreeTable(ctx context.Context, id uuid.UUID) (int64, error)
	UpdateTableState(ctx context.Context, arg database.UpdateTableStateParams) (database.DiningTable, error)
	UpdateTableLabel(ctx context.Context, arg database.UpdateTableLabelParams) (database.DiningTable, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// inTx runs fn against a transaction-bound store. Any error from fn rolls the
// whole transaction back; commit is the last thing that happens.
func (s *OrderService) inTx(ctx context.Context, fn func(store OrderStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// notFound converts pgx.ErrNoRows into a NotFound domain error and wraps
// anything else with the failing step.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return newDomainError(KindNotFound, "%s not found", what)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
