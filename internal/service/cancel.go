package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"go.uber.org/zap"
)

const (
	actorMerchant = "merchant"
	actorCustomer = "customer"
)

type cancelRequest struct {
	storeID    uuid.UUID
	orderID    uuid.UUID
	customerID uuid.UUID
	reason     string
	actor      string
}

// CancelOrder cancels an order on behalf of the merchant, restoring all
// stock it consumed.
func (s *OrderService) CancelOrder(ctx context.Context, storeID, orderID uuid.UUID, reason string) (*OrderResult, error) {
	return s.cancel(ctx, cancelRequest{storeID: storeID, orderID: orderID, reason: reason, actor: actorMerchant})
}

// CancelOrderByCustomer cancels the customer's own order, subject to the
// store's cancellation policy.
func (s *OrderService) CancelOrderByCustomer(ctx context.Context, storeID, orderID, customerID uuid.UUID, reason string) (*OrderResult, error) {
	return s.cancel(ctx, cancelRequest{
		storeID:    storeID,
		orderID:    orderID,
		customerID: customerID,
		reason:     reason,
		actor:      actorCustomer,
	})
}

func (s *OrderService) cancel(ctx context.Context, req cancelRequest) (*OrderResult, error) {
	var result *OrderResult
	err := s.inTx(ctx, func(store OrderStore) error {
		order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.orderID, StoreID: req.storeID})
		if err != nil {
			return notFound(err, "order")
		}
		switch order.Status {
		case enum.OrderStatusCancelled:
			return newDomainError(KindAlreadyCancelled, "order is already cancelled")
		case enum.OrderStatusCompleted:
			return newDomainError(KindOrderClosed, "order is completed")
		}

		if req.actor == actorCustomer {
			if !order.CustomerID.Valid || uuid.UUID(order.CustomerID.Bytes) != req.customerID {
				return newDomainError(KindNotFound, "order not found")
			}
			st, err := store.GetStore(ctx, order.StoreID)
			if err != nil {
				return notFound(err, "store")
			}
			if err := checkCustomerCancel(st, order); err != nil {
				return err
			}
		}

		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		for _, it := range items {
			if it.Status == enum.ItemStatusCancelled {
				continue
			}
			if err := reverseItem(ctx, store, order, it, enum.StockMovementCancelRestore); err != nil {
				return err
			}
		}

		order, err = applyOrderStatus(ctx, store, order, enum.OrderStatusCancelled)
		if err != nil {
			return err
		}
		order, err = store.AppendOrderNote(ctx, database.AppendOrderNoteParams{
			ID:   order.ID,
			Note: cancellationNote(req.actor, req.reason),
		})
		if err != nil {
			return fmt.Errorf("append order note: %w", err)
		}
		order, err = recomputeTotals(ctx, store, order)
		if err != nil {
			return err
		}

		if req.actor == actorCustomer {
			if _, err := store.IncrementCustomerCancellations(ctx, req.customerID); err != nil {
				return fmt.Errorf("increment customer cancellations: %w", err)
			}
		}

		result, err = s.finishOrder(ctx, store, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order cancelled",
		zap.String("store_id", req.storeID.String()),
		zap.String("order_id", req.orderID.String()),
		zap.String("actor", req.actor),
	)
	s.publishOrder(ctx, enum.EventOrderCancelled, result)
	return result, nil
}

// checkCustomerCancel applies the store's customer cancellation policy.
func checkCustomerCancel(st database.Store, o database.Order) error {
	if !st.AllowCustomerCancel {
		return newDomainError(KindCancellationNotAllowed, "this store does not accept customer cancellations")
	}
	limit := StatusRank(st.MaxCancellableStatus)
	if limit < 0 {
		limit = StatusRank(enum.OrderStatusAwaitingAcceptance)
	}
	if StatusRank(o.Status) > limit {
		return newDomainError(KindCancellationNotAllowed, "order can no longer be cancelled: it is %s", strings.ToLower(o.Status))
	}
	return nil
}

func cancellationNote(actor, reason string) string {
	note := fmt.Sprintf("[cancelled by %s]", actor)
	if r := strings.TrimSpace(reason); r != "" {
		note += " " + r
	}
	return note
}

// reverseItem returns the stock consumed by one line item. The sale ledger is
// authoritative because smart lookup may have picked any of several duplicate
// rows; items without ledger entries fall back to their recorded references.
func reverseItem(ctx context.Context, store OrderStore, o database.Order, it database.OrderItem, kind string) error {
	sales, err := store.ListStockMovementsByOrderItem(ctx, database.ListStockMovementsByOrderItemParams{
		OrderItemID: pgtype.UUID{Bytes: it.ID, Valid: true},
		Kind:        enum.StockMovementSale,
	})
	if err != nil {
		return fmt.Errorf("list stock movements: %w", err)
	}
	if len(sales) > 0 {
		for _, m := range sales {
			if err := restoreStock(ctx, store, o.ID, it.ID, kind, m.StoreProductID, -m.Delta); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case it.StoreProductID.Valid:
		if err := restoreStock(ctx, store, o.ID, it.ID, kind, uuid.UUID(it.StoreProductID.Bytes), it.Quantity); err != nil {
			return err
		}
	case it.ComboID.Valid:
		parts, err := store.ListComboItemsByCombo(ctx, uuid.UUID(it.ComboID.Bytes))
		if err != nil {
			return fmt.Errorf("list combo items: %w", err)
		}
		for _, p := range parts {
			if err := restoreStock(ctx, store, o.ID, it.ID, kind, p.StoreProductID, p.Quantity*it.Quantity); err != nil {
				return err
			}
		}
	}

	addons, err := store.ListOrderItemAddonsByOrder(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("list order item addons: %w", err)
	}
	for _, a := range addons {
		if a.OrderItemID != it.ID {
			continue
		}
		if err := restoreStock(ctx, store, o.ID, it.ID, kind, a.StoreProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
